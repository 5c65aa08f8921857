package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Payment status values an order can hold. Paid and failed are terminal
// except for an explicit cancel.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// ValidPaymentStatus reports whether s is one of the recognised payment
// status values.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// OrderItem is a single line item inside an order.
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderItems is stored as a JSON column.
type OrderItems []OrderItem

// Value implements driver.Valuer.
func (o OrderItems) Value() (driver.Value, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (o *OrderItems) Scan(value any) error {
	if value == nil {
		*o = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported order items column type %T", value)
	}
	return json.Unmarshal(raw, o)
}

// Order is a tenant-scoped purchase. Orders are never hard-deleted;
// cancellation is a status transition.
type Order struct {
	OrderID       string     `gorm:"primaryKey;size:32" json:"order_id"`
	MachineID     string     `gorm:"size:32;index;not null" json:"machine_id"`
	Items         OrderItems `gorm:"type:text;not null" json:"items"`
	TotalAmount   float64    `gorm:"not null" json:"total_amount"`
	PaymentStatus string     `gorm:"size:16;not null;default:pending" json:"payment_status"`
	CustomerName  string     `gorm:"size:256" json:"customer_name"`
	CustomerPhone string     `gorm:"size:32" json:"customer_phone"`
	PaymentID     string     `gorm:"size:64" json:"payment_id"`
	PaymentAmount float64    `json:"payment_amount"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
