package model

import "time"

// InventoryItem represents a single product slot in a vending machine.
// MachineID partitions all rows; a tenant never sees another tenant's items.
type InventoryItem struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	MachineID   string    `gorm:"primaryKey;size:32;index" json:"machine_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Price       float64   `gorm:"not null" json:"price"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Category    string    `gorm:"size:128" json:"category"`
	Slot        string    `gorm:"size:32" json:"slot"`
	Image       string    `gorm:"size:1024" json:"image"`
	Description string    `gorm:"size:2048" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName keeps the historical table name used by the hosted database.
func (InventoryItem) TableName() string { return "inventory" }
