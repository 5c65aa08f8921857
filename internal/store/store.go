package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blackbox-backend/internal/model"
)

// Store defines the interface for all database operations. Every method is
// tenant-scoped through a machine ID except the webhook-driven order
// updates, which only carry the provider-side order ID.
type Store interface {
	DB() *gorm.DB

	ListInventory(ctx context.Context, machineID string) ([]model.InventoryItem, error)
	GetInventoryItem(ctx context.Context, machineID, itemID string) (*model.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item *model.InventoryItem) error
	UpdateInventoryItem(ctx context.Context, machineID, itemID string, updates map[string]any) error
	DeleteInventoryItem(ctx context.Context, machineID, itemID string) error
	CountInventory(ctx context.Context, machineID string) (int64, error)

	ListOrders(ctx context.Context, machineID string) ([]model.Order, error)
	GetOrder(ctx context.Context, machineID, orderID string) (*model.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)
	CreateOrder(ctx context.Context, order *model.Order) error
	UpdateOrder(ctx context.Context, machineID, orderID string, updates map[string]any) error
	CancelOrder(ctx context.Context, machineID, orderID string) error
	MarkOrderPaid(ctx context.Context, orderID, paymentID string, amount float64) error
	MarkOrderFailed(ctx context.Context, orderID, paymentID string) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) ListInventory(ctx context.Context, machineID string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list inventory for %s: %w", machineID, err)
	}
	return items, nil
}

func (s *gormStore) GetInventoryItem(ctx context.Context, machineID, itemID string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND id = ?", machineID, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *gormStore) CreateInventoryItem(ctx context.Context, item *model.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateInventoryItem(ctx context.Context, machineID, itemID string, updates map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("machine_id = ? AND id = ?", machineID, itemID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update inventory item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) DeleteInventoryItem(ctx context.Context, machineID, itemID string) error {
	res := s.db.WithContext(ctx).
		Where("machine_id = ? AND id = ?", machineID, itemID).
		Delete(&model.InventoryItem{})
	if res.Error != nil {
		return fmt.Errorf("delete inventory item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) CountInventory(ctx context.Context, machineID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("machine_id = ?", machineID).
		Count(&count).Error
	return count, err
}

func (s *gormStore) ListOrders(ctx context.Context, machineID string) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", machineID, err)
	}
	return orders, nil
}

func (s *gormStore) GetOrder(ctx context.Context, machineID, orderID string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND order_id = ?", machineID, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *gormStore) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *gormStore) CreateOrder(ctx context.Context, order *model.Order) error {
	if order.PaymentStatus == "" {
		order.PaymentStatus = model.PaymentPending
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order %s: %w", order.OrderID, err)
	}
	return nil
}

// UpdateOrder applies a field patch and always stamps updated_at.
func (s *gormStore) UpdateOrder(ctx context.Context, machineID, orderID string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("machine_id = ? AND order_id = ?", machineID, orderID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update order %s: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CancelOrder moves an order to cancelled regardless of its current status.
// Orders are never hard-deleted.
func (s *gormStore) CancelOrder(ctx context.Context, machineID, orderID string) error {
	return s.UpdateOrder(ctx, machineID, orderID, map[string]any{
		"payment_status": model.PaymentCancelled,
	})
}

// MarkOrderPaid transitions an order to paid. Webhook deliveries can repeat,
// so applying the same transition twice must succeed without complaint.
func (s *gormStore) MarkOrderPaid(ctx context.Context, orderID, paymentID string, amount float64) error {
	res := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"payment_status": model.PaymentPaid,
			"payment_id":     paymentID,
			"payment_amount": amount,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("mark order %s paid: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkOrderFailed transitions an order to failed.
func (s *gormStore) MarkOrderFailed(ctx context.Context, orderID, paymentID string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"payment_status": model.PaymentFailed,
			"payment_id":     paymentID,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("mark order %s failed: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertSubscription stores a push subscription keyed by its endpoint.
// Re-registering an existing endpoint refreshes its keys and machine.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "machine_id"}),
		}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	res := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
