package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"blackbox-backend/internal/model"
)

// PaymentEvent is the unit of work dispatched when an order's payment
// state changes.
type PaymentEvent struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	MachineID string  `json:"machineId"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers pushing payment alerts to
// subscribed admin browsers.
type WorkerPool struct {
	size    int
	jobs    chan PaymentEvent
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan PaymentEvent, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender swaps the delivery implementation. Used by tests.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case event := <-wp.jobs:
			wp.notify(ctx, event)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a payment event without blocking the caller. The webhook
// handler must acknowledge the provider promptly, so a full queue drops
// the notification rather than waiting.
func (wp *WorkerPool) Dispatch(event PaymentEvent) {
	select {
	case wp.jobs <- event:
	default:
		log.Printf("notification queue full, dropping alert for order %s", event.OrderID)
	}
}

// notify fans the event out to every subscription scoped to the machine.
func (wp *WorkerPool) notify(ctx context.Context, event PaymentEvent) {
	if wp.webpush == nil || wp.webpush.VAPIDPrivateKey == "" {
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("machine_id = ?", event.MachineID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("fetch subscriptions for machine %s: %v", event.MachineID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	title := fmt.Sprintf("Order %s %s", event.OrderID, event.Status)
	body := fmt.Sprintf("Machine %s: ₹%.2f", event.MachineID, event.Amount)
	payload, err := json.Marshal(map[string]any{
		"title":     title,
		"body":      body,
		"orderId":   event.OrderID,
		"paymentId": event.PaymentID,
		"status":    event.Status,
	})
	if err != nil {
		log.Printf("marshal notification payload: %v", err)
		return
	}

	for _, sub := range subscriptions {
		resp, err := wp.sender.Send(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}, wp.webpush)
		if err != nil {
			log.Printf("push to %s failed: %v", sub.Endpoint, err)
			continue
		}
		resp.Body.Close()

		// Prune subscriptions the push service no longer recognizes.
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := wp.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: sub.Endpoint}).Error; err != nil {
				log.Printf("prune subscription %s: %v", sub.Endpoint, err)
			}
		}
	}
}
