package payment

import (
	"encoding/json"
	"fmt"

	"github.com/razorpay/razorpay-go/utils"
)

// Webhook event kinds this backend reacts to. Anything else is accepted
// and acknowledged without effect.
const (
	EventQRCredited      = "qr_code.credited"
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// SignatureHeader is the header Razorpay signs webhook deliveries with.
const SignatureHeader = "X-Razorpay-Signature"

// QRCodeEntity is the qr_code entity embedded in a webhook payload.
type QRCodeEntity struct {
	ID    string            `json:"id"`
	Notes map[string]string `json:"notes"`
}

// PaymentEntity is the payment entity embedded in a webhook payload.
type PaymentEntity struct {
	ID     string            `json:"id"`
	Amount int64             `json:"amount"`
	Status string            `json:"status"`
	Notes  map[string]string `json:"notes"`
}

// WebhookEvent is a provider-signed event delivery.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		QRCode struct {
			Entity QRCodeEntity `json:"entity"`
		} `json:"qr_code"`
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// OrderID extracts the order identifier from whichever entity carries it.
// QR events store it in the QR code's notes; payment events in the
// payment's notes.
func (e *WebhookEvent) OrderID() string {
	if id := e.Payload.QRCode.Entity.Notes["order_id"]; id != "" {
		return id
	}
	return e.Payload.Payment.Entity.Notes["order_id"]
}

// MachineID extracts the vending machine identifier from the event notes.
func (e *WebhookEvent) MachineID() string {
	if id := e.Payload.QRCode.Entity.Notes["machine_id"]; id != "" {
		return id
	}
	return e.Payload.Payment.Entity.Notes["machine_id"]
}

// ParseWebhookEvent decodes a webhook request body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &event, nil
}

// VerifyWebhookSignature checks the provider HMAC over the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}
