package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blackbox-backend/internal/model"
	"blackbox-backend/internal/mw"
	"blackbox-backend/internal/notification"
	"blackbox-backend/internal/payment"
	"blackbox-backend/internal/realtime"
)

// VerifyPayment handles POST /api/verify-payment. It is a pull-based
// complement to the webhook: the kiosk polls it while waiting for the
// customer to scan and pay.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req struct {
		QRCodeID string `json:"qrCodeId"`
		OrderID  string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "qrCodeId is required"})
		return
	}

	if h.payments != nil && h.payments.Configured() {
		qr, err := h.payments.FetchQRCode(c.Request.Context(), req.QRCodeID)
		if err != nil {
			log.Printf("fetch qr code %s: %v", req.QRCodeID, err)
		} else if qr.Status == "closed" && qr.PaymentsAmountReceived > 0 {
			if req.OrderID != "" {
				err := h.store.UpdateOrder(c.Request.Context(), mw.Tenant(c), req.OrderID, map[string]any{
					"payment_status": model.PaymentPaid,
				})
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("mark order %s paid after verification: %v", req.OrderID, err)
				}
				h.broadcastOrdersUpdated()
			}
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"status":  model.PaymentPaid,
				"message": "Payment verified successfully!",
				"amount":  payment.Rupees(qr.PaymentsAmountReceived),
			})
			return
		}
	}

	// Provider unreachable or QR still open: fall back to whatever the
	// webhook may already have written.
	if req.OrderID != "" {
		order, err := h.store.GetOrderByID(c.Request.Context(), req.OrderID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"status":  order.PaymentStatus,
				"message": fmt.Sprintf("Order is %s", order.PaymentStatus),
			})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("fetch order %s: %v", req.OrderID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  model.PaymentPending,
		"message": "Payment not yet received",
	})
}

// RazorpayWebhook handles webhook deliveries from the payment provider.
// The provider retries on anything but a 2xx, so every delivery is
// acknowledged with 200 even when it cannot be applied.
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("read webhook body: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received"})
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader(payment.SignatureHeader)
		if !payment.VerifyWebhookSignature(body, signature, h.webhookSecret) {
			log.Printf("webhook signature verification failed")
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received"})
			return
		}
	}

	event, err := payment.ParseWebhookEvent(body)
	if err != nil {
		log.Printf("parse webhook: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received"})
		return
	}

	switch event.Event {
	case payment.EventQRCredited, payment.EventPaymentCaptured:
		h.applyPaymentCaptured(c, event)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook processed successfully"})
	case payment.EventPaymentFailed:
		h.applyPaymentFailed(c, event)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook processed successfully"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event received"})
	}
}

func (h *Handler) applyPaymentCaptured(c *gin.Context, event *payment.WebhookEvent) {
	orderID := event.OrderID()
	pay := event.Payload.Payment.Entity
	amount := payment.Rupees(pay.Amount)

	if orderID == "" {
		log.Printf("webhook %s carried no order id, payment %s", event.Event, pay.ID)
		return
	}
	if err := h.store.MarkOrderPaid(c.Request.Context(), orderID, pay.ID, amount); err != nil {
		log.Printf("mark order %s paid: %v", orderID, err)
	} else {
		log.Printf("order %s paid, payment %s, amount %.2f", orderID, pay.ID, amount)
	}

	if h.hub != nil {
		h.hub.BroadcastPaymentEvent(realtime.EventPaymentSuccess, orderID, pay.ID, amount, model.PaymentPaid)
		h.hub.BroadcastOrdersUpdated()
	}
	if h.notifications != nil {
		h.notifications.Dispatch(notification.PaymentEvent{
			OrderID:   orderID,
			PaymentID: pay.ID,
			MachineID: event.MachineID(),
			Amount:    amount,
			Status:    model.PaymentPaid,
		})
	}
}

func (h *Handler) applyPaymentFailed(c *gin.Context, event *payment.WebhookEvent) {
	orderID := event.OrderID()
	pay := event.Payload.Payment.Entity

	if orderID == "" {
		log.Printf("webhook %s carried no order id, payment %s", event.Event, pay.ID)
		return
	}
	if err := h.store.MarkOrderFailed(c.Request.Context(), orderID, pay.ID); err != nil {
		log.Printf("mark order %s failed: %v", orderID, err)
	} else {
		log.Printf("order %s failed, payment %s", orderID, pay.ID)
	}

	if h.hub != nil {
		h.hub.BroadcastPaymentEvent(realtime.EventPaymentFailed, orderID, pay.ID, payment.Rupees(pay.Amount), model.PaymentFailed)
		h.hub.BroadcastOrdersUpdated()
	}
	if h.notifications != nil {
		h.notifications.Dispatch(notification.PaymentEvent{
			OrderID:   orderID,
			PaymentID: pay.ID,
			MachineID: event.MachineID(),
			Amount:    payment.Rupees(pay.Amount),
			Status:    model.PaymentFailed,
		})
	}
}
