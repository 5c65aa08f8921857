package api

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blackbox-backend/internal/model"
	"blackbox-backend/internal/mw"
	"blackbox-backend/internal/payment"
)

type createOrderRequest struct {
	Items         []model.OrderItem `json:"items"`
	TotalAmount   *float64          `json:"totalAmount"`
	CustomerName  string            `json:"customerName"`
	CustomerPhone string            `json:"customerPhone"`
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.store.ListOrders(c.Request.Context(), mw.Tenant(c))
	if err != nil {
		log.Printf("list orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch orders"})
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// CreateOrder handles POST /api/orders. The order row is persisted as
// pending before any payment-provider call, so a provider outage still
// leaves a visible order trail.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Order must contain at least one item"})
		return
	}
	if req.TotalAmount == nil || *req.TotalAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "totalAmount must be a non-negative number"})
		return
	}
	var sum float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Item quantity must be a positive integer"})
			return
		}
		sum += item.Price * float64(item.Quantity)
	}
	if math.Abs(sum-*req.TotalAmount) > 0.01 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "totalAmount does not match item totals"})
		return
	}

	machineID := mw.Tenant(c)
	order := model.Order{
		OrderID:       fmt.Sprintf("BB%d", time.Now().UnixMilli()),
		MachineID:     machineID,
		Items:         req.Items,
		TotalAmount:   *req.TotalAmount,
		PaymentStatus: model.PaymentPending,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}
	if err := h.store.CreateOrder(c.Request.Context(), &order); err != nil {
		log.Printf("create order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create order"})
		return
	}

	if h.payments == nil || !h.payments.Configured() {
		log.Printf("order %s created but payment provider is not configured", order.OrderID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Payment provider credentials are not configured",
			"orderId": order.OrderID,
		})
		return
	}

	amountPaise := int64(math.Round(*req.TotalAmount * 100))
	providerOrder, err := h.payments.CreateOrder(c.Request.Context(), amountPaise, order.OrderID)
	if err != nil {
		log.Printf("provider order for %s: %v", order.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create payment order",
			"orderId": order.OrderID,
			"message": "Order created but payment setup failed",
		})
		return
	}

	qr, err := h.payments.CreateQRCode(c.Request.Context(), payment.QRCodeRequest{
		AmountPaise:   amountPaise,
		OrderID:       order.OrderID,
		MachineID:     machineID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		log.Printf("qr code for %s: %v", order.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate payment QR code",
			"orderId": order.OrderID,
			"message": "Order created but QR code generation failed",
		})
		return
	}

	h.broadcastOrdersUpdated()
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"orderId":         order.OrderID,
		"razorpayOrderId": providerOrder.ID,
		"qrCodeId":        qr.ID,
		"qrCodeUrl":       qr.ImageURL,
		"amount":          *req.TotalAmount,
	})
}

// GetOrder handles GET /api/orders/:id. The literal id "init" is the
// sample-data seeding route; gin cannot register a static sibling next
// to the :id wildcard, so it is dispatched here.
func (h *Handler) GetOrder(c *gin.Context) {
	if c.Param("id") == "init" {
		h.InitOrders(c)
		return
	}
	order, err := h.store.GetOrder(c.Request.Context(), mw.Tenant(c), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("fetch order %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// InitOrders handles GET /api/orders/init. It seeds a fresh machine
// with a couple of sample paid orders so the admin dashboard has data
// to show; an already-used machine is left untouched.
func (h *Handler) InitOrders(c *gin.Context) {
	machineID := mw.Tenant(c)
	existing, err := h.store.ListOrders(c.Request.Context(), machineID)
	if err != nil {
		log.Printf("list orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to check orders"})
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Orders already exist", "count": len(existing)})
		return
	}

	samples := sampleOrders(machineID)
	for i := range samples {
		if err := h.store.CreateOrder(c.Request.Context(), &samples[i]); err != nil {
			log.Printf("seed order %s: %v", samples[i].OrderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to initialize orders"})
			return
		}
	}

	h.broadcastOrdersUpdated()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Created %d sample orders", len(samples)),
		"orders":  samples,
	})
}

func sampleOrders(machineID string) []model.Order {
	// Seeded in the same millisecond, so the ids need an offset to stay
	// unique.
	base := time.Now().UnixMilli()
	return []model.Order{
		{
			OrderID:       fmt.Sprintf("BB%d", base),
			MachineID:     machineID,
			Items:         model.OrderItems{{ID: "1", Name: "Classic Chips", Price: 25, Quantity: 2}},
			TotalAmount:   50,
			PaymentStatus: model.PaymentPaid,
			PaymentAmount: 50,
		},
		{
			OrderID:       fmt.Sprintf("BB%d", base+1),
			MachineID:     machineID,
			Items:         model.OrderItems{{ID: "18", Name: "Water Bottle", Price: 20, Quantity: 1}},
			TotalAmount:   20,
			PaymentStatus: model.PaymentPaid,
			PaymentAmount: 20,
		},
	}
}

// UpdateOrder handles PUT /api/orders/:id.
func (h *Handler) UpdateOrder(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	// Clients send camelCase; the storage layer speaks snake_case.
	aliases := map[string]string{
		"paymentStatus": "payment_status",
		"customerName":  "customer_name",
		"customerPhone": "customer_phone",
	}
	updates := make(map[string]any)
	for _, field := range []string{"payment_status", "customer_name", "customer_phone"} {
		if v, ok := req[field]; ok {
			updates[field] = v
		}
	}
	for alias, field := range aliases {
		if v, ok := req[alias]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No updatable fields provided"})
		return
	}
	if v, ok := updates["payment_status"].(string); ok && !model.ValidPaymentStatus(v) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid payment status"})
		return
	}

	err := h.store.UpdateOrder(c.Request.Context(), mw.Tenant(c), c.Param("id"), updates)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("update order %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update order"})
		return
	}

	h.broadcastOrdersUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order updated"})
}

// UpdateOrderStatus handles PUT /api/orders/:id/status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "status is required"})
		return
	}
	if !model.ValidPaymentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid payment status"})
		return
	}

	err := h.store.UpdateOrder(c.Request.Context(), mw.Tenant(c), c.Param("id"), map[string]any{
		"payment_status": req.Status,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("update order status %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update order status"})
		return
	}

	h.broadcastOrdersUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated"})
}

// CancelOrder handles POST /api/orders/:id/cancel.
func (h *Handler) CancelOrder(c *gin.Context) {
	err := h.store.CancelOrder(c.Request.Context(), mw.Tenant(c), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	if err != nil {
		log.Printf("cancel order %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to cancel order"})
		return
	}

	h.broadcastOrdersUpdated()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled successfully"})
}
