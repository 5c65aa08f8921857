package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"blackbox-backend/internal/model"
	"blackbox-backend/internal/mw"
)

// Stock thresholds for the admin dashboard.
const (
	lowStockThreshold      = 5
	criticalStockThreshold = 2
	recentOrdersLimit      = 4
)

// DashboardStats handles GET /api/dashboard/stats. It aggregates order
// and inventory figures server-side so the admin panel loads from one
// request instead of re-deriving everything client-side.
func (h *Handler) DashboardStats(c *gin.Context) {
	machineID := mw.Tenant(c)

	orders, err := h.store.ListOrders(c.Request.Context(), machineID)
	if err != nil {
		log.Printf("list orders for dashboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch dashboard stats"})
		return
	}
	inventory, err := h.store.ListInventory(c.Request.Context(), machineID)
	if err != nil {
		log.Printf("list inventory for dashboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch dashboard stats"})
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var ordersToday int
	var totalSales, salesToday float64
	for _, order := range orders {
		today := !order.CreatedAt.Before(midnight)
		if today {
			ordersToday++
		}
		if order.PaymentStatus != model.PaymentPaid {
			continue
		}
		totalSales += order.TotalAmount
		if today {
			salesToday += order.TotalAmount
		}
	}

	var lowStock, criticalStock, outOfStock int
	for _, item := range inventory {
		if item.Quantity <= lowStockThreshold {
			lowStock++
		}
		if item.Quantity <= criticalStockThreshold {
			criticalStock++
		}
		if item.Quantity == 0 {
			outOfStock++
		}
	}

	// Orders come back newest-first, so the head of the list is the
	// recent-activity feed.
	recent := orders
	if len(recent) > recentOrdersLimit {
		recent = recent[:recentOrdersLimit]
	}
	if recent == nil {
		recent = []model.Order{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"orders": gin.H{
				"total":       len(orders),
				"today":       ordersToday,
				"total_sales": totalSales,
				"sales_today": salesToday,
			},
			"inventory": gin.H{
				"total_items":    len(inventory),
				"low_stock":      lowStock,
				"critical_stock": criticalStock,
				"out_of_stock":   outOfStock,
			},
			"recent_orders": recent,
		},
	})
}
