package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox-backend/internal/model"
)

func seedOrder(t *testing.T, env *testEnv, orderID, status string, amount float64, createdAt time.Time) {
	t.Helper()
	order := model.Order{
		OrderID:       orderID,
		MachineID:     testTenant,
		Items:         model.OrderItems{{ID: "1", Name: "Lays", Price: amount, Quantity: 1}},
		TotalAmount:   amount,
		PaymentStatus: status,
	}
	require.NoError(t, env.store.CreateOrder(context.Background(), &order))
	require.NoError(t, env.store.DB().Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Update("created_at", createdAt).Error)
}

func seedItem(t *testing.T, env *testEnv, id string, quantity int) {
	t.Helper()
	require.NoError(t, env.store.CreateInventoryItem(context.Background(), &model.InventoryItem{
		ID: id, MachineID: testTenant, Name: "Item " + id, Price: 10, Quantity: quantity,
		Category: "Snacks", Slot: "A" + id,
	}))
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	seedOrder(t, env, "BB1", model.PaymentPaid, 50, now)
	seedOrder(t, env, "BB2", model.PaymentPending, 20, now)
	seedOrder(t, env, "BB3", model.PaymentPaid, 30, now.AddDate(0, 0, -2))
	seedOrder(t, env, "BB4", model.PaymentFailed, 40, now.AddDate(0, 0, -2))

	seedItem(t, env, "1", 10) // healthy
	seedItem(t, env, "2", 5)  // low
	seedItem(t, env, "3", 2)  // low + critical
	seedItem(t, env, "4", 0)  // low + critical + out

	w := env.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	stats := body["stats"].(map[string]any)

	orders := stats["orders"].(map[string]any)
	assert.Equal(t, 4.0, orders["total"])
	assert.Equal(t, 2.0, orders["today"])
	assert.Equal(t, 80.0, orders["total_sales"])
	assert.Equal(t, 50.0, orders["sales_today"])

	inventory := stats["inventory"].(map[string]any)
	assert.Equal(t, 4.0, inventory["total_items"])
	assert.Equal(t, 3.0, inventory["low_stock"])
	assert.Equal(t, 2.0, inventory["critical_stock"])
	assert.Equal(t, 1.0, inventory["out_of_stock"])

	recent := stats["recent_orders"].([]any)
	assert.Len(t, recent, 4)
	newest := recent[0].(map[string]any)
	assert.Contains(t, []any{"BB1", "BB2"}, newest["order_id"])
}

func TestDashboardStatsEmptyTenant(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	stats := body["stats"].(map[string]any)

	orders := stats["orders"].(map[string]any)
	assert.Equal(t, 0.0, orders["total"])
	assert.Equal(t, 0.0, orders["total_sales"])
	assert.Equal(t, []any{}, stats["recent_orders"])
}

func TestDashboardRecentOrdersCapped(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	for i := 0; i < 6; i++ {
		seedOrder(t, env, "BB"+string(rune('1'+i)), model.PaymentPaid, 10, now.Add(time.Duration(i)*time.Minute))
	}

	w := env.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeJSON(t, w)["stats"].(map[string]any)
	assert.Len(t, stats["recent_orders"].([]any), 4)
}

func TestInitOrdersSeedsOnce(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/orders/init", nil)
	require.Equal(t, http.StatusOK, w.Code)

	orders, err := env.store.ListOrders(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, model.PaymentPaid, order.PaymentStatus)
	}

	w = env.do(t, http.MethodGet, "/api/orders/init", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "Orders already exist", body["message"])
	assert.Equal(t, 2.0, body["count"])
}
