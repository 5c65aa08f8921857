package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blackbox-backend/config"
	"blackbox-backend/internal/model"
	"blackbox-backend/internal/payment"
	"blackbox-backend/internal/realtime"
	"blackbox-backend/internal/storage"
	"blackbox-backend/internal/store"
)

const testTenant = "VM-001"

type testEnv struct {
	router *gin.Engine
	store  store.Store
	hub    *realtime.Hub
}

type envOption func(*Deps, *config.Config)

func withPayments(c *payment.Client) envOption {
	return func(d *Deps, _ *config.Config) { d.Payments = c }
}

func withStorage(c *storage.Client) envOption {
	return func(d *Deps, _ *config.Config) { d.Storage = c }
}

func withWebhookSecret(secret string) envOption {
	return func(d *Deps, _ *config.Config) { d.WebhookSecret = secret }
}

func withRateLimit(perSec float64, burst int) envOption {
	return func(_ *Deps, cfg *config.Config) {
		cfg.Server.RateLimitPerSec = perSec
		cfg.Server.RateLimitBurst = burst
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.InventoryItem{}, &model.Order{}, &model.PushSubscription{}))

	s := store.NewGormStore(db)
	hub := realtime.NewHub(testTenant)
	t.Cleanup(hub.Close)

	deps := Deps{
		Store:    s,
		Payments: payment.NewClient(&config.RazorpayConfig{}),
		Hub:      hub,
	}
	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1
	cfg.Machine.ID = testTenant

	for _, opt := range opts {
		opt(&deps, cfg)
	}

	return &testEnv{
		router: NewRouter(NewHandler(deps), cfg),
		store:  s,
		hub:    hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-tenant-id", testTenant)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// razorpayStub fakes the provider's order, QR creation and QR fetch
// endpoints.
func razorpayStub(t *testing.T, qrStatus string, amountReceived int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payment.ProviderOrder{ID: "order_stub1", Status: "created"})
	})
	mux.HandleFunc("POST /payments/qr_codes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payment.QRCode{ID: "qr_stub1", ImageURL: "https://rzp.io/i/stub", Status: "active"})
	})
	mux.HandleFunc("GET /payments/qr_codes/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payment.QRCode{
			ID:                     "qr_stub1",
			Status:                 qrStatus,
			PaymentsAmountReceived: amountReceived,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stubPaymentClient(t *testing.T, srv *httptest.Server) *payment.Client {
	t.Helper()
	return payment.NewClient(&config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		BaseURL:   srv.URL,
	})
}
