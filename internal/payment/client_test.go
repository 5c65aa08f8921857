package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox-backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   server.URL,
	})
}

func TestCreateOrder(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(ProviderOrder{ID: "order_abc", Amount: 5000, Currency: "INR", Status: "created"})
	})

	order, err := client.CreateOrder(context.Background(), 5000, "BB1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(5000), order.Amount)

	assert.Equal(t, float64(5000), gotPayload["amount"])
	assert.Equal(t, "INR", gotPayload["currency"])
	assert.Equal(t, "BB1700000000000", gotPayload["receipt"])
	assert.Equal(t, float64(1), gotPayload["payment_capture"])
}

func TestCreateQRCode(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/qr_codes", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(QRCode{ID: "qr_123", ImageURL: "https://rzp.io/i/abc", Status: "active"})
	})

	qr, err := client.CreateQRCode(context.Background(), QRCodeRequest{
		AmountPaise:  5000,
		OrderID:      "BB1700000000000",
		MachineID:    "VM-001",
		CustomerName: "Asha",
	})
	require.NoError(t, err)
	assert.Equal(t, "qr_123", qr.ID)
	assert.Equal(t, "https://rzp.io/i/abc", qr.ImageURL)

	assert.Equal(t, "upi_qr", gotPayload["type"])
	assert.Equal(t, "single_use", gotPayload["usage"])
	assert.Equal(t, true, gotPayload["fixed_amount"])
	assert.Equal(t, float64(5000), gotPayload["payment_amount"])

	notes, ok := gotPayload["notes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BB1700000000000", notes["order_id"])
	assert.Equal(t, "VM-001", notes["machine_id"])
	assert.Equal(t, "Asha", notes["customer_name"])
	assert.Equal(t, "Unknown", notes["customer_phone"])
}

func TestCreateQRCodeRejectsForeignImageURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QRCode{ID: "qr_123", ImageURL: "https://evil.example/qr.png"})
	})

	_, err := client.CreateQRCode(context.Background(), QRCodeRequest{AmountPaise: 100, OrderID: "BB1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unusable qr image url")
}

func TestProviderErrorSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	})

	_, err := client.CreateOrder(context.Background(), 1, "BB1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "amount too small")
}

func TestFetchQRCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/qr_codes/qr_123", r.URL.Path)
		json.NewEncoder(w).Encode(QRCode{ID: "qr_123", Status: "closed", PaymentsAmountReceived: 5000})
	})

	qr, err := client.FetchQRCode(context.Background(), "qr_123")
	require.NoError(t, err)
	assert.Equal(t, "closed", qr.Status)
	assert.Equal(t, int64(5000), qr.PaymentsAmountReceived)
}

func TestParseWebhookEventQRCredited(t *testing.T) {
	body := []byte(`{
		"event": "qr_code.credited",
		"payload": {
			"qr_code": {"entity": {"id": "qr_123", "notes": {"order_id": "BB1753493855391", "machine_id": "VM-001"}}},
			"payment": {"entity": {"id": "pay_456", "amount": 5000, "status": "captured"}}
		}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventQRCredited, event.Event)
	assert.Equal(t, "BB1753493855391", event.OrderID())
	assert.Equal(t, "pay_456", event.Payload.Payment.Entity.ID)
	assert.Equal(t, 50.0, Rupees(event.Payload.Payment.Entity.Amount))
}

func TestParseWebhookEventPaymentNotes(t *testing.T) {
	body := []byte(`{
		"event": "payment.failed",
		"payload": {
			"payment": {"entity": {"id": "pay_test_failed_123", "notes": {"order_id": "BB1753493855391"}, "status": "failed"}}
		}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, event.Event)
	assert.Equal(t, "BB1753493855391", event.OrderID())
}
