package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blackbox-backend/config"
)

// QR codes expire an hour after creation.
const qrCodeTTL = time.Hour

// Client issues requests against the Razorpay REST API. The base URL is
// injectable so tests can point it at a local server.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewClient creates a payment client from configuration.
func NewClient(cfg *config.RazorpayConfig) *Client {
	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether provider credentials are present. Without them
// no QR code can be generated and order creation must fail loudly.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

// ProviderOrder is a payment-provider order record.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Receipt  string `json:"receipt"`
}

// QRCode is a single-use UPI QR code issued by the provider.
type QRCode struct {
	ID                     string            `json:"id"`
	ImageURL               string            `json:"image_url"`
	Status                 string            `json:"status"`
	PaymentsAmountReceived int64             `json:"payments_amount_received"`
	Notes                  map[string]string `json:"notes"`
}

// QRCodeRequest carries the fields needed to issue a QR code for an order.
// The order and machine identifiers travel in the provider-side notes so
// webhook events can be correlated back to the order row.
type QRCodeRequest struct {
	AmountPaise   int64
	OrderID       string
	MachineID     string
	CustomerName  string
	CustomerPhone string
}

// CreateOrder creates a provider order for the given amount in paise.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, receipt string) (*ProviderOrder, error) {
	payload := map[string]any{
		"amount":          amountPaise,
		"currency":        "INR",
		"receipt":         receipt,
		"payment_capture": 1,
	}

	var order ProviderOrder
	if err := c.post(ctx, "/orders", payload, &order); err != nil {
		return nil, fmt.Errorf("create provider order: %w", err)
	}
	return &order, nil
}

// CreateQRCode creates a single-use, fixed-amount UPI QR code. Only a
// genuine provider-issued QR image URL is ever accepted; anything else is
// treated as a failure rather than passed on to the kiosk.
func (c *Client) CreateQRCode(ctx context.Context, req QRCodeRequest) (*QRCode, error) {
	customerName := req.CustomerName
	if customerName == "" {
		customerName = "Unknown"
	}
	customerPhone := req.CustomerPhone
	if customerPhone == "" {
		customerPhone = "Unknown"
	}

	payload := map[string]any{
		"type":           "upi_qr",
		"name":           fmt.Sprintf("BlackBox Order %s", req.OrderID),
		"usage":          "single_use",
		"fixed_amount":   true,
		"payment_amount": req.AmountPaise,
		"description":    fmt.Sprintf("Payment for BlackBox order %s", req.OrderID),
		"close_by":       time.Now().Add(qrCodeTTL).Unix(),
		"notes": map[string]string{
			"order_id":       req.OrderID,
			"machine_id":     req.MachineID,
			"customer_name":  customerName,
			"customer_phone": customerPhone,
		},
	}

	var qr QRCode
	if err := c.post(ctx, "/payments/qr_codes", payload, &qr); err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}
	if !isProviderURL(qr.ImageURL) {
		return nil, fmt.Errorf("provider returned unusable qr image url %q", qr.ImageURL)
	}
	return &qr, nil
}

// FetchQRCode retrieves the current state of a QR code.
func (c *Client) FetchQRCode(ctx context.Context, qrID string) (*QRCode, error) {
	var qr QRCode
	if err := c.get(ctx, "/payments/qr_codes/"+qrID, &qr); err != nil {
		return nil, fmt.Errorf("fetch qr code %s: %w", qrID, err)
	}
	return &qr, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// Rupees converts a provider paise amount to rupees.
func Rupees(paise int64) float64 {
	return float64(paise) / 100
}

func isProviderURL(u string) bool {
	return u != "" && (strings.Contains(u, "rzp.io") || strings.Contains(u, "razorpay"))
}
