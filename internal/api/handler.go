package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"blackbox-backend/internal/logbuf"
	"blackbox-backend/internal/notification"
	"blackbox-backend/internal/payment"
	"blackbox-backend/internal/realtime"
	"blackbox-backend/internal/storage"
	"blackbox-backend/internal/store"
)

// Deps bundles everything the API handlers need.
type Deps struct {
	Store         store.Store
	Payments      *payment.Client
	Storage       *storage.Client
	Hub           *realtime.Hub
	Notifications *notification.WorkerPool
	Logs          *logbuf.Buffer
	WebPush       *webpush.Options
	WebhookSecret string
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	payments      *payment.Client
	storage       *storage.Client
	hub           *realtime.Hub
	notifications *notification.WorkerPool
	logs          *logbuf.Buffer
	webpush       *webpush.Options
	webhookSecret string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		store:         deps.Store,
		payments:      deps.Payments,
		storage:       deps.Storage,
		hub:           deps.Hub,
		notifications: deps.Notifications,
		logs:          deps.Logs,
		webpush:       deps.WebPush,
		webhookSecret: deps.WebhookSecret,
	}
}

func (h *Handler) broadcastInventoryUpdated() {
	if h.hub != nil {
		h.hub.BroadcastInventoryUpdated()
	}
}

func (h *Handler) broadcastOrdersUpdated() {
	if h.hub != nil {
		h.hub.BroadcastOrdersUpdated()
	}
}
