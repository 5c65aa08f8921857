package api

import (
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"blackbox-backend/config"
	"blackbox-backend/internal/mw"
)

// Paths reachable without a tenant header or API key: health probes,
// the status poll and log tailing.
var openPaths = []string{
	"/api/health",
	"/api/logs",
	"/api/machine/status",
}

// NewRouter wires the middleware chain and all routes.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	imageCache := cache.New(cacheTTL, 2*cacheTTL)

	api := r.Group("/api")
	api.Use(
		mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst),
		mw.TenantRequired(openPaths),
		mw.APIKeyRequired(cfg.Server.APIKey, openPaths),
	)
	{
		api.GET("/health", h.Health)
		api.GET("/logs", h.Logs)

		api.GET("/inventory", h.ListInventory)
		api.POST("/inventory", h.CreateInventory)
		api.PUT("/inventory", h.UpdateInventory)
		api.DELETE("/inventory", h.DeleteInventory)
		api.GET("/inventory/init", h.InitInventory)

		api.GET("/orders", h.ListOrders)
		api.POST("/orders", h.CreateOrder)
		// GET /orders/init is served through the :id route; see GetOrder.
		api.GET("/orders/:id", h.GetOrder)
		api.PUT("/orders/:id", h.UpdateOrder)
		api.PUT("/orders/:id/status", h.UpdateOrderStatus)
		api.POST("/orders/:id/cancel", h.CancelOrder)

		api.POST("/verify-payment", h.VerifyPayment)

		api.POST("/upload", h.Upload)

		api.GET("/dashboard/stats", h.DashboardStats)

		api.GET("/machine/status", h.GetMachineStatus)
		api.GET("/machine/status/:id", h.GetMachineStatusByID)

		api.PUT("/subscriptions", h.PutSubscription)
		api.GET("/subscriptions", h.GetSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	// Webhook deliveries must always be acknowledged 200, so both paths
	// live outside the /api group: the provider cannot send tenant or key
	// headers, and a retry burst must never be throttled into 429s.
	// Provider dashboards are commonly configured with either spelling.
	r.POST("/razorpay-webhook", h.RazorpayWebhook)
	r.POST("/api/razorpay/webhook", h.RazorpayWebhook)

	r.GET("/ws", h.WebSocket)

	// Product image URLs start with the machine ID, which gin cannot
	// register as a wildcard next to the static /api tree. Resolved 302s
	// are cached since object paths are immutable.
	r.NoRoute(mw.Cache(imageCache, cacheTTL), h.ServeImage)

	return r
}
