package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"blackbox-backend/config"
	"blackbox-backend/internal/api"
	"blackbox-backend/internal/db"
	"blackbox-backend/internal/logbuf"
	"blackbox-backend/internal/notification"
	"blackbox-backend/internal/payment"
	"blackbox-backend/internal/realtime"
	"blackbox-backend/internal/storage"
	"blackbox-backend/internal/store"
)

func main() {
	// Local development reads credentials from a .env file; in production
	// the variables come from the platform environment.
	_ = godotenv.Load()

	// Mirror all log output into a ring buffer so GET /api/logs can show
	// recent activity without shell access to the box.
	logBuffer := logbuf.New(1000)
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.Printf("configuration loaded, machine %s", cfg.Machine.ID)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)
	log.Println("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		log.Println("VAPID keys not configured, push notifications disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
	pool.Start(ctx)

	hub := realtime.NewHub(cfg.Machine.ID)
	defer hub.Close()

	payments := payment.NewClient(&cfg.Razorpay)
	if !payments.Configured() {
		log.Println("payment provider credentials not configured, order payments disabled")
	}

	handler := api.NewHandler(api.Deps{
		Store:         appStore,
		Payments:      payments,
		Storage:       storage.NewClient(&cfg.Storage),
		Hub:           hub,
		Notifications: pool,
		Logs:          logBuffer,
		WebPush:       webpushOptions,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
	})

	router := api.NewRouter(handler, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server Shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
