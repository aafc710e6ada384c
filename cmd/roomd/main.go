package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"room-status-backend/config"
	"room-status-backend/internal/api"
	"room-status-backend/internal/auth"
	"room-status-backend/internal/db"
	"room-status-backend/internal/notification"
	"room-status-backend/internal/reaper"
	"room-status-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "room-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if len(cfg.Layout) == 0 {
		logger.Fatalf("room layout is empty; configure at least one block of PCs")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Provision PCs from the room layout. Existing rows keep their tokens.
	created, err := appStore.ProvisionPCs(ctx, cfg.PCIDs())
	if err != nil {
		logger.Fatalf("failed to provision PCs: %v", err)
	}
	logger.Printf("room layout provisioned: %d PCs total, %d newly created", len(cfg.PCIDs()), created)

	// Session-backed identity provider
	sessions := auth.NewSessions(time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute)

	// Push notifications are optional; without VAPID keys the service runs
	// with subscriptions accepted but nothing sent.
	var webpushOptions *webpush.Options
	var workerPool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; push notifications disabled")
	}

	// Run the lease reaper in the background
	reaperSvc := reaper.NewService(cfg.Lease, appStore, workerPool)
	go reaperSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(cfg, appStore, sessions, webpushOptions, workerPool)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
