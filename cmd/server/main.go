package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"store-dashboard-api/internal/alerts"
	"store-dashboard-api/internal/cache"
	"store-dashboard-api/internal/config"
	"store-dashboard-api/internal/handlers"
	"store-dashboard-api/internal/mailer"
	"store-dashboard-api/internal/middleware"
	"store-dashboard-api/internal/session"
	"store-dashboard-api/internal/store"
	"store-dashboard-api/internal/subscription"
	"store-dashboard-api/internal/telemetry"

	"github.com/gorilla/mux"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Store Dashboard API", "version", "1.0.0")

	// Initialize OpenTelemetry telemetry system
	ctx := context.Background()
	otelTelemetry := &telemetry.Telemetry{}
	otelTelemetry.InitMetrics("store-dashboard-api", ctx)

	pipelineTelemetry := telemetry.NewPipelineTelemetry()
	if err := pipelineTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize pipeline telemetry", "error", err)
		return
	}

	// Initialize the data store
	dataStore, err := store.NewStore(cfg.DataPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		return
	}

	// Supplier lookup cache for the low-stock dispatcher
	cacheTTL := parseDurationWithDefault(cfg.SupplierCacheTTL, 2*time.Minute, "supplier cache TTL")
	cleanupInterval := parseDurationWithDefault(cfg.SupplierCacheCleanupInterval, 30*time.Second, "supplier cache cleanup interval")
	supplierCache := cache.NewSupplierCache(cacheTTL, cleanupInterval)

	// Email gateway and low-stock alert dispatcher
	emailTimeout := parseDurationWithDefault(cfg.EmailTimeout, 10*time.Second, "email timeout")
	gateway := mailer.NewGateway(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailSenderName, cfg.EmailSenderAddress, emailTimeout)

	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		QueueBufferSize: parseIntWithDefault(cfg.AlertQueueBufferSize, 100, "alert queue buffer size"),
		FallbackEmail:   cfg.EmailFallbackAddress,
	}, dataStore, gateway, supplierCache, pipelineTelemetry)
	dispatcher.Start()
	slog.Info("Low stock alert dispatcher started")

	// Dashboard session registry
	registry := session.NewRegistry(session.RegistryConfig{
		AlertPolicy: cfg.AlertPolicy,
		SubscriptionConfig: subscription.ManagerConfig{
			BufferSize:             parseIntWithDefault(cfg.SubscriptionBufferSize, 100, "subscription buffer size"),
			ReconnectInterval:      parseDurationWithDefault(cfg.ReconnectInterval, 5*time.Second, "reconnect interval"),
			MaxConsecutiveFailures: parseIntWithDefault(cfg.MaxConsecutiveFailures, 5, "max consecutive failures"),
		},
	}, dataStore, dispatcher, pipelineTelemetry)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dataStore, pipelineTelemetry, slog.Default())
	sessionHandler := handlers.NewSessionHandler(registry, slog.Default())
	writesHandler := handlers.NewWritesHandler(dataStore, slog.Default())
	healthHandler := handlers.NewHealthHandler()
	slog.Debug("HTTP handlers initialized")

	r := mux.NewRouter()

	// Apply auth middleware to v1 API routes
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.AuthMiddleware)

	// Dashboard read routes
	v1.HandleFunc("/dashboard/metrics", dashboardHandler.GetMetrics).Methods("GET")
	v1.HandleFunc("/dashboard/orders/summary", dashboardHandler.GetOrderSummary).Methods("GET")

	// Session lifecycle and notification routes
	v1.HandleFunc("/dashboard/session", sessionHandler.StartSession).Methods("POST")
	v1.HandleFunc("/dashboard/session/{sessionId}", sessionHandler.StopSession).Methods("DELETE")
	v1.HandleFunc("/dashboard/session/{sessionId}/notifications", sessionHandler.GetNotifications).Methods("GET")
	v1.HandleFunc("/dashboard/session/{sessionId}/badge", sessionHandler.ToggleBadge).Methods("POST")

	// Thin write routes that feed the change stream
	v1.HandleFunc("/orders", writesHandler.CreateOrder).Methods("POST")
	v1.HandleFunc("/orders/{orderId}/status", writesHandler.UpdateOrderStatus).Methods("PATCH")
	v1.HandleFunc("/products/{productId}", writesHandler.AdjustProduct).Methods("PATCH")
	v1.HandleFunc("/products/{productId}", writesHandler.DeleteProduct).Methods("DELETE")

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	slog.Info("Starting HTTP server",
		"port", cfg.Port,
		"environment", cfg.Environment)

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop sessions first so no new events enter the pipeline, then the
	// dispatcher so an in-flight email can finish.
	registry.StopAll()
	dispatcher.Stop()
	supplierCache.Stop()

	otelTelemetry.Close()
	slog.Info("Telemetry shutdown completed")

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// parseDurationWithDefault parses a duration string, falling back with a
// warning on invalid input.
func parseDurationWithDefault(value string, fallback time.Duration, name string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid "+name+", using default", "provided", value, "default", fallback.String())
		return fallback
	}
	return d
}

// parseIntWithDefault parses an integer string, falling back with a warning
// on invalid input.
func parseIntWithDefault(value string, fallback int, name string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		slog.Warn("Invalid "+name+", using default", "provided", value, "default", fallback)
		return fallback
	}
	return n
}
