package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry owns the OpenTelemetry meter provider for the process. Depending
// on METRICS_EXPORTER it either serves a prometheus scrape endpoint or pushes
// over OTLP gRPC (endpoint from OTEL_EXPORTER_OTLP_METRICS_ENDPOINT,
// defaulting to localhost:4317).
type Telemetry struct {
	server   *http.Server
	Provider *sdkmetric.MeterProvider
	meter    api.Meter
	ctx      context.Context
}

var initOnce sync.Once

// InitMetrics sets up the global meter provider once per process.
func (t *Telemetry) InitMetrics(meterName string, ctx context.Context) {
	t.ctx = ctx

	initOnce.Do(func() {
		if os.Getenv("METRICS_EXPORTER") == "scraper" {
			slog.Info("Starting metrics with prometheus scrape exporter")
			t.initScrapeMetrics(meterName)
		} else {
			slog.Info("Starting metrics with grpc exporter")
			t.initGRPCMetrics(meterName)
		}
	})
}

// Close flushes pending metrics and stops the scrape server if one is running.
func (t *Telemetry) Close() {
	if t.Provider != nil {
		if err := t.Provider.ForceFlush(t.ctx); err != nil {
			slog.Error("Flushing metrics", "error", err)
		}
	}
	if t.server != nil {
		if err := t.server.Shutdown(t.ctx); err != nil {
			slog.Error("Shutting down metrics server", "error", err)
		}
	}
}

func (t *Telemetry) initGRPCMetrics(meterName string) {
	exporter, err := otlpmetricgrpc.New(t.ctx)
	if err != nil {
		slog.Error("Creating gRPC metrics exporter", "error", err)
		return
	}

	t.Provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
}

func (t *Telemetry) initScrapeMetrics(meterName string) {
	// The prometheus exporter doubles as an sdkmetric.Reader and a
	// prometheus.Collector registered with the default registry.
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating prometheus scrape exporter", "error", err)
		return
	}

	t.Provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	go t.serveMetrics()
}

func (t *Telemetry) serveMetrics() {
	addr := ":" + getEnvWithDefault("METRICS_PORT", "9080")
	slog.Info("Serving metrics", "addr", addr, "path", "/metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	t.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server exited", "error", err)
	}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
