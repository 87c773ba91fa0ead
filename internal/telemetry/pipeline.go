package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineTelemetry provides metrics for the notification and metrics
// pipeline: change-event throughput, notification appends, outbound email
// outcomes and snapshot computation latency.
type PipelineTelemetry struct {
	meter metric.Meter

	eventCounter        metric.Int64Counter
	droppedEventCounter metric.Int64Counter
	notificationCounter metric.Int64Counter
	emailCounter        metric.Int64Counter
	snapshotHistogram   metric.Float64Histogram
}

// NewPipelineTelemetry creates an uninitialized pipeline telemetry instance.
func NewPipelineTelemetry() *PipelineTelemetry {
	return &PipelineTelemetry{}
}

// InitializeTelemetry sets up all the telemetry instruments for the pipeline.
func (t *PipelineTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing pipeline telemetry")

	t.meter = otel.Meter("store-dashboard-api")

	var err error

	t.eventCounter, err = t.meter.Int64Counter(
		"dashboard_change_events_total",
		metric.WithDescription("Total number of change events received from the store feed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create event counter: %w", err)
	}

	t.droppedEventCounter, err = t.meter.Int64Counter(
		"dashboard_change_events_dropped_total",
		metric.WithDescription("Total number of malformed change events dropped at the boundary"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dropped event counter: %w", err)
	}

	t.notificationCounter, err = t.meter.Int64Counter(
		"dashboard_notifications_total",
		metric.WithDescription("Total number of notifications appended to session logs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification counter: %w", err)
	}

	t.emailCounter, err = t.meter.Int64Counter(
		"dashboard_low_stock_emails_total",
		metric.WithDescription("Total number of low-stock supplier email attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create email counter: %w", err)
	}

	t.snapshotHistogram, err = t.meter.Float64Histogram(
		"dashboard_snapshot_duration_seconds",
		metric.WithDescription("Duration of metrics snapshot computations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot histogram: %w", err)
	}

	slog.Info("Pipeline telemetry initialized successfully")
	return nil
}

// RecordEventReceived records one change event entering the pipeline.
func (t *PipelineTelemetry) RecordEventReceived(ctx context.Context, source, operation string) {
	if t == nil || t.eventCounter == nil {
		return
	}
	t.eventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("operation", operation),
	))
}

// RecordEventDropped records one malformed change event dropped at the
// boundary.
func (t *PipelineTelemetry) RecordEventDropped(ctx context.Context, source string) {
	if t == nil || t.droppedEventCounter == nil {
		return
	}
	t.droppedEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
	))
}

// RecordNotification records one appended notification by kind.
func (t *PipelineTelemetry) RecordNotification(ctx context.Context, kind string) {
	if t == nil || t.notificationCounter == nil {
		return
	}
	t.notificationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordEmailAttempt records one outbound email attempt and its outcome.
func (t *PipelineTelemetry) RecordEmailAttempt(ctx context.Context, success bool) {
	if t == nil || t.emailCounter == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	t.emailCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordSnapshotDuration records the latency of one snapshot computation.
func (t *PipelineTelemetry) RecordSnapshotDuration(ctx context.Context, d time.Duration) {
	if t == nil || t.snapshotHistogram == nil {
		return
	}
	t.snapshotHistogram.Record(ctx, d.Seconds())
}
