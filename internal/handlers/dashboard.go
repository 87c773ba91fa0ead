package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"store-dashboard-api/internal/reporting"
	"store-dashboard-api/internal/store"
	"store-dashboard-api/internal/telemetry"
)

// DashboardHandler serves the derived metrics views.
type DashboardHandler struct {
	store  *store.Store
	tel    *telemetry.PipelineTelemetry
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(st *store.Store, tel *telemetry.PipelineTelemetry, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:  st,
		tel:    tel,
		logger: logger,
	}
}

// GetMetrics handles GET /v1/dashboard/metrics - full metrics snapshot.
// The snapshot is recomputed from the current store state on every request;
// it is never cached because it is never stale beyond its inputs.
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	year := now.Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid year parameter", nil)
			return
		}
		year = parsed
	}

	start := time.Now()
	snapshot := reporting.Snapshot(
		h.store.ListProducts(),
		h.store.ListOrders(),
		h.store.SuppliersCount(),
		year,
		now,
	)
	h.tel.RecordSnapshotDuration(r.Context(), time.Since(start))

	h.logger.Debug("Metrics snapshot computed",
		"year", year,
		"duration", time.Since(start).String(),
		"remote_addr", r.RemoteAddr)

	writeJSONResponse(w, http.StatusOK, snapshot)
}

// GetOrderSummary handles GET /v1/dashboard/orders/summary - order status
// counts over a trailing window (default 7 days, 0 disables the window).
func (h *DashboardHandler) GetOrderSummary(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if daysStr := r.URL.Query().Get("windowDays"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid windowDays parameter", nil)
			return
		}
		windowDays = parsed
	}

	counts := reporting.OrderStatusCounts(
		h.store.ListOrders(),
		time.Duration(windowDays)*24*time.Hour,
		time.Now().UTC(),
	)

	writeJSONResponse(w, http.StatusOK, counts)
}
