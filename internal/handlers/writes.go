package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/store"
)

// WritesHandler exposes the thin write endpoints that drive the change feed:
// order creation, order status transitions and product stock mutations. The
// full CRUD surface lives outside this service.
type WritesHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewWritesHandler creates a new writes handler
func NewWritesHandler(st *store.Store, logger *slog.Logger) *WritesHandler {
	return &WritesHandler{
		store:  st,
		logger: logger,
	}
}

// CreateOrder handles POST /v1/orders.
func (h *WritesHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.logger.Warn("Invalid JSON in create order request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	if order.CustomerName == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "customerName is required",
			[]models.ErrorDetail{{Field: "customerName", Issue: "required"}})
		return
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	created, err := h.store.CreateOrder(order)
	if err != nil {
		writeErrorResponse(w, http.StatusConflict, "conflict", err.Error(), nil)
		return
	}

	writeJSONResponse(w, http.StatusCreated, created)
}

// UpdateOrderStatus handles PATCH /v1/orders/{orderId}/status.
func (h *WritesHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	updated, err := h.store.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, updated)
}

// AdjustProduct handles PATCH /v1/products/{productId}. A delta adjusts the
// stock quantity (the fulfillment decrement path); absolute fields replace
// the row.
func (h *WritesHandler) AdjustProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	var req struct {
		Delta     *int `json:"delta,omitempty"`
		Quantity  *int `json:"quantity,omitempty"`
		Threshold *int `json:"threshold,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	if req.Delta != nil {
		updated, err := h.store.AdjustProductQuantity(productID, *req.Delta)
		if err != nil {
			writeErrorResponse(w, http.StatusUnprocessableEntity, "update_failed", err.Error(), nil)
			return
		}
		writeJSONResponse(w, http.StatusOK, updated)
		return
	}

	product, err := h.store.GetProduct(productID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}

	if req.Quantity != nil {
		if *req.Quantity < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "quantity must not be negative",
				[]models.ErrorDetail{{Field: "quantity", Issue: "must be >= 0"}})
			return
		}
		product.Quantity = *req.Quantity
	}
	if req.Threshold != nil {
		if *req.Threshold < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "threshold must not be negative",
				[]models.ErrorDetail{{Field: "threshold", Issue: "must be >= 0"}})
			return
		}
		product.Threshold = *req.Threshold
	}

	updated, err := h.store.UpdateProduct(*product)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /v1/products/{productId}.
func (h *WritesHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	if err := h.store.DeleteProduct(productID); err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
