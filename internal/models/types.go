package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Order status values. Orders are created Pending and transition only through
// explicit operator action, never automatically.
const (
	OrderStatusPending   = "Pending"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCanceled  = "Canceled"
)

// Product represents a catalog product tracked by the inventory.
// Quantity and Threshold are maintained independently; "low stock" means
// 0 < Quantity <= Threshold and "out of stock" means Quantity == 0.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Threshold  int             `json:"threshold"`
	Price      decimal.Decimal `json:"price"`
	SupplierID string          `json:"supplierId"`
	Category   string          `json:"category"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// IsLowStock reports whether the product is inside the low-stock band.
func (p Product) IsLowStock() bool {
	return p.Quantity > 0 && p.Quantity <= p.Threshold
}

// IsOutOfStock reports whether the product has no stock at all.
func (p Product) IsOutOfStock() bool {
	return p.Quantity == 0
}

// OrderItem is one line of an order. Price is the unit price actually
// charged; CatalogPrice is the product's list price at order time.
type OrderItem struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	CatalogPrice decimal.Decimal `json:"catalogPrice"`
}

// Order represents a customer order. OrderValue is trusted from the write
// path; the pipeline does not re-verify it against the items. Items may be
// transiently empty because order and item writes are not atomic.
type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	UserID       string          `json:"userId"`
	Status       string          `json:"status"`
	OrderValue   decimal.Decimal `json:"orderValue"`
	CreatedAt    time.Time       `json:"createdAt"`
	Items        []OrderItem     `json:"items"`
}

// Supplier is referenced by products via SupplierID (lookup only).
type Supplier struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
}

// Change event source tables and operations.
const (
	SourceProducts = "products"
	SourceOrders   = "orders"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is the normalized form of a store change notification.
// Insert carries only After, Update carries Before and After, Delete carries
// only Before. Events are transient and never persisted.
type ChangeEvent struct {
	Source    string    `json:"source"`
	Operation string    `json:"operation"`
	Before    *Record   `json:"before,omitempty"`
	After     *Record   `json:"after,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the union of the fields the pipeline reads from a changed row.
// Only the fields matching the event source are populated.
type Record struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
	Threshold    int    `json:"threshold,omitempty"`
	SupplierID   string `json:"supplierId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
}

// Notification kinds
const (
	NotificationKindOrder    = "order"
	NotificationKindLowStock = "low-stock"
)

// Notification is one entry in a session's notification log. It lives only
// for the duration of the dashboard session.
type Notification struct {
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationsResponse is the payload for the session notifications endpoint.
type NotificationsResponse struct {
	SessionID     string         `json:"sessionId"`
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
	BadgeVisible  bool           `json:"badgeVisible"`
}

// SessionResponse is returned when a dashboard session is started.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
	StartedAt string `json:"startedAt"`
}

// TopSeller is one entry of the top-sellers ranking.
type TopSeller struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// InventorySummary aggregates current stock levels.
type InventorySummary struct {
	TotalQuantity       int       `json:"totalQuantity"`
	LowStockCount       int       `json:"lowStockCount"`
	OutOfStockCount     int       `json:"outOfStockCount"`
	LowQuantityProducts []Product `json:"lowQuantityProducts"`
}

// OrderStatusCounts aggregates order counts by status, optionally over a
// trailing window.
type OrderStatusCounts struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Shipped   int `json:"shipped"`
	Canceled  int `json:"canceled"`
	Pending   int `json:"pending"`
	OnTheWay  int `json:"onTheWay"`
}

// MonthlySeries holds two calendar-year series indexed by month (0 = Jan).
// Purchases accumulate product price x quantity by product creation month;
// sales accumulate order value by order creation month.
type MonthlySeries struct {
	Year      int                 `json:"year"`
	Purchases [12]decimal.Decimal `json:"purchases"`
	Sales     [12]decimal.Decimal `json:"sales"`
}

// MetricsSnapshot is a pure projection of the current product and order
// collections. It owns no state and is recomputed on demand.
type MetricsSnapshot struct {
	Inventory              InventorySummary  `json:"inventory"`
	SuppliersCount         int               `json:"suppliersCount"`
	Revenue                decimal.Decimal   `json:"revenue"`
	Sales                  int               `json:"sales"`
	Profit                 decimal.Decimal   `json:"profit"`
	TopSellings            []TopSeller       `json:"topSellings"`
	Monthly                MonthlySeries     `json:"monthly"`
	OrdersByMonth          [12]int           `json:"ordersByMonth"`
	DeliveredOrdersByMonth [12]int           `json:"deliveredOrdersByMonth"`
	OrderStatus            OrderStatusCounts `json:"orderStatus"`
	GeneratedAt            time.Time         `json:"generatedAt"`
}
