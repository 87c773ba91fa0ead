package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"store-dashboard-api/internal/models"
)

// RawChange is the store-native change payload delivered to subscribers.
// Before/After are the raw row encodings; the feed normalizer turns them into
// typed change events at the pipeline boundary.
type RawChange struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Subscription is a live change feed for one table.
type Subscription struct {
	ID      int
	Table   string
	Changes <-chan RawChange
}

// Store is an in-memory data store seeded from a JSON file. It holds the
// product, order and supplier collections and publishes change notifications
// for the products and orders tables.
type Store struct {
	mu        sync.RWMutex
	products  map[string]models.Product
	orders    map[string]models.Order
	suppliers map[string]models.Supplier

	subMu     sync.RWMutex
	subs      map[string]map[int]chan RawChange
	nextSubID int

	dataPath string
}

// seedData is the on-disk seed file structure.
type seedData struct {
	Products  map[string]models.Product  `json:"products"`
	Orders    map[string]models.Order    `json:"orders"`
	Suppliers map[string]models.Supplier `json:"suppliers"`
}

// NewStore creates a store and loads the seed data file.
func NewStore(dataPath string) (*Store, error) {
	s := &Store{
		products:  make(map[string]models.Product),
		orders:    make(map[string]models.Order),
		suppliers: make(map[string]models.Supplier),
		subs:      make(map[string]map[int]chan RawChange),
		dataPath:  dataPath,
	}

	if err := s.loadSeedData(); err != nil {
		return nil, fmt.Errorf("error loading seed data: %w", err)
	}

	slog.Info("Store initialized",
		"path", dataPath,
		"products_count", len(s.products),
		"orders_count", len(s.orders),
		"suppliers_count", len(s.suppliers))

	return s, nil
}

// loadSeedData loads the initial collections from the JSON seed file.
func (s *Store) loadSeedData() error {
	slog.Debug("Loading seed data", "path", s.dataPath)

	data, err := os.ReadFile(s.dataPath)
	if err != nil {
		slog.Error("Failed to read seed data file", "path", s.dataPath, "error", err)
		return fmt.Errorf("error reading seed data file: %w", err)
	}

	var seed seedData
	if err := json.Unmarshal(data, &seed); err != nil {
		slog.Error("Failed to parse seed data JSON", "path", s.dataPath, "error", err)
		return fmt.Errorf("error parsing seed data JSON: %w", err)
	}

	if seed.Products != nil {
		s.products = seed.Products
	}
	if seed.Orders != nil {
		s.orders = seed.Orders
	}
	if seed.Suppliers != nil {
		s.suppliers = seed.Suppliers
	}

	return nil
}

// GetSupplier retrieves a supplier by id.
func (s *Store) GetSupplier(id string) (*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, exists := s.suppliers[id]
	if !exists {
		return nil, fmt.Errorf("supplier not found: %s", id)
	}
	return &supplier, nil
}

// GetProduct retrieves a product by id.
func (s *Store) GetProduct(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	return &product, nil
}

// ListProducts returns all products, ordered by id for stable output.
func (s *Store) ListProducts() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// ListOrders returns all orders, ordered by id for stable output.
func (s *Store) ListOrders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// SuppliersCount returns the number of registered suppliers.
func (s *Store) SuppliersCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.suppliers)
}

// CreateOrder inserts a new order. Orders always start Pending; an order with
// no items yet is accepted because item writes may land separately.
func (s *Store) CreateOrder(order models.Order) (*models.Order, error) {
	if order.ID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	s.mu.Lock()
	if _, exists := s.orders[order.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("order already exists: %s", order.ID)
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	s.orders[order.ID] = order
	s.mu.Unlock()

	s.publish(models.SourceOrders, models.OpInsert, nil, &order)

	slog.Info("Order created", "order_id", order.ID, "customer", order.CustomerName)
	return &order, nil
}

// UpdateOrderStatus applies an explicit status transition to an order.
func (s *Store) UpdateOrderStatus(id, status string) (*models.Order, error) {
	switch status {
	case models.OrderStatusPending, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCanceled:
	default:
		return nil, fmt.Errorf("invalid order status: %s", status)
	}

	s.mu.Lock()
	before, exists := s.orders[id]
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("order not found: %s", id)
	}
	after := before
	after.Status = status
	s.orders[id] = after
	s.mu.Unlock()

	s.publish(models.SourceOrders, models.OpUpdate, &before, &after)

	slog.Info("Order status updated", "order_id", id, "old_status", before.Status, "new_status", status)
	return &after, nil
}

// UpdateProduct replaces a product row and publishes the update.
func (s *Store) UpdateProduct(product models.Product) (*models.Product, error) {
	s.mu.Lock()
	before, exists := s.products[product.ID]
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("product not found: %s", product.ID)
	}
	s.products[product.ID] = product
	s.mu.Unlock()

	s.publish(models.SourceProducts, models.OpUpdate, &before, &product)

	slog.Info("Product updated", "product_id", product.ID, "quantity", product.Quantity)
	return &product, nil
}

// AdjustProductQuantity applies a quantity delta to a product (the order
// fulfillment decrement path). The resulting quantity may not go negative.
func (s *Store) AdjustProductQuantity(id string, delta int) (*models.Product, error) {
	s.mu.Lock()
	before, exists := s.products[id]
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("product not found: %s", id)
	}

	newQuantity := before.Quantity + delta
	if newQuantity < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("insufficient inventory: current %d, delta %d", before.Quantity, delta)
	}

	after := before
	after.Quantity = newQuantity
	s.products[id] = after
	s.mu.Unlock()

	s.publish(models.SourceProducts, models.OpUpdate, &before, &after)

	slog.Info("Product quantity adjusted",
		"product_id", id,
		"old_quantity", before.Quantity,
		"new_quantity", newQuantity,
		"delta", delta)
	return &after, nil
}

// DeleteProduct removes a product and publishes the deletion.
func (s *Store) DeleteProduct(id string) error {
	s.mu.Lock()
	before, exists := s.products[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("product not found: %s", id)
	}
	delete(s.products, id)
	s.mu.Unlock()

	s.publish(models.SourceProducts, models.OpDelete, &before, nil)

	slog.Info("Product deleted", "product_id", id)
	return nil
}

// Subscribe opens a change feed for one table. The returned channel is
// buffered; a subscriber that falls behind loses changes rather than blocking
// the write path.
func (s *Store) Subscribe(table string, buffer int) (*Subscription, error) {
	if table != models.SourceProducts && table != models.SourceOrders {
		return nil, fmt.Errorf("unknown table: %s", table)
	}
	if buffer < 1 {
		buffer = 100
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID

	ch := make(chan RawChange, buffer)
	if s.subs[table] == nil {
		s.subs[table] = make(map[int]chan RawChange)
	}
	s.subs[table][id] = ch

	slog.Debug("Change feed subscription opened", "table", table, "subscription_id", id)

	return &Subscription{ID: id, Table: table, Changes: ch}, nil
}

// Unsubscribe closes a change feed subscription.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if chans, ok := s.subs[sub.Table]; ok {
		if ch, ok := chans[sub.ID]; ok {
			delete(chans, sub.ID)
			close(ch)
			slog.Debug("Change feed subscription closed", "table", sub.Table, "subscription_id", sub.ID)
		}
	}
}

// publish fans a change out to the table's subscribers. Delivery is
// non-blocking: a full subscriber channel drops the change with an error log.
func (s *Store) publish(table, operation string, before, after interface{}) {
	change := RawChange{
		Table:     table,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}

	if before != nil {
		data, err := json.Marshal(before)
		if err != nil {
			slog.Error("Failed to encode change payload", "table", table, "operation", operation, "error", err)
			return
		}
		change.Before = data
	}
	if after != nil {
		data, err := json.Marshal(after)
		if err != nil {
			slog.Error("Failed to encode change payload", "table", table, "operation", operation, "error", err)
			return
		}
		change.After = data
	}

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, ch := range s.subs[table] {
		select {
		case ch <- change:
			slog.Debug("Change delivered",
				"table", table,
				"operation", operation,
				"subscription_id", id)
		default:
			slog.Error("Subscriber channel full, dropping change",
				"table", table,
				"operation", operation,
				"subscription_id", id)
		}
	}
}
