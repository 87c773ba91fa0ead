package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"store-dashboard-api/internal/config"
	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/telemetry"
)

// Dispatcher receives qualifying low-stock events for out-of-band handling.
// Dispatch must not block: the engine calls it inline from the event handler.
type Dispatcher interface {
	Dispatch(event *models.ChangeEvent)
}

// Engine holds one dashboard session's notification state: an append-only,
// in-arrival-order notification log and the badge flag. Entries are never
// removed or merged within a session and there is no deduplication key.
type Engine struct {
	mu            sync.RWMutex
	notifications []models.Notification
	badgeVisible  bool

	policy     string
	dispatcher Dispatcher
	tel        *telemetry.PipelineTelemetry
	logger     *slog.Logger
}

// NewEngine creates a notification engine with the given low-stock alert
// policy. The dispatcher may be nil, in which case qualifying low-stock
// events only produce notifications.
func NewEngine(policy string, dispatcher Dispatcher, tel *telemetry.PipelineTelemetry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if policy != config.AlertPolicyEveryUpdate && policy != config.AlertPolicyCrossing {
		logger.Warn("Unknown alert policy, using default", "provided", policy, "default", config.AlertPolicyEveryUpdate)
		policy = config.AlertPolicyEveryUpdate
	}

	return &Engine{
		notifications: make([]models.Notification, 0),
		policy:        policy,
		dispatcher:    dispatcher,
		tel:           tel,
		logger:        logger,
	}
}

// HandleEvent applies one normalized change event to the session state.
// Events are handled one at a time by the subscription consumer; the mutex
// exists because HTTP readers are concurrent with that consumer.
func (e *Engine) HandleEvent(event *models.ChangeEvent) {
	if event == nil {
		return
	}

	switch {
	case event.Source == models.SourceOrders && event.Operation == models.OpInsert:
		e.handleNewOrder(event)
	case event.Source == models.SourceProducts && event.Operation == models.OpUpdate:
		e.handleProductUpdate(event)
	default:
		e.logger.Debug("Ignoring change event",
			"source", event.Source,
			"operation", event.Operation)
	}
}

func (e *Engine) handleNewOrder(event *models.ChangeEvent) {
	if event.After == nil {
		e.logger.Warn("Order insert event missing after record")
		return
	}

	e.append(models.Notification{
		Message:   fmt.Sprintf("🛒 New Order: #%s - %s", event.After.ID, event.After.CustomerName),
		Kind:      models.NotificationKindOrder,
		Link:      "/dashboard/orders",
		CreatedAt: time.Now().UTC(),
	})

	e.logger.Info("New order notification appended",
		"order_id", event.After.ID,
		"customer", event.After.CustomerName)
}

func (e *Engine) handleProductUpdate(event *models.ChangeEvent) {
	if event.After == nil {
		e.logger.Warn("Product update event missing after record")
		return
	}

	if !e.qualifiesLowStock(event) {
		return
	}

	e.append(models.Notification{
		Message:   fmt.Sprintf("⚠️ Low Stock: %s - Only %d left!", event.After.Name, event.After.Quantity),
		Kind:      models.NotificationKindLowStock,
		Link:      fmt.Sprintf("/dashboard/inventory/%s", event.After.ID),
		CreatedAt: time.Now().UTC(),
	})

	e.logger.Info("Low stock notification appended",
		"product_id", event.After.ID,
		"quantity", event.After.Quantity,
		"threshold", event.After.Threshold)

	// Email dispatch is decoupled from the notification append: the
	// dispatcher queues work for its own worker and never blocks here.
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(event)
	}
}

// qualifiesLowStock evaluates the configured alert policy. every-update
// re-alerts on each update inside the low-stock band; crossing alerts only
// on the transition into the band.
func (e *Engine) qualifiesLowStock(event *models.ChangeEvent) bool {
	after := event.After
	if after.Quantity > after.Threshold {
		return false
	}

	if e.policy == config.AlertPolicyCrossing && event.Before != nil {
		if event.Before.Quantity <= event.Before.Threshold {
			e.logger.Debug("Product already low on stock, crossing policy suppresses alert",
				"product_id", after.ID)
			return false
		}
	}

	return true
}

func (e *Engine) append(n models.Notification) {
	e.mu.Lock()
	e.notifications = append(e.notifications, n)
	e.badgeVisible = true
	e.mu.Unlock()

	e.tel.RecordNotification(context.Background(), n.Kind)
}

// Notifications returns a copy of the session's notification log in arrival
// order.
func (e *Engine) Notifications() []models.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]models.Notification, len(e.notifications))
	copy(result, e.notifications)
	return result
}

// Count returns the number of notifications in the session log.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.notifications)
}

// BadgeVisible reports the current badge state.
func (e *Engine) BadgeVisible() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.badgeVisible
}

// ToggleBadge flips the badge flag. It never clears or mutates the
// notification log.
func (e *Engine) ToggleBadge() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.badgeVisible = !e.badgeVisible
	return e.badgeVisible
}
