package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"store-dashboard-api/internal/feed"
	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/notify"
	"store-dashboard-api/internal/store"
	"store-dashboard-api/internal/telemetry"
)

// Manager owns the change-feed subscriptions for one dashboard session: one
// on the orders table and one on the products table. It consumes both feeds
// from a single goroutine, so events are handled one at a time with no
// overlap between handler invocations.
type Manager struct {
	store  *store.Store
	engine *notify.Engine
	tel    *telemetry.PipelineTelemetry
	logger *slog.Logger

	bufferSize             int
	reconnectInterval      time.Duration
	maxConsecutiveFailures int

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	statusMu sync.RWMutex
	degraded bool
}

// ManagerConfig holds configuration for the subscription manager.
type ManagerConfig struct {
	BufferSize             int
	ReconnectInterval      time.Duration
	MaxConsecutiveFailures int
	Logger                 *slog.Logger
}

// NewManager creates a subscription manager bound to one notification engine.
func NewManager(cfg ManagerConfig, st *store.Store, engine *notify.Engine, tel *telemetry.PipelineTelemetry) *Manager {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 100
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.MaxConsecutiveFailures < 1 {
		cfg.MaxConsecutiveFailures = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:                  st,
		engine:                 engine,
		tel:                    tel,
		logger:                 logger,
		bufferSize:             cfg.BufferSize,
		reconnectInterval:      cfg.ReconnectInterval,
		maxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}
}

// Start opens both subscriptions and begins consuming events. Calling Start
// while already started is a no-op: a second subscription would double-fire
// every downstream alert.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		m.logger.Debug("Subscription manager already started, ignoring start request")
		return nil
	}

	ordersSub, err := m.store.Subscribe(models.SourceOrders, m.bufferSize)
	if err != nil {
		return err
	}
	productsSub, err := m.store.Subscribe(models.SourceProducts, m.bufferSize)
	if err != nil {
		m.store.Unsubscribe(ordersSub)
		return err
	}

	m.stopChan = make(chan struct{})
	m.started = true
	m.setDegraded(false)

	m.wg.Add(1)
	go m.consume(ordersSub, productsSub, m.stopChan)

	m.logger.Info("Subscription manager started",
		"buffer_size", m.bufferSize,
		"reconnect_interval", m.reconnectInterval.String())
	return nil
}

// Stop tears down both subscriptions. New events stop entering the pipeline;
// an email dispatch already in flight is not cancelled. Stop is safe to call
// when not started.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	close(m.stopChan)
	m.wg.Wait()
	m.started = false

	m.logger.Info("Subscription manager stopped")
}

// Degraded reports whether live alerting has been silently disabled after
// repeated subscription failures.
func (m *Manager) Degraded() bool {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.degraded
}

func (m *Manager) setDegraded(v bool) {
	m.statusMu.Lock()
	m.degraded = v
	m.statusMu.Unlock()
}

// consume is the single event-processing goroutine. A closed feed triggers
// reconnect attempts; a feed that cannot be re-established degrades to "no
// live alerts" for its table without affecting the other one.
func (m *Manager) consume(ordersSub, productsSub *store.Subscription, stopChan chan struct{}) {
	defer m.wg.Done()
	defer func() {
		m.store.Unsubscribe(ordersSub)
		m.store.Unsubscribe(productsSub)
	}()

	ordersCh := ordersSub.Changes
	productsCh := productsSub.Changes

	for {
		select {
		case <-stopChan:
			return

		case change, ok := <-ordersCh:
			if !ok {
				ordersSub, ordersCh = m.reconnect(models.SourceOrders, stopChan)
				continue
			}
			m.handle(change)

		case change, ok := <-productsCh:
			if !ok {
				productsSub, productsCh = m.reconnect(models.SourceProducts, stopChan)
				continue
			}
			m.handle(change)
		}
	}
}

// handle normalizes one raw change and forwards it to the notification
// engine. Malformed payloads are dropped here and never reach the engine.
func (m *Manager) handle(change store.RawChange) {
	ctx := context.Background()
	m.tel.RecordEventReceived(ctx, change.Table, change.Operation)

	event := feed.NormalizeOrDrop(change)
	if event == nil {
		m.tel.RecordEventDropped(ctx, change.Table)
		return
	}

	m.engine.HandleEvent(event)
}

// reconnect attempts to re-establish a dropped subscription with a bounded
// number of tries. On exhaustion the table's feed is permanently nil for the
// rest of the session and the manager reports itself degraded.
func (m *Manager) reconnect(table string, stopChan chan struct{}) (*store.Subscription, <-chan store.RawChange) {
	for attempt := 1; attempt <= m.maxConsecutiveFailures; attempt++ {
		m.logger.Warn("Change feed dropped, attempting to resubscribe",
			"table", table,
			"attempt", attempt,
			"max_attempts", m.maxConsecutiveFailures)

		select {
		case <-stopChan:
			return nil, nil
		case <-time.After(m.reconnectInterval):
		}

		sub, err := m.store.Subscribe(table, m.bufferSize)
		if err == nil {
			m.logger.Info("Change feed resubscribed", "table", table, "attempts", attempt)
			return sub, sub.Changes
		}

		m.logger.Error("Resubscribe failed", "table", table, "attempt", attempt, "error", err)
	}

	// Silent degradation: the dashboard stays responsive, live alerts for
	// this table are gone for the rest of the session.
	m.setDegraded(true)
	m.logger.Error("Giving up on change feed, live alerts degraded", "table", table)
	return nil, nil
}
