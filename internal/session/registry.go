package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"store-dashboard-api/internal/notify"
	"store-dashboard-api/internal/store"
	"store-dashboard-api/internal/subscription"
	"store-dashboard-api/internal/telemetry"
)

// Session bounds one dashboard view: its notification engine and the change
// feed subscriptions feeding it. All session state dies with StopSession.
type Session struct {
	ID        string
	StartedAt time.Time
	Engine    *notify.Engine
	Manager   *subscription.Manager
}

// Registry owns the active dashboard sessions. The notification dispatcher
// is shared across sessions; every engine forwards to the same one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store       *store.Store
	dispatcher  notify.Dispatcher
	tel         *telemetry.PipelineTelemetry
	alertPolicy string
	subConfig   subscription.ManagerConfig
	logger      *slog.Logger
}

// RegistryConfig holds configuration for the session registry.
type RegistryConfig struct {
	AlertPolicy        string
	SubscriptionConfig subscription.ManagerConfig
	Logger             *slog.Logger
}

// NewRegistry creates a session registry.
func NewRegistry(cfg RegistryConfig, st *store.Store, dispatcher notify.Dispatcher, tel *telemetry.PipelineTelemetry) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		sessions:    make(map[string]*Session),
		store:       st,
		dispatcher:  dispatcher,
		tel:         tel,
		alertPolicy: cfg.AlertPolicy,
		subConfig:   cfg.SubscriptionConfig,
		logger:      logger,
	}
}

// StartSession creates a session and opens its subscriptions. Passing the id
// of a running session returns that session unchanged, so session start is
// idempotent and never doubles a subscription. An empty id gets a fresh one.
func (r *Registry) StartSession(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if existing, ok := r.sessions[id]; ok {
			r.logger.Debug("Session already active, ignoring start request", "session_id", id)
			return existing, nil
		}
	} else {
		id = uuid.NewString()
	}

	engine := notify.NewEngine(r.alertPolicy, r.dispatcher, r.tel, r.logger.With("session_id", id))
	manager := subscription.NewManager(r.subConfig, r.store, engine, r.tel)

	if err := manager.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session subscriptions: %w", err)
	}

	sess := &Session{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Engine:    engine,
		Manager:   manager,
	}
	r.sessions[id] = sess

	r.logger.Info("Dashboard session started", "session_id", id, "active_sessions", len(r.sessions))
	return sess, nil
}

// Get returns an active session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	return sess, ok
}

// StopSession tears down a session's subscriptions and discards its
// notification state. Stopping an unknown session is an error so callers can
// distinguish a bad id from a double stop.
func (r *Registry) StopSession(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	sess.Manager.Stop()
	r.logger.Info("Dashboard session stopped", "session_id", id)
	return nil
}

// StopAll stops every active session. Used on server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Manager.Stop()
	}

	if len(sessions) > 0 {
		r.logger.Info("All dashboard sessions stopped", "count", len(sessions))
	}
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
