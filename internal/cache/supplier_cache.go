package cache

import (
	"log/slog"
	"sync"
	"time"

	"store-dashboard-api/internal/models"
)

// entry is a cached supplier with its expiration time.
type entry struct {
	supplier  *models.Supplier
	expiresAt time.Time
}

// SupplierCache is a thread-safe TTL cache for supplier point lookups. The
// low-stock dispatcher consults it before hitting the store, since the same
// product tends to re-trigger alerts against the same supplier.
type SupplierCache struct {
	items         map[string]*entry
	mutex         sync.RWMutex
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan bool
}

// NewSupplierCache creates a supplier cache with the specified TTL and
// cleanup interval.
func NewSupplierCache(ttl, cleanupInterval time.Duration) *SupplierCache {
	cache := &SupplierCache{
		items:       make(map[string]*entry),
		ttl:         ttl,
		stopCleanup: make(chan bool),
	}

	cache.cleanupTicker = time.NewTicker(cleanupInterval)
	go cache.cleanupExpiredEntries()

	slog.Info("Supplier cache initialized",
		"ttl", ttl.String(),
		"cleanup_interval", cleanupInterval.String())

	return cache
}

// Set stores a supplier in the cache with TTL.
func (c *SupplierCache) Set(id string, supplier *models.Supplier) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[id] = &entry{
		supplier:  supplier,
		expiresAt: time.Now().Add(c.ttl),
	}

	slog.Debug("Supplier cached", "supplier_id", id)
}

// Get retrieves a supplier if it is cached and not expired.
func (c *SupplierCache) Get(id string) (*models.Supplier, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[id]
	if !exists || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.supplier, true
}

// Len returns the number of entries currently held, expired or not.
func (c *SupplierCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Stop shuts down the cleanup goroutine.
func (c *SupplierCache) Stop() {
	c.cleanupTicker.Stop()
	close(c.stopCleanup)
	slog.Debug("Supplier cache stopped")
}

// cleanupExpiredEntries periodically removes expired entries.
func (c *SupplierCache) cleanupExpiredEntries() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.mutex.Lock()
			now := time.Now()
			removed := 0
			for id, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, id)
					removed++
				}
			}
			c.mutex.Unlock()

			if removed > 0 {
				slog.Debug("Supplier cache cleanup", "removed", removed)
			}
		case <-c.stopCleanup:
			return
		}
	}
}
