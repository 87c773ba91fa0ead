package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"store-dashboard-api/internal/models"
)

func TestSupplierCache_SetAndGet(t *testing.T) {
	c := NewSupplierCache(time.Minute, time.Minute)
	defer c.Stop()

	supplier := &models.Supplier{ID: "s1", Name: "Acme", ContactEmail: "sales@acme.test"}
	c.Set("s1", supplier)

	got, ok := c.Get("s1")
	require.True(t, ok)
	assert.Same(t, supplier, got)
	assert.Equal(t, 1, c.Len())
}

func TestSupplierCache_MissingKey(t *testing.T) {
	c := NewSupplierCache(time.Minute, time.Minute)
	defer c.Stop()

	got, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSupplierCache_Expiry(t *testing.T) {
	c := NewSupplierCache(30*time.Millisecond, time.Minute)
	defer c.Stop()

	c.Set("s1", &models.Supplier{ID: "s1"})
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get("s1")
	assert.False(t, ok, "expired entries are invisible to Get")
}

func TestSupplierCache_CleanupRemovesExpired(t *testing.T) {
	c := NewSupplierCache(10*time.Millisecond, 20*time.Millisecond)
	defer c.Stop()

	c.Set("s1", &models.Supplier{ID: "s1"})
	c.Set("s2", &models.Supplier{ID: "s2"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && c.Len() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, c.Len())
}

func TestSupplierCache_Overwrite(t *testing.T) {
	c := NewSupplierCache(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("s1", &models.Supplier{ID: "s1", ContactEmail: "old@acme.test"})
	c.Set("s1", &models.Supplier{ID: "s1", ContactEmail: "new@acme.test"})

	got, ok := c.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "new@acme.test", got.ContactEmail)
	assert.Equal(t, 1, c.Len())
}
