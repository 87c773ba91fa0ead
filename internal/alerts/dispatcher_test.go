package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"store-dashboard-api/internal/cache"
	"store-dashboard-api/internal/models"
)

type fakeResolver struct {
	mu        sync.Mutex
	suppliers map[string]*models.Supplier
	lookups   int
}

func (r *fakeResolver) GetSupplier(id string) (*models.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups++
	supplier, ok := r.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier not found: %s", id)
	}
	return supplier, nil
}

func (r *fakeResolver) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

type sentEmail struct {
	email    string
	product  string
	quantity int
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeSender) SendLowStockAlert(_ context.Context, supplierEmail, productName string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{email: supplierEmail, product: productName, quantity: quantity})
	return nil
}

func (s *fakeSender) sentEmails() []sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]sentEmail, len(s.sent))
	copy(result, s.sent)
	return result
}

func lowStockEvent(productID, supplierID string) *models.ChangeEvent {
	return &models.ChangeEvent{
		Source:    models.SourceProducts,
		Operation: models.OpUpdate,
		After:     &models.Record{ID: productID, Name: "Tote", Quantity: 3, Threshold: 5, SupplierID: supplierID},
	}
}

func waitForEmails(t *testing.T, sender *fakeSender, want int) []sentEmail {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if emails := sender.sentEmails(); len(emails) >= want {
			return emails
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d emails, got %d", want, len(sender.sentEmails()))
	return nil
}

func TestDispatcher_SendsSupplierEmail(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{
		"s1": {ID: "s1", Name: "Acme", ContactEmail: "sales@acme.test"},
	}}
	sender := &fakeSender{}

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10}, resolver, sender, nil, nil)
	d.Start()
	defer d.Stop()

	d.Dispatch(lowStockEvent("p1", "s1"))

	emails := waitForEmails(t, sender, 1)
	assert.Equal(t, sentEmail{email: "sales@acme.test", product: "Tote", quantity: 3}, emails[0])
}

func TestDispatcher_FallbackWhenSupplierHasNoEmail(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{
		"s1": {ID: "s1", Name: "Acme"},
	}}
	sender := &fakeSender{}

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10, FallbackEmail: "ops@store.test"}, resolver, sender, nil, nil)
	d.Start()
	defer d.Stop()

	d.Dispatch(lowStockEvent("p1", "s1"))

	emails := waitForEmails(t, sender, 1)
	assert.Equal(t, "ops@store.test", emails[0].email)
}

func TestDispatcher_SkipsWhenNoDestination(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{
		"s1": {ID: "s1", Name: "Acme"},
	}}
	sender := &fakeSender{}

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10}, resolver, sender, nil, nil)
	d.Start()
	d.Dispatch(lowStockEvent("p1", "s1"))
	d.Stop()

	assert.Empty(t, sender.sentEmails())
}

func TestDispatcher_SkipsUnknownSupplier(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{}}
	sender := &fakeSender{}

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10}, resolver, sender, nil, nil)
	d.Start()
	d.Dispatch(lowStockEvent("p1", "missing"))
	d.Dispatch(lowStockEvent("p2", ""))
	d.Stop()

	assert.Empty(t, sender.sentEmails())
}

func TestDispatcher_SendFailureIsSwallowed(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{
		"s1": {ID: "s1", ContactEmail: "sales@acme.test"},
	}}
	sender := &fakeSender{err: errors.New("smtp relay down")}

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10}, resolver, sender, nil, nil)
	d.Start()

	assert.NotPanics(t, func() {
		d.Dispatch(lowStockEvent("p1", "s1"))
		time.Sleep(50 * time.Millisecond)
	})
	d.Stop()
}

func TestDispatcher_CachesSupplierLookups(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{
		"s1": {ID: "s1", ContactEmail: "sales@acme.test"},
	}}
	sender := &fakeSender{}
	supplierCache := cache.NewSupplierCache(time.Minute, time.Minute)
	defer supplierCache.Stop()

	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 10}, resolver, sender, supplierCache, nil)
	d.Start()
	defer d.Stop()

	d.Dispatch(lowStockEvent("p1", "s1"))
	waitForEmails(t, sender, 1)
	d.Dispatch(lowStockEvent("p1", "s1"))
	waitForEmails(t, sender, 2)

	assert.Equal(t, 1, resolver.lookupCount(), "second dispatch should hit the cache")
}

func TestDispatch_NeverBlocks(t *testing.T) {
	resolver := &fakeResolver{suppliers: map[string]*models.Supplier{}}
	sender := &fakeSender{}

	// Worker never started: the queue fills and stays full.
	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 1}, resolver, sender, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Dispatch(lowStockEvent("p1", "s1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

func TestDispatch_IgnoresNilEvents(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{QueueBufferSize: 1}, &fakeResolver{}, &fakeSender{}, nil, nil)

	assert.NotPanics(t, func() {
		d.Dispatch(nil)
		d.Dispatch(&models.ChangeEvent{Source: models.SourceProducts, Operation: models.OpUpdate})
	})
}
