package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"store-dashboard-api/internal/config"
	"store-dashboard-api/internal/models"
)

type recordingDispatcher struct {
	events []*models.ChangeEvent
}

func (d *recordingDispatcher) Dispatch(event *models.ChangeEvent) {
	d.events = append(d.events, event)
}

func orderInsert(id, customer string) *models.ChangeEvent {
	return &models.ChangeEvent{
		Source:    models.SourceOrders,
		Operation: models.OpInsert,
		After:     &models.Record{ID: id, CustomerName: customer},
	}
}

func productUpdate(before, after *models.Record) *models.ChangeEvent {
	return &models.ChangeEvent{
		Source:    models.SourceProducts,
		Operation: models.OpUpdate,
		Before:    before,
		After:     after,
	}
}

func TestHandleEvent_NewOrderNotification(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)

	engine.HandleEvent(orderInsert("42", "Jane"))

	notifications := engine.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "🛒 New Order: #42 - Jane", notifications[0].Message)
	assert.Equal(t, models.NotificationKindOrder, notifications[0].Kind)
	assert.Equal(t, "/dashboard/orders", notifications[0].Link)
	assert.True(t, engine.BadgeVisible())
}

func TestHandleEvent_LowStockNotification(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	engine := NewEngine(config.AlertPolicyEveryUpdate, dispatcher, nil, nil)

	event := productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 12, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 3, Threshold: 5},
	)
	engine.HandleEvent(event)

	notifications := engine.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "⚠️ Low Stock: Tote - Only 3 left!", notifications[0].Message)
	assert.Equal(t, models.NotificationKindLowStock, notifications[0].Kind)
	assert.Equal(t, "/dashboard/inventory/p1", notifications[0].Link)

	require.Len(t, dispatcher.events, 1)
	assert.Same(t, event, dispatcher.events[0])
}

func TestHandleEvent_AboveThresholdProducesNothing(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	engine := NewEngine(config.AlertPolicyEveryUpdate, dispatcher, nil, nil)

	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 20, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 15, Threshold: 5},
	))

	assert.Zero(t, engine.Count())
	assert.False(t, engine.BadgeVisible())
	assert.Empty(t, dispatcher.events)
}

func TestHandleEvent_EveryUpdatePolicyRealerts(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)

	// Both updates happen inside the low-stock band.
	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 4, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 3, Threshold: 5},
	))
	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 3, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 2, Threshold: 5},
	))

	assert.Equal(t, 2, engine.Count())
}

func TestHandleEvent_CrossingPolicySuppressesRepeats(t *testing.T) {
	engine := NewEngine(config.AlertPolicyCrossing, nil, nil, nil)

	// Crossing into the band alerts once.
	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 12, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 4, Threshold: 5},
	))
	// Further movement inside the band is suppressed.
	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 4, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 2, Threshold: 5},
	))

	require.Equal(t, 1, engine.Count())
	assert.Equal(t, "⚠️ Low Stock: Tote - Only 4 left!", engine.Notifications()[0].Message)
}

func TestHandleEvent_AppendOnlyInArrivalOrder(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)

	for i := 1; i <= 5; i++ {
		engine.HandleEvent(orderInsert(fmt.Sprintf("%d", i), "Customer"))
	}

	notifications := engine.Notifications()
	require.Len(t, notifications, 5)
	for i, n := range notifications {
		assert.Equal(t, fmt.Sprintf("🛒 New Order: #%d - Customer", i+1), n.Message)
	}
}

func TestHandleEvent_IgnoresUnrelatedEvents(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)

	engine.HandleEvent(nil)
	engine.HandleEvent(&models.ChangeEvent{
		Source:    models.SourceOrders,
		Operation: models.OpUpdate,
		After:     &models.Record{ID: "o1"},
	})
	engine.HandleEvent(&models.ChangeEvent{
		Source:    models.SourceProducts,
		Operation: models.OpDelete,
		Before:    &models.Record{ID: "p1", Quantity: 2, Threshold: 5},
	})

	assert.Zero(t, engine.Count())
	assert.False(t, engine.BadgeVisible())
}

func TestToggleBadge_DoesNotClearLog(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)
	engine.HandleEvent(orderInsert("1", "Jane"))

	require.True(t, engine.BadgeVisible())
	assert.False(t, engine.ToggleBadge())
	assert.True(t, engine.ToggleBadge())
	assert.Equal(t, 1, engine.Count())
}

func TestNewEngine_UnknownPolicyFallsBackToDefault(t *testing.T) {
	engine := NewEngine("whenever", nil, nil, nil)

	// Default policy re-alerts inside the band.
	engine.HandleEvent(productUpdate(
		&models.Record{ID: "p1", Name: "Tote", Quantity: 4, Threshold: 5},
		&models.Record{ID: "p1", Name: "Tote", Quantity: 3, Threshold: 5},
	))

	assert.Equal(t, 1, engine.Count())
}

func TestNotifications_ReturnsCopy(t *testing.T) {
	engine := NewEngine(config.AlertPolicyEveryUpdate, nil, nil, nil)
	engine.HandleEvent(orderInsert("1", "Jane"))

	first := engine.Notifications()
	first[0].Message = "mutated"

	assert.Equal(t, "🛒 New Order: #1 - Jane", engine.Notifications()[0].Message)
}
