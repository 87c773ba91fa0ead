package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/store"
)

// Normalize converts a store-native change payload into a typed ChangeEvent.
// It fails closed: a payload that cannot be decoded, or whose populated sides
// do not match the operation, is rejected with an error so the caller can
// drop it without crashing the pipeline.
func Normalize(change store.RawChange) (*models.ChangeEvent, error) {
	switch change.Table {
	case models.SourceProducts, models.SourceOrders:
	default:
		return nil, fmt.Errorf("unknown change source: %q", change.Table)
	}

	event := &models.ChangeEvent{
		Source:    change.Table,
		Operation: change.Operation,
		Timestamp: change.Timestamp,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var err error
	switch change.Operation {
	case models.OpInsert:
		if event.After, err = decodeRecord(change.After); err != nil {
			return nil, fmt.Errorf("insert payload: %w", err)
		}
	case models.OpUpdate:
		if event.Before, err = decodeRecord(change.Before); err != nil {
			return nil, fmt.Errorf("update payload (before): %w", err)
		}
		if event.After, err = decodeRecord(change.After); err != nil {
			return nil, fmt.Errorf("update payload (after): %w", err)
		}
	case models.OpDelete:
		if event.Before, err = decodeRecord(change.Before); err != nil {
			return nil, fmt.Errorf("delete payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown change operation: %q", change.Operation)
	}

	return event, nil
}

// decodeRecord parses one side of a change payload. The record id is the one
// field every well-formed row must carry.
func decodeRecord(raw json.RawMessage) (*models.Record, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload side")
	}

	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unparseable payload: %w", err)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("payload missing record id")
	}

	return &record, nil
}

// NormalizeOrDrop normalizes a change and logs-and-drops malformed payloads.
// The returned event is nil when the change was dropped.
func NormalizeOrDrop(change store.RawChange) *models.ChangeEvent {
	event, err := Normalize(change)
	if err != nil {
		slog.Warn("Dropping malformed change payload",
			"table", change.Table,
			"operation", change.Operation,
			"error", err)
		return nil
	}
	return event
}
