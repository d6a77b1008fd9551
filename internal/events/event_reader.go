package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

const queue = "search-sync-worker"

// Deduper remembers handled event IDs so that redeliveries of an already
// handled event are dropped. Seen must be a pure read; the reader calls
// Mark only after the handler succeeds, so a nacked event stays unmarked
// and its redelivery is handled again.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// EventReader decodes bus payloads into typed events and forwards them to
// the worker logic. Malformed JSON is acked and discarded; event IDs that
// were already handled successfully are acked and skipped.
type EventReader struct {
	bus    Bus
	config *EventConfig
	dedup  Deduper // nil disables deduplication
	logger *slog.Logger
}

func NewEventReader(bus Bus, config *EventConfig, dedup Deduper, logger *slog.Logger) *EventReader {
	return &EventReader{
		bus:    bus,
		config: config,
		dedup:  dedup,
		logger: logger,
	}
}

func (r *EventReader) SubscribeToEntryUpdated(handler func(ctx context.Context, evt EntryUpdatedEvent) error) error {
	subject := r.config.EntryUpdated
	r.logger.Info("Subscribing to entry-updated events", "subject", subject)

	_, err := r.bus.Subscribe(subject, queue, func(ctx context.Context, payload []byte) error {
		var evt EntryUpdatedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			// Ack: a malformed payload will never parse, retrying would
			// loop forever.
			r.logger.Error("Discarding malformed event", "subject", subject, "error", err)
			return nil
		}

		return r.handleOnce(ctx, subject, evt.EventID, func() error {
			return handler(ctx, evt)
		})
	})
	return err
}

func (r *EventReader) SubscribeToEntryDeleted(handler func(ctx context.Context, evt EntryDeletedEvent) error) error {
	subject := r.config.EntryDeleted
	r.logger.Info("Subscribing to entry-deleted events", "subject", subject)

	_, err := r.bus.Subscribe(subject, queue, func(ctx context.Context, payload []byte) error {
		var evt EntryDeletedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			r.logger.Error("Discarding malformed event", "subject", subject, "error", err)
			return nil
		}

		return r.handleOnce(ctx, subject, evt.EventID, func() error {
			return handler(ctx, evt)
		})
	})
	return err
}

// handleOnce skips events whose ID was already handled and marks the ID
// only after the handler succeeds. A failing handler nacks with the ID
// still unmarked, so the bus redelivery is handled again instead of being
// dropped as a duplicate.
func (r *EventReader) handleOnce(ctx context.Context, subject, eventID string, handler func() error) error {
	if r.dedup != nil && eventID != "" {
		seen, err := r.dedup.Seen(ctx, eventID)
		if err != nil {
			return err
		}
		if seen {
			r.logger.Info("Skipping duplicate event", "subject", subject, "event_id", eventID)
			return nil
		}
	}

	if err := handler(); err != nil {
		return err
	}

	if r.dedup != nil && eventID != "" {
		// Best effort: the event is already handled, so a failed mark must
		// not nack it. The worst case is one redundant, idempotent replay.
		if err := r.dedup.Mark(ctx, eventID); err != nil {
			r.logger.Warn("Failed to record handled event", "subject", subject, "event_id", eventID, "error", err)
		}
	}
	return nil
}
