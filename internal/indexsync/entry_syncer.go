package indexsync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rufai/igbodictionary-website/internal/dictionary"
)

// EntryGetter is the slice of the record store the syncer needs.
type EntryGetter interface {
	GetEntryByWord(ctx context.Context, word string) (dictionary.Entry, error)
}

// EntrySyncer bridges index events to the synchronizer. Its handlers follow
// the event bus contract: nil acks (message discarded), an error nacks
// (message redelivered). Permanent failures ack so poison messages don't
// loop forever; transient ones nack so redelivery retries them.
type EntrySyncer struct {
	sync   *Service
	store  EntryGetter
	logger *slog.Logger
}

func NewEntrySyncer(sync *Service, store EntryGetter, logger *slog.Logger) *EntrySyncer {
	return &EntrySyncer{
		sync:   sync,
		store:  store,
		logger: logger,
	}
}

// HandleEntryUpdated loads the entry from the record store and upserts its
// document. The store, not the event payload, is authoritative: whatever is
// in the database at handling time is what gets indexed.
func (h *EntrySyncer) HandleEntryUpdated(ctx context.Context, word string) error {
	if dictionary.DocumentID(word) == "" {
		// PERMANENT: an event without a word can never be handled.
		h.logger.Error("Discarding entry-updated event without a word")
		return nil
	}

	entry, err := h.store.GetEntryByWord(ctx, word)
	if err != nil {
		if errors.Is(err, dictionary.ErrEntryNotFound) {
			// The entry was deleted between publish and handling. The
			// entry-deleted event will clean up the index.
			h.logger.Warn("Entry no longer in record store, skipping index", "word", word)
			return nil
		}

		h.logger.Error("Failed to fetch entry from record store", "word", word, "error", err)
		return err
	}

	if _, err := h.sync.IndexEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrSerialization) {
			// PERMANENT: the same record will fail serialization on every
			// redelivery.
			return nil
		}

		// TRANSIENT: gate closed or backend request failed. Nack so the
		// event is retried once the backend recovers.
		return err
	}

	return nil
}

// HandleEntryDeleted removes the word's document from the index. A document
// that was never indexed is a clean no-op.
func (h *EntrySyncer) HandleEntryDeleted(ctx context.Context, word string) error {
	if dictionary.DocumentID(word) == "" {
		h.logger.Error("Discarding entry-deleted event without a word")
		return nil
	}

	found, err := h.sync.DeleteFromIndex(ctx, word)
	if err != nil {
		if errors.Is(err, ErrSerialization) {
			return nil
		}
		return err
	}

	if !found {
		h.logger.Info("Delete event for a word that was not indexed", "word", word)
	}
	return nil
}
