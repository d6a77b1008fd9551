package events

import "os"

// EntryUpdatedEvent announces that a dictionary entry was created or
// changed in the record store. The worker re-reads the entry and upserts
// its search document.
type EntryUpdatedEvent struct {
	// EventID deduplicates redeliveries; optional.
	EventID string `json:"event_id,omitempty"`
	Word    string `json:"word"`
}

// EntryDeletedEvent announces that a dictionary entry was removed.
type EntryDeletedEvent struct {
	EventID string `json:"event_id,omitempty"`
	Word    string `json:"word"`
}

type EventConfig struct {
	EntryUpdated string
	EntryDeleted string
}

func NewEventConfig() *EventConfig {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	return &EventConfig{
		EntryUpdated: get("EVENT_ENTRY_UPDATED", "dictionary.entry.updated"),
		EntryDeleted: get("EVENT_ENTRY_DELETED", "dictionary.entry.deleted"),
	}
}
