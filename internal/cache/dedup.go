package cache

import (
	"context"
	"time"
)

const (
	dedupPrefix = "evt:"
	dedupTTL    = 24 * time.Hour // JetStream redeliveries arrive well within a day
)

// Dedup remembers handled event IDs in Redis so redeliveries of an already
// handled event are dropped. Satisfies events.Deduper.
//
// Seen is a pure read and Mark is only called after an event was handled
// successfully: a nacked event leaves no trace here, so its redelivery is
// handled again. Two workers racing on the same unmarked event may both
// handle it; that is safe because index operations are idempotent.
type Dedup struct {
	cache *RedisClient
}

func NewDedup(c *RedisClient) *Dedup {
	return &Dedup{cache: c}
}

// Seen reports whether id was already marked handled. Never records.
func (d *Dedup) Seen(ctx context.Context, id string) (bool, error) {
	return d.cache.Exists(ctx, dedupPrefix+id)
}

// Mark records id as handled for the TTL window.
func (d *Dedup) Mark(ctx context.Context, id string) error {
	_, err := d.cache.SetNX(ctx, dedupPrefix+id, "1", dedupTTL)
	return err
}
