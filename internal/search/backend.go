package search

import "context"

// Backend defines the contract for the search engine we index into.
// This allows us to swap Elasticsearch for another engine later,
// and makes unit testing trivial.
type Backend interface {
	// Ping probes the backend. An error means no reachable node.
	Ping(ctx context.Context) error

	// IndexExists reports whether the named index already exists.
	IndexExists(ctx context.Context, index string) (bool, error)

	// CreateIndex creates an empty index.
	CreateIndex(ctx context.Context, index string) error

	// PutMapping applies a field-mapping schema to the index. The schema is
	// opaque bytes in the backend's own mapping format. Returns whether the
	// backend acknowledged the update.
	PutMapping(ctx context.Context, index string, schema []byte) (bool, error)

	// UpsertDocument fully replaces the document at id with payload,
	// creating it if absent.
	UpsertDocument(ctx context.Context, index, id string, payload []byte) error

	// DeleteDocument removes the document at id. Returns whether the
	// document existed; absence is not an error.
	DeleteDocument(ctx context.Context, index, id string) (bool, error)

	// Close releases any connection resources held by the backend.
	Close() error
}
