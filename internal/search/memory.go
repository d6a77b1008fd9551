package search

import (
	"context"
	"encoding/json"
	"sync"
)

// InMemory is a thread-safe Backend fake for testing.
// It stores documents in a map: indices[indexName][documentID] = payload,
// and counts every backend call so tests can assert that gated operations
// never reach the backend.
type InMemory struct {
	mu       sync.RWMutex
	indices  map[string]map[string][]byte
	mappings map[string][]byte
	calls    map[string]int

	// Failure injection knobs. When set, the corresponding operation
	// returns the error instead of touching the store.
	PingErr   error
	UpsertErr error
	DeleteErr error
	CreateErr error
	closed    bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		indices:  make(map[string]map[string][]byte),
		mappings: make(map[string][]byte),
		calls:    make(map[string]int),
	}
}

func (m *InMemory) Ping(ctx context.Context) error {
	m.record("ping")
	return m.PingErr
}

func (m *InMemory) IndexExists(ctx context.Context, index string) (bool, error) {
	m.record("index_exists")
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.indices[index]
	return ok, nil
}

func (m *InMemory) CreateIndex(ctx context.Context, index string) error {
	m.record("create_index")
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indices[index] == nil {
		m.indices[index] = make(map[string][]byte)
	}
	return nil
}

func (m *InMemory) PutMapping(ctx context.Context, index string, schema []byte) (bool, error) {
	m.record("put_mapping")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings[index] = schema
	return true, nil
}

func (m *InMemory) UpsertDocument(ctx context.Context, index, id string, payload []byte) error {
	m.record("upsert")
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indices[index] == nil {
		m.indices[index] = make(map[string][]byte)
	}
	// Full replace, never a merge.
	m.indices[index][id] = payload
	return nil
}

func (m *InMemory) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	m.record("delete")
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.indices[index]
	if !ok {
		return false, nil
	}
	_, found := bucket[id]
	delete(bucket, id)
	return found, nil
}

func (m *InMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// --- Test helper methods (not part of the Backend interface) ---

// Get lets tests inspect a stored document, decoded into dst.
func (m *InMemory) Get(index, id string, dst any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.indices[index]
	if !ok {
		return false
	}
	payload, found := bucket[id]
	if !found {
		return false
	}
	if dst != nil {
		if err := json.Unmarshal(payload, dst); err != nil {
			return false
		}
	}
	return true
}

// Count returns the number of documents in an index.
func (m *InMemory) Count(index string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indices[index])
}

// Mapping returns the schema last applied to an index.
func (m *InMemory) Mapping(index string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mappings[index]
}

// Calls returns how many times the named operation was invoked.
// Operation names: ping, index_exists, create_index, put_mapping,
// upsert, delete.
func (m *InMemory) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Closed reports whether Close was called.
func (m *InMemory) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *InMemory) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
}
