package indexsync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rufai/igbodictionary-website/internal/dictionary"
	"github.com/rufai/igbodictionary-website/internal/indexsync"
	"github.com/rufai/igbodictionary-website/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore simulates the record store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetEntryByWord(ctx context.Context, word string) (dictionary.Entry, error) {
	args := m.Called(ctx, word)
	return args.Get(0).(dictionary.Entry), args.Error(1)
}

func newSyncer(backend search.Backend, store indexsync.EntryGetter) (*indexsync.EntrySyncer, *indexsync.Service) {
	svc := newService(backend)
	svc.Bootstrap(context.Background())
	return indexsync.NewEntrySyncer(svc, store, testLogger()), svc
}

func TestHandleEntryUpdated_HappyPath(t *testing.T) {
	backend := search.NewInMemory()
	store := new(MockStore)
	syncer, _ := newSyncer(backend, store)

	store.On("GetEntryByWord", mock.Anything, "Aka").
		Return(dictionary.Entry{Word: "Aka", Definitions: []string{"hand"}}, nil)

	err := syncer.HandleEntryUpdated(context.Background(), "Aka")

	require.NoError(t, err)
	assert.True(t, backend.Get("words", "aka", nil))
	store.AssertExpectations(t)
}

func TestHandleEntryUpdated_GhostRecord_Acks(t *testing.T) {
	// SCENARIO: entry deleted between event publish and handling.
	// EXPECT: nil (ack) — the entry-deleted event cleans up the index.

	backend := search.NewInMemory()
	store := new(MockStore)
	syncer, _ := newSyncer(backend, store)

	store.On("GetEntryByWord", mock.Anything, mock.Anything).
		Return(dictionary.Entry{}, dictionary.ErrEntryNotFound)

	err := syncer.HandleEntryUpdated(context.Background(), "gone")

	assert.NoError(t, err)
	assert.Equal(t, 0, backend.Count("words"))
}

func TestHandleEntryUpdated_StoreError_Nacks(t *testing.T) {
	backend := search.NewInMemory()
	store := new(MockStore)
	syncer, _ := newSyncer(backend, store)

	store.On("GetEntryByWord", mock.Anything, mock.Anything).
		Return(dictionary.Entry{}, errors.New("connection refused"))

	err := syncer.HandleEntryUpdated(context.Background(), "aka")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHandleEntryUpdated_EmptyWord_Acks(t *testing.T) {
	// The store must not even be consulted for an event without a word.
	syncer, _ := newSyncer(search.NewInMemory(), new(MockStore))

	err := syncer.HandleEntryUpdated(context.Background(), "   ")

	assert.NoError(t, err)
}

func TestHandleEntryUpdated_BackendDown_Nacks(t *testing.T) {
	// SCENARIO: gate closed at handling time.
	// EXPECT: error (nack) so the event is redelivered once the backend
	// recovers.

	backend := search.NewInMemory()
	backend.PingErr = assert.AnError
	store := new(MockStore)
	syncer, svc := newSyncer(backend, store)
	require.False(t, svc.IsAvailable())

	store.On("GetEntryByWord", mock.Anything, mock.Anything).
		Return(dictionary.Entry{Word: "aka"}, nil)

	err := syncer.HandleEntryUpdated(context.Background(), "aka")

	assert.ErrorIs(t, err, indexsync.ErrUnavailable)
}

func TestHandleEntryUpdated_Unserializable_Acks(t *testing.T) {
	backend := search.NewInMemory()
	store := new(MockStore)
	syncer, _ := newSyncer(backend, store)

	store.On("GetEntryByWord", mock.Anything, mock.Anything).
		Return(dictionary.Entry{
			Word:       "ọkụ",
			Attributes: map[string]any{"bad": make(chan int)},
		}, nil)

	err := syncer.HandleEntryUpdated(context.Background(), "ọkụ")

	assert.NoError(t, err, "serialization failures are permanent and must ack")
}

func TestHandleEntryDeleted_RemovesDocument(t *testing.T) {
	backend := search.NewInMemory()
	syncer, svc := newSyncer(backend, new(MockStore))

	_, err := svc.IndexEntry(context.Background(), dictionary.Entry{Word: "aka"})
	require.NoError(t, err)

	err = syncer.HandleEntryDeleted(context.Background(), "AKA")

	require.NoError(t, err)
	assert.Equal(t, 0, backend.Count("words"))
}

func TestHandleEntryDeleted_NotIndexed_Acks(t *testing.T) {
	syncer, _ := newSyncer(search.NewInMemory(), new(MockStore))

	err := syncer.HandleEntryDeleted(context.Background(), "ghost")

	assert.NoError(t, err)
}

func TestHandleEntryDeleted_BackendDown_Nacks(t *testing.T) {
	backend := search.NewInMemory()
	backend.PingErr = assert.AnError
	syncer, _ := newSyncer(backend, new(MockStore))

	err := syncer.HandleEntryDeleted(context.Background(), "aka")

	assert.ErrorIs(t, err, indexsync.ErrUnavailable)
}
