package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/rufai/igbodictionary-website/internal/telemetry"
)

// EntryCols matches the column order of the word_entries queries.
var EntryCols = []string{
	"word", "part_of_speech", "definitions", "examples", "variants",
	"pronunciation", "contributor", "attributes", "updated_at",
}

// NewMockDB creates a pgxmock pool and handles cleanup via t.Cleanup.
func NewMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Cleanup(func() {
		mockPool.Close()
	})

	return mockPool
}

// NewTestLogger creates a standardized silent logger for tests.
func NewTestLogger() *slog.Logger {
	baseHandler := slog.NewJSONHandler(io.Discard, nil)
	return slog.New(telemetry.NewTraceHandler(baseHandler))
}
