package status_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufai/igbodictionary-website/internal/status"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeBus struct{ connected bool }

func (f fakeBus) Connected() bool { return f.connected }

type fakeSync struct{ available bool }

func (f fakeSync) IsAvailable() bool { return f.available }

func TestHealthz_AllUp(t *testing.T) {
	srv := status.NewServer(fakePinger{}, fakeBus{connected: true}, fakeSync{available: true}, "words")

	rec := httptest.NewRecorder()
	srv.Mount().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_DatabaseDown(t *testing.T) {
	srv := status.NewServer(fakePinger{err: errors.New("refused")}, fakeBus{connected: true}, fakeSync{}, "words")

	rec := httptest.NewRecorder()
	srv.Mount().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz_BusDisconnected(t *testing.T) {
	srv := status.NewServer(fakePinger{}, fakeBus{connected: false}, fakeSync{}, "words")

	rec := httptest.NewRecorder()
	srv.Mount().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz_SearchDown_StillHealthy(t *testing.T) {
	// The worker is healthy even with search disabled; that is the whole
	// point of the availability gate.
	srv := status.NewServer(fakePinger{}, fakeBus{connected: true}, fakeSync{available: false}, "words")

	rec := httptest.NewRecorder()
	srv.Mount().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus_ReportsGateState(t *testing.T) {
	srv := status.NewServer(fakePinger{}, fakeBus{connected: true}, fakeSync{available: false}, "words")

	rec := httptest.NewRecorder()
	srv.Mount().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "words", body["index"])
	assert.Equal(t, false, body["search_available"])
	assert.Equal(t, true, body["bus_connected"])
}
