// Package status exposes the worker's liveness and sync-state endpoints
// for orchestrator probes and operators.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger is satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BusChecker is satisfied by events.Bus.
type BusChecker interface {
	Connected() bool
}

// SyncState is satisfied by indexsync.Service.
type SyncState interface {
	IsAvailable() bool
}

type Server struct {
	db    Pinger
	bus   BusChecker
	sync  SyncState
	index string
}

func NewServer(db Pinger, bus BusChecker, sync SyncState, index string) *Server {
	return &Server{
		db:    db,
		bus:   bus,
		sync:  sync,
		index: index,
	}
}

func (s *Server) Mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)

	return r
}

// handleHealthz reports process liveness: the record store and the event
// bus must be up. The search backend is deliberately excluded — the worker
// is designed to run in "search disabled" mode while it is down.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	if !s.bus.Connected() {
		http.Error(w, "event bus disconnected", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"index":            s.index,
		"search_available": s.sync.IsAvailable(),
		"bus_connected":    s.bus.Connected(),
	})
}
