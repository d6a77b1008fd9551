// Package indexsync keeps the search index eventually consistent with the
// dictionary's primary record store. Every mutating operation is gated on a
// cached reachability flag so that a missing search backend degrades the
// application into "search disabled" mode instead of breaking writes.
package indexsync

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rufai/igbodictionary-website/internal/dictionary"
	"github.com/rufai/igbodictionary-website/internal/search"
)

//go:embed mapping.json
var bundledMapping []byte

// Config carries the index descriptor. All fields have worker-level
// defaults; see cmd/worker.
type Config struct {
	ClusterName  string
	IndexName    string
	DocumentType string

	// MappingFile optionally overrides the bundled mapping resource.
	MappingFile string
}

// Service is the index synchronizer. Construct with New, call Bootstrap
// once at startup, then IndexEntry/DeleteFromIndex from any number of
// goroutines.
type Service struct {
	backend search.Backend
	cfg     Config
	logger  *slog.Logger

	// available is the gate every mutating operation consults. Set by the
	// startup probe, flipped open on backend request failures, and restored
	// by the background liveness probe.
	available atomic.Bool

	bootstrap sync.Once
}

func New(backend search.Backend, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
	}
}

// IsAvailable reports whether the search backend is currently believed
// reachable. Read-only and safe for concurrent use.
func (s *Service) IsAvailable() bool {
	return s.available.Load()
}

// Bootstrap probes the backend and, if reachable, ensures the index exists
// and carries the expected field mapping. Runs at most once per process;
// repeated calls are no-ops. Never returns an error: bootstrap failures
// degrade search rather than abort startup.
func (s *Service) Bootstrap(ctx context.Context) {
	s.bootstrap.Do(func() { s.runBootstrap(ctx) })
}

func (s *Service) runBootstrap(ctx context.Context) {
	mapping := s.loadMapping()

	if err := s.backend.Ping(ctx); err != nil {
		s.logger.Warn("Search backend unreachable, search indexing disabled",
			"cluster", s.cfg.ClusterName, "error", err)
		s.available.Store(false)

		if cerr := s.backend.Close(); cerr != nil {
			s.logger.Warn("Failed to release search backend resources", "error", cerr)
		}
		return
	}

	s.available.Store(true)
	s.logger.Info("Search backend reachable", "cluster", s.cfg.ClusterName, "index", s.cfg.IndexName)

	// Index creation and mapping application are best-effort: a failure
	// here is logged but leaves the gate open, so per-document operations
	// still get their chance at call time.
	exists, err := s.backend.IndexExists(ctx, s.cfg.IndexName)
	if err != nil {
		s.logger.Error("Failed to check index existence", "index", s.cfg.IndexName, "error", err)
		return
	}

	if !exists {
		if err := s.backend.CreateIndex(ctx, s.cfg.IndexName); err != nil {
			s.logger.Error("Failed to create index", "index", s.cfg.IndexName, "error", err)
			return
		}
		s.logger.Info("Created index", "index", s.cfg.IndexName)
	}

	if len(mapping) == 0 {
		s.logger.Warn("No mapping available, skipping mapping application", "index", s.cfg.IndexName)
		return
	}

	// The mapping is re-applied on every startup. Applying an unchanged
	// mapping is a no-op on the backend side, so this is safe.
	acked, err := s.backend.PutMapping(ctx, s.cfg.IndexName, mapping)
	if err != nil {
		s.logger.Error("Failed to apply mapping", "index", s.cfg.IndexName, "error", err)
		return
	}
	s.logger.Info("Applied mapping",
		"index", s.cfg.IndexName, "type", s.cfg.DocumentType, "acknowledged", acked)
}

// loadMapping returns the field-mapping schema as opaque bytes, preferring
// the configured override file. A missing or malformed mapping is reported
// and treated as "no mapping available".
func (s *Service) loadMapping() []byte {
	mapping := bundledMapping
	if s.cfg.MappingFile != "" {
		data, err := os.ReadFile(s.cfg.MappingFile)
		if err != nil {
			s.logger.Warn("Failed to read mapping file, falling back to bundled mapping",
				"path", s.cfg.MappingFile, "error", err)
		} else {
			mapping = data
		}
	}

	if !json.Valid(mapping) {
		s.logger.Warn("Mapping is not valid JSON, proceeding without a mapping")
		return nil
	}
	return mapping
}

// IndexEntry serializes the entry and fully replaces its document in the
// index. Returns true once the backend acknowledged; the backend does not
// distinguish created from replaced, and neither do we.
func (s *Service) IndexEntry(ctx context.Context, entry dictionary.Entry) (bool, error) {
	if !s.IsAvailable() {
		s.logger.Info("Index attempt skipped, search backend unavailable", "word", entry.Word)
		return false, ErrUnavailable
	}

	payload, id, err := entry.Document()
	if err != nil {
		s.logger.Warn("Failed to serialize entry for indexing", "word", entry.Word, "error", err)
		return false, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	if err := s.backend.UpsertDocument(ctx, s.cfg.IndexName, id, payload); err != nil {
		s.tripGate("upsert", err)
		return false, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return true, nil
}

// DeleteFromIndex removes the document addressed by the lowercased word.
// Returns whether the document existed; a word that was never indexed
// yields (false, nil).
func (s *Service) DeleteFromIndex(ctx context.Context, word string) (bool, error) {
	if !s.IsAvailable() {
		s.logger.Info("Delete attempt skipped, search backend unavailable", "word", word)
		return false, ErrUnavailable
	}

	id := dictionary.DocumentID(word)
	if id == "" {
		return false, fmt.Errorf("%w: %w", ErrSerialization, dictionary.ErrNoWord)
	}

	found, err := s.backend.DeleteDocument(ctx, s.cfg.IndexName, id)
	if err != nil {
		s.tripGate("delete", err)
		return false, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return found, nil
}

// tripGate opens the availability gate after a backend request failure.
// The background probe closes it again once the backend answers pings.
func (s *Service) tripGate(op string, err error) {
	if s.available.CompareAndSwap(true, false) {
		s.logger.Warn("Search backend request failed, search indexing disabled",
			"op", op, "error", err)
	}
}

// StartProbe launches the background liveness probe that keeps the
// availability gate honest: it closes the gate when pings start failing and
// reopens it when the backend comes back. Stops when ctx is cancelled.
func (s *Service) StartProbe(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reachable := s.backend.Ping(ctx) == nil
				if s.available.CompareAndSwap(!reachable, reachable) {
					if reachable {
						s.logger.Info("Search backend reachable again, search indexing enabled")
					} else {
						s.logger.Warn("Search backend stopped answering pings, search indexing disabled")
					}
				}
			}
		}
	}()
}

// EntryLister is the slice of the record store Reindex needs.
type EntryLister interface {
	ListEntries(ctx context.Context) ([]dictionary.Entry, error)
}

// ReindexReport summarizes a full reindex run.
type ReindexReport struct {
	Indexed int
	Failed  int
}

// Reindex pushes every entry in the record store into the index. Per-entry
// failures are counted and logged, not fatal; the run stops early only when
// the gate closes mid-flight.
func (s *Service) Reindex(ctx context.Context, store EntryLister) (ReindexReport, error) {
	var report ReindexReport

	if !s.IsAvailable() {
		return report, ErrUnavailable
	}

	entries, err := store.ListEntries(ctx)
	if err != nil {
		return report, fmt.Errorf("list entries: %w", err)
	}

	for _, entry := range entries {
		ok, err := s.IndexEntry(ctx, entry)
		if ok {
			report.Indexed++
			continue
		}
		report.Failed++
		s.logger.Warn("Reindex skipped entry", "word", entry.Word, "error", err)

		// Gate closed mid-run: the remaining entries would all fail the
		// same way.
		if !s.IsAvailable() {
			return report, ErrUnavailable
		}
	}

	s.logger.Info("Reindex finished", "indexed", report.Indexed, "failed", report.Failed)
	return report, nil
}
