package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rufai/igbodictionary-website/internal/cache"
	"github.com/rufai/igbodictionary-website/internal/database/postgresql"
	"github.com/rufai/igbodictionary-website/internal/events"
	"github.com/rufai/igbodictionary-website/internal/indexsync"
	"github.com/rufai/igbodictionary-website/internal/search"
	"github.com/rufai/igbodictionary-website/internal/status"
	"github.com/rufai/igbodictionary-website/internal/telemetry"
)

type config struct {
	Env  string
	Port string

	DatabaseURL string
	NatsURL     string
	RedisAddr   string
	RedisPass   string

	SearchAddresses  []string
	SearchUsername   string
	SearchPassword   string
	SearchSkipVerify bool

	Sync           indexsync.Config
	ProbeInterval  time.Duration
	ReindexOnStart bool

	CollectorURL string
	EventsConfig *events.EventConfig
}

func main() {
	handler := slog.NewJSONHandler(os.Stdout, nil)
	logger := slog.New(telemetry.NewTraceHandler(handler))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("Worker terminated with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := loadConfig()
	logger.Info("Starting search sync worker", "env", cfg.Env, "index", cfg.Sync.IndexName)

	// Tracing is optional: without a collector the worker just logs.
	if cfg.CollectorURL != "" {
		shutdownTracer, err := telemetry.InitTracer("search-sync-worker", cfg.CollectorURL)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer shutdownTracer(context.Background())
	}

	// Record store (Postgres). The worker cannot run without it: every
	// index event is resolved against the database.
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	// Event bus (NATS JetStream).
	bus, err := events.NewNATSBus(cfg.NatsURL, logger)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	// Search backend (Elasticsearch). Unlike the database, an unreachable
	// backend is survivable: bootstrap leaves the gate closed and the
	// probe reopens it when the cluster comes up.
	backend, err := search.NewElasticsearch(search.ElasticsearchConfig{
		Addresses:     cfg.SearchAddresses,
		Username:      cfg.SearchUsername,
		Password:      cfg.SearchPassword,
		SkipTLSVerify: cfg.SearchSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("create search backend: %w", err)
	}

	syncer := indexsync.New(backend, cfg.Sync, logger)
	syncer.Bootstrap(ctx)
	syncer.StartProbe(ctx, cfg.ProbeInterval)

	store := postgresql.NewEntryStore(dbPool)

	if cfg.ReindexOnStart {
		report, err := syncer.Reindex(ctx, store)
		if err != nil {
			logger.Warn("Startup reindex incomplete", "indexed", report.Indexed, "failed", report.Failed, "error", err)
		}
	}

	// Optional Redis-backed dedup of redelivered events.
	var dedup events.Deduper
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		dedup = cache.NewDedup(redisClient)
	}

	entrySyncer := indexsync.NewEntrySyncer(syncer, store, logger)
	reader := events.NewEventReader(bus, cfg.EventsConfig, dedup, logger)

	if err := reader.SubscribeToEntryUpdated(func(ctx context.Context, evt events.EntryUpdatedEvent) error {
		return entrySyncer.HandleEntryUpdated(ctx, evt.Word)
	}); err != nil {
		return fmt.Errorf("subscribe to entry-updated events: %w", err)
	}

	if err := reader.SubscribeToEntryDeleted(func(ctx context.Context, evt events.EntryDeletedEvent) error {
		return entrySyncer.HandleEntryDeleted(ctx, evt.Word)
	}); err != nil {
		return fmt.Errorf("subscribe to entry-deleted events: %w", err)
	}

	logger.Info("Worker is running and listening for events")

	// Status server for orchestrator probes.
	statusServer := status.NewServer(dbPool, bus, syncer, cfg.Sync.IndexName)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: statusServer.Mount(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("Shutting down worker", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Status server shutdown error", "error", err)
	}

	// Drain NATS first so in-flight index operations finish before the
	// database pool and backend go away.
	if err := bus.Close(); err != nil {
		logger.Error("NATS drain error", "error", err)
	}

	if err := backend.Close(); err != nil {
		logger.Error("Search backend close error", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

func loadConfig() config {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	probeInterval, err := time.ParseDuration(get("SEARCH_PROBE_INTERVAL", "30s"))
	if err != nil {
		probeInterval = 30 * time.Second
	}

	return config{
		Env:         get("SEARCH_SYNC_ENV", "production"),
		Port:        get("SEARCH_SYNC_PORT", "8082"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		NatsURL:     os.Getenv("NATS_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),

		SearchAddresses:  strings.Split(get("ES_ADDRESSES", "http://localhost:9200"), ","),
		SearchUsername:   os.Getenv("ES_USERNAME"),
		SearchPassword:   os.Getenv("ES_PASSWORD"),
		SearchSkipVerify: os.Getenv("ES_SKIP_TLS_VERIFY") == "true",

		Sync: indexsync.Config{
			ClusterName:  get("ES_CLUSTER_NAME", "igbo_dictionary"),
			IndexName:    get("ES_INDEX_NAME", "words"),
			DocumentType: get("ES_DOCUMENT_TYPE", "word"),
			MappingFile:  os.Getenv("ES_MAPPING_FILE"),
		},
		ProbeInterval:  probeInterval,
		ReindexOnStart: os.Getenv("REINDEX_ON_START") == "true",

		CollectorURL: os.Getenv("OTEL_COLLECTOR_URL"),
		EventsConfig: events.NewEventConfig(),
	}
}
