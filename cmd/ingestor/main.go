package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/adapters/postgres"
	"github.com/samirrijal/pinmap/internal/adapters/valkey"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/config"
	"github.com/samirrijal/pinmap/internal/pkg/logging"
)

// Usage: ingestor [manifest.json] [name,name...]
func main() {
	cfg, err := config.Load("pinmap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// The API caches the mark list; imports must invalidate it.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, screens may see a stale list until it expires", "error", err)
	} else {
		defer c.Close()
		cache = c
	}

	// Imported marks are announced like any other; NATS is optional.
	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, imported marks will not be broadcast", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	var only []string
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			only = append(only, strings.TrimSpace(s))
		}
	}

	slog.Info("mark ingestor starting", "sources", len(manifest.Sources), "manifest", manifestPath)

	imp := &Importer{
		Marks:   usecases.NewMarkService(postgres.NewMarkRepo(db), cache, publisher),
		Timeout: cfg.Remote.Timeout,
	}
	results, err := imp.Run(ctx, manifest.filter(only))
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}

	var created, skipped, failed int
	for _, r := range results {
		created += r.Created
		skipped += r.Skipped
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("ingestion complete", "created", created, "skipped", skipped, "failed_sources", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
