package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/bookhaven/bookhaven-api/internal/config"
	"github.com/bookhaven/bookhaven-api/internal/database/bunstore"
	"github.com/bookhaven/bookhaven-api/internal/infrastructure/transport"
	"github.com/bookhaven/bookhaven-api/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(cfg.FeedURLs) == 0 {
		log.Fatal("BH_FEED_URLS is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	client := transport.NewHTTPClient(cfg.DefaultTimeout, cfg.LogLevel)
	source := seed.NewFeedSource(cfg.FeedURLs, client)

	if err := Run(ctx, cfg, source); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

// Run executes one batch seeding pass against the given source. Exposed for
// testing.
func Run(ctx context.Context, cfg *config.Config, source seed.BookSource) error {
	db, err := sql.Open(sqliteshim.ShimName, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := bunstore.NewBunStore(db, sqlitedialect.New())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	state, err := seed.NewFileStateStore(cfg.StateFilePath)
	if err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}

	seeder := seed.NewSeeder(source, store, state, cfg.WorkerConcurrency, cfg.WorkerBatchSize, cfg.WorkerDelayMS)
	return seeder.Run(ctx)
}
