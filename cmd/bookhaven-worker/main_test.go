package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/config"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/seed"
)

// mockBookSource is a simple mock for seed.BookSource
type mockBookSource struct {
	books    []model.Book
	errFetch error
}

func (m *mockBookSource) FetchNewBooks(ctx context.Context, since int64) ([]model.Book, error) {
	if m.errFetch != nil {
		return nil, m.errFetch
	}
	return m.books, nil
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:            filepath.Join(dir, "books.db"),
		StateFilePath:     filepath.Join(dir, "worker_state.json"),
		WorkerConcurrency: 2,
		WorkerBatchSize:   10,
	}

	now := time.Now()
	source := &mockBookSource{
		books: []model.Book{
			{ID: "release-1", Title: "Test Book", Author: "Author A", CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "release-2", Title: "Test Book 2", Author: "Author B", CreatedAt: now},
		},
	}

	if err := Run(context.Background(), cfg, source); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// The state file must record both releases and the newest timestamp.
	state, err := seed.NewFileStateStore(cfg.StateFilePath)
	if err != nil {
		t.Fatalf("failed to reload state: %v", err)
	}
	if !state.IsProcessed("release-1") || !state.IsProcessed("release-2") {
		t.Errorf("expected both releases marked processed")
	}
	if state.Watermark() != now.Unix() {
		t.Errorf("expected watermark %d, got %d", now.Unix(), state.Watermark())
	}
}

func TestRun_NoBooks(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:            filepath.Join(dir, "books.db"),
		StateFilePath:     filepath.Join(dir, "worker_state.json"),
		WorkerConcurrency: 2,
		WorkerBatchSize:   10,
	}

	source := &mockBookSource{}

	if err := Run(context.Background(), cfg, source); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRun_SourceFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:            filepath.Join(dir, "books.db"),
		StateFilePath:     filepath.Join(dir, "worker_state.json"),
		WorkerConcurrency: 2,
	}

	source := &mockBookSource{errFetch: errors.New("feed unreachable")}

	if err := Run(context.Background(), cfg, source); err == nil {
		t.Fatal("expected error when the source fails")
	}
}
