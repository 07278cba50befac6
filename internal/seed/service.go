package seed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// BookSource yields new book entries published after a unix timestamp.
type BookSource interface {
	FetchNewBooks(ctx context.Context, since int64) ([]model.Book, error)
}

// Seeder pulls new releases from a source and upserts them into the catalog.
type Seeder struct {
	source      BookSource
	books       repository.BookRepository
	state       *FileStateStore
	concurrency int
	batchSize   int
	delay       time.Duration
}

func NewSeeder(source BookSource, books repository.BookRepository, state *FileStateStore, concurrency, batchSize, delayMS int) *Seeder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Seeder{
		source:      source,
		books:       books,
		state:       state,
		concurrency: concurrency,
		batchSize:   batchSize,
		delay:       time.Duration(delayMS) * time.Millisecond,
	}
}

// Run executes one batch ingestion pass.
func (s *Seeder) Run(ctx context.Context) error {
	since := s.state.Watermark()
	log.Printf("[Seed] Starting batch ingestion (since %d [%s])", since, time.Unix(since, 0).Format(time.RFC3339))

	books, err := s.source.FetchNewBooks(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to fetch books: %w", err)
	}

	if len(books) == 0 {
		log.Println("[Seed] No new books found")
		return nil
	}

	// Idempotency filter: skip anything a previous run already ingested.
	var actionable []model.Book
	for _, b := range books {
		if s.state.IsProcessed(b.ID) {
			continue
		}
		actionable = append(actionable, b)
	}

	if len(actionable) == 0 {
		log.Println("[Seed] All fetched books already processed")
		return nil
	}

	if s.batchSize > 0 && len(actionable) > s.batchSize {
		log.Printf("[Seed] Limiting batch to first %d books (out of %d)", s.batchSize, len(actionable))
		actionable = actionable[:s.batchSize]
	}

	log.Printf("[Seed] Processing %d books...", len(actionable))

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		maxTimestamp = since
		successCount int
		failCount    int
	)

	sem := make(chan struct{}, s.concurrency)
	for _, book := range actionable {
		wg.Add(1)
		sem <- struct{}{}

		// Politeness delay to avoid hammering the store in tight bursts.
		if s.delay > 0 {
			time.Sleep(s.delay)
		}

		go func(b model.Book) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.books.UpsertBook(ctx, &b); err != nil {
				log.Printf("[Seed] Error ingesting '%s' (%s): %v", b.Title, b.ID, err)
				mu.Lock()
				failCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			successCount++
			if ts := b.CreatedAt.Unix(); !b.CreatedAt.IsZero() && ts > maxTimestamp {
				maxTimestamp = ts
			}
			mu.Unlock()
			s.state.MarkProcessed(b.ID)
		}(book)
	}

	wg.Wait()

	if maxTimestamp > since {
		s.state.UpdateWatermark(maxTimestamp)
	}
	if err := s.state.Save(); err != nil {
		log.Printf("[Seed] Warning: failed to persist state: %v", err)
	}

	log.Printf("[Seed] Batch complete: %d ingested, %d failed", successCount, failCount)
	return nil
}
