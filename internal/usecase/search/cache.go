package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// Cache fronts the AI resolver with a content-addressed store of prior
// resolutions. Expiry is passive: stale entries are treated as misses but
// never deleted.
type Cache struct {
	repo repository.CacheRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewCache(repo repository.CacheRepository, ttl time.Duration) *Cache {
	return &Cache{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// CacheKey derives a deterministic key from the normalized query and the
// serialized options. Identical input always yields the identical key.
func CacheKey(query string, opts model.SearchOptions) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	// Fixed field order keeps the key stable across reruns.
	material := fmt.Sprintf("%s|genre=%s|mood=%s|length=%s|timeFrame=%s",
		normalized, opts.Genre, opts.Mood, opts.Length, opts.TimeFrame)

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result list for (query, opts), or false on a miss.
// A stored entry past its expiry is a miss.
func (c *Cache) Get(ctx context.Context, query string, opts model.SearchOptions) ([]model.Book, bool) {
	if c == nil || c.repo == nil {
		return nil, false
	}

	entry, err := c.repo.GetEntry(ctx, CacheKey(query, opts))
	if err != nil {
		return nil, false
	}

	if entry.Expired(c.now()) {
		log.Printf("[Cache] Entry for %q expired, treating as miss", query)
		return nil, false
	}

	return entry.Results, true
}

// Put stores results under the derived key. Concurrent writers for the same
// key race; last write wins.
func (c *Cache) Put(ctx context.Context, query string, opts model.SearchOptions, results []model.Book) {
	if c == nil || c.repo == nil {
		return
	}

	now := c.now()
	entry := &model.CacheEntry{
		Key:       CacheKey(query, opts),
		Results:   results,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	if err := c.repo.PutEntry(ctx, entry); err != nil {
		// Cache writes are best effort; the resolution already succeeded.
		log.Printf("[Cache] Failed to store entry for %q: %v", query, err)
	}
}
