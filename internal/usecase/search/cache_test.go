package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
)

type memCacheRepo struct {
	entries map[string]*model.CacheEntry
	putErr  error
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: make(map[string]*model.CacheEntry)}
}

func (m *memCacheRepo) GetEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, database.ErrNotFound
	}
	return entry, nil
}

func (m *memCacheRepo) PutEntry(ctx context.Context, entry *model.CacheEntry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[entry.Key] = entry
	return nil
}

func TestCacheKey_Deterministic(t *testing.T) {
	opts := model.SearchOptions{Genre: "Fantasy", Mood: "dark"}

	a := CacheKey("dragons", opts)
	b := CacheKey("  Dragons ", opts) // normalization: trim and lowercase
	if a != b {
		t.Errorf("expected normalized queries to share a key: %s vs %s", a, b)
	}

	c := CacheKey("dragons", model.SearchOptions{Genre: "Fantasy"})
	if a == c {
		t.Errorf("expected different options to produce a different key")
	}

	d := CacheKey("wizards", opts)
	if a == d {
		t.Errorf("expected different queries to produce a different key")
	}
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	cache := NewCache(newMemCacheRepo(), time.Hour)
	books := []model.Book{{ID: "b1", Title: "The Hobbit"}}

	cache.Put(context.Background(), "hobbits", model.SearchOptions{}, books)

	got, ok := cache.Get(context.Background(), "hobbits", model.SearchOptions{})
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 1 || got[0].Title != "The Hobbit" {
		t.Errorf("unexpected cached books: %+v", got)
	}

	if _, ok := cache.Get(context.Background(), "elves", model.SearchOptions{}); ok {
		t.Errorf("expected miss for a different query")
	}
}

func TestCache_PassiveExpiry(t *testing.T) {
	repo := newMemCacheRepo()
	cache := NewCache(repo, time.Hour)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }
	cache.Put(context.Background(), "hobbits", model.SearchOptions{}, []model.Book{{ID: "b1"}})

	// One second before expiry: still a hit.
	cache.now = func() time.Time { return base.Add(time.Hour - time.Second) }
	if _, ok := cache.Get(context.Background(), "hobbits", model.SearchOptions{}); !ok {
		t.Errorf("expected hit before expiry")
	}

	// At expiry: a miss, but the entry stays in the store.
	cache.now = func() time.Time { return base.Add(time.Hour) }
	if _, ok := cache.Get(context.Background(), "hobbits", model.SearchOptions{}); ok {
		t.Errorf("expected miss at expiry")
	}
	if len(repo.entries) != 1 {
		t.Errorf("expected expired entry to remain in the store")
	}
}

func TestCache_NilSafety(t *testing.T) {
	var cache *Cache

	if _, ok := cache.Get(context.Background(), "q", model.SearchOptions{}); ok {
		t.Errorf("expected nil cache to miss")
	}
	cache.Put(context.Background(), "q", model.SearchOptions{}, nil) // must not panic
}

func TestCache_PutFailureIsSilent(t *testing.T) {
	repo := newMemCacheRepo()
	repo.putErr = errors.New("disk full")
	cache := NewCache(repo, time.Hour)

	// Best effort: a failing write must not propagate.
	cache.Put(context.Background(), "q", model.SearchOptions{}, []model.Book{{ID: "b1"}})
}
