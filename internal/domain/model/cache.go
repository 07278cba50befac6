package model

import "time"

// CacheEntry is a stored AI resolution keyed by a content hash of the query
// and options. Expiry is passive: stale entries survive until overwritten.
type CacheEntry struct {
	Key       string    `json:"key"`
	Results   []Book    `json:"results"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the entry must be treated as a miss at the given
// instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// SearchStat counts how often a query has been issued.
type SearchStat struct {
	Query          string    `json:"query"`
	Hits           int64     `json:"hits"`
	LastSearchedAt time.Time `json:"lastSearchedAt"`
}
