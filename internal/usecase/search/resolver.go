package search

import (
	"context"
	"log"
	"strings"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// Resolver orchestrates the full resolution pipeline:
//
//	Routing → {KeywordLookup | CacheCheck → AIResolution} → Success
//	                                                      | EmptyOrError → Fallback
//
// Failure always degrades to popular books; Resolve never errors.
type Resolver struct {
	router   *QueryRouter
	keyword  *KeywordResolver
	ai       *AIResolver
	cache    *Cache
	fallback *Fallback

	books   repository.BookRepository
	stats   repository.StatsRepository
	persist bool
}

func NewResolver(
	router *QueryRouter,
	keyword *KeywordResolver,
	ai *AIResolver,
	cache *Cache,
	fallback *Fallback,
	books repository.BookRepository,
	stats repository.StatsRepository,
	persistAIBooks bool,
) *Resolver {
	return &Resolver{
		router:   router,
		keyword:  keyword,
		ai:       ai,
		cache:    cache,
		fallback: fallback,
		books:    books,
		stats:    stats,
		persist:  persistAIBooks,
	}
}

// Resolve runs one search. Queries are logged and counted but never persisted
// as entities.
func (r *Resolver) Resolve(ctx context.Context, query string, opts model.SearchOptions, prefs *model.UserPreferences) Result {
	query = strings.TrimSpace(query)
	r.recordStats(ctx, query)

	route := r.router.Decide(query, opts)
	log.Printf("[Resolver] Query %q routed to %s", query, route)

	switch route {
	case RouteKeyword:
		return r.resolveKeyword(ctx, query, opts)
	case RouteAI:
		return r.resolveAI(ctx, query, opts, prefs)
	default:
		return Result{Books: r.fallback.PopularBooks(ctx), Source: "popular"}
	}
}

func (r *Resolver) resolveKeyword(ctx context.Context, query string, opts model.SearchOptions) Result {
	books, err := r.keyword.Resolve(ctx, query, opts, 0)
	if err != nil {
		log.Printf("[Resolver] Keyword resolution failed: %v", err)
		return Result{Books: r.fallback.PopularBooks(ctx), Source: "popular"}
	}
	if len(books) == 0 {
		return Result{Books: r.fallback.PopularBooks(ctx), Source: "popular"}
	}
	return Result{Books: books, Source: "keyword"}
}

func (r *Resolver) resolveAI(ctx context.Context, query string, opts model.SearchOptions, prefs *model.UserPreferences) Result {
	if books, ok := r.cache.Get(ctx, query, opts); ok {
		log.Printf("[Resolver] Cache hit for %q", query)
		return Result{Books: books, Source: "cache"}
	}

	outcome := r.ai.Resolve(ctx, query, opts, prefs)
	switch outcome.Kind {
	case OutcomeOK:
		r.cache.Put(ctx, query, opts, outcome.Books)
		r.persistBooks(ctx, outcome.Books)
		return Result{Books: outcome.Books, Source: "ai"}
	case OutcomeEmpty:
		log.Printf("[Resolver] Provider returned no books for %q", query)
	default:
		log.Printf("[Resolver] AI resolution failed (%s): %v", outcome.Kind, outcome.Err)
	}

	return Result{Books: r.fallback.PopularBooks(ctx), Source: "popular"}
}

// persistBooks writes AI-generated books into the primary collection when the
// policy flag is on. Upsert by synthetic ID, best effort.
func (r *Resolver) persistBooks(ctx context.Context, books []model.Book) {
	if !r.persist || r.books == nil {
		return
	}
	for i := range books {
		if err := r.books.UpsertBook(ctx, &books[i]); err != nil {
			log.Printf("[Resolver] Failed to persist AI book %q: %v", books[i].Title, err)
		}
	}
}

func (r *Resolver) recordStats(ctx context.Context, query string) {
	if r.stats == nil || query == "" {
		return
	}
	if err := r.stats.RecordSearch(ctx, query); err != nil {
		log.Printf("[Resolver] Failed to record search stat: %v", err)
	}
}
