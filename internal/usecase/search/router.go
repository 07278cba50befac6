package search

import (
	"strings"
	"unicode/utf8"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
)

// Route selects the resolution path for a query.
type Route int

const (
	RouteFallback Route = iota // empty query, straight to popular books
	RouteKeyword               // short unfiltered query, direct store lookup
	RouteAI                    // everything else, cache check then provider
)

func (r Route) String() string {
	switch r {
	case RouteKeyword:
		return "keyword"
	case RouteAI:
		return "ai"
	default:
		return "fallback"
	}
}

// QueryRouter decides between keyword lookup and AI prompting based on query
// length and the presence of filter options.
type QueryRouter struct {
	minSearchLength int
}

func NewQueryRouter(minSearchLength int) *QueryRouter {
	return &QueryRouter{minSearchLength: minSearchLength}
}

// Decide trims the query (no further normalization) and applies the routing
// rule: empty goes to fallback; at most minSearchLength characters with no
// genre/mood/length option goes to the keyword path; anything else goes to AI.
func (r *QueryRouter) Decide(query string, opts model.SearchOptions) Route {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return RouteFallback
	}

	if utf8.RuneCountInString(trimmed) <= r.minSearchLength && opts.Empty() {
		return RouteKeyword
	}

	return RouteAI
}
