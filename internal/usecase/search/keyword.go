package search

import (
	"context"
	"strings"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// PrefixUpperBound is a high Unicode sentinel terminating a title prefix range.
const PrefixUpperBound = ""

// PrefixBounds returns the inclusive range [term, term+""] used for the
// lowercased-title prefix match.
func PrefixBounds(term string) (string, string) {
	lower := strings.ToLower(strings.TrimSpace(term))
	return lower, lower + PrefixUpperBound
}

// KeywordResolver answers short, unfiltered queries with a direct store
// lookup: prefix match on the lowercased title, ordered by rating descending.
// It only finds titles that literally start with the query; that limitation
// is part of the contract.
type KeywordResolver struct {
	books      repository.BookRepository
	maxResults int
}

func NewKeywordResolver(books repository.BookRepository, maxResults int) *KeywordResolver {
	return &KeywordResolver{books: books, maxResults: maxResults}
}

// Resolve runs the prefix query. No matches yields an empty list, not an
// error. Cursor is an offset for pagination.
func (r *KeywordResolver) Resolve(ctx context.Context, term string, opts model.SearchOptions, cursor int) ([]model.Book, error) {
	prefix, _ := PrefixBounds(term)

	books, err := r.books.SearchByTitlePrefix(ctx, repository.BookFilter{
		TitlePrefix: prefix,
		Genre:       opts.Genre,
		Length:      opts.Length,
		Limit:       r.maxResults,
		Cursor:      cursor,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "keyword lookup failed", err)
	}

	return books, nil
}
