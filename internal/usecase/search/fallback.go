package search

import (
	"context"
	"log"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// staticFallbackBooks is the absolute last resort, shown only when even the
// popular-books query fails because the store is unreachable.
var staticFallbackBooks = []model.Book{
	{
		ID:              "static-to-kill-a-mockingbird",
		Title:           "To Kill a Mockingbird",
		Author:          "Harper Lee",
		Genres:          []string{"Classic", "Fiction"},
		Rating:          4.3,
		ReviewCount:     5890000,
		PageCount:       324,
		PublicationDate: "1960-07-11",
		Description:     "A young girl's view of racial injustice in the Depression-era American South.",
		ImageURL:        PlaceholderImageURL,
		Source:          "seed",
	},
	{
		ID:              "static-1984",
		Title:           "1984",
		Author:          "George Orwell",
		Genres:          []string{"Classic", "Dystopian"},
		Rating:          4.2,
		ReviewCount:     4470000,
		PageCount:       328,
		PublicationDate: "1949-06-08",
		Description:     "A chilling portrait of total surveillance and the erasure of truth.",
		ImageURL:        PlaceholderImageURL,
		Source:          "seed",
	},
}

// Fallback substitutes a fixed popularity query when resolution fails or
// returns nothing: rating descending, then review count, truncated to limit.
type Fallback struct {
	books repository.BookRepository
	limit int
}

func NewFallback(books repository.BookRepository, limit int) *Fallback {
	return &Fallback{books: books, limit: limit}
}

// PopularBooks never fails: if the store is unreachable it degrades to the
// embedded static list.
func (f *Fallback) PopularBooks(ctx context.Context) []model.Book {
	books, err := f.books.PopularBooks(ctx, f.limit)
	if err != nil {
		log.Printf("[Fallback] Popular books query failed, serving static list: %v", err)
		return staticFallbackBooks
	}
	if len(books) == 0 {
		log.Printf("[Fallback] Popular books query returned nothing, serving static list")
		return staticFallbackBooks
	}
	if len(books) > f.limit {
		books = books[:f.limit]
	}
	return books
}
