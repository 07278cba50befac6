package repository

import (
	"context"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
)

// BookFilter narrows a title-prefix search. TitlePrefix is matched against
// the lowercased title column as an inclusive range
// (>= prefix, <= prefix + "").
type BookFilter struct {
	TitlePrefix string
	Genre       string
	Length      string // "short", "medium" or "long"
	Limit       int
	Cursor      int // offset cursor for pagination
}

// BookRepository handles book persistence.
type BookRepository interface {
	SearchByTitlePrefix(ctx context.Context, filter BookFilter) ([]model.Book, error)
	PopularBooks(ctx context.Context, limit int) ([]model.Book, error)
	BooksByGenres(ctx context.Context, genres []string, limit int) ([]model.Book, error)
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	UpsertBook(ctx context.Context, book *model.Book) error
	UpdateBookRating(ctx context.Context, id string, rating float64, reviewCount int) error
}

// UserRepository handles users, their preferences, bookmarks and favorites.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	EnsureUser(ctx context.Context, id string) (*model.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) error
	AddBookmark(ctx context.Context, userID, bookID string) error
	RemoveBookmark(ctx context.Context, userID, bookID string) error
	AddFavorite(ctx context.Context, userID, bookID string) error
	RemoveFavorite(ctx context.Context, userID, bookID string) error
}

// ReviewRepository handles book reviews.
type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	ReviewsForBook(ctx context.Context, bookID string) ([]model.Review, error)
}

// HistoryRepository records user interactions.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry *model.HistoryEntry) error
	HistoryForUser(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
	ClearHistory(ctx context.Context, userID string) error
}

// CacheRepository stores prior AI resolutions. Get returns database.ErrNotFound
// for missing keys; expiry checks are the caller's concern (passive expiry).
type CacheRepository interface {
	GetEntry(ctx context.Context, key string) (*model.CacheEntry, error)
	PutEntry(ctx context.Context, entry *model.CacheEntry) error
}

// StatsRepository counts searches.
type StatsRepository interface {
	RecordSearch(ctx context.Context, query string) error
	TopSearches(ctx context.Context, limit int) ([]model.SearchStat, error)
}
