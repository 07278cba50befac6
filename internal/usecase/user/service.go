package user

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// Feedback is one like/dislike event for a book.
type Feedback struct {
	BookID string    `json:"bookId"`
	Liked  bool      `json:"liked"`
	At     time.Time `json:"at"`
}

// Service handles user preferences, bookmarks, favorites, feedback and
// history. Session feedback lives in a process-local map: it is ephemeral by
// contract and not shared across instances.
type Service struct {
	users   repository.UserRepository
	books   repository.BookRepository
	history repository.HistoryRepository

	mu              sync.Mutex
	sessionFeedback map[string][]Feedback // keyed by user ID
}

func NewService(users repository.UserRepository, books repository.BookRepository, history repository.HistoryRepository) *Service {
	return &Service{
		users:           users,
		books:           books,
		history:         history,
		sessionFeedback: make(map[string][]Feedback),
	}
}

func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "failed to load user", err)
	}
	return u, nil
}

// UpdatePreferences replaces the explicit settings wholesale.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) error {
	if _, err := s.users.EnsureUser(ctx, userID); err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to load user", err)
	}
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to update preferences", err)
	}
	return nil
}

func (s *Service) AddBookmark(ctx context.Context, userID, bookID string) error {
	return s.mutate(ctx, userID, bookID, s.users.AddBookmark)
}

func (s *Service) RemoveBookmark(ctx context.Context, userID, bookID string) error {
	return s.mutate(ctx, userID, bookID, s.users.RemoveBookmark)
}

func (s *Service) AddFavorite(ctx context.Context, userID, bookID string) error {
	return s.mutate(ctx, userID, bookID, s.users.AddFavorite)
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, bookID string) error {
	return s.mutate(ctx, userID, bookID, s.users.RemoveFavorite)
}

func (s *Service) mutate(ctx context.Context, userID, bookID string, op func(context.Context, string, string) error) error {
	if _, err := s.books.GetBookByID(ctx, bookID); err != nil {
		if err == database.ErrNotFound {
			return apperr.Wrap(apperr.CategoryBook, "book not found", err)
		}
		return apperr.Wrap(apperr.CategoryData, "failed to load book", err)
	}
	if err := op(ctx, userID, bookID); err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to update user", err)
	}
	return nil
}

// RecordFeedback stores the event in the session map, appends a history
// entry, and on a like adds the book's genres to the user's favorites when
// absent (implicit preference learning).
func (s *Service) RecordFeedback(ctx context.Context, userID, bookID string, liked bool) error {
	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		if err == database.ErrNotFound {
			return apperr.Wrap(apperr.CategoryBook, "book not found", err)
		}
		return apperr.Wrap(apperr.CategoryData, "failed to load book", err)
	}

	s.mu.Lock()
	s.sessionFeedback[userID] = append(s.sessionFeedback[userID], Feedback{
		BookID: bookID,
		Liked:  liked,
		At:     time.Now(),
	})
	s.mu.Unlock()

	action := "dislike"
	if liked {
		action = "like"
	}
	s.appendHistory(ctx, &model.HistoryEntry{
		UserID:    userID,
		BookID:    bookID,
		BookTitle: book.Title,
		Action:    action,
		CreatedAt: time.Now(),
	})

	if !liked {
		return nil
	}

	u, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to load user", err)
	}

	prefs := u.Preferences
	changed := false
	for _, genre := range book.Genres {
		if !contains(prefs.FavoriteGenres, genre) {
			prefs.FavoriteGenres = append(prefs.FavoriteGenres, genre)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to update preferences", err)
	}
	return nil
}

// SessionFeedback returns a copy of the in-memory feedback for the user.
func (s *Service) SessionFeedback(userID string) []Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.sessionFeedback[userID]
	out := make([]Feedback, len(events))
	copy(out, events)
	return out
}

// RecordSearch appends a search action to the user's history.
func (s *Service) RecordSearch(ctx context.Context, userID, query string) {
	if userID == "" {
		return
	}
	s.appendHistory(ctx, &model.HistoryEntry{
		UserID:    userID,
		Query:     query,
		Action:    "search",
		CreatedAt: time.Now(),
	})
}

// RecordView appends a view action to the user's history.
func (s *Service) RecordView(ctx context.Context, userID string, book *model.Book) {
	if userID == "" || book == nil {
		return
	}
	s.appendHistory(ctx, &model.HistoryEntry{
		UserID:    userID,
		BookID:    book.ID,
		BookTitle: book.Title,
		Action:    "view",
		CreatedAt: time.Now(),
	})
}

func (s *Service) appendHistory(ctx context.Context, entry *model.HistoryEntry) {
	if err := s.history.AppendHistory(ctx, entry); err != nil {
		// History is best effort; never fail the main operation over it.
		log.Printf("[User] Failed to append history for %s: %v", entry.UserID, err)
	}
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	entries, err := s.history.HistoryForUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "failed to load history", err)
	}
	return entries, nil
}

func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if err := s.history.ClearHistory(ctx, userID); err != nil {
		return apperr.Wrap(apperr.CategoryData, "failed to clear history", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
