package review

import (
	"context"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/google/uuid"
)

// Service handles review submission and the derived book rating.
type Service struct {
	reviews repository.ReviewRepository
	books   repository.BookRepository
}

func NewService(reviews repository.ReviewRepository, books repository.BookRepository) *Service {
	return &Service{reviews: reviews, books: books}
}

// Submit stores the review and recomputes the book's rating as a running
// average over all reviews.
func (s *Service) Submit(ctx context.Context, bookID, userID string, rating float64, comment string) (*model.Review, error) {
	if rating < 0 || rating > 5 {
		return nil, apperr.New(apperr.CategoryBook, "rating must be between 0 and 5")
	}
	if userID == "" {
		return nil, apperr.New(apperr.CategoryAuth, "authentication required to review")
	}

	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, apperr.Wrap(apperr.CategoryBook, "book not found", err)
		}
		return nil, apperr.Wrap(apperr.CategoryData, "failed to load book", err)
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		BookID:    bookID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "failed to store review", err)
	}

	// Running average: no review re-reads, just the stored aggregate.
	newCount := book.ReviewCount + 1
	newRating := (book.Rating*float64(book.ReviewCount) + rating) / float64(newCount)
	if err := s.books.UpdateBookRating(ctx, bookID, newRating, newCount); err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "failed to update book rating", err)
	}

	return review, nil
}

// ListForBook returns reviews, newest first.
func (s *Service) ListForBook(ctx context.Context, bookID string) ([]model.Review, error) {
	reviews, err := s.reviews.ReviewsForBook(ctx, bookID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CategoryData, "failed to load reviews", err)
	}
	return reviews, nil
}
