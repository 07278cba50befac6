package review

import (
	"context"
	"math"
	"testing"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

type stubBookRepo struct {
	book *model.Book

	updatedRating float64
	updatedCount  int
}

func (s *stubBookRepo) SearchByTitlePrefix(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
	return nil, nil
}
func (s *stubBookRepo) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	return nil, nil
}
func (s *stubBookRepo) BooksByGenres(ctx context.Context, genres []string, limit int) ([]model.Book, error) {
	return nil, nil
}
func (s *stubBookRepo) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	if s.book == nil || s.book.ID != id {
		return nil, database.ErrNotFound
	}
	return s.book, nil
}
func (s *stubBookRepo) UpsertBook(ctx context.Context, book *model.Book) error { return nil }
func (s *stubBookRepo) UpdateBookRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	s.updatedRating = rating
	s.updatedCount = reviewCount
	return nil
}

type stubReviewRepo struct {
	created []model.Review
}

func (s *stubReviewRepo) CreateReview(ctx context.Context, review *model.Review) error {
	s.created = append(s.created, *review)
	return nil
}
func (s *stubReviewRepo) ReviewsForBook(ctx context.Context, bookID string) ([]model.Review, error) {
	return s.created, nil
}

func TestSubmit_RunningAverage(t *testing.T) {
	books := &stubBookRepo{book: &model.Book{ID: "b1", Rating: 4.0, ReviewCount: 3}}
	reviews := &stubReviewRepo{}
	svc := NewService(reviews, books)

	rev, err := svc.Submit(context.Background(), "b1", "u1", 5.0, "loved it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rev.ID == "" {
		t.Errorf("expected a generated review ID")
	}
	if len(reviews.created) != 1 {
		t.Fatalf("expected review stored, got %d", len(reviews.created))
	}

	// (4.0*3 + 5.0) / 4 = 4.25
	if math.Abs(books.updatedRating-4.25) > 1e-9 {
		t.Errorf("expected running average 4.25, got %v", books.updatedRating)
	}
	if books.updatedCount != 4 {
		t.Errorf("expected review count 4, got %d", books.updatedCount)
	}
}

func TestSubmit_FirstReview(t *testing.T) {
	books := &stubBookRepo{book: &model.Book{ID: "b1"}}
	svc := NewService(&stubReviewRepo{}, books)

	if _, err := svc.Submit(context.Background(), "b1", "u1", 3.5, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(books.updatedRating-3.5) > 1e-9 {
		t.Errorf("expected rating 3.5 after first review, got %v", books.updatedRating)
	}
	if books.updatedCount != 1 {
		t.Errorf("expected review count 1, got %d", books.updatedCount)
	}
}

func TestSubmit_Validation(t *testing.T) {
	books := &stubBookRepo{book: &model.Book{ID: "b1"}}
	svc := NewService(&stubReviewRepo{}, books)

	tests := []struct {
		name     string
		bookID   string
		userID   string
		rating   float64
		expected apperr.Category
	}{
		{"rating too high", "b1", "u1", 5.5, apperr.CategoryBook},
		{"rating negative", "b1", "u1", -1, apperr.CategoryBook},
		{"missing user", "b1", "", 4, apperr.CategoryAuth},
		{"unknown book", "nope", "u1", 4, apperr.CategoryBook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.bookID, tt.userID, tt.rating, "")
			if err == nil {
				t.Fatalf("expected error")
			}
			if apperr.CategoryOf(err) != tt.expected {
				t.Errorf("expected category %s, got %s", tt.expected, apperr.CategoryOf(err))
			}
		})
	}
}
