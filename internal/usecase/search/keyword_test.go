package search

import (
	"context"
	"errors"
	"testing"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

func TestPrefixBounds(t *testing.T) {
	lower, upper := PrefixBounds(" Har ")

	if lower != "har" {
		t.Errorf("expected lower bound har, got %q", lower)
	}
	if upper != "har"+PrefixUpperBound {
		t.Errorf("expected upper bound terminated by the sentinel, got %q", upper)
	}
}

func TestKeywordResolver_Resolve(t *testing.T) {
	var captured repository.BookFilter
	repo := &stubBookRepo{
		searchFn: func(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
			captured = filter
			return []model.Book{{ID: "b1"}}, nil
		},
	}
	resolver := NewKeywordResolver(repo, 20)

	books, err := resolver.Resolve(context.Background(), "Dun", model.SearchOptions{Genre: "Fantasy", Length: "short"}, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("expected 1 book, got %d", len(books))
	}

	if captured.TitlePrefix != "dun" {
		t.Errorf("expected lowercased prefix, got %q", captured.TitlePrefix)
	}
	if captured.Genre != "Fantasy" || captured.Length != "short" {
		t.Errorf("expected options forwarded, got %+v", captured)
	}
	if captured.Limit != 20 || captured.Cursor != 40 {
		t.Errorf("expected limit 20 and cursor 40, got %+v", captured)
	}
}

func TestKeywordResolver_NoMatchesIsNotAnError(t *testing.T) {
	resolver := NewKeywordResolver(&stubBookRepo{}, 20)

	books, err := resolver.Resolve(context.Background(), "xyz", model.SearchOptions{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("expected empty result, got %d books", len(books))
	}
}

func TestKeywordResolver_StoreError(t *testing.T) {
	repo := &stubBookRepo{
		searchFn: func(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
			return nil, errors.New("store down")
		},
	}
	resolver := NewKeywordResolver(repo, 20)

	_, err := resolver.Resolve(context.Background(), "dun", model.SearchOptions{}, 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if apperr.CategoryOf(err) != apperr.CategoryData {
		t.Errorf("expected DATA category, got %s", apperr.CategoryOf(err))
	}
}
