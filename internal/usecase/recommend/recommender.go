package recommend

import (
	"context"
	"log"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/bookhaven/bookhaven-api/internal/usecase/search"
	"golang.org/x/sync/errgroup"
)

// historyPromptLimit caps how many recent titles feed the AI prompt.
const historyPromptLimit = 10

// Recommender serves the personalized recommendation chain:
// preference-matched books, then a reading-history AI prompt, then popular.
type Recommender struct {
	books    repository.BookRepository
	users    repository.UserRepository
	history  repository.HistoryRepository
	ai       *search.AIResolver
	fallback *search.Fallback
	limit    int
}

func NewRecommender(
	books repository.BookRepository,
	users repository.UserRepository,
	history repository.HistoryRepository,
	ai *search.AIResolver,
	fallback *search.Fallback,
	limit int,
) *Recommender {
	return &Recommender{
		books:    books,
		users:    users,
		history:  history,
		ai:       ai,
		fallback: fallback,
		limit:    limit,
	}
}

// Recommend returns books for the user plus the source stage that produced
// them. An empty userID skips straight to popular.
func (r *Recommender) Recommend(ctx context.Context, userID string) ([]model.Book, model.RecommendationSource) {
	if userID == "" {
		return r.fallback.PopularBooks(ctx), model.SourcePopular
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[Recommender] No user record for %s: %v", userID, err)
		return r.fallback.PopularBooks(ctx), model.SourcePopular
	}

	// Fetch preference-matched and popular books in parallel; the popular
	// list doubles as the fallback when preferences yield nothing.
	var matched, popular []model.Book
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(user.Preferences.FavoriteGenres) == 0 {
			return nil
		}
		var err error
		matched, err = r.books.BooksByGenres(gctx, user.Preferences.FavoriteGenres, r.limit)
		if err != nil {
			log.Printf("[Recommender] Genre query failed: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		popular = r.fallback.PopularBooks(gctx)
		return nil
	})

	_ = g.Wait()

	if len(matched) > 0 {
		return matched, model.SourcePersonalized
	}

	// Preferences produced nothing; fall through to the reading history.
	if books, ok := r.fromHistory(ctx, user); ok {
		return books, model.SourceAIPersonalized
	}

	return popular, model.SourcePopular
}

func (r *Recommender) fromHistory(ctx context.Context, user *model.User) ([]model.Book, bool) {
	entries, err := r.history.HistoryForUser(ctx, user.ID, historyPromptLimit)
	if err != nil {
		log.Printf("[Recommender] History lookup failed for %s: %v", user.ID, err)
		return nil, false
	}

	var titles []string
	seen := map[string]bool{}
	for _, e := range entries {
		if e.BookTitle == "" || seen[e.BookTitle] {
			continue
		}
		seen[e.BookTitle] = true
		titles = append(titles, e.BookTitle)
	}
	if len(titles) == 0 {
		return nil, false
	}

	outcome := r.ai.ResolveFromHistory(ctx, titles, &user.Preferences)
	if outcome.Kind != search.OutcomeOK {
		log.Printf("[Recommender] History prompt failed (%s): %v", outcome.Kind, outcome.Err)
		return nil, false
	}

	books := outcome.Books
	if len(books) > r.limit {
		books = books[:r.limit]
	}
	return books, true
}
