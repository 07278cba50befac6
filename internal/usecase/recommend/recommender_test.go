package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/bookhaven/bookhaven-api/internal/usecase/search"
)

type mockLLMClient struct {
	resp    string
	err     error
	prompts []string
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.resp, m.err
}
func (m *mockLLMClient) Name() string { return "mock" }

type mockTaskRouter struct {
	client repository.LLMClient
}

func (m *mockTaskRouter) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	return m.client
}

type stubBookRepo struct {
	byGenres []model.Book
	popular  []model.Book
}

func (s *stubBookRepo) SearchByTitlePrefix(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
	return nil, nil
}
func (s *stubBookRepo) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	return s.popular, nil
}
func (s *stubBookRepo) BooksByGenres(ctx context.Context, genres []string, limit int) ([]model.Book, error) {
	return s.byGenres, nil
}
func (s *stubBookRepo) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	return nil, database.ErrNotFound
}
func (s *stubBookRepo) UpsertBook(ctx context.Context, book *model.Book) error { return nil }
func (s *stubBookRepo) UpdateBookRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	return nil
}

type stubUserRepo struct {
	user *model.User
	err  error
}

func (s *stubUserRepo) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.user, s.err
}
func (s *stubUserRepo) EnsureUser(ctx context.Context, id string) (*model.User, error) {
	return s.user, s.err
}
func (s *stubUserRepo) UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) error {
	return nil
}
func (s *stubUserRepo) AddBookmark(ctx context.Context, userID, bookID string) error    { return nil }
func (s *stubUserRepo) RemoveBookmark(ctx context.Context, userID, bookID string) error { return nil }
func (s *stubUserRepo) AddFavorite(ctx context.Context, userID, bookID string) error    { return nil }
func (s *stubUserRepo) RemoveFavorite(ctx context.Context, userID, bookID string) error { return nil }

type stubHistoryRepo struct {
	entries []model.HistoryEntry
	err     error
}

func (s *stubHistoryRepo) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	return nil
}
func (s *stubHistoryRepo) HistoryForUser(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	return s.entries, s.err
}
func (s *stubHistoryRepo) ClearHistory(ctx context.Context, userID string) error { return nil }

const aiArray = `[{"title": "Foundation", "author": "Isaac Asimov", "genres": ["Science Fiction"]}]`

func newTestRecommender(books *stubBookRepo, users *stubUserRepo, history *stubHistoryRepo, client repository.LLMClient) *Recommender {
	ai := search.NewAIResolver(&mockTaskRouter{client: client})
	fallback := search.NewFallback(books, 12)
	return NewRecommender(books, users, history, ai, fallback, 12)
}

func TestRecommend_AnonymousGetsPopular(t *testing.T) {
	books := &stubBookRepo{popular: []model.Book{{ID: "p1"}}}
	rec := newTestRecommender(books, &stubUserRepo{}, &stubHistoryRepo{}, &mockLLMClient{resp: aiArray})

	got, source := rec.Recommend(context.Background(), "")

	if source != model.SourcePopular {
		t.Fatalf("expected popular source, got %s", source)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("unexpected books: %+v", got)
	}
}

func TestRecommend_GenreMatched(t *testing.T) {
	books := &stubBookRepo{
		byGenres: []model.Book{{ID: "g1", Title: "Genre Match"}},
		popular:  []model.Book{{ID: "p1"}},
	}
	users := &stubUserRepo{user: &model.User{
		ID:          "u1",
		Preferences: model.UserPreferences{FavoriteGenres: []string{"Fantasy"}},
	}}
	client := &mockLLMClient{resp: aiArray}
	rec := newTestRecommender(books, users, &stubHistoryRepo{}, client)

	got, source := rec.Recommend(context.Background(), "u1")

	if source != model.SourcePersonalized {
		t.Fatalf("expected personalized source, got %s", source)
	}
	if len(got) != 1 || got[0].ID != "g1" {
		t.Errorf("unexpected books: %+v", got)
	}
	if len(client.prompts) != 0 {
		t.Errorf("expected no provider call when genres match")
	}
}

func TestRecommend_HistoryPromptWhenGenresEmpty(t *testing.T) {
	books := &stubBookRepo{popular: []model.Book{{ID: "p1"}}}
	users := &stubUserRepo{user: &model.User{ID: "u1"}}
	history := &stubHistoryRepo{entries: []model.HistoryEntry{
		{UserID: "u1", BookTitle: "Dune", Action: "view"},
		{UserID: "u1", BookTitle: "Dune", Action: "like"}, // duplicate title
		{UserID: "u1", BookTitle: "Hyperion", Action: "view"},
		{UserID: "u1", Query: "space opera", Action: "search"}, // no title
	}}
	client := &mockLLMClient{resp: aiArray}
	rec := newTestRecommender(books, users, history, client)

	got, source := rec.Recommend(context.Background(), "u1")

	if source != model.SourceAIPersonalized {
		t.Fatalf("expected ai_personalized source, got %s", source)
	}
	if len(got) != 1 || got[0].Title != "Foundation" {
		t.Errorf("unexpected books: %+v", got)
	}

	if len(client.prompts) != 1 {
		t.Fatalf("expected one provider call, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "- Dune") || !strings.Contains(prompt, "- Hyperion") {
		t.Errorf("expected history titles in prompt:\n%s", prompt)
	}
	if strings.Count(prompt, "- Dune") != 1 {
		t.Errorf("expected duplicate titles deduplicated:\n%s", prompt)
	}
}

func TestRecommend_ChainBottomsOutAtPopular(t *testing.T) {
	books := &stubBookRepo{popular: []model.Book{{ID: "p1"}}}
	users := &stubUserRepo{user: &model.User{ID: "u1"}}
	history := &stubHistoryRepo{entries: []model.HistoryEntry{
		{UserID: "u1", BookTitle: "Dune", Action: "view"},
	}}
	rec := newTestRecommender(books, users, history, &mockLLMClient{err: errors.New("provider down")})

	got, source := rec.Recommend(context.Background(), "u1")

	if source != model.SourcePopular {
		t.Fatalf("expected popular source when the AI stage fails, got %s", source)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("unexpected books: %+v", got)
	}
}

func TestRecommend_UnknownUserGetsPopular(t *testing.T) {
	books := &stubBookRepo{popular: []model.Book{{ID: "p1"}}}
	users := &stubUserRepo{err: database.ErrNotFound}
	rec := newTestRecommender(books, users, &stubHistoryRepo{}, &mockLLMClient{resp: aiArray})

	_, source := rec.Recommend(context.Background(), "ghost")

	if source != model.SourcePopular {
		t.Fatalf("expected popular source, got %s", source)
	}
}
