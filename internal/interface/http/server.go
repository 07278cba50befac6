package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/bookhaven/bookhaven-api/internal/usecase/recommend"
	"github.com/bookhaven/bookhaven-api/internal/usecase/review"
	"github.com/bookhaven/bookhaven-api/internal/usecase/search"
	"github.com/bookhaven/bookhaven-api/internal/usecase/user"
	"github.com/google/uuid"
)

// userIDHeader carries the authenticated user. Authentication itself is
// delegated to the gateway; the API only consumes the identity.
const userIDHeader = "X-User-ID"

const defaultHistoryLimit = 50

// Server holds the dependencies for the HTTP API server.
type Server struct {
	resolver    *search.Resolver
	recommender *recommend.Recommender
	reviews     *review.Service
	users       *user.Service
	books       repository.BookRepository
	stats       repository.StatsRepository

	popularLimit   int
	requestTimeout time.Duration
}

// NewServer initializes a new API server with the required dependencies.
func NewServer(
	resolver *search.Resolver,
	recommender *recommend.Recommender,
	reviews *review.Service,
	users *user.Service,
	books repository.BookRepository,
	stats repository.StatsRepository,
	popularLimit int,
	requestTimeout time.Duration,
) *Server {
	return &Server{
		resolver:       resolver,
		recommender:    recommender,
		reviews:        reviews,
		users:          users,
		books:          books,
		stats:          stats,
		popularLimit:   popularLimit,
		requestTimeout: requestTimeout,
	}
}

// RegisterRoutes registers all API endpoints with a new ServeMux.
// Go 1.22+ supports HTTP method routing directly in ServeMux.
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/recommendations", s.handleRecommendations)

	mux.HandleFunc("GET /api/v1/books/popular", s.handlePopularBooks)
	mux.HandleFunc("GET /api/v1/books/{book_id}", s.handleGetBook)
	mux.HandleFunc("GET /api/v1/books/{book_id}/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/v1/books/{book_id}/reviews", s.handleCreateReview)

	mux.HandleFunc("PUT /api/v1/users/preferences", s.handleUpdatePreferences)
	mux.HandleFunc("GET /api/v1/users/bookmarks", s.handleListBookmarks)
	mux.HandleFunc("POST /api/v1/users/bookmarks/{book_id}", s.handleAddBookmark)
	mux.HandleFunc("DELETE /api/v1/users/bookmarks/{book_id}", s.handleRemoveBookmark)
	mux.HandleFunc("GET /api/v1/users/favorites", s.handleListFavorites)
	mux.HandleFunc("POST /api/v1/users/favorites/{book_id}", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/v1/users/favorites/{book_id}", s.handleRemoveFavorite)
	mux.HandleFunc("POST /api/v1/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/v1/users/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/v1/users/history", s.handleClearHistory)

	mux.HandleFunc("GET /api/v1/stats/searches", s.handleTopSearches)

	return mux
}

type SearchRequest struct {
	Query   string              `json:"query"`
	Options model.SearchOptions `json:"options"`
	UserID  string              `json:"userId,omitempty"`
}

type ChatRequest struct {
	Message string              `json:"message"`
	Options model.SearchOptions `json:"options"`
}

type ChatResponse struct {
	SessionID       string       `json:"sessionId"`
	Recommendations []model.Book `json:"recommendations"`
	Source          string       `json:"source"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = r.Header.Get(userIDHeader)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result := s.resolver.Resolve(ctx, req.Query, req.Options, s.loadPreferences(ctx, userID))
	s.users.RecordSearch(ctx, userID, req.Query)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message field is required")
		return
	}

	userID := r.Header.Get(userIDHeader)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result := s.resolver.Resolve(ctx, req.Message, req.Options, s.loadPreferences(ctx, userID))
	s.users.RecordSearch(ctx, userID, req.Message)

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:       uuid.NewString(),
		Recommendations: result.Books,
		Source:          result.Source,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	books, source := s.recommender.Recommend(ctx, userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"books":  books,
		"source": source,
	})
}

func (s *Server) handlePopularBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	books, err := s.books.PopularBooks(ctx, s.popularLimit)
	if err != nil {
		s.writeAppError(w, apperr.Wrap(apperr.CategoryData, "failed to load popular books", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("book_id")

	ctx, cancel := s.requestContext(r)
	defer cancel()

	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		if err == database.ErrNotFound {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		s.writeAppError(w, apperr.Wrap(apperr.CategoryData, "failed to load book", err))
		return
	}

	s.users.RecordView(ctx, r.Header.Get(userIDHeader), book)
	writeJSON(w, http.StatusOK, book)
}

type ReviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment,omitempty"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	rev, err := s.reviews.Submit(ctx, r.PathValue("book_id"), userID, req.Rating, req.Comment)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	reviews, err := s.reviews.ListForBook(ctx, r.PathValue("book_id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var prefs model.UserPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	s.handleListUserBooks(w, r, func(u *model.User) []string { return u.Bookmarks })
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	s.handleListUserBooks(w, r, func(u *model.User) []string { return u.Favorites })
}

func (s *Server) handleListUserBooks(w http.ResponseWriter, r *http.Request, pick func(*model.User) []string) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	books := make([]model.Book, 0)
	for _, id := range pick(u) {
		book, err := s.books.GetBookByID(ctx, id)
		if err != nil {
			continue // tolerate dangling references
		}
		books = append(books, *book)
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	s.handleUserBookOp(w, r, s.users.AddBookmark)
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	s.handleUserBookOp(w, r, s.users.RemoveBookmark)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.handleUserBookOp(w, r, s.users.AddFavorite)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.handleUserBookOp(w, r, s.users.RemoveFavorite)
}

func (s *Server) handleUserBookOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := op(ctx, userID, r.PathValue("book_id")); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type FeedbackRequest struct {
	BookID string `json:"bookId"`
	Liked  bool   `json:"liked"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId field is required")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.users.RecordFeedback(ctx, userID, req.BookID, req.Liked); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	entries, err := s.users.History(ctx, userID, limit)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.users.ClearHistory(ctx, userID); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleTopSearches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	stats, err := s.stats.TopSearches(ctx, 20)
	if err != nil {
		s.writeAppError(w, apperr.Wrap(apperr.CategoryData, "failed to load search stats", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": stats})
}

// Helpers

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// loadPreferences is best effort: an anonymous or unknown user simply gets no
// preference context in the prompt.
func (s *Server) loadPreferences(ctx context.Context, userID string) *model.UserPreferences {
	if userID == "" {
		return nil
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil
	}
	return &u.Preferences
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	log.Printf("[Server] Request failed: %v", err)
	writeError(w, apperr.HTTPStatus(err), apperr.MessageOf(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
