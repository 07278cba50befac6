package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/bookhaven/bookhaven-api/internal/apperr"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/google/uuid"
)

// PlaceholderImageURL is substituted when the provider omits a cover image.
const PlaceholderImageURL = "https://covers.bookhaven.dev/placeholder.png"

// AIResolver turns a free-text query into book recommendations by prompting
// the LLM provider and parsing a JSON array out of its free-text output.
type AIResolver struct {
	router repository.LLMRouter
}

func NewAIResolver(router repository.LLMRouter) *AIResolver {
	return &AIResolver{router: router}
}

// Resolve prompts the provider and returns a tagged outcome. It never returns
// a Go error: provider and parse failures are Outcome kinds the caller
// pattern-matches on.
func (r *AIResolver) Resolve(ctx context.Context, query string, opts model.SearchOptions, prefs *model.UserPreferences) Outcome {
	prompt := BuildPrompt(query, opts, prefs)
	return r.generate(ctx, prompt)
}

// ResolveFromHistory builds recommendations from recently read titles instead
// of a search query. Used by the personalized recommendation chain.
func (r *AIResolver) ResolveFromHistory(ctx context.Context, titles []string, prefs *model.UserPreferences) Outcome {
	prompt := BuildHistoryPrompt(titles, prefs)
	return r.generate(ctx, prompt)
}

func (r *AIResolver) generate(ctx context.Context, prompt string) Outcome {
	client := r.router.RouteLLMTask(repository.TaskRecommendation)
	if client == nil {
		return Outcome{
			Kind: OutcomeProviderError,
			Err:  apperr.New(apperr.CategoryAPI, "no recommendation model configured"),
		}
	}

	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		return Outcome{
			Kind: OutcomeProviderError,
			Err:  apperr.Wrap(apperr.CategoryAPI, "recommendation provider failed", err),
		}
	}

	books, err := ParseBooks(raw)
	if err != nil {
		log.Printf("[AIResolver] Failed to parse provider output: %v", err)
		return Outcome{
			Kind: OutcomeParseError,
			Err:  apperr.Wrap(apperr.CategorySearch, "could not parse recommendations", err),
		}
	}

	if len(books) == 0 {
		return Outcome{Kind: OutcomeEmpty}
	}

	return Outcome{Kind: OutcomeOK, Books: books}
}

// BuildPrompt enumerates the query, filters and user preferences and requests
// a JSON array with the fixed field list the parser expects.
func BuildPrompt(query string, opts model.SearchOptions, prefs *model.UserPreferences) string {
	var sb strings.Builder

	sb.WriteString("You are a book recommendation assistant. Recommend books matching this request:\n")
	fmt.Fprintf(&sb, "Request: %s\n", query)

	if opts.Genre != "" {
		fmt.Fprintf(&sb, "Genre: %s\n", opts.Genre)
	}
	if opts.Mood != "" {
		fmt.Fprintf(&sb, "Mood: %s\n", opts.Mood)
	}
	if opts.Length != "" {
		fmt.Fprintf(&sb, "Preferred length: %s (short is under %d pages, medium %d-%d, long over %d)\n",
			opts.Length, model.ShortMaxPages, model.ShortMaxPages, model.MediumMaxPages, model.MediumMaxPages)
	}
	if opts.TimeFrame != "" {
		fmt.Fprintf(&sb, "Publication time frame: %s\n", opts.TimeFrame)
	}

	writePreferences(&sb, prefs)
	writeOutputContract(&sb)
	return sb.String()
}

// BuildHistoryPrompt asks for recommendations based on recently read books.
func BuildHistoryPrompt(titles []string, prefs *model.UserPreferences) string {
	var sb strings.Builder

	sb.WriteString("You are a book recommendation assistant. The user recently read:\n")
	for _, t := range titles {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	sb.WriteString("Recommend books they would enjoy next. Do not repeat the listed titles.\n")

	writePreferences(&sb, prefs)
	writeOutputContract(&sb)
	return sb.String()
}

func writePreferences(sb *strings.Builder, prefs *model.UserPreferences) {
	if prefs == nil {
		return
	}
	if len(prefs.FavoriteGenres) > 0 {
		fmt.Fprintf(sb, "The user's favorite genres: %s\n", strings.Join(prefs.FavoriteGenres, ", "))
	}
	if len(prefs.FavoriteAuthors) > 0 {
		fmt.Fprintf(sb, "The user's favorite authors: %s\n", strings.Join(prefs.FavoriteAuthors, ", "))
	}
	if prefs.PreferredLength != "" {
		fmt.Fprintf(sb, "The user prefers %s books.\n", prefs.PreferredLength)
	}
}

func writeOutputContract(sb *strings.Builder) {
	sb.WriteString(`Respond ONLY with a JSON array of book objects. Each object must have these fields:
"title", "author", "publicationDate", "rating", "reviewCount", "description", "genres" (array of strings), "pageCount", "imageUrl", "purchaseLink", "readLink".
No prose before or after the array.`)
}

// aiBook mirrors the field list requested in the prompt. Numeric fields use
// json.Number so integer-or-float provider output both parse.
type aiBook struct {
	Title           string      `json:"title"`
	Author          string      `json:"author"`
	PublicationDate string      `json:"publicationDate"`
	Rating          json.Number `json:"rating"`
	ReviewCount     json.Number `json:"reviewCount"`
	Description     string      `json:"description"`
	Genres          []string    `json:"genres"`
	PageCount       json.Number `json:"pageCount"`
	ImageURL        string      `json:"imageUrl"`
	PurchaseLink    string      `json:"purchaseLink"`
	ReadLink        string      `json:"readLink"`
}

// ParseBooks extracts the first JSON array from raw provider output and
// converts it to domain books, filling defaults for partial objects. Entries
// without a title are dropped.
func ParseBooks(raw string) ([]model.Book, error) {
	arr, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var parsed []aiBook
	if err := json.Unmarshal([]byte(arr), &parsed); err != nil {
		return nil, fmt.Errorf("output is not a valid JSON array of books: %w", err)
	}

	books := make([]model.Book, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		books = append(books, toBook(p))
	}
	return books, nil
}

// extractJSONArray tolerates code fences and surrounding prose: it returns
// the slice between the first '[' and the last ']'.
func extractJSONArray(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array found in provider output")
	}
	return cleaned[start : end+1], nil
}

func toBook(p aiBook) model.Book {
	rating, _ := p.Rating.Float64()
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	reviewCount, _ := p.ReviewCount.Int64()
	pageCount, _ := p.PageCount.Int64()

	imageURL := p.ImageURL
	if imageURL == "" {
		imageURL = PlaceholderImageURL
	}

	return model.Book{
		ID:              SyntheticID(p.Title, p.Author),
		Title:           strings.TrimSpace(p.Title),
		Author:          strings.TrimSpace(p.Author),
		Genres:          p.Genres,
		Rating:          rating,
		ReviewCount:     int(reviewCount),
		PageCount:       int(pageCount),
		PublicationDate: p.PublicationDate,
		Description:     p.Description,
		ImageURL:        imageURL,
		PurchaseLink:    p.PurchaseLink,
		ReadLink:        p.ReadLink,
		Source:          "ai",
	}
}

// SyntheticID derives a book ID from title and author plus a random suffix,
// since the provider supplies none.
func SyntheticID(title, author string) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.ReplaceAll(s, " ", "-")
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s-%s", slug(title), slug(author), suffix)
}
