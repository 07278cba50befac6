package model

import "time"

// Book is the canonical book representation exchanged between the pipeline,
// the store and the HTTP layer.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genres          []string  `json:"genres"`
	Rating          float64   `json:"rating"` // 0.0 - 5.0 running average
	ReviewCount     int       `json:"reviewCount"`
	PageCount       int       `json:"pageCount"`
	PublicationDate string    `json:"publicationDate"`
	Description     string    `json:"description"`
	ImageURL        string    `json:"imageUrl"`
	PurchaseLink    string    `json:"purchaseLink,omitempty"`
	ReadLink        string    `json:"readLink,omitempty"`
	Source          string    `json:"source,omitempty"` // "seed", "ai" or "manual"
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// HasGenre reports whether the book carries the given genre (case-sensitive,
// genres are stored canonicalized).
func (b *Book) HasGenre(genre string) bool {
	for _, g := range b.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// SearchOptions narrows a search. All fields are optional.
type SearchOptions struct {
	Genre     string `json:"genre,omitempty"`
	Mood      string `json:"mood,omitempty"`
	Length    string `json:"length,omitempty"` // "short", "medium" or "long"
	TimeFrame string `json:"timeFrame,omitempty"`
}

// Empty reports whether no narrowing option is set. TimeFrame intentionally
// does not count: it only influences the AI prompt, never the routing rule.
func (o SearchOptions) Empty() bool {
	return o.Genre == "" && o.Mood == "" && o.Length == ""
}

// Page count buckets for the "length" option.
const (
	ShortMaxPages  = 300
	MediumMaxPages = 500
)

// UserPreferences are explicit settings plus implicitly learned favorites.
type UserPreferences struct {
	FavoriteGenres  []string `json:"favoriteGenres"`
	PreferredLength string   `json:"preferredLength,omitempty"`
	FavoriteAuthors []string `json:"favoriteAuthors,omitempty"`
}

// User embeds preferences, bookmarks and favorites, mirroring the persisted
// users collection.
type User struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	Bookmarks   []string        `json:"bookmarks"`
	Favorites   []string        `json:"favorites"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}

// Review is a user's rating and comment for a book.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry records a user interaction for history views and the
// reading-history recommendation prompt.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId,omitempty"`
	BookTitle string    `json:"bookTitle,omitempty"`
	Query     string    `json:"query,omitempty"`
	Action    string    `json:"action"` // "search", "view", "like", "dislike"
	CreatedAt time.Time `json:"createdAt"`
}

// RecommendationSource tags which stage of the recommendation chain produced
// the result.
type RecommendationSource string

const (
	SourcePersonalized   RecommendationSource = "personalized"
	SourceAIPersonalized RecommendationSource = "ai_personalized"
	SourcePopular        RecommendationSource = "popular"
)
