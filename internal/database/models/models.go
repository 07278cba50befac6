package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is the persisted book row. Genres, bookmarks and similar list fields
// are stored as JSON-encoded TEXT; SQLite has no native array type.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              string    `bun:",pk"`
	Title           string    `bun:",notnull"`
	TitleLower      string    `bun:"title_lower,notnull"` // lowercased for prefix range queries
	Author          string    `bun:",nullzero"`
	Genres          string    `bun:",nullzero"` // JSON array of strings
	Rating          float64   `bun:",notnull,default:0"`
	ReviewCount     int       `bun:",notnull,default:0"`
	PageCount       int       `bun:",notnull,default:0"`
	PublicationDate string    `bun:",nullzero"`
	Description     string    `bun:",nullzero"`
	ImageURL        string    `bun:"image_url,nullzero"`
	PurchaseLink    string    `bun:",nullzero"`
	ReadLink        string    `bun:",nullzero"`
	Source          string    `bun:",nullzero"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// User embeds preferences, bookmarks and favorites as JSON blobs.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string    `bun:",pk"`
	Name        string    `bun:",nullzero"`
	Preferences string    `bun:",nullzero"` // JSON UserPreferences
	Bookmarks   string    `bun:",nullzero"` // JSON array of book IDs
	Favorites   string    `bun:",nullzero"` // JSON array of book IDs
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Review is a single user review of a book.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID        string    `bun:",pk"`
	BookID    string    `bun:",notnull"`
	UserID    string    `bun:",notnull"`
	Rating    float64   `bun:",notnull"`
	Comment   string    `bun:",nullzero"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// HistoryEntry is an append-only record of a user interaction.
type HistoryEntry struct {
	bun.BaseModel `bun:"table:user_history,alias:h"`

	ID        int64     `bun:",pk,autoincrement"`
	UserID    string    `bun:",notnull"`
	BookID    string    `bun:",nullzero"`
	BookTitle string    `bun:",nullzero"`
	Query     string    `bun:",nullzero"`
	Action    string    `bun:",notnull"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
