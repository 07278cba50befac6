package bunstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bookhaven/bookhaven-api/internal/database"
	"github.com/bookhaven/bookhaven-api/internal/database/models"
	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// prefixUpperBound is a high Unicode sentinel; the prefix query selects the
// inclusive range [prefix, prefix+sentinel] on title_lower.
const prefixUpperBound = ""

// BunStore implements BookRepository, UserRepository, ReviewRepository and
// HistoryRepository on top of bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	store := &BunStore{db: bunDB}

	ctx := context.Background()
	for _, m := range []any{
		(*models.Book)(nil),
		(*models.User)(nil),
		(*models.Review)(nil),
		(*models.HistoryEntry)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}

	return store, nil
}

// BookRepository implementation

func (s *BunStore) SearchByTitlePrefix(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
	prefix := strings.ToLower(filter.TitlePrefix)

	q := s.db.NewSelect().Model((*models.Book)(nil)).
		Where("title_lower >= ?", prefix).
		Where("title_lower <= ?", prefix+prefixUpperBound).
		OrderExpr("rating DESC")

	if filter.Genre != "" {
		// Genres are stored as a JSON array of strings; containment via LIKE
		// on the quoted element.
		q = q.Where("genres LIKE ?", "%"+quoted(filter.Genre)+"%")
	}

	switch filter.Length {
	case "short":
		q = q.Where("page_count > 0 AND page_count < ?", model.ShortMaxPages)
	case "medium":
		q = q.Where("page_count >= ? AND page_count <= ?", model.ShortMaxPages, model.MediumMaxPages)
	case "long":
		q = q.Where("page_count > ?", model.MediumMaxPages)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Cursor > 0 {
		q = q.Offset(filter.Cursor)
	}

	var rows []models.Book
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return toDomainBooks(rows), nil
}

func (s *BunStore) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	var rows []models.Book
	err := s.db.NewSelect().Model((*models.Book)(nil)).
		OrderExpr("rating DESC").
		OrderExpr("review_count DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return toDomainBooks(rows), nil
}

func (s *BunStore) BooksByGenres(ctx context.Context, genres []string, limit int) ([]model.Book, error) {
	if len(genres) == 0 {
		return nil, nil
	}

	q := s.db.NewSelect().Model((*models.Book)(nil))
	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, g := range genres {
			q = q.WhereOr("genres LIKE ?", "%"+quoted(g)+"%")
		}
		return q
	})
	q = q.OrderExpr("rating DESC").Limit(limit)

	var rows []models.Book
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return toDomainBooks(rows), nil
}

func (s *BunStore) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	row := new(models.Book)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	b := toDomainBook(*row)
	return &b, nil
}

func (s *BunStore) UpsertBook(ctx context.Context, book *model.Book) error {
	row := fromDomainBook(book)
	row.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("title_lower = EXCLUDED.title_lower").
		Set("author = EXCLUDED.author").
		Set("genres = EXCLUDED.genres").
		Set("page_count = EXCLUDED.page_count").
		Set("publication_date = EXCLUDED.publication_date").
		Set("description = EXCLUDED.description").
		Set("image_url = EXCLUDED.image_url").
		Set("purchase_link = EXCLUDED.purchase_link").
		Set("read_link = EXCLUDED.read_link").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) UpdateBookRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	res, err := s.db.NewUpdate().Model((*models.Book)(nil)).
		Set("rating = ?", rating).
		Set("review_count = ?", reviewCount).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// UserRepository implementation

func (s *BunStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := new(models.User)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return toDomainUser(row), nil
}

func (s *BunStore) EnsureUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if err != database.ErrNotFound {
		return nil, err
	}

	row := &models.User{ID: id}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *BunStore) UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	res, err := s.db.NewUpdate().Model((*models.User)(nil)).
		Set("preferences = ?", string(data)).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *BunStore) AddBookmark(ctx context.Context, userID, bookID string) error {
	return s.mutateList(ctx, userID, "bookmarks", bookID, true)
}

func (s *BunStore) RemoveBookmark(ctx context.Context, userID, bookID string) error {
	return s.mutateList(ctx, userID, "bookmarks", bookID, false)
}

func (s *BunStore) AddFavorite(ctx context.Context, userID, bookID string) error {
	return s.mutateList(ctx, userID, "favorites", bookID, true)
}

func (s *BunStore) RemoveFavorite(ctx context.Context, userID, bookID string) error {
	return s.mutateList(ctx, userID, "favorites", bookID, false)
}

// mutateList does a read-modify-write of a JSON list column. Last write wins;
// there is no locking discipline on user rows.
func (s *BunStore) mutateList(ctx context.Context, userID, column, bookID string, add bool) error {
	user, err := s.EnsureUser(ctx, userID)
	if err != nil {
		return err
	}

	var list []string
	if column == "bookmarks" {
		list = user.Bookmarks
	} else {
		list = user.Favorites
	}

	updated := make([]string, 0, len(list)+1)
	found := false
	for _, id := range list {
		if id == bookID {
			found = true
			if !add {
				continue
			}
		}
		updated = append(updated, id)
	}
	if add && !found {
		updated = append(updated, bookID)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", column, err)
	}

	_, err = s.db.NewUpdate().Model((*models.User)(nil)).
		Set(column+" = ?", string(data)).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// ReviewRepository implementation

func (s *BunStore) CreateReview(ctx context.Context, review *model.Review) error {
	row := &models.Review{
		ID:        review.ID,
		BookID:    review.BookID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *BunStore) ReviewsForBook(ctx context.Context, bookID string) ([]model.Review, error) {
	var rows []models.Review
	err := s.db.NewSelect().Model((*models.Review)(nil)).
		Where("book_id = ?", bookID).
		OrderExpr("created_at DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	reviews := make([]model.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, model.Review{
			ID:        r.ID,
			BookID:    r.BookID,
			UserID:    r.UserID,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		})
	}
	return reviews, nil
}

// HistoryRepository implementation

func (s *BunStore) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	row := &models.HistoryEntry{
		UserID:    entry.UserID,
		BookID:    entry.BookID,
		BookTitle: entry.BookTitle,
		Query:     entry.Query,
		Action:    entry.Action,
		CreatedAt: entry.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *BunStore) HistoryForUser(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	var rows []models.HistoryEntry
	q := s.db.NewSelect().Model((*models.HistoryEntry)(nil)).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.HistoryEntry{
			ID:        fmt.Sprintf("%d", r.ID),
			UserID:    r.UserID,
			BookID:    r.BookID,
			BookTitle: r.BookTitle,
			Query:     r.Query,
			Action:    r.Action,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

func (s *BunStore) ClearHistory(ctx context.Context, userID string) error {
	_, err := s.db.NewDelete().Model((*models.HistoryEntry)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// Conversions

func quoted(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func toDomainBooks(rows []models.Book) []model.Book {
	books := make([]model.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, toDomainBook(r))
	}
	return books
}

func toDomainBook(r models.Book) model.Book {
	var genres []string
	if r.Genres != "" {
		_ = json.Unmarshal([]byte(r.Genres), &genres)
	}
	return model.Book{
		ID:              r.ID,
		Title:           r.Title,
		Author:          r.Author,
		Genres:          genres,
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		PageCount:       r.PageCount,
		PublicationDate: r.PublicationDate,
		Description:     r.Description,
		ImageURL:        r.ImageURL,
		PurchaseLink:    r.PurchaseLink,
		ReadLink:        r.ReadLink,
		Source:          r.Source,
		CreatedAt:       r.CreatedAt,
	}
}

func fromDomainBook(b *model.Book) models.Book {
	genres := ""
	if len(b.Genres) > 0 {
		data, _ := json.Marshal(b.Genres)
		genres = string(data)
	}
	return models.Book{
		ID:              b.ID,
		Title:           b.Title,
		TitleLower:      strings.ToLower(b.Title),
		Author:          b.Author,
		Genres:          genres,
		Rating:          b.Rating,
		ReviewCount:     b.ReviewCount,
		PageCount:       b.PageCount,
		PublicationDate: b.PublicationDate,
		Description:     b.Description,
		ImageURL:        b.ImageURL,
		PurchaseLink:    b.PurchaseLink,
		ReadLink:        b.ReadLink,
		Source:          b.Source,
	}
}

func toDomainUser(r *models.User) *model.User {
	user := &model.User{
		ID:        r.ID,
		Name:      r.Name,
		Bookmarks: []string{},
		Favorites: []string{},
		CreatedAt: r.CreatedAt,
	}
	if r.Preferences != "" {
		_ = json.Unmarshal([]byte(r.Preferences), &user.Preferences)
	}
	if r.Bookmarks != "" {
		_ = json.Unmarshal([]byte(r.Bookmarks), &user.Bookmarks)
	}
	if r.Favorites != "" {
		_ = json.Unmarshal([]byte(r.Favorites), &user.Favorites)
	}
	return user
}
