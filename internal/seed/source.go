package seed

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bookhaven/bookhaven-api/internal/domain/model"
	"github.com/bookhaven/bookhaven-api/internal/usecase/search"
)

// FeedSource pulls new-release book entries from one or more RSS/Atom feeds.
type FeedSource struct {
	feedURLs []string
	parser   *gofeed.Parser
}

// NewFeedSource builds a source over the given feed URLs. The HTTP client is
// injected so the caller can attach retry and logging transports.
func NewFeedSource(feedURLs []string, client *http.Client) *FeedSource {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	return &FeedSource{feedURLs: feedURLs, parser: parser}
}

// FetchNewBooks returns feed entries published after the given unix timestamp.
// Feeds that fail to parse are logged and skipped so one bad feed does not
// abort the whole batch.
func (s *FeedSource) FetchNewBooks(ctx context.Context, since int64) ([]model.Book, error) {
	if len(s.feedURLs) == 0 {
		return nil, fmt.Errorf("no feed URLs configured")
	}

	sinceTime := time.Unix(since, 0)
	var books []model.Book
	for _, feedURL := range s.feedURLs {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			log.Printf("[Seed] Error fetching feed %s: %v", feedURL, err)
			continue
		}

		for _, item := range feed.Items {
			published := itemTime(item)
			if !published.IsZero() && !published.After(sinceTime) {
				continue
			}
			book := itemToBook(item, published)
			if book.Title == "" {
				continue
			}
			books = append(books, book)
		}
	}

	return books, nil
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemToBook(item *gofeed.Item, published time.Time) model.Book {
	title := strings.TrimSpace(item.Title)

	author := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = strings.TrimSpace(item.Authors[0].Name)
	}

	var genres []string
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			genres = append(genres, c)
		}
	}

	imageURL := search.PlaceholderImageURL
	if item.Image != nil && item.Image.URL != "" {
		imageURL = item.Image.URL
	}

	pubDate := ""
	if !published.IsZero() {
		pubDate = published.Format("2006-01-02")
	}

	id := item.GUID
	if id == "" {
		id = search.SyntheticID(title, author)
	}

	return model.Book{
		ID:              id,
		Title:           title,
		Author:          author,
		Genres:          genres,
		PublicationDate: pubDate,
		Description:     strings.TrimSpace(item.Description),
		ImageURL:        imageURL,
		ReadLink:        item.Link,
		Source:          "seed",
		CreatedAt:       published,
	}
}
