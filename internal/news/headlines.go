// Package news fetches recent headlines for a resolved place from the
// Google News RSS search feed.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"github.com/vashkevichs/citypulse/internal/upstream"
)

// maxHeadlines caps how many items are returned, in feed order.
const maxHeadlines = 10

// recencyWindow scopes the feed query to recent coverage.
const recencyWindow = "7d"

// Headline is one cleaned feed item.
type Headline struct {
	Title       string     `json:"title"`
	Source      *string    `json:"source"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt"`
	Description *string    `json:"description"`
}

// Fetcher retrieves and normalizes headlines. Headlines are strictly
// best-effort: callers absorb any error into an empty list.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	language string
	circuit  *gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher. language is an hl value such as "en-US".
func NewFetcher(client *http.Client, language string) *Fetcher {
	if language == "" {
		language = "en-US"
	}
	return &Fetcher{
		client:   client,
		baseURL:  "https://news.google.com/rss/search",
		language: language,
		circuit:  upstream.NewBreaker("headlines"),
	}
}

// Fetch returns up to maxHeadlines cleaned items for the place. The query
// is scoped to the recency window and localized by country code; an empty
// country defaults to "US".
func (f *Fetcher) Fetch(ctx context.Context, name, country string) ([]Headline, error) {
	if country == "" {
		country = "US"
	}
	country = strings.ToUpper(country)

	values := url.Values{}
	values.Set("q", fmt.Sprintf("%s when:%s", name, recencyWindow))
	values.Set("hl", f.language)
	values.Set("gl", country)
	values.Set("ceid", fmt.Sprintf("%s:%s", country, languageCode(f.language)))
	feedURL := fmt.Sprintf("%s?%s", f.baseURL, values.Encode())

	result, err := f.circuit.Execute(func() (interface{}, error) {
		parser := gofeed.NewParser()
		parser.Client = f.client
		return parser.ParseURLWithContext(feedURL, ctx)
	})
	if err != nil {
		return nil, err
	}

	feed, ok := result.(*gofeed.Feed)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}

	return normalizeItems(feed), nil
}

// normalizeItems converts a parsed feed into a headline sequence. The step
// is deliberately explicit: a nil feed or nil item list yields an empty
// sequence, a single-entry feed yields a one-element sequence, items
// without a title or link are dropped, and the result is truncated to
// maxHeadlines in feed order.
func normalizeItems(feed *gofeed.Feed) []Headline {
	headlines := make([]Headline, 0, maxHeadlines)
	if feed == nil {
		return headlines
	}

	for _, item := range feed.Items {
		if item == nil || item.Title == "" || item.Link == "" {
			continue
		}

		h := Headline{
			Title:       item.Title,
			Source:      sourceFromTitle(item.Title),
			URL:         item.Link,
			Description: CleanDescription(item.Description),
		}
		if item.PublishedParsed != nil {
			ts := item.PublishedParsed.UTC()
			h.PublishedAt = &ts
		}

		headlines = append(headlines, h)
		if len(headlines) == maxHeadlines {
			break
		}
	}

	return headlines
}

// sourceFromTitle extracts the publisher from the " - Publisher" suffix
// Google News appends to item titles. Nil when no suffix is present.
func sourceFromTitle(title string) *string {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 || idx+3 >= len(title) {
		return nil
	}
	source := strings.TrimSpace(title[idx+3:])
	if source == "" {
		return nil
	}
	return &source
}

// languageCode reduces an hl value like "en-US" to the bare language for
// the ceid parameter.
func languageCode(hl string) string {
	if idx := strings.Index(hl, "-"); idx > 0 {
		return hl[:idx]
	}
	return hl
}
