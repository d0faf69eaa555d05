// Package feeds retrieves and parses remote RSS/Atom feeds into normalized
// entry lists, with a TTL cache in front of the network fetch.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/cache"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const (
	fetchTimeout      = 10 * time.Second
	maxRedirects      = 5
	synopsisMaxLength = 200
	userAgent         = "NewsSummarizer/1.0"
)

var errMissingCache = errors.New("feeds: cache dependency required")

// Entry is one normalized feed item.
type Entry struct {
	Title       string    `json:"title"`
	Synopsis    string    `json:"description"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"pubDate"`
}

// Feed is the shaped result of fetching one feed URL.
type Feed struct {
	Title     string    `json:"feedTitle"`
	Link      string    `json:"feedLink"`
	Entries   []Entry   `json:"articles"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// FetcherConfig bundles fetcher dependencies.
type FetcherConfig struct {
	Cache      *cache.Cache
	CacheTTL   time.Duration
	MaxEntries int
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Fetcher downloads and parses feeds with bounded timeout and redirects.
type Fetcher struct {
	parser     *gofeed.Parser
	client     *http.Client
	cache      *cache.Cache
	cacheTTL   time.Duration
	maxEntries int
	sanitizer  *bluemonday.Policy
	clock      func() time.Time
	logger     *zap.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Cache == nil {
		return nil, errMissingCache
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 6
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent

	return &Fetcher{
		parser:     parser,
		client:     client,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		maxEntries: maxEntries,
		sanitizer:  bluemonday.StrictPolicy(),
		clock:      clock,
		logger:     logger,
	}, nil
}

// Fetch returns the shaped feed for url, serving from the cache when a
// fresh entry exists. The shaped result drops entries without content,
// caps the list and truncates each synopsis.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Feed, error) {
	key := cache.Key(url)
	if cached, ok := f.cache.Get(key); ok {
		if feed, valid := cached.(Feed); valid {
			f.logger.Info("feed served from cache", zap.String("url", url))
			return feed, nil
		}
	}

	parsed, err := f.FetchRaw(ctx, url)
	if err != nil {
		return Feed{}, err
	}

	shaped := f.shape(parsed)
	f.cache.Set(key, shaped, f.cacheTTL)

	f.logger.Info("feed fetched",
		zap.String("url", url),
		zap.Int("articles", len(shaped.Entries)))
	return shaped, nil
}

// FetchRaw retrieves and parses the feed without touching the cache or
// shaping the entries. The full processing pipeline uses this path so
// translated output is never cached.
func (f *Fetcher) FetchRaw(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to fetch RSS feed", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("feed fetch failed", zap.String("url", url), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to fetch RSS feed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindUpstream,
			fmt.Sprintf("feed returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to read RSS feed", err)
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		f.logger.Error("feed parse failed", zap.String("url", url), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUpstream, "malformed feed content", err)
	}
	return parsed, nil
}

func (f *Fetcher) shape(parsed *gofeed.Feed) Feed {
	entries := make([]Entry, 0, f.maxEntries)
	for _, item := range parsed.Items {
		if len(entries) == f.maxEntries {
			break
		}
		synopsis := ItemSynopsis(item)
		if synopsis == "" {
			continue
		}
		synopsis = Truncate(f.sanitizer.Sanitize(synopsis), synopsisMaxLength)
		entries = append(entries, Entry{
			Title:       item.Title,
			Synopsis:    synopsis,
			Link:        item.Link,
			PublishedAt: ItemPublishedAt(item),
		})
	}

	title := parsed.Title
	if title == "" {
		title = "RSS Feed"
	}
	return Feed{
		Title:     title,
		Link:      parsed.Link,
		Entries:   entries,
		FetchedAt: f.clock().UTC(),
	}
}

// ItemSynopsis picks the first non-empty content field of a feed item.
func ItemSynopsis(item *gofeed.Item) string {
	if text := strings.TrimSpace(item.Description); text != "" {
		return text
	}
	return strings.TrimSpace(item.Content)
}

// ItemPublishedAt resolves the best-known publication time, zero when the
// feed provides none.
func ItemPublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// Truncate shortens text to maxLength runes, appending an ellipsis marker
// when anything was cut.
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLength])) + "..."
}
