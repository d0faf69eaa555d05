// Package pipeline composes the feed fetcher with the translation and
// summarization adapters, tolerating per-article and per-feed failures.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/feeds"
	"github.com/KamilMichalski0/news-summarizer/internal/translate"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const (
	maxEntriesPerFeed  = 5
	maxFeedsPerDigest  = 5
	defaultMaxArticles = 6
	defaultTargetLang  = "PL"
)

// SummaryPlaceholder marks articles whose summary stage was skipped or
// failed; callers must not persist it as a real summary.
const SummaryPlaceholder = "Streszczenie niedostępne"

var errMissingFetcher = errors.New("pipeline: fetcher dependency required")

// RawFetcher retrieves and parses one feed without caching.
type RawFetcher interface {
	FetchRaw(ctx context.Context, url string) (*gofeed.Feed, error)
}

// ShapedFetcher serves the cached, pre-shaped feed representation. The
// pipeline uses it only when no translation or summarization stage runs,
// so processed output is never cached.
type ShapedFetcher interface {
	Fetch(ctx context.Context, url string) (feeds.Feed, error)
}

// Translator is the translation adapter surface the pipeline needs.
type Translator interface {
	Configured() bool
	Translate(ctx context.Context, text, targetLang, sourceLang string) (translate.Result, error)
}

// Summarizer is the summarization adapter surface the pipeline needs.
type Summarizer interface {
	Configured() bool
	Summarize(ctx context.Context, title, content string) (string, error)
}

// Options selects which processing stages run for a call.
type Options struct {
	Translate  bool
	Summarize  bool
	TargetLang string
}

// Article is one fully-processed feed entry. Translated fields fall back
// to the originals when translation is disabled or fails.
type Article struct {
	OriginalTitle     string    `json:"originalTitle"`
	TranslatedTitle   string    `json:"translatedTitle"`
	OriginalContent   string    `json:"originalContent"`
	TranslatedContent string    `json:"translatedContent"`
	Summary           string    `json:"summary"`
	Link              string    `json:"link"`
	PublishedAt       time.Time `json:"pubDate"`
}

// Result is the output of processing one feed.
type Result struct {
	FeedTitle string    `json:"feedTitle"`
	FeedLink  string    `json:"feedLink"`
	Articles  []Article `json:"articles"`
}

// Digest is the merged output across a user's subscriptions.
type Digest struct {
	Articles       []Article `json:"articles"`
	FeedsProcessed int       `json:"feedsProcessed"`
	FeedsFailed    int       `json:"feedsFailed"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// Config bundles the pipeline dependencies.
type Config struct {
	Fetcher       RawFetcher
	ShapedFetcher ShapedFetcher
	Translator    Translator
	Summarizer    Summarizer
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Pipeline runs fetch, translate and summarize for feeds and digests.
type Pipeline struct {
	fetcher       RawFetcher
	shapedFetcher ShapedFetcher
	translator    Translator
	summarizer    Summarizer
	clock         func() time.Time
	logger        *zap.Logger
}

// New constructs a Pipeline. Translator and Summarizer may be nil; the
// corresponding stages are then skipped.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Fetcher == nil {
		return nil, errMissingFetcher
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:       cfg.Fetcher,
		shapedFetcher: cfg.ShapedFetcher,
		translator:    cfg.Translator,
		summarizer:    cfg.Summarizer,
		clock:         clock,
		logger:        logger,
	}, nil
}

// ProcessFeed fetches one feed and runs the per-article stages over up to
// five entries. A single entry's translation or summarization failure
// degrades that entry only; the call fails only when the fetch itself does.
func (p *Pipeline) ProcessFeed(ctx context.Context, url string, opts Options) (Result, error) {
	if !opts.Translate && !opts.Summarize && p.shapedFetcher != nil {
		return p.plainFetch(ctx, url)
	}

	parsed, err := p.fetcher.FetchRaw(ctx, url)
	if err != nil {
		return Result{}, err
	}

	items := parsed.Items
	if len(items) > maxEntriesPerFeed {
		items = items[:maxEntriesPerFeed]
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, p.processItem(ctx, item, opts))
	}

	p.logger.Info("feed processed",
		zap.String("url", url),
		zap.Int("articles", len(articles)))
	return Result{
		FeedTitle: parsed.Title,
		FeedLink:  parsed.Link,
		Articles:  articles,
	}, nil
}

// plainFetch serves entries through the cached shaped fetch when neither
// processing stage is active.
func (p *Pipeline) plainFetch(ctx context.Context, url string) (Result, error) {
	feed, err := p.shapedFetcher.Fetch(ctx, url)
	if err != nil {
		return Result{}, err
	}

	limit := len(feed.Entries)
	if limit > maxEntriesPerFeed {
		limit = maxEntriesPerFeed
	}
	articles := make([]Article, 0, limit)
	for _, entry := range feed.Entries[:limit] {
		articles = append(articles, Article{
			OriginalTitle:     entry.Title,
			TranslatedTitle:   entry.Title,
			OriginalContent:   entry.Synopsis,
			TranslatedContent: entry.Synopsis,
			Summary:           SummaryPlaceholder,
			Link:              entry.Link,
			PublishedAt:       entry.PublishedAt,
		})
	}
	return Result{
		FeedTitle: feed.Title,
		FeedLink:  feed.Link,
		Articles:  articles,
	}, nil
}

func (p *Pipeline) processItem(ctx context.Context, item *gofeed.Item, opts Options) Article {
	targetLang := opts.TargetLang
	if targetLang == "" {
		targetLang = defaultTargetLang
	}

	originalContent := feeds.ItemSynopsis(item)
	article := Article{
		OriginalTitle:     item.Title,
		TranslatedTitle:   item.Title,
		OriginalContent:   originalContent,
		TranslatedContent: originalContent,
		Summary:           SummaryPlaceholder,
		Link:              item.Link,
		PublishedAt:       feeds.ItemPublishedAt(item),
	}

	if opts.Translate && p.translator != nil && p.translator.Configured() {
		if translated, err := p.translator.Translate(ctx, article.OriginalTitle, targetLang, ""); err == nil {
			article.TranslatedTitle = translated.Text
		} else {
			p.logger.Warn("article title translation failed",
				zap.String("title", item.Title), zap.Error(err))
		}
		if article.OriginalContent != "" {
			if translated, err := p.translator.Translate(ctx, article.OriginalContent, targetLang, ""); err == nil {
				article.TranslatedContent = translated.Text
			} else {
				p.logger.Warn("article content translation failed",
					zap.String("title", item.Title), zap.Error(err))
			}
		}
	}

	if opts.Summarize && p.summarizer != nil && p.summarizer.Configured() {
		summary, err := p.summarizer.Summarize(ctx, article.TranslatedTitle, article.TranslatedContent)
		if err != nil {
			p.logger.Warn("article summarization failed",
				zap.String("title", item.Title), zap.Error(err))
		} else {
			article.Summary = summary
		}
	}

	return article
}

// BuildDigest processes up to five feed URLs independently and merges the
// results, newest first, capped at maxArticles. A failed feed contributes
// zero articles and is counted; the digest itself never fails.
func (p *Pipeline) BuildDigest(ctx context.Context, urls []string, maxArticles int, opts Options) Digest {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	if len(urls) > maxFeedsPerDigest {
		urls = urls[:maxFeedsPerDigest]
	}

	digest := Digest{
		Articles:    []Article{},
		GeneratedAt: p.clock().UTC(),
	}
	for _, url := range urls {
		result, err := p.ProcessFeed(ctx, url, opts)
		if err != nil {
			digest.FeedsFailed++
			p.logger.Warn("digest feed skipped", zap.String("url", url), zap.Error(err))
			continue
		}
		digest.FeedsProcessed++
		digest.Articles = append(digest.Articles, result.Articles...)
	}

	sort.SliceStable(digest.Articles, func(i, j int) bool {
		return digest.Articles[i].PublishedAt.After(digest.Articles[j].PublishedAt)
	})
	if len(digest.Articles) > maxArticles {
		digest.Articles = digest.Articles[:maxArticles]
	}
	return digest
}
