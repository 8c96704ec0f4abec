package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/loader"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultConcurrency  = 4
	defaultRetryDelay   = 500 * time.Millisecond
	fetchUserAgent      = "ragpipe/1.0"
)

// FetchResult holds the articles from every feed that could be read, in
// feed order, and the error for each feed that could not.
type FetchResult struct {
	Articles []core.Article
	Failed   map[string]error
}

// Fetcher downloads and normalizes RSS and Atom feeds.
type Fetcher struct {
	client      *http.Client
	concurrency int
	attempts    int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher) error

// WithHTTPClient sets the client used to download feeds.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) error {
		if client != nil {
			f.client = client
		}
		return nil
	}
}

// WithConcurrency sets how many feeds are downloaded at once.
// Default is 4.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) error {
		f.concurrency = max(n, 1)
		return nil
	}
}

// WithRetries sets the number of attempts per feed and the initial backoff.
// Default is a single attempt.
func WithRetries(attempts int, baseDelay time.Duration) FetcherOption {
	return func(f *Fetcher) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		f.attempts = attempts
		if baseDelay > 0 {
			f.retryDelay = baseDelay
		}
		return nil
	}
}

// WithFetcherLogger sets a custom logger.
// Default is slog.Default().
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	f := &Fetcher{
		client:      &http.Client{Timeout: defaultFetchTimeout},
		concurrency: defaultConcurrency,
		attempts:    1,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default().With("component", "news-fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Fetch downloads feeds concurrently. A feed that fails is logged, recorded
// in FetchResult.Failed wrapping core.ErrFetch, and skipped. The returned
// error is non-nil only when ctx ends.
func (f *Fetcher) Fetch(ctx context.Context, feeds []string) (*FetchResult, error) {
	perFeed := make([][]core.Article, len(feeds))
	failures := make([]error, len(feeds))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, url := range feeds {
		g.Go(func() error {
			articles, err := f.fetchOne(ctx, url)
			if err != nil {
				f.logger.Warn("failed to fetch feed", "feed", url, "err", err)
				failures[i] = fmt.Errorf("%w: %s: %w", core.ErrFetch, url, err)
				return nil
			}
			perFeed[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &FetchResult{Failed: make(map[string]error)}
	for i, url := range feeds {
		if failures[i] != nil {
			result.Failed[url] = failures[i]
			continue
		}
		result.Articles = append(result.Articles, perFeed[i]...)
	}

	f.logger.Debug("fetched feeds", "feeds", len(feeds), "failed", len(result.Failed), "articles", len(result.Articles))
	return result, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]core.Article, error) {
	var feed *gofeed.Feed
	err := RetryWithBackoff(ctx, f.logger, func() error {
		parser := gofeed.NewParser()
		parser.Client = f.client
		parser.UserAgent = fetchUserAgent

		var err error
		feed, err = parser.ParseURLWithContext(url, ctx)
		return err
	}, f.attempts, f.retryDelay)
	if err != nil {
		return nil, err
	}
	return Normalize(feed, url), nil
}

// Normalize converts feed items to articles. The source is the feed title,
// or fallback when the feed has none. Items with neither title nor content
// are dropped.
func Normalize(feed *gofeed.Feed, fallback string) []core.Article {
	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = fallback
	}

	articles := make([]core.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		content := loader.StripHTML(item.Description)
		if content == "" {
			content = loader.StripHTML(item.Content)
		}
		title := strings.TrimSpace(item.Title)
		if title == "" && content == "" {
			continue
		}
		articles = append(articles, core.Article{
			Title:   title,
			Content: content,
			Link:    strings.TrimSpace(item.Link),
			PubDate: item.Published,
			Source:  source,
		})
	}
	return articles
}
