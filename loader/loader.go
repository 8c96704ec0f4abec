package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/ragpipe/core"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 20 << 20
	userAgent       = "ragpipe/1.0"
)

// Loader fetches and parses sources.
type Loader struct {
	client    *http.Client
	selectors map[string]bool
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithHTTPClient sets the client used for URLs.
// Default is a client with a 30 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) error {
		if client != nil {
			l.client = client
		}
		return nil
	}
}

// WithSelector sets the HTML tags whose text is kept.
// Default is "p".
func WithSelector(tags ...string) Option {
	return func(l *Loader) error {
		if len(tags) == 0 {
			return ErrNoSelector
		}
		l.selectors = make(map[string]bool, len(tags))
		for _, tag := range tags {
			l.selectors[strings.ToLower(strings.TrimSpace(tag))] = true
		}
		return nil
	}
}

// WithMaxBytes caps the size of a remote response body. Larger responses
// fail with ErrTooLarge. Default is 20 MiB.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) error {
		if n > 0 {
			l.maxBytes = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// New creates a loader.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		client:    &http.Client{Timeout: defaultTimeout},
		selectors: map[string]bool{"p": true},
		maxBytes:  defaultMaxBytes,
		logger:    slog.Default().With("component", "loader"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load reads source and returns its text as a document with the source
// recorded in metadata. Failures to reach the source wrap core.ErrFetch.
func (l *Loader) Load(ctx context.Context, source string) (core.Document, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return core.Document{}, ErrNoSource
	}

	var (
		text string
		err  error
	)
	if isURL(source) {
		text, err = l.loadURL(ctx, source)
	} else {
		text, err = l.loadFile(source)
	}
	if err != nil {
		return core.Document{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrEmptyContent, source)
	}

	l.logger.Debug("loaded source", "source", source, "length", len(text))
	return core.Document{
		Content:  text,
		Metadata: map[string]string{core.MetaSource: source},
	}, nil
}

// LoadAll loads each source in order, stopping at the first failure.
func (l *Loader) LoadAll(ctx context.Context, sources ...string) ([]core.Document, error) {
	docs := make([]core.Document, 0, len(sources))
	for _, source := range sources {
		doc, err := l.Load(ctx, source)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (l *Loader) loadURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s: status %d", core.ErrFetch, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrFetch, url, err)
	}
	if int64(len(data)) > l.maxBytes {
		l.logger.Warn("response exceeds size cap", "url", url, "max_bytes", l.maxBytes)
		return "", fmt.Errorf("%w: %s: %w (limit %d bytes)", core.ErrFetch, url, ErrTooLarge, l.maxBytes)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		return string(data), nil
	}

	text, err := SelectText(bytes.NewReader(data), l.selectors)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrFetch, url, err)
	}
	return text, nil
}

func (l *Loader) loadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := PDFText(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", core.ErrFetch, path, err)
		}
		return text, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return SelectText(f, l.selectors)
	case ".md", ".markdown":
		src, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrFetch, err)
		}
		return MarkdownText(src), nil
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrFetch, err)
		}
		return string(data), nil
	}
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
