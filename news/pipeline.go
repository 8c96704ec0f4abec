// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragpipe/classify"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/index"
	"github.com/poiesic/ragpipe/tagging"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

const (
	// DefaultLimit caps how many fetched articles are classified per run.
	DefaultLimit = 10
	// DefaultSearchK is the number of hits returned by Search.
	DefaultSearchK = 3

	snippetLength = 100
)

// Report summarizes a run.
type Report struct {
	Fetched    int              `json:"fetched"`
	Failed     map[string]error `json:"-"`
	Considered int              `json:"considered"`
	Financial  []core.Article   `json:"financial"`
	Stored     int              `json:"stored"`
	Duplicates int              `json:"duplicates"`
}

// Hit is a single news search result.
type Hit struct {
	Title   string   `json:"title"`
	Link    string   `json:"link"`
	Source  string   `json:"source"`
	PubDate string   `json:"pubDate"`
	Tickers []string `json:"tickers,omitempty"`
	Snippet string   `json:"snippet"`
	Score   float32  `json:"score"`
}

// Pipeline fetches, classifies, tags and stores news.
type Pipeline struct {
	fetcher    *Fetcher
	classifier classify.Classifier
	store      vectorstores.VectorStore
	dedupe     func(context.Context, schema.Document) bool
	pool       *ants.Pool
	limit      int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLimit caps how many fetched articles are classified per run.
// Zero or less means no cap. Default is DefaultLimit.
func WithLimit(n int) Option {
	return func(p *Pipeline) error {
		p.limit = n
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent classification.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a news pipeline storing into idx.
func NewPipeline(fetcher *Fetcher, classifier classify.Classifier, idx *index.Index, opts ...Option) (*Pipeline, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fetcher:    fetcher,
		classifier: classifier,
		store:      index.NewVectorStore(idx),
		dedupe:     index.ContentDeduplicater(idx),
		pool:       pool,
		limit:      DefaultLimit,
		logger:     slog.Default().With("component", "news"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run ingests feeds. Feed failures are recorded in the report and do not
// stop the run; classification and storage failures do.
func (p *Pipeline) Run(ctx context.Context, feeds []string) (*Report, error) {
	if len(feeds) == 0 {
		return nil, ErrNoFeeds
	}

	fetched, err := p.fetcher.Fetch(ctx, feeds)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Fetched: len(fetched.Articles),
		Failed:  fetched.Failed,
	}

	articles := fetched.Articles
	if p.limit > 0 && len(articles) > p.limit {
		articles = articles[:p.limit]
	}
	report.Considered = len(articles)

	financial, err := p.classify(ctx, articles)
	if err != nil {
		return report, err
	}
	for i := range financial {
		financial[i] = tagging.TagTickers(financial[i])
	}
	report.Financial = financial

	if len(financial) > 0 {
		ids, err := p.store.AddDocuments(ctx, Documents(financial), vectorstores.WithDeduplicater(p.dedupe))
		if err != nil {
			return report, fmt.Errorf("store articles: %w", err)
		}
		report.Stored = len(ids)
		report.Duplicates = len(financial) - len(ids)
	}

	p.logger.Info("news run complete",
		"fetched", report.Fetched,
		"failed_feeds", len(report.Failed),
		"financial", len(report.Financial),
		"stored", report.Stored)
	return report, nil
}

// classify runs the classifier over articles on the worker pool and
// returns the financial ones in their original order.
func (p *Pipeline) classify(ctx context.Context, articles []core.Article) ([]core.Article, error) {
	verdicts := make([]bool, len(articles))
	errs := make([]error, len(articles))

	var wg sync.WaitGroup
	for i, article := range articles {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			verdicts[i], errs[i] = p.classifier.IsFinancial(ctx, article)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var financial []core.Article
	for i, ok := range verdicts {
		if ok {
			financial = append(financial, articles[i])
		}
	}
	return financial, nil
}

// Search returns the k stored articles most similar to query.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultSearchK
	}

	docs, err := vectorstores.ToRetriever(p.store, k).GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(docs))
	for i, doc := range docs {
		hits[i] = Hit{
			Title:   metaString(doc.Metadata, MetaTitle),
			Link:    metaString(doc.Metadata, MetaLink),
			Source:  metaString(doc.Metadata, core.MetaSource),
			PubDate: metaString(doc.Metadata, MetaPubDate),
			Tickers: splitTickers(metaString(doc.Metadata, MetaTickers)),
			Snippet: snippet(doc.PageContent),
			Score:   doc.Score,
		}
	}
	return hits, nil
}

// Documents converts articles to vector store documents.
func Documents(articles []core.Article) []schema.Document {
	docs := make([]schema.Document, len(articles))
	for i, a := range articles {
		docs[i] = schema.Document{
			PageContent: a.Text(),
			Metadata: map[string]any{
				MetaTitle:       a.Title,
				MetaLink:        a.Link,
				MetaPubDate:     a.PubDate,
				core.MetaSource: a.Source,
				MetaTickers:     a.Tickers,
			},
		}
	}
	return docs
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func splitTickers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLength {
		return s
	}
	return string(runes[:snippetLength]) + "..."
}
