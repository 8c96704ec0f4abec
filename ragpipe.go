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

// Package ragpipe wires storage, AI services and indexes together and hands
// out the pipelines built on them.
package ragpipe

import (
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/ai/openai"
	"github.com/poiesic/ragpipe/api"
	"github.com/poiesic/ragpipe/chunking"
	"github.com/poiesic/ragpipe/classify"
	"github.com/poiesic/ragpipe/index"
	"github.com/poiesic/ragpipe/indexing"
	"github.com/poiesic/ragpipe/loader"
	"github.com/poiesic/ragpipe/news"
	"github.com/poiesic/ragpipe/pipeline"
	"github.com/poiesic/ragpipe/qa"
	"github.com/poiesic/ragpipe/storage/badger"
)

const (
	// DocumentsCollection holds indexed document chunks.
	DocumentsCollection = "documents"
	// NewsCollection holds stored news articles.
	NewsCollection = "news"

	queryCacheTTL = 10 * time.Minute
)

// Classifier names accepted by NewNewsPipeline.
const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

// ErrUnknownClassifier indicates a classifier name other than
// ClassifierKeyword or ClassifierLLM.
var ErrUnknownClassifier = errors.New("unknown classifier")

// Engine owns the database, the AI provider and the document and news
// indexes, and builds the pipelines that use them. Call Close when done.
type Engine struct {
	backend   *badger.Backend
	docRepo   *badger.ChunkRepository
	newsRepo  *badger.ChunkRepository
	provider  ai.AIProvider
	ownsAI    bool
	embedder  ai.Embedder
	documents *index.Index
	news      *index.Index
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	inMemory bool
	aiConfig *ai.Config
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithInMemory keeps all data in memory. The path passed to Open is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithAIConfig sets the configuration for the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The engine does not close a provider it was given.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens (or creates) the database at path and builds the document and
// news indexes on top of it.
func Open(path string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		backend: backend,
		logger:  options.logger,
	}

	if e.docRepo, err = badger.NewChunkRepository(backend, DocumentsCollection); err != nil {
		e.Close()
		return nil, err
	}
	if e.newsRepo, err = badger.NewChunkRepository(backend, NewsCollection); err != nil {
		e.Close()
		return nil, err
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(options.aiConfig); err != nil {
			e.Close()
			return nil, err
		}
		e.ownsAI = true
	}
	e.embedder = ai.NewCachingEmbedder(e.provider.Embedder(), queryCacheTTL)

	if e.documents, err = index.New(e.docRepo, e.embedder, index.WithLogger(e.componentLogger("index").With("collection", DocumentsCollection))); err != nil {
		e.Close()
		return nil, err
	}
	if e.news, err = index.New(e.newsRepo, e.embedder, index.WithLogger(e.componentLogger("index").With("collection", NewsCollection))); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the provider, repositories and backend in reverse order
// of creation. It returns the first error encountered.
func (e *Engine) Close() error {
	var first error
	record := func(what string, err error) {
		if err == nil {
			return
		}
		e.logger.Error("error closing "+what, "err", err)
		if first == nil {
			first = err
		}
	}

	if e.provider != nil && e.ownsAI {
		record("AI provider", e.provider.Close())
	}
	if e.newsRepo != nil {
		record("news repository", e.newsRepo.Close())
	}
	if e.docRepo != nil {
		record("document repository", e.docRepo.Close())
	}
	if e.backend != nil {
		record("backend storage", e.backend.Close())
	}
	return first
}

func (e *Engine) componentLogger(component string) *slog.Logger {
	return e.logger.With("component", component)
}

// Documents returns the document chunk index.
func (e *Engine) Documents() *index.Index {
	return e.documents
}

// News returns the news article index.
func (e *Engine) News() *index.Index {
	return e.news
}

// Provider returns the AI provider.
func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

// NewLoader creates a source loader.
func (e *Engine) NewLoader(opts ...loader.Option) (*loader.Loader, error) {
	return loader.New(append([]loader.Option{loader.WithLogger(e.componentLogger("loader"))}, opts...)...)
}

// NewIndexer creates an indexer that stores into the document index.
func (e *Engine) NewIndexer(chunker *chunking.Chunker, opts ...indexing.Option) (*indexing.Indexer, error) {
	return indexing.NewIndexer(chunker, e.documents, append([]indexing.Option{indexing.WithLogger(e.componentLogger("indexing"))}, opts...)...)
}

// NewSimpleQA builds the retrieve-then-generate graph over the document index.
func (e *Engine) NewSimpleQA(opts ...qa.Option) (*pipeline.Runnable, error) {
	return qa.NewSimpleQA(e.documents, e.provider.Generator(), append([]qa.Option{qa.WithLogger(e.componentLogger("qa"))}, opts...)...)
}

// NewFilteredQA builds the analyze, filtered-retrieve, generate graph over
// the document index.
func (e *Engine) NewFilteredQA(opts ...qa.Option) (*pipeline.Runnable, error) {
	analyzer, err := qa.NewAnalyzer(e.provider.Generator(), qa.WithAnalyzerLogger(e.componentLogger("analyzer")))
	if err != nil {
		return nil, err
	}
	return qa.NewFilteredQA(e.documents, analyzer, e.provider.Generator(), append([]qa.Option{qa.WithLogger(e.componentLogger("qa"))}, opts...)...)
}

// NewClassifier returns the named news classifier.
func (e *Engine) NewClassifier(name string) (classify.Classifier, error) {
	switch name {
	case "", ClassifierKeyword:
		return classify.NewKeyword(), nil
	case ClassifierLLM:
		return classify.NewLLM(e.provider.Generator(), e.componentLogger("classify"))
	default:
		return nil, ErrUnknownClassifier
	}
}

// NewNewsPipeline creates a news pipeline storing into the news index.
// The caller must call Release on the returned pipeline.
func (e *Engine) NewNewsPipeline(fetcher *news.Fetcher, classifier classify.Classifier, opts ...news.Option) (*news.Pipeline, error) {
	if fetcher == nil {
		var err error
		if fetcher, err = news.NewFetcher(news.WithFetcherLogger(e.componentLogger("news-fetcher"))); err != nil {
			return nil, err
		}
	}
	return news.NewPipeline(fetcher, classifier, e.news, append([]news.Option{news.WithLogger(e.componentLogger("news"))}, opts...)...)
}

// NewServer creates an HTTP server exposing both QA graphs and news search
// over np. np may be nil, in which case news search is disabled.
func (e *Engine) NewServer(np *news.Pipeline, opts ...qa.Option) (*api.Server, error) {
	simple, err := e.NewSimpleQA(opts...)
	if err != nil {
		return nil, err
	}
	filtered, err := e.NewFilteredQA(opts...)
	if err != nil {
		return nil, err
	}

	serverOpts := []api.Option{
		api.WithSimpleQA(simple),
		api.WithFilteredQA(filtered),
		api.WithLogger(e.componentLogger("api")),
	}
	if np != nil {
		serverOpts = append(serverOpts, api.WithNewsSearch(np))
	}
	return api.NewServer(serverOpts...)
}
