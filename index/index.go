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

package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
)

// Index is an append-only similarity index over embedded chunks.
// Queries are read-only and safe to run concurrently with each other and
// with Add.
type Index struct {
	repo     storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// New creates an index backed by repo. Chunks and queries are embedded with
// embedder, which must be the same model for both.
func New(repo storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Index, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	idx := &Index{
		repo:     repo,
		embedder: embedder,
		logger:   slog.Default().With("component", "index"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add embeds and stores chunks. All chunks are validated before anything is
// embedded. Returns the stored chunks with IDs assigned.
func (i *Index) Add(ctx context.Context, chunks ...core.Chunk) ([]core.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for n := range chunks {
		if err := core.ValidateChunk(&chunks[n]); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", n, err)
		}
		texts[n] = chunks[n].Content
	}

	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		i.logger.Error("failed to embed chunks", "count", len(chunks), "err", err)
		return nil, ai.EmbeddingError(err)
	}
	if len(vectors) != len(chunks) {
		return nil, ai.EmbeddingError(ErrVectorCountMismatch)
	}

	toStore := make([]*core.Chunk, len(chunks))
	for n := range chunks {
		c := chunks[n].Clone()
		c.Vector = NormalizeVector(vectors[n])
		toStore[n] = &c
	}

	stored, err := i.repo.AddChunks(ctx, toStore...)
	if err != nil {
		return nil, err
	}

	out := make([]core.Chunk, len(stored))
	for n, c := range stored {
		out[n] = *c
	}
	i.logger.Debug("indexed chunks", "count", len(out))
	return out, nil
}

// Search embeds text and returns the k most similar chunks that satisfy
// filter, best first, with their scores. Fewer than k results are returned
// when fewer chunks match.
func (i *Index) Search(ctx context.Context, text string, k int, filter *core.Filter) ([]*core.SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := core.ValidateFilter(filter); err != nil {
		return nil, err
	}

	vector, err := i.embedder.EmbedText(ctx, text)
	if err != nil {
		i.logger.Error("failed to embed query", "err", err)
		return nil, ai.EmbeddingError(err)
	}

	results, err := i.repo.FindSimilar(ctx, NormalizeVector(vector), filter, k)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("query complete", "k", k, "filter", filter.String(), "hits", len(results))
	return results, nil
}

// Query is Search without scores. Returned chunks carry no vectors.
func (i *Index) Query(ctx context.Context, text string, k int, filter *core.Filter) ([]core.Chunk, error) {
	results, err := i.Search(ctx, text, k, filter)
	if err != nil {
		return nil, err
	}

	chunks := make([]core.Chunk, len(results))
	for n, r := range results {
		chunks[n] = *r.Chunk
		chunks[n].Vector = nil
	}
	return chunks, nil
}

// Contains reports whether a chunk with exactly this content is indexed.
func (i *Index) Contains(ctx context.Context, content string) (bool, error) {
	return i.repo.ContainsContent(ctx, content)
}

// Count returns the number of indexed chunks.
func (i *Index) Count(ctx context.Context) (int, error) {
	return i.repo.Count(ctx)
}
