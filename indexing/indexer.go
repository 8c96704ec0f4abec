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

// Package indexing prepares documents for retrieval: each document is
// chunked, its chunks are labelled with their section, and the labelled
// chunks are embedded and stored in batches.
package indexing

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/ragpipe/chunking"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/tagging"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 100

// ChunkAdder stores chunks. *index.Index satisfies it.
type ChunkAdder interface {
	Add(ctx context.Context, chunks ...core.Chunk) ([]core.Chunk, error)
}

// Indexer feeds documents into an index.
type Indexer struct {
	chunker   *chunking.Chunker
	index     ChunkAdder
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithBatchSize sets how many chunks are embedded and stored per call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(ix *Indexer) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}
		ix.batchSize = size
		return nil
	}
}

// WithProgress reports progress to w. Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(ix *Indexer) error {
		ix.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates an indexer.
func NewIndexer(chunker *chunking.Chunker, index ChunkAdder, opts ...Option) (*Indexer, error) {
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	ix := &Indexer{
		chunker:   chunker,
		index:     index,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Prepare chunks each document and labels the chunks with their section.
// Sections are computed per document, so a chunk's label reflects its
// position within its own document.
func (ix *Indexer) Prepare(docs ...core.Document) []core.Chunk {
	var all []core.Chunk
	for _, doc := range docs {
		all = append(all, tagging.TagSections(ix.chunker.Split(doc))...)
	}
	return all
}

// Index prepares docs and stores the resulting chunks. It returns the number
// of chunks stored. Batches stored before a failure stay in the index.
func (ix *Indexer) Index(ctx context.Context, docs ...core.Document) (int, error) {
	chunks := ix.Prepare(docs...)
	if len(chunks) == 0 {
		return 0, nil
	}

	var tracker *ProgressTracker
	if ix.progress != nil {
		tracker = NewProgressTracker(ix.progress, "chunks", len(chunks), ix.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	stored := 0
	for start := 0; start < len(chunks); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		end := min(start+ix.batchSize, len(chunks))
		added, err := ix.index.Add(ctx, chunks[start:end]...)
		if err != nil {
			ix.logger.Error("failed to index batch", "start", start, "end", end, "err", err)
			return stored, fmt.Errorf("index chunks %d-%d: %w", start, end, err)
		}
		stored += len(added)
		if tracker != nil {
			tracker.Increment(len(added))
		}
	}

	ix.logger.Info("indexed documents", "documents", len(docs), "chunks", stored)
	return stored, nil
}
