package storage

import (
	"context"

	"github.com/poiesic/ragpipe/core"
)

// ChunkRepository stores embedded chunks of one collection.
// The store is append-only: chunks are never updated or removed, so readers
// observe a consistent snapshot while writers append.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks appends chunks to the collection.
	// IDs are assigned from a sequence in argument order, so ascending IDs
	// follow insertion order. InsertedAt is set on every chunk.
	// Returns the chunks with IDs and timestamps populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// ContainsContent reports whether a chunk with exactly this content
	// was added before.
	ContainsContent(ctx context.Context, content string) (bool, error)

	// FindSimilar ranks the chunks that satisfy filter by similarity to
	// vector and returns at most limit of them, best first. Equal scores
	// are ordered by ascending ID. A nil filter matches every chunk.
	// Returns ErrInvalidQuery if limit is not positive.
	FindSimilar(ctx context.Context, vector []float32, filter *core.Filter, limit int) ([]*core.SearchResult, error)

	// Count returns the number of chunks in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
