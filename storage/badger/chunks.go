package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
)

// ChunkRepository implements storage.ChunkRepository for one collection in
// a BadgerDB backend.
type ChunkRepository struct {
	backend    *Backend
	collection string
	prefix     []byte
	idSeq      *badger.Sequence
	logger     *slog.Logger
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a repository for the named collection.
// Collection names must be non-empty and must not contain ':'.
func NewChunkRepository(backend *Backend, collection string) (*ChunkRepository, error) {
	if collection == "" || strings.Contains(collection, ":") {
		return nil, storage.ErrInvalidCollection
	}

	idSeq, err := backend.GetSequence(makeSequenceName(collection))
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend:    backend,
		collection: collection,
		prefix:     makeCollectionPrefix(collection),
		idSeq:      idSeq,
		logger:     backend.logger.With("collection", collection),
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// Collection returns the collection name.
func (r *ChunkRepository) Collection() string {
	return r.collection
}

// nextID returns the next sequence value, skipping 0 which badger
// sequences hand out first.
func (r *ChunkRepository) nextID() (core.ID, error) {
	id, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		if id, err = r.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(id), nil
}

// AddChunks appends chunks to the collection in a single transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}

			id, err := r.nextID()
			if err != nil {
				return err
			}
			chunk.Id = id
			chunk.InsertedAt = now

			if err := tx.Set(makeChunkKey(r.collection, chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			contentKey := makeContentKey(r.collection, core.IDFromContent(chunk.Content))
			if err := tx.Set(contentKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("added chunks", "count", len(chunks))
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunk(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by their IDs, skipping missing ones.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	results := make([]*core.Chunk, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := r.readChunk(tx, id)
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// ContainsContent checks the content hash index.
func (r *ChunkRepository) ContainsContent(ctx context.Context, content string) (bool, error) {
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeContentKey(r.collection, core.IDFromContent(content)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// FindSimilar scans the collection and ranks matching chunks by the dot
// product with vector. Stored vectors are unit length, so this is cosine
// similarity when the query vector is normalized as well.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, filter *core.Filter, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 || !filter.Matches(chunk.Metadata) {
				continue
			}

			results = append(results, &core.SearchResult{
				Chunk: chunk,
				Score: dotProduct(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, then by insertion order
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.Chunk.Id < b.Chunk.Id:
			return -1
		case a.Chunk.Id > b.Chunk.Id:
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Count returns the number of chunks in the collection.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readChunk reads a chunk within a transaction.
// Returns (nil, nil) if the chunk doesn't exist.
func (r *ChunkRepository) readChunk(tx *badger.Txn, id core.ID) (*core.Chunk, error) {
	item, err := tx.Get(makeChunkKey(r.collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
