package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/ragpipe/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// MetaID is the metadata key under which the adapter reports chunk IDs.
const MetaID = "id"

// VectorStore adapts an Index to the langchaingo vectorstores.VectorStore
// interface. Document metadata values are stored as strings.
type VectorStore struct {
	index *Index
}

var _ vectorstores.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps idx.
func NewVectorStore(idx *Index) *VectorStore {
	return &VectorStore{index: idx}
}

// AddDocuments indexes docs, skipping any the Deduplicater option rejects.
// With a Deduplicater set, repeated content within docs is also stored only
// once. Returns the IDs of the stored documents.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := applyOptions(options)

	seen := make(map[core.ID]struct{}, len(docs))
	chunks := make([]core.Chunk, 0, len(docs))
	for _, doc := range docs {
		if opts.Deduplicater != nil {
			key := core.IDFromContent(doc.PageContent)
			if _, dup := seen[key]; dup {
				continue
			}
			if opts.Deduplicater(ctx, doc) {
				continue
			}
			seen[key] = struct{}{}
		}
		chunks = append(chunks, core.Chunk{
			Content:  doc.PageContent,
			Metadata: stringMetadata(doc.Metadata),
		})
	}

	stored, err := s.index.Add(ctx, chunks...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(stored))
	for i, c := range stored {
		ids[i] = strconv.FormatUint(uint64(c.Id), 10)
	}
	return ids, nil
}

// SimilaritySearch returns up to numDocuments documents most similar to
// query. The Filters option accepts a core.Filter, a *core.Filter or a
// single-entry map[string]string.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := applyOptions(options)

	filter, err := toFilter(opts.Filters)
	if err != nil {
		return nil, err
	}

	results, err := s.index.Search(ctx, query, numDocuments, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(results))
	for _, r := range results {
		if opts.ScoreThreshold > 0 && r.Score < opts.ScoreThreshold {
			continue
		}
		meta := make(map[string]any, len(r.Chunk.Metadata)+1)
		for k, v := range r.Chunk.Metadata {
			meta[k] = v
		}
		meta[MetaID] = strconv.FormatUint(uint64(r.Chunk.Id), 10)
		docs = append(docs, schema.Document{
			PageContent: r.Chunk.Content,
			Metadata:    meta,
			Score:       r.Score,
		})
	}
	return docs, nil
}

// ContentDeduplicater returns a vectorstores Deduplicater that skips
// documents whose content is already indexed. Lookup errors let the
// document through.
func ContentDeduplicater(idx *Index) func(context.Context, schema.Document) bool {
	return func(ctx context.Context, doc schema.Document) bool {
		ok, err := idx.Contains(ctx, doc.PageContent)
		if err != nil {
			idx.logger.Warn("dedupe lookup failed", "err", err)
			return false
		}
		return ok
	}
}

func applyOptions(options []vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

func toFilter(v any) (*core.Filter, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case core.Filter:
		return &f, nil
	case *core.Filter:
		return f, nil
	case map[string]string:
		if len(f) != 1 {
			return nil, fmt.Errorf("%w: map filter must have exactly one entry", ErrUnsupportedFilter)
		}
		for field, value := range f {
			return &core.Filter{Field: field, Value: value}, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedFilter, v)
}

func stringMetadata(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []string:
			out[k] = strings.Join(val, ",")
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
