package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/ai/mock"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// topicEmbedder places texts on axes by keyword so rankings are predictable.
func topicEmbedder() *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		text = strings.ToLower(text)
		v := []float32{0, 0, 0}
		if strings.Contains(text, "sky") {
			v[0] += 2
		}
		if strings.Contains(text, "grass") {
			v[1] += 2
		}
		if strings.Contains(text, "blue") {
			v[0] += 1
		}
		v[2] = 0.1
		return v, nil
	}
	return m
}

func newTestIndex(t *testing.T, embedder ai.Embedder) *Index {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository("documents")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	idx, err := New(repo, embedder)
	require.NoError(t, err)
	return idx
}

func sectioned(content string, section core.Section) core.Chunk {
	return core.Chunk{Content: content, Metadata: map[string]string{core.MetaSection: string(section)}}
}

func TestNew_RequiresDependencies(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository("documents")
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	_, err = New(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = New(repo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = New(repo, mock.NewMockEmbedder(), WithLogger(nil))
	assert.NoError(t, err)
}

func TestAddAndQuery(t *testing.T) {
	idx := newTestIndex(t, topicEmbedder())
	ctx := context.Background()

	stored, err := idx.Add(ctx,
		sectioned("The sky is blue.", core.SectionBeginning),
		sectioned("Grass is green.", core.SectionMiddle),
		sectioned("Clouds drift across the sky.", core.SectionEnd),
	)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, c := range stored {
		assert.NotZero(t, c.Id)
		assert.InDelta(t, 1.0, dot(c.Vector, c.Vector), 1e-5, "stored vectors are unit length")
	}

	t.Run("best first", func(t *testing.T) {
		chunks, err := idx.Query(ctx, "Is the sky blue?", 2, nil)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "The sky is blue.", chunks[0].Content)
		assert.Equal(t, "Clouds drift across the sky.", chunks[1].Content)
		assert.Nil(t, chunks[0].Vector)
	})

	t.Run("fewer than k", func(t *testing.T) {
		chunks, err := idx.Query(ctx, "grass", 10, nil)
		require.NoError(t, err)
		assert.Len(t, chunks, 3)
	})

	t.Run("filter restricts section", func(t *testing.T) {
		for _, section := range core.Sections() {
			chunks, err := idx.Query(ctx, "sky", 5, core.SectionFilter(section))
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, section, chunks[0].Section())
		}
	})

	t.Run("unknown section value returns nothing", func(t *testing.T) {
		chunks, err := idx.Query(ctx, "sky", 5, &core.Filter{Field: core.MetaSection, Value: "conclusion"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("scores", func(t *testing.T) {
		results, err := idx.Search(ctx, "sky", 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		assert.GreaterOrEqual(t, results[1].Score, results[2].Score)
	})

	t.Run("repeated queries are deterministic", func(t *testing.T) {
		first, err := idx.Query(ctx, "blue sky over grass", 3, nil)
		require.NoError(t, err)
		for range 5 {
			again, err := idx.Query(ctx, "blue sky over grass", 3, nil)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAdd_Validation(t *testing.T) {
	embedder := topicEmbedder()
	idx := newTestIndex(t, embedder)

	_, err := idx.Add(context.Background(), core.Chunk{Content: "ok"}, core.Chunk{Content: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
	assert.Zero(t, embedder.CallCount(), "nothing is embedded when validation fails")

	stored, err := idx.Add(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	idx := newTestIndex(t, topicEmbedder())

	in := []core.Chunk{sectioned("sky", core.SectionEnd)}
	_, err := idx.Add(context.Background(), in...)
	require.NoError(t, err)

	assert.Zero(t, in[0].Id)
	assert.Nil(t, in[0].Vector)
}

func TestEmbeddingFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("model offline")

	t.Run("add", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, boom
		}
		idx := newTestIndex(t, embedder)

		_, err := idx.Add(ctx, core.Chunk{Content: "x"})
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.ErrorIs(t, err, boom)

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		idx := newTestIndex(t, embedder)

		_, err := idx.Add(ctx, core.Chunk{Content: "a"}, core.Chunk{Content: "b"})
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.ErrorIs(t, err, ErrVectorCountMismatch)
	})

	t.Run("query", func(t *testing.T) {
		embedder := topicEmbedder()
		idx := newTestIndex(t, embedder)
		_, err := idx.Add(ctx, core.Chunk{Content: "sky"})
		require.NoError(t, err)

		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, boom
		}
		_, err = idx.Query(ctx, "sky", 1, nil)
		assert.ErrorIs(t, err, ai.ErrEmbedding)
	})
}

func TestQuery_InvalidArguments(t *testing.T) {
	idx := newTestIndex(t, topicEmbedder())
	ctx := context.Background()

	_, err := idx.Query(ctx, "sky", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Query(ctx, "sky", 1, &core.Filter{})
	assert.ErrorIs(t, err, core.ErrInvalidFilter)
}

func TestContains(t *testing.T) {
	idx := newTestIndex(t, topicEmbedder())
	ctx := context.Background()

	_, err := idx.Add(ctx, core.Chunk{Content: "sky"})
	require.NoError(t, err)

	ok, err := idx.Contains(ctx, "sky")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVectorStore(t *testing.T) {
	idx := newTestIndex(t, topicEmbedder())
	store := NewVectorStore(idx)
	ctx := context.Background()

	ids, err := store.AddDocuments(ctx, []schema.Document{
		{PageContent: "The sky is blue.", Metadata: map[string]any{"source": "a", "tickers": []string{"SKY", "BLU"}}},
		{PageContent: "Grass is green.", Metadata: map[string]any{"source": "b", "rank": 2}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	t.Run("dedupe skips indexed content", func(t *testing.T) {
		ids, err := store.AddDocuments(ctx,
			[]schema.Document{{PageContent: "The sky is blue."}, {PageContent: "Fresh grass text"}},
			vectorstores.WithDeduplicater(ContentDeduplicater(idx)),
		)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("dedupe skips repeats within one call", func(t *testing.T) {
		before, err := idx.Count(ctx)
		require.NoError(t, err)

		ids, err := store.AddDocuments(ctx,
			[]schema.Document{
				{PageContent: "Same wire story.", Metadata: map[string]any{"source": "feed-a"}},
				{PageContent: "Same wire story.", Metadata: map[string]any{"source": "feed-b"}},
			},
			vectorstores.WithDeduplicater(ContentDeduplicater(idx)),
		)
		require.NoError(t, err)
		assert.Len(t, ids, 1)

		after, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("search converts metadata", func(t *testing.T) {
		docs, err := store.SimilaritySearch(ctx, "sky", 1)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "The sky is blue.", docs[0].PageContent)
		assert.Equal(t, "SKY,BLU", docs[0].Metadata["tickers"])
		assert.Equal(t, ids[0], docs[0].Metadata[MetaID])
		assert.Positive(t, docs[0].Score)
	})

	t.Run("filters", func(t *testing.T) {
		for _, f := range []any{
			core.Filter{Field: "source", Value: "b"},
			&core.Filter{Field: "source", Value: "b"},
			map[string]string{"source": "b"},
		} {
			docs, err := store.SimilaritySearch(ctx, "sky", 5, vectorstores.WithFilters(f))
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "Grass is green.", docs[0].PageContent)
			assert.Equal(t, "2", docs[0].Metadata["rank"])
		}

		_, err := store.SimilaritySearch(ctx, "sky", 5, vectorstores.WithFilters(map[string]string{"a": "1", "b": "2"}))
		assert.ErrorIs(t, err, ErrUnsupportedFilter)

		_, err = store.SimilaritySearch(ctx, "sky", 5, vectorstores.WithFilters(42))
		assert.ErrorIs(t, err, ErrUnsupportedFilter)
	})

	t.Run("score threshold", func(t *testing.T) {
		docs, err := store.SimilaritySearch(ctx, "sky", 5, vectorstores.WithScoreThreshold(0.9))
		require.NoError(t, err)
		for _, d := range docs {
			assert.GreaterOrEqual(t, d.Score, float32(0.9))
		}
		assert.NotEmpty(t, docs)
	})

	t.Run("retriever", func(t *testing.T) {
		docs, err := vectorstores.ToRetriever(store, 1).GetRelevantDocuments(ctx, "grass")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Grass is green.", docs[0].PageContent, "ties go to the earlier chunk")
	})
}

func TestNormalizeVector(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))

	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
