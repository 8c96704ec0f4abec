package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("repeated text hits the cache", func(t *testing.T) {
		inner := mock.NewMockEmbedder()
		cached := ai.NewCachingEmbedder(inner, 0)

		v1, err := cached.EmbedText(ctx, "What is task decomposition?")
		require.NoError(t, err)
		v2, err := cached.EmbedText(ctx, "What is task decomposition?")
		require.NoError(t, err)

		assert.Equal(t, v1, v2)
		assert.Equal(t, 1, inner.CallCount())
		assert.Equal(t, 1, cached.Len())
	})

	t.Run("returned vectors are independent copies", func(t *testing.T) {
		cached := ai.NewCachingEmbedder(mock.NewMockEmbedder(), 0)

		v1, err := cached.EmbedText(ctx, "q")
		require.NoError(t, err)
		v1[0] = 42

		v2, err := cached.EmbedText(ctx, "q")
		require.NoError(t, err)
		assert.NotEqual(t, float32(42), v2[0])
	})

	t.Run("batch results do not answer single-text lookups", func(t *testing.T) {
		inner := mock.NewMockEmbedder()
		inner.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{9, 9, 9}
			}
			return vecs, nil
		}
		cached := ai.NewCachingEmbedder(inner, 0)

		_, err := cached.EmbedTexts(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Zero(t, cached.Len())

		v, err := cached.EmbedText(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 2, inner.CallCount())
		assert.NotEqual(t, []float32{9, 9, 9}, v)
		assert.Equal(t, 1, cached.Len())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := mock.NewMockEmbedder()
		inner.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, ai.EmbeddingError(errors.New("boom"))
		}
		cached := ai.NewCachingEmbedder(inner, 0)

		_, err := cached.EmbedText(ctx, "q")
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.Zero(t, cached.Len())
	})
}
