package openai

import "errors"

var (
	errEmptyEmbedding = errors.New("embedder returned empty vector")
	errEmbeddingCount = errors.New("embedder returned wrong number of vectors")
	errNoChoices      = errors.New("model returned no choices")
)
