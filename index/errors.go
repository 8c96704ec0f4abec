package index

import "errors"

var (
	// ErrRepositoryRequired is returned when no chunk repository is supplied.
	ErrRepositoryRequired = errors.New("chunk repository is required")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidK is returned when a query asks for fewer than one result.
	ErrInvalidK = errors.New("k must be greater than 0")

	// ErrVectorCountMismatch is returned when the embedder returns a
	// different number of vectors than texts.
	ErrVectorCountMismatch = errors.New("embedder returned wrong number of vectors")

	// ErrUnsupportedFilter is returned by the vector store adapter for
	// filters that are not an equality on one metadata field.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)
