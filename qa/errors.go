package qa

import "errors"

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrAnalyzerRequired is returned when a query analyzer is not provided.
	ErrAnalyzerRequired = errors.New("analyzer required")

	// ErrMissingSearch is returned when filtered retrieval runs before the
	// query has been analyzed.
	ErrMissingSearch = errors.New("state has no search query")

	// ErrInvalidK is returned for a non-positive retrieval count.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNoSections is returned when the analyzer is given no allowed sections.
	ErrNoSections = errors.New("at least one section must be allowed")

	// ErrTemplateVariable is returned when a prompt template does not use
	// both the question and context variables.
	ErrTemplateVariable = errors.New("template must reference question and context")
)
