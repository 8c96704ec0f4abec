package qa

import (
	"log/slog"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/pipeline"
)

// Node names used by the built-in graphs.
const (
	NodeRetrieve           = "retrieve"
	NodeGenerate           = "generate"
	NodeAnalyzeQuery       = "analyzeQuery"
	NodeRetrieveWithFilter = "retrieveWithFilter"
)

type graphConfig struct {
	template *Template
	k        int
	logger   *slog.Logger
}

// Option configures a QA graph.
type Option func(*graphConfig) error

// WithTemplate sets the answering prompt. Default is DefaultTemplate().
func WithTemplate(t *Template) Option {
	return func(c *graphConfig) error {
		if t != nil {
			c.template = t
		}
		return nil
	}
}

// WithK sets the number of chunks to retrieve.
// Default is DefaultK for Simple QA and DefaultFilteredK for Filtered QA.
func WithK(k int) Option {
	return func(c *graphConfig) error {
		if k <= 0 {
			return ErrInvalidK
		}
		c.k = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *graphConfig) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

func newGraphConfig(defaultK int, opts []Option) (*graphConfig, error) {
	c := &graphConfig{
		template: DefaultTemplate(),
		k:        defaultK,
		logger:   slog.Default().With("component", "qa"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewSimpleQA builds start -> retrieve -> generate -> end.
func NewSimpleQA(r Retriever, g ai.Generator, opts ...Option) (*pipeline.Runnable, error) {
	if r == nil {
		return nil, ErrRetrieverRequired
	}
	if g == nil {
		return nil, ErrGeneratorRequired
	}
	c, err := newGraphConfig(DefaultK, opts)
	if err != nil {
		return nil, err
	}

	return pipeline.New("simple-qa").
		AddNode(NodeRetrieve, RetrieveStep(r, c.k)).
		AddNode(NodeGenerate, GenerateStep(g, c.template)).
		AddEdge(pipeline.Start, NodeRetrieve).
		AddEdge(NodeRetrieve, NodeGenerate).
		AddEdge(NodeGenerate, pipeline.End).
		Compile(pipeline.WithLogger(c.logger))
}

// NewFilteredQA builds start -> analyzeQuery -> retrieveWithFilter -> generate -> end.
func NewFilteredQA(r Retriever, a *Analyzer, g ai.Generator, opts ...Option) (*pipeline.Runnable, error) {
	if r == nil {
		return nil, ErrRetrieverRequired
	}
	if a == nil {
		return nil, ErrAnalyzerRequired
	}
	if g == nil {
		return nil, ErrGeneratorRequired
	}
	c, err := newGraphConfig(DefaultFilteredK, opts)
	if err != nil {
		return nil, err
	}

	return pipeline.New("filtered-qa").
		AddNode(NodeAnalyzeQuery, AnalyzeStep(a)).
		AddNode(NodeRetrieveWithFilter, RetrieveWithFilterStep(r, c.k)).
		AddNode(NodeGenerate, GenerateStep(g, c.template)).
		AddEdge(pipeline.Start, NodeAnalyzeQuery).
		AddEdge(NodeAnalyzeQuery, NodeRetrieveWithFilter).
		AddEdge(NodeRetrieveWithFilter, NodeGenerate).
		AddEdge(NodeGenerate, pipeline.End).
		Compile(pipeline.WithLogger(c.logger))
}
