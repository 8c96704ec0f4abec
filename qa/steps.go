package qa

import (
	"context"
	"strings"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/pipeline"
)

const (
	// DefaultK is the number of chunks retrieved by Simple QA.
	DefaultK = 4
	// DefaultFilteredK is the number of chunks retrieved by Filtered QA.
	DefaultFilteredK = 2
)

// Retriever returns the k chunks most similar to text, optionally
// restricted by filter. *index.Index satisfies it.
type Retriever interface {
	Query(ctx context.Context, text string, k int, filter *core.Filter) ([]core.Chunk, error)
}

// RetrieveStep queries r with the state's question and sets Context.
func RetrieveStep(r Retriever, k int) pipeline.Step {
	if k <= 0 {
		k = DefaultK
	}
	return pipeline.StepFunc(func(ctx context.Context, state pipeline.State) (pipeline.Update, error) {
		chunks, err := r.Query(ctx, state.Question, k, nil)
		if err != nil {
			return pipeline.Update{}, err
		}
		return pipeline.Update{Context: nonNil(chunks)}, nil
	})
}

// RetrieveWithFilterStep queries r with the analyzed search query, keeping
// only chunks from the requested section.
func RetrieveWithFilterStep(r Retriever, k int) pipeline.Step {
	if k <= 0 {
		k = DefaultFilteredK
	}
	return pipeline.StepFunc(func(ctx context.Context, state pipeline.State) (pipeline.Update, error) {
		if state.Search == nil {
			return pipeline.Update{}, ErrMissingSearch
		}
		chunks, err := r.Query(ctx, state.Search.Query, k, core.SectionFilter(state.Search.Section))
		if err != nil {
			return pipeline.Update{}, err
		}
		return pipeline.Update{Context: nonNil(chunks)}, nil
	})
}

// AnalyzeStep sets Search from the state's question.
func AnalyzeStep(a *Analyzer) pipeline.Step {
	return pipeline.StepFunc(func(ctx context.Context, state pipeline.State) (pipeline.Update, error) {
		q, err := a.Analyze(ctx, state.Question)
		if err != nil {
			return pipeline.Update{}, err
		}
		return pipeline.Update{Search: &q}, nil
	})
}

// GenerateStep formats tmpl with the question and the retrieved chunks,
// joined by newlines in retrieval order, and stores the model's reply
// unmodified as Answer. An empty context still produces a prompt.
func GenerateStep(g ai.Generator, tmpl *Template) pipeline.Step {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	return pipeline.StepFunc(func(ctx context.Context, state pipeline.State) (pipeline.Update, error) {
		prompt, err := tmpl.Format(state.Question, JoinContext(state.Context))
		if err != nil {
			return pipeline.Update{}, err
		}
		answer, err := g.Generate(ctx, prompt)
		if err != nil {
			return pipeline.Update{}, ai.GenerationError(err)
		}
		return pipeline.AnswerUpdate(answer), nil
	})
}

// JoinContext concatenates chunk contents with newlines.
func JoinContext(chunks []core.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n")
}

func nonNil(chunks []core.Chunk) []core.Chunk {
	if chunks == nil {
		return []core.Chunk{}
	}
	return chunks
}
