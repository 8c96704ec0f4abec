package qa

import (
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

const (
	// VarQuestion is the template variable holding the user question.
	VarQuestion = "question"
	// VarContext is the template variable holding the joined context.
	VarContext = "context"
)

// defaultPrompt is the standard RAG answering prompt.
const defaultPrompt = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.
Question: {{.question}}
Context: {{.context}}
Answer:`

// Template is a prompt template over the question and context variables,
// written in Go template syntax ({{.question}}, {{.context}}).
type Template struct {
	prompt prompts.PromptTemplate
}

// DefaultTemplate returns the built-in answering prompt.
func DefaultTemplate() *Template {
	t, err := NewTemplate(defaultPrompt)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTemplate parses text and checks that it renders both variables.
func NewTemplate(text string) (*Template, error) {
	t := &Template{
		prompt: prompts.NewPromptTemplate(text, []string{VarQuestion, VarContext}),
	}

	// Render with marker values so a template that drops a variable or
	// fails to parse is rejected up front.
	const qMarker, cMarker = "QUESTION-MARKER-7f3a", "CONTEXT-MARKER-7f3a"
	out, err := t.Format(qMarker, cMarker)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(out, qMarker) || !strings.Contains(out, cMarker) {
		return nil, ErrTemplateVariable
	}
	return t, nil
}

// LoadTemplate reads a template from path.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := NewTemplate(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Format renders the template.
func (t *Template) Format(question, context string) (string, error) {
	out, err := t.prompt.Format(map[string]any{
		VarQuestion: question,
		VarContext:  context,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	return out, nil
}

// String returns the template source.
func (t *Template) String() string {
	return t.prompt.Template
}
