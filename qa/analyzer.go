// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package qa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
)

// Analyzer turns a free-form question into a structured search query by
// asking the generator for a JSON object. It calls the generator exactly
// once per question and never retries.
type Analyzer struct {
	generator ai.Generator
	allowed   []core.Section
	schema    string
	logger    *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer) error

// WithAllowedSections restricts the section labels the model may choose.
// Default is every label in core.Sections().
func WithAllowedSections(sections ...core.Section) AnalyzerOption {
	return func(a *Analyzer) error {
		if len(sections) == 0 {
			return ErrNoSections
		}
		for _, s := range sections {
			if _, err := core.ParseSection(string(s)); err != nil {
				return err
			}
		}
		a.allowed = slices.Clone(sections)
		return nil
	}
}

// WithAnalyzerLogger sets a custom logger.
// Default is slog.Default().
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAnalyzer creates a query analyzer backed by generator.
func NewAnalyzer(generator ai.Generator, opts ...AnalyzerOption) (*Analyzer, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	a := &Analyzer{
		generator: generator,
		allowed:   core.Sections(),
		logger:    slog.Default().With("component", "analyzer"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	schema, err := searchSchema(a.allowed)
	if err != nil {
		return nil, err
	}
	a.schema = schema
	return a, nil
}

// Schema returns the JSON schema the model is asked to satisfy.
func (a *Analyzer) Schema() string {
	return a.schema
}

// Analyze returns the structured search query for question. Output that is
// not a single JSON object with exactly the fields query (non-empty) and
// section (one of the allowed labels) fails with ai.ErrSchemaViolation.
func (a *Analyzer) Analyze(ctx context.Context, question string) (core.SearchQuery, error) {
	raw, err := a.generator.GenerateJSON(ctx, a.prompt(question))
	if err != nil {
		return core.SearchQuery{}, ai.GenerationError(err)
	}

	q, err := a.decode(raw)
	if err != nil {
		a.logger.Warn("model output violates search schema", "err", err, "output", raw)
		return core.SearchQuery{}, fmt.Errorf("%w: %w", ai.ErrSchemaViolation, err)
	}

	a.logger.Debug("question analyzed", "query", q.Query, "section", q.Section)
	return q, nil
}

func (a *Analyzer) prompt(question string) string {
	var b strings.Builder
	b.WriteString("Turn the user's question into a search query for a document that is divided into sections.\n")
	b.WriteString("Respond with a JSON object that conforms to this JSON schema:\n")
	b.WriteString(a.schema)
	b.WriteString("\n\nPick the section the question asks about. ")
	b.WriteString("If the question does not mention a part of the document, choose the section most likely to contain the answer.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func (a *Analyzer) decode(raw string) (core.SearchQuery, error) {
	cleaned := ai.CleanJSON(raw)
	if cleaned == "" {
		return core.SearchQuery{}, errors.New("empty output")
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()

	var q core.SearchQuery
	if err := dec.Decode(&q); err != nil {
		return core.SearchQuery{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.SearchQuery{}, errors.New("trailing data after object")
	}
	if err := core.ValidateSearchQuery(q, a.allowed); err != nil {
		return core.SearchQuery{}, err
	}
	return q, nil
}

type schemaProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type objectSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]schemaProperty `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

func searchSchema(allowed []core.Section) (string, error) {
	labels := make([]string, len(allowed))
	for i, s := range allowed {
		labels[i] = string(s)
	}

	data, err := json.MarshalIndent(objectSchema{
		Type: "object",
		Properties: map[string]schemaProperty{
			"query":   {Type: "string", Description: "Search query to run."},
			"section": {Type: "string", Description: "Section to query.", Enum: labels},
		},
		Required: []string{"query", "section"},
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
