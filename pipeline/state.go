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

package pipeline

import (
	"context"

	"github.com/poiesic/ragpipe/core"
)

// State is the record threaded through a graph. Question is set by the
// caller; the other fields are filled in by nodes.
type State struct {
	Question string            `json:"question"`
	Search   *core.SearchQuery `json:"search,omitempty"`
	Context  []core.Chunk      `json:"context"`
	Answer   string            `json:"answer"`
}

// Update is the partial state a node returns. Nil fields are left untouched
// when the update is applied.
type Update struct {
	Search  *core.SearchQuery `json:"search,omitempty"`
	Context []core.Chunk      `json:"context,omitempty"`
	Answer  *string           `json:"answer,omitempty"`
}

// Apply returns a copy of s with the non-nil fields of u merged in.
// A non-nil empty Context replaces the existing context.
func (s State) Apply(u Update) State {
	out := s.Clone()
	if u.Search != nil {
		q := *u.Search
		out.Search = &q
	}
	if u.Context != nil {
		out.Context = cloneChunks(u.Context)
	}
	if u.Answer != nil {
		out.Answer = *u.Answer
	}
	return out
}

// Clone returns a copy of s that shares no mutable data with it.
func (s State) Clone() State {
	out := s
	if s.Search != nil {
		q := *s.Search
		out.Search = &q
	}
	out.Context = cloneChunks(s.Context)
	return out
}

// AnswerUpdate is shorthand for an Update that sets only Answer.
func AnswerUpdate(answer string) Update {
	return Update{Answer: &answer}
}

func cloneChunks(chunks []core.Chunk) []core.Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]core.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.Clone()
	}
	return out
}

// Step is a single node of a graph. Run receives a private copy of the
// current state and returns the fields it wants to change.
type Step interface {
	Run(ctx context.Context, state State) (Update, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc func(ctx context.Context, state State) (Update, error)

// Run calls f.
func (f StepFunc) Run(ctx context.Context, state State) (Update, error) {
	return f(ctx, state)
}

// NodeUpdate is emitted by Runnable.Stream after each node completes.
type NodeUpdate struct {
	Node   string `json:"node"`
	Update Update `json:"update"`
	State  State  `json:"-"`
}

