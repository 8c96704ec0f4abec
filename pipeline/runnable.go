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
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type node struct {
	name string
	step Step
}

// Runnable is a compiled graph. It holds no per-invocation state and is
// safe for concurrent use.
type Runnable struct {
	name   string
	nodes  []node
	logger *slog.Logger
}

// Option configures a Runnable.
type Option func(*Runnable) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runnable) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// Name returns the graph name.
func (r *Runnable) Name() string {
	return r.name
}

// Nodes returns the node names in execution order.
func (r *Runnable) Nodes() []string {
	names := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		names[i] = n.name
	}
	return names
}

// Invoke runs every node in order and returns the final state. The first
// node error ends the run; the state reached so far is returned with it.
func (r *Runnable) Invoke(ctx context.Context, input State) (State, error) {
	state := input.Clone()
	for update, err := range r.Stream(ctx, input) {
		state = update.State
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

// Stream runs the graph and yields one NodeUpdate per completed node, in
// execution order. On failure it yields a final pair carrying the failing
// node's name, the state before that node and the error. Stopping the
// iteration early stops the run before the next node.
func (r *Runnable) Stream(ctx context.Context, input State) iter.Seq2[NodeUpdate, error] {
	return func(yield func(NodeUpdate, error) bool) {
		logger := r.logger.With("graph", r.name, "run_id", uuid.NewString())
		state := input.Clone()
		started := time.Now()

		for _, n := range r.nodes {
			if err := ctx.Err(); err != nil {
				logger.Debug("run cancelled", "node", n.name, "err", err)
				yield(NodeUpdate{Node: n.name, State: state}, fmt.Errorf("node %q: %w", n.name, err))
				return
			}

			nodeStart := time.Now()
			update, err := n.step.Run(ctx, state.Clone())
			if err != nil {
				logger.Error("node failed", "node", n.name, "err", err)
				yield(NodeUpdate{Node: n.name, State: state}, fmt.Errorf("node %q: %w", n.name, err))
				return
			}

			state = state.Apply(update)
			logger.Debug("node complete", "node", n.name, "elapsed", time.Since(nodeStart))

			if !yield(NodeUpdate{Node: n.name, Update: update, State: state.Clone()}, nil) {
				return
			}
		}

		logger.Debug("run complete", "nodes", len(r.nodes), "elapsed", time.Since(started))
	}
}

