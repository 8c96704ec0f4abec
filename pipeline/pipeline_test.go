package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/ragpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() Step {
	return StepFunc(func(ctx context.Context, s State) (Update, error) {
		return Update{}, nil
	})
}

func answer(text string) Step {
	return StepFunc(func(ctx context.Context, s State) (Update, error) {
		return AnswerUpdate(text), nil
	})
}

func TestStateApply(t *testing.T) {
	base := State{
		Question: "q",
		Search:   &core.SearchQuery{Query: "x", Section: core.SectionEnd},
		Context:  []core.Chunk{{Content: "a"}},
		Answer:   "old",
	}

	tests := []struct {
		name   string
		update Update
		want   State
	}{
		{
			name:   "empty update changes nothing",
			update: Update{},
			want:   base,
		},
		{
			name:   "answer only",
			update: AnswerUpdate("new"),
			want: State{
				Question: "q",
				Search:   base.Search,
				Context:  base.Context,
				Answer:   "new",
			},
		},
		{
			name:   "empty context replaces",
			update: Update{Context: []core.Chunk{}},
			want: State{
				Question: "q",
				Search:   base.Search,
				Context:  []core.Chunk{},
				Answer:   "old",
			},
		},
		{
			name:   "search",
			update: Update{Search: &core.SearchQuery{Query: "y", Section: core.SectionBeginning}},
			want: State{
				Question: "q",
				Search:   &core.SearchQuery{Query: "y", Section: core.SectionBeginning},
				Context:  base.Context,
				Answer:   "old",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Apply(tt.update)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("apply does not alias", func(t *testing.T) {
		ctx := []core.Chunk{{Content: "shared"}}
		got := State{}.Apply(Update{Context: ctx})
		ctx[0].Content = "mutated"
		assert.Equal(t, "shared", got.Context[0].Content)
	})
}

func TestCompile_Valid(t *testing.T) {
	r, err := New("rag").
		AddNode("retrieve", noop()).
		AddNode("generate", answer("42")).
		AddEdge("retrieve", "generate").
		AddEdge(Start, "retrieve").
		AddEdge("generate", End).
		Compile()
	require.NoError(t, err)

	assert.Equal(t, "rag", r.Name())
	assert.Equal(t, []string{"retrieve", "generate"}, r.Nodes())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph
		want  error
	}{
		{
			name: "duplicate node",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddNode("a", noop()).
					AddEdge(Start, "a").AddEdge("a", End)
			},
			want: ErrDuplicateNode,
		},
		{
			name: "reserved name",
			build: func() *Graph {
				return New("g").AddNode(End, noop()).AddEdge(Start, End)
			},
			want: ErrReservedName,
		},
		{
			name: "nil step",
			build: func() *Graph {
				return New("g").AddNode("a", nil).AddEdge(Start, End)
			},
			want: ErrStepRequired,
		},
		{
			name: "unknown target",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge(Start, "a").AddEdge("a", "b")
			},
			want: ErrUnknownNode,
		},
		{
			name: "unknown source",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge(Start, "a").AddEdge("a", End).AddEdge("z", End)
			},
			want: ErrUnknownNode,
		},
		{
			name: "branching",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(Start, "a").AddEdge("a", "b").AddEdge("a", End).AddEdge("b", End)
			},
			want: ErrBranching,
		},
		{
			name: "edge out of end",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge(Start, "a").AddEdge("a", End).AddEdge(End, "a")
			},
			want: ErrInvalidEdge,
		},
		{
			name: "edge into start",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge(Start, "a").AddEdge("a", Start)
			},
			want: ErrInvalidEdge,
		},
		{
			name: "cycle",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(Start, "a").AddEdge("a", "b").AddEdge("b", "a")
			},
			want: ErrCycle,
		},
		{
			name: "dead end",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge(Start, "a")
			},
			want: ErrEndUnreachable,
		},
		{
			name: "no entry",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddEdge("a", End)
			},
			want: ErrEndUnreachable,
		},
		{
			name: "unreachable node",
			build: func() *Graph {
				return New("g").AddNode("a", noop()).AddNode("orphan", noop()).
					AddEdge(Start, "a").AddEdge("a", End).AddEdge("orphan", End)
			},
			want: ErrUnreachableNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInvoke(t *testing.T) {
	var order []string
	record := func(name string, u Update) Step {
		return StepFunc(func(ctx context.Context, s State) (Update, error) {
			order = append(order, name)
			return u, nil
		})
	}

	r, err := New("g").
		AddNode("analyze", record("analyze", Update{Search: &core.SearchQuery{Query: "q", Section: core.SectionMiddle}})).
		AddNode("retrieve", record("retrieve", Update{Context: []core.Chunk{{Content: "c1"}, {Content: "c2"}}})).
		AddNode("generate", StepFunc(func(ctx context.Context, s State) (Update, error) {
			order = append(order, "generate")
			require.NotNil(t, s.Search)
			require.Len(t, s.Context, 2)
			return AnswerUpdate("answer to " + s.Question), nil
		})).
		AddEdge(Start, "analyze").
		AddEdge("analyze", "retrieve").
		AddEdge("retrieve", "generate").
		AddEdge("generate", End).
		Compile()
	require.NoError(t, err)

	input := State{Question: "why?"}
	final, err := r.Invoke(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{"analyze", "retrieve", "generate"}, order)
	assert.Equal(t, "why?", final.Question)
	assert.Equal(t, "answer to why?", final.Answer)
	assert.Equal(t, core.SectionMiddle, final.Search.Section)
	assert.Len(t, final.Context, 2)
	assert.Empty(t, input.Answer, "input is not mutated")
}

func TestInvoke_StepCannotMutateRunnerState(t *testing.T) {
	r, err := New("g").
		AddNode("a", StepFunc(func(ctx context.Context, s State) (Update, error) {
			return Update{Context: []core.Chunk{{Content: "kept"}}}, nil
		})).
		AddNode("b", StepFunc(func(ctx context.Context, s State) (Update, error) {
			s.Context[0].Content = "clobbered"
			s.Question = "changed"
			return Update{}, nil
		})).
		AddEdge(Start, "a").AddEdge("a", "b").AddEdge("b", End).
		Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), State{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", final.Question)
	assert.Equal(t, "kept", final.Context[0].Content)
}

func TestInvoke_NodeErrorIsTerminal(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	r, err := New("g").
		AddNode("first", answer("partial")).
		AddNode("fail", StepFunc(func(ctx context.Context, s State) (Update, error) {
			return Update{}, boom
		})).
		AddNode("never", StepFunc(func(ctx context.Context, s State) (Update, error) {
			ran = true
			return Update{}, nil
		})).
		AddEdge(Start, "first").AddEdge("first", "fail").AddEdge("fail", "never").AddEdge("never", End).
		Compile()
	require.NoError(t, err)

	state, err := r.Invoke(context.Background(), State{Question: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `node "fail"`)
	assert.False(t, ran)
	assert.Equal(t, "partial", state.Answer)
}

func TestInvoke_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	second := false

	r, err := New("g").
		AddNode("first", StepFunc(func(ctx context.Context, s State) (Update, error) {
			cancel()
			return Update{}, nil
		})).
		AddNode("second", StepFunc(func(ctx context.Context, s State) (Update, error) {
			second = true
			return Update{}, nil
		})).
		AddEdge(Start, "first").AddEdge("first", "second").AddEdge("second", End).
		Compile()
	require.NoError(t, err)

	_, err = r.Invoke(ctx, State{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, second)
}

func TestStream(t *testing.T) {
	r, err := New("g").
		AddNode("retrieve", StepFunc(func(ctx context.Context, s State) (Update, error) {
			return Update{Context: []core.Chunk{{Content: "c"}}}, nil
		})).
		AddNode("generate", answer("done")).
		AddEdge(Start, "retrieve").AddEdge("retrieve", "generate").AddEdge("generate", End).
		Compile()
	require.NoError(t, err)

	var nodes []string
	var last State
	for u, err := range r.Stream(context.Background(), State{Question: "q"}) {
		require.NoError(t, err)
		nodes = append(nodes, u.Node)
		last = u.State
	}
	assert.Equal(t, []string{"retrieve", "generate"}, nodes)
	assert.Equal(t, "done", last.Answer)
	assert.Len(t, last.Context, 1)

	t.Run("early break stops the run", func(t *testing.T) {
		calls := 0
		r, err := New("g").
			AddNode("a", StepFunc(func(ctx context.Context, s State) (Update, error) { calls++; return Update{}, nil })).
			AddNode("b", StepFunc(func(ctx context.Context, s State) (Update, error) { calls++; return Update{}, nil })).
			AddEdge(Start, "a").AddEdge("a", "b").AddEdge("b", End).
			Compile()
		require.NoError(t, err)

		for range r.Stream(context.Background(), State{}) {
			break
		}
		assert.Equal(t, 1, calls)
	})
}

func TestConcurrentInvocations(t *testing.T) {
	r, err := New("g").
		AddNode("echo", StepFunc(func(ctx context.Context, s State) (Update, error) {
			return AnswerUpdate(s.Question), nil
		})).
		AddEdge(Start, "echo").AddEdge("echo", End).
		Compile(WithLogger(nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Invoke(context.Background(), State{Question: string(rune('A' + i%26))})
			if err == nil {
				results[i] = s.Answer
			}
		}()
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, string(rune('A'+i%26)), got)
	}
}
