package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	// Start is the implicit entry node of every graph.
	Start = "__start__"
	// End is the implicit exit node of every graph.
	End = "__end__"
)

// Graph collects nodes and edges. Builder methods return the graph so calls
// can be chained; mistakes are reported together by Compile.
type Graph struct {
	name  string
	steps map[string]Step
	order []string
	edges map[string][]string
	errs  []error
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:  name,
		steps: make(map[string]Step),
		edges: make(map[string][]string),
	}
}

// AddNode registers step under name.
func (g *Graph) AddNode(name string, step Step) *Graph {
	switch {
	case name == "" || name == Start || name == End:
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrReservedName, name))
	case step == nil:
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrStepRequired, name))
	case g.steps[name] != nil:
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrDuplicateNode, name))
	default:
		g.steps[name] = step
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge connects from to to.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// Compile validates the graph and returns a Runnable executing its nodes in
// path order. The graph must form exactly one path from Start to End that
// visits every node.
func (g *Graph) Compile(opts ...Option) (*Runnable, error) {
	if err := g.validateEdges(); err != nil {
		return nil, err
	}

	path, err := g.walk()
	if err != nil {
		return nil, err
	}

	onPath := make(map[string]bool, len(path))
	for _, name := range path {
		onPath[name] = true
	}
	var unreachable []error
	for _, name := range g.order {
		if !onPath[name] {
			unreachable = append(unreachable, fmt.Errorf("%w: %q", ErrUnreachableNode, name))
		}
	}
	if len(unreachable) > 0 {
		return nil, errors.Join(unreachable...)
	}

	r := &Runnable{
		name:   g.name,
		logger: slog.Default().With("component", "pipeline"),
	}
	for _, name := range path {
		r.nodes = append(r.nodes, node{name: name, step: g.steps[name]})
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (g *Graph) validateEdges() error {
	errs := append([]error(nil), g.errs...)
	for from, targets := range g.edges {
		switch {
		case from == End:
			errs = append(errs, fmt.Errorf("%w: edge out of %s", ErrInvalidEdge, End))
			continue
		case from != Start && g.steps[from] == nil:
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownNode, from))
		}
		if len(targets) > 1 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrBranching, from))
		}
		for _, to := range targets {
			switch {
			case to == Start:
				errs = append(errs, fmt.Errorf("%w: edge into %s", ErrInvalidEdge, Start))
			case to != End && g.steps[to] == nil:
				errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownNode, to))
			}
		}
	}
	return errors.Join(errs...)
}

// walk follows the single outgoing edges from Start and returns the nodes
// visited before End.
func (g *Graph) walk() ([]string, error) {
	var path []string
	seen := make(map[string]bool)
	current := Start
	for {
		targets := g.edges[current]
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: path stops at %q", ErrEndUnreachable, current)
		}
		next := targets[0]
		if next == End {
			return path, nil
		}
		if seen[next] {
			return nil, fmt.Errorf("%w: %q revisited", ErrCycle, next)
		}
		seen[next] = true
		path = append(path, next)
		current = next
	}
}
