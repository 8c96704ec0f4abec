package pipeline

import "errors"

var (
	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrReservedName is returned when a node uses Start, End or an empty name.
	ErrReservedName = errors.New("reserved node name")

	// ErrStepRequired is returned when a node is added without a step.
	ErrStepRequired = errors.New("step required")

	// ErrUnknownNode is returned when an edge references a node that was never added.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidEdge is returned for edges out of End or into Start.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrBranching is returned when a node has more than one outgoing edge.
	ErrBranching = errors.New("node has more than one outgoing edge")

	// ErrCycle is returned when the edges form a cycle.
	ErrCycle = errors.New("graph contains a cycle")

	// ErrUnreachableNode is returned when a node is not on the path from Start.
	ErrUnreachableNode = errors.New("node unreachable from start")

	// ErrEndUnreachable is returned when the path from Start does not reach End.
	ErrEndUnreachable = errors.New("end unreachable from start")
)
