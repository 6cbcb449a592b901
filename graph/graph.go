// Package graph implements a small sequential state machine with named
// nodes, static and conditional edges, and an enforced step bound.
package graph

import (
	"context"
	"errors"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrMaxSteps is returned when execution exceeds the configured step bound.
	ErrMaxSteps = errors.New("max steps exceeded")
)

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function mutates and returns the state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents a static edge between two nodes.
type Edge struct {
	From string
	To   string
}

// Condition selects the next node name based on the current state.
type Condition[S any] func(ctx context.Context, state S) string
