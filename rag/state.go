// Package rag answers questions about collected research documents with
// a multi-agent state graph: a router classifies and embeds the query, a
// retriever gathers candidate chunks, and a supervisor dispatches
// specialist agents until their partial answers can be composed into a
// final response.
package rag

import (
	"github.com/zongseung/energyrag/rag/docstore"
	"github.com/zongseung/energyrag/rag/llm"
)

// Result kinds produced by the specialist agents.
const (
	KindText  = "text"
	KindTable = "table"
)

// Routes the supervisor can choose.
const (
	RouteText      = "text"
	RouteRenewable = "renewable"
	RouteDone      = "done"
)

// Result is one specialist's partial answer.
type Result interface {
	Kind() string
	Answer() string
}

// TextResult is a prose answer from the energy-industry specialist.
type TextResult struct {
	Text string
}

func (TextResult) Kind() string     { return KindText }
func (r TextResult) Answer() string { return r.Text }

// TableResult is a markdown-table answer from the renewable specialist.
type TableResult struct {
	Markdown string
}

func (TableResult) Kind() string     { return KindTable }
func (r TableResult) Answer() string { return r.Markdown }

// QAState is the shared state threaded through the question graph.
type QAState struct {
	Query          string
	QueryEmbedding []float32
	Category       string
	Candidates     []docstore.Chunk
	History        []llm.Message

	// Route is the supervisor's latest dispatch decision.
	Route string
	// Pending holds the most recent specialist result, not yet folded
	// into Partials by the supervisor.
	Pending Result
	// Partials collects one result per kind.
	Partials map[string]Result

	ReflectionCount int
	Final           string
}
