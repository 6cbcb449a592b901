package rag

import (
	"context"

	"github.com/zongseung/energyrag/graph"
	"github.com/zongseung/energyrag/rag/llm"
)

// Node names in the question graph.
const (
	nodeRouter         = "router"
	nodeRetriever      = "retriever"
	nodeSupervisor     = "supervisor"
	nodeEnergyIndustry = "energy_industry_agent"
	nodeRenewable      = "renewable_agent"
	nodeReflection     = "reflection"
	nodeExplainer      = "explainer"
)

// Build compiles the question graph:
//
//	router -> retriever -> supervisor -+-> energy_industry_agent -> reflection -> supervisor
//	                                   +-> renewable_agent       -> reflection -> supervisor
//	                                   +-> explainer -> END
func (e *Engine) Build() (*graph.Runnable[QAState], error) {
	g := graph.NewStateGraph[QAState]()

	g.AddNode(nodeRouter, "embed the query and fix the retrieval category", e.router)
	g.AddNode(nodeRetriever, "gather nearest document chunks", e.retriever)
	g.AddNode(nodeSupervisor, "fold partial answers and dispatch the next agent", e.supervisor)
	g.AddNode(nodeEnergyIndustry, "answer with grounded prose", e.energyIndustryAgent)
	g.AddNode(nodeRenewable, "answer with grounded markdown tables", e.renewableAgent)
	g.AddNode(nodeReflection, "refine the draft answer once", e.reflection)
	g.AddNode(nodeExplainer, "compose the final answer with references", e.explainer)

	g.SetEntryPoint(nodeRouter)
	g.AddEdge(nodeRouter, nodeRetriever)
	g.AddEdge(nodeRetriever, nodeSupervisor)
	g.AddConditionalEdge(nodeSupervisor, func(ctx context.Context, s QAState) string {
		switch s.Route {
		case RouteRenewable:
			return nodeRenewable
		case RouteDone:
			return nodeExplainer
		default:
			return nodeEnergyIndustry
		}
	})
	g.AddEdge(nodeEnergyIndustry, nodeReflection)
	g.AddEdge(nodeRenewable, nodeReflection)
	g.AddEdge(nodeReflection, nodeSupervisor)
	g.AddEdge(nodeExplainer, graph.END)

	return g.Compile()
}

// Answer runs one query through the graph and returns the final text.
func (e *Engine) Answer(ctx context.Context, query string, history []llm.Message) (string, error) {
	runnable, err := e.Build()
	if err != nil {
		return "", err
	}
	final, err := runnable.Invoke(ctx, QAState{Query: query, History: history})
	if err != nil {
		return "", err
	}
	return final.Final, nil
}
