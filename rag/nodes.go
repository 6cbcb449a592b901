package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/rag/docstore"
	"github.com/zongseung/energyrag/rag/llm"
)

const (
	// DefaultTopK is how many chunks the retriever hands the agents.
	DefaultTopK = 8
	// defaultCategory matches the collection the ingestor writes.
	defaultCategory = "NAVER"
	// maxReflections bounds the refine loop per specialist answer.
	maxReflections = 1
)

// Searcher is the retrieval surface the graph depends on.
type Searcher interface {
	Search(ctx context.Context, category string, embedding []float32, k int) ([]docstore.Chunk, error)
	LoadByFilenames(ctx context.Context, category string, filenames []string) ([]docstore.Chunk, error)
}

// Engine holds the collaborators shared by all graph nodes.
type Engine struct {
	llm    llm.Client
	store  Searcher
	logger log.Logger
	topK   int
}

// NewEngine wires an answer engine.
func NewEngine(client llm.Client, store Searcher, logger log.Logger) *Engine {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Engine{llm: client, store: store, logger: logger, topK: DefaultTopK}
}

// router embeds the query and fixes the retrieval category.
func (e *Engine) router(ctx context.Context, s QAState) (QAState, error) {
	embedding, err := e.llm.Embed(ctx, s.Query)
	if err != nil {
		return s, fmt.Errorf("embed query: %w", err)
	}
	s.QueryEmbedding = embedding
	if s.Category == "" {
		s.Category = defaultCategory
	}
	if s.Partials == nil {
		s.Partials = make(map[string]Result)
	}
	e.logger.Debug("[ROUTER] category=%s dim=%d", s.Category, len(embedding))
	return s, nil
}

// retriever gathers the nearest chunks for the query.
func (e *Engine) retriever(ctx context.Context, s QAState) (QAState, error) {
	chunks, err := e.store.Search(ctx, s.Category, s.QueryEmbedding, e.topK)
	if err != nil {
		return s, fmt.Errorf("retrieve candidates: %w", err)
	}
	s.Candidates = chunks
	e.logger.Info("[RETRIEVER] %d candidates for %q", len(chunks), s.Query)
	return s, nil
}

// supervisor folds the pending specialist result and decides the next
// route. It routes "done" once a useful set of partials exists; asking
// for a kind that is already answered also ends the run.
func (e *Engine) supervisor(ctx context.Context, s QAState) (QAState, error) {
	if s.Pending != nil {
		s.Partials[s.Pending.Kind()] = s.Pending
		s.Pending = nil
	}

	if len(s.Partials) == len(knownKinds()) {
		s.Route = RouteDone
		return s, nil
	}

	route := routeForQuery(s.Query)
	if _, answered := s.Partials[kindForRoute(route)]; answered {
		s.Route = RouteDone
		return s, nil
	}
	s.Route = route
	e.logger.Info("[SUPERVISOR] route=%s partials=%d", s.Route, len(s.Partials))
	return s, nil
}

// routeForQuery picks a specialist from keyword hints. A purely
// renewable question goes to the renewable agent; anything mentioning
// traditional energy or policy, or nothing recognizable, goes to the
// energy-industry agent.
func routeForQuery(query string) string {
	renewable := containsAny(query, renewableEnergyHints)
	traditional := containsAny(query, traditionalEnergyHints)

	switch {
	case renewable && !traditional:
		return RouteRenewable
	case containsAny(query, policyHints):
		return RouteText
	case traditional:
		return RouteText
	default:
		return RouteText
	}
}

func kindForRoute(route string) string {
	if route == RouteRenewable {
		return KindTable
	}
	return KindText
}

func knownKinds() []string { return []string{KindText, KindTable} }

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// energyIndustryAgent answers with prose grounded in the candidates.
func (e *Engine) energyIndustryAgent(ctx context.Context, s QAState) (QAState, error) {
	answer, err := e.llm.Chat(ctx, energyIndustrySystemPrompt, e.agentInput(s), s.History)
	if err != nil {
		return s, fmt.Errorf("energy industry agent: %w", err)
	}
	s.Pending = TextResult{Text: answer}
	return s, nil
}

// renewableAgent answers with markdown tables grounded in the candidates,
// pulling in the table chunks extracted from the same source files.
func (e *Engine) renewableAgent(ctx context.Context, s QAState) (QAState, error) {
	input := e.agentInput(s) + e.tableContext(ctx, s)
	answer, err := e.llm.Chat(ctx, renewableSystemPrompt, input, s.History)
	if err != nil {
		return s, fmt.Errorf("renewable agent: %w", err)
	}
	s.Pending = TableResult{Markdown: answer}
	return s, nil
}

// tableContext renders the table-typed chunks belonging to the candidate
// files. A failed lookup degrades to prose-only context.
func (e *Engine) tableContext(ctx context.Context, s QAState) string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range s.Candidates {
		if !seen[c.Filename] {
			seen[c.Filename] = true
			names = append(names, c.Filename)
		}
	}
	if len(names) == 0 {
		return ""
	}
	tables, err := e.store.LoadByFilenames(ctx, s.Category, names)
	if err != nil {
		e.logger.Warn("[RENEWABLE] table lookup failed: %v", err)
		return ""
	}
	if len(tables) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("표 데이터:\n")
	for i, t := range tables {
		fmt.Fprintf(&b, "[T%d] %s (p.%d)\n%s\n\n", i+1, t.Filename, t.Page, t.Content)
	}
	return b.String()
}

// agentInput renders the question plus the S#-tagged context blocks.
func (e *Engine) agentInput(s QAState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "질문: %s\n\n참고 발췌:\n", s.Query)
	for i, c := range s.Candidates {
		if i >= e.topK {
			break
		}
		fmt.Fprintf(&b, "[S%d] %s (p.%d)\n%s\n\n", i+1, c.Filename, c.Page, c.Content)
	}
	return b.String()
}

// reflection refines the pending answer once, then lets it pass through.
func (e *Engine) reflection(ctx context.Context, s QAState) (QAState, error) {
	if s.Pending == nil || s.ReflectionCount >= maxReflections {
		return s, nil
	}
	s.ReflectionCount++

	input := fmt.Sprintf("질문: %s\n\n초안 답변:\n%s", s.Query, s.Pending.Answer())
	improved, err := e.llm.Chat(ctx, reflectionSystemPrompt, input, nil)
	if err != nil {
		// Reflection is best effort; the draft still stands.
		e.logger.Warn("[REFLECTION] refine failed, keeping draft: %v", err)
		return s, nil
	}
	switch s.Pending.Kind() {
	case KindTable:
		s.Pending = TableResult{Markdown: improved}
	default:
		s.Pending = TextResult{Text: improved}
	}
	return s, nil
}

// explainer composes the final answer from the partial results and
// appends the source references.
func (e *Engine) explainer(ctx context.Context, s QAState) (QAState, error) {
	var b strings.Builder
	b.WriteString("최종 답변:\n\n")

	if text, ok := s.Partials[KindText]; ok {
		b.WriteString(text.Answer())
		b.WriteString("\n")
	}
	if table, ok := s.Partials[KindTable]; ok {
		if _, hasText := s.Partials[KindText]; hasText {
			b.WriteString("\n")
		}
		b.WriteString(table.Answer())
		b.WriteString("\n")
	}
	if len(s.Partials) == 0 {
		b.WriteString("제공된 자료에서 답변을 생성하지 못했습니다.\n")
	}

	if refs := references(s.Candidates); len(refs) > 0 {
		b.WriteString("\n참고 문서:\n")
		for i, ref := range refs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
		}
	}

	s.Final = strings.TrimRight(b.String(), "\n")
	return s, nil
}

// references lists the distinct source files behind the candidates, with
// the first page each contributed.
func references(chunks []docstore.Chunk) []string {
	firstPage := make(map[string]int)
	for _, c := range chunks {
		if _, ok := firstPage[c.Filename]; !ok {
			firstPage[c.Filename] = c.Page
		}
	}
	refs := make([]string, 0, len(firstPage))
	for name, page := range firstPage {
		refs = append(refs, fmt.Sprintf("%s (p.%d)", name, page))
	}
	sort.Strings(refs)
	return refs
}
