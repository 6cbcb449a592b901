package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/rag/docstore"
	"github.com/zongseung/energyrag/rag/llm"
)

type stubLLM struct {
	answers []string
	chatErr map[int]error // 0-based chat call index -> error
	embeds  int
	chats   int
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	s.embeds++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubLLM) Chat(ctx context.Context, system, user string, history []llm.Message) (string, error) {
	idx := s.chats
	s.chats++
	if err, ok := s.chatErr[idx]; ok {
		return "", err
	}
	if idx < len(s.answers) {
		return s.answers[idx], nil
	}
	return "stub answer", nil
}

type stubSearcher struct {
	chunks     []docstore.Chunk
	tables     []docstore.Chunk
	calls      int
	tableCalls int
}

func (s *stubSearcher) Search(ctx context.Context, category string, embedding []float32, k int) ([]docstore.Chunk, error) {
	s.calls++
	return s.chunks, nil
}

func (s *stubSearcher) LoadByFilenames(ctx context.Context, category string, filenames []string) ([]docstore.Chunk, error) {
	s.tableCalls++
	return s.tables, nil
}

func testChunks() []docstore.Chunk {
	return []docstore.Chunk{
		{Content: "국제 유가는 2025년 상반기 반등 전망", Page: 3, Filename: "(2025-01-02) Report - X Corp.pdf", ChunkType: "text"},
		{Content: "| 연도 | 설치량 |", Page: 7, Filename: "(2025-02-10) Outlook - Y Corp.pdf", ChunkType: "table"},
	}
}

func TestRouteForQuery(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"태양광 효율 전망은?", RouteRenewable},
		{"풍력 발전 보급 현황", RouteRenewable},
		{"원유 가격 전망", RouteText},
		{"태양광과 석유 시장 비교", RouteText}, // mixed goes to prose
		{"에너지 정책 동향 정리해줘", RouteText},
		{"안녕하세요", RouteText},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, routeForQuery(tc.query), "query %q", tc.query)
	}
}

func TestAnswerTextRouteTerminates(t *testing.T) {
	client := &stubLLM{answers: []string{"유가는 반등 전망입니다 [S1]", "유가는 반등 전망입니다 [S1]"}}
	store := &stubSearcher{chunks: testChunks()}
	engine := NewEngine(client, store, nil)

	final, err := engine.Answer(context.Background(), "원유 가격 전망", nil)
	require.NoError(t, err)

	assert.Contains(t, final, "최종 답변:")
	assert.Contains(t, final, "유가는 반등 전망입니다 [S1]")
	assert.Contains(t, final, "참고 문서:")
	assert.Contains(t, final, "1. (2025-01-02) Report - X Corp.pdf (p.3)")
	assert.Contains(t, final, "2. (2025-02-10) Outlook - Y Corp.pdf (p.7)")

	// One agent pass plus one reflection pass; the second supervisor
	// visit sees the text kind answered and ends the run.
	assert.Equal(t, 2, client.chats)
	assert.Equal(t, 1, client.embeds)
	assert.Equal(t, 1, store.calls)
}

func TestAnswerRenewableRoute(t *testing.T) {
	client := &stubLLM{answers: []string{"| 연도 | 설치량 |", "| 연도 | 설치량 |"}}
	store := &stubSearcher{
		chunks: testChunks(),
		tables: []docstore.Chunk{{Content: "| 2024 | 4.1GW |", Page: 7, Filename: "(2025-02-10) Outlook - Y Corp.pdf", ChunkType: "table"}},
	}
	engine := NewEngine(client, store, nil)

	final, err := engine.Answer(context.Background(), "태양광 설치 전망", nil)
	require.NoError(t, err)
	assert.Contains(t, final, "| 연도 | 설치량 |")
	assert.Equal(t, 2, client.chats)
	// The renewable agent pulls the table chunks behind the candidates.
	assert.Equal(t, 1, store.tableCalls)
}

func TestReflectionFailureKeepsDraft(t *testing.T) {
	client := &stubLLM{
		answers: []string{"초안 답변 [S1]"},
		chatErr: map[int]error{1: errors.New("model unavailable")},
	}
	engine := NewEngine(client, &stubSearcher{chunks: testChunks()}, nil)

	final, err := engine.Answer(context.Background(), "원유 가격 전망", nil)
	require.NoError(t, err)
	assert.Contains(t, final, "초안 답변 [S1]")
}

func TestSupervisorFoldsPendingResult(t *testing.T) {
	engine := NewEngine(&stubLLM{}, &stubSearcher{}, nil)
	s := QAState{
		Query:    "원유 가격 전망",
		Partials: map[string]Result{},
		Pending:  TextResult{Text: "draft"},
	}

	out, err := engine.supervisor(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, out.Pending)
	require.Contains(t, out.Partials, KindText)
	assert.Equal(t, "draft", out.Partials[KindText].Answer())
	// The text kind is answered, so asking again would be pointless.
	assert.Equal(t, RouteDone, out.Route)
}

func TestSupervisorDoneWhenAllKindsAnswered(t *testing.T) {
	engine := NewEngine(&stubLLM{}, &stubSearcher{}, nil)
	s := QAState{
		Query: "태양광 전망",
		Partials: map[string]Result{
			KindText:  TextResult{Text: "prose"},
			KindTable: TableResult{Markdown: "| t |"},
		},
	}

	out, err := engine.supervisor(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, RouteDone, out.Route)
}

func TestExplainerComposesBothKinds(t *testing.T) {
	engine := NewEngine(&stubLLM{}, &stubSearcher{}, nil)
	s := QAState{
		Candidates: testChunks(),
		Partials: map[string]Result{
			KindText:  TextResult{Text: "산업 동향 요약"},
			KindTable: TableResult{Markdown: "| 연도 | 용량 |"},
		},
	}

	out, err := engine.explainer(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.Final, "산업 동향 요약")
	assert.Contains(t, out.Final, "| 연도 | 용량 |")
	assert.Less(t,
		strings.Index(out.Final, "산업 동향 요약"),
		strings.Index(out.Final, "| 연도 | 용량 |"),
		"prose comes before the table")
}

func TestExplainerWithoutPartials(t *testing.T) {
	engine := NewEngine(&stubLLM{}, &stubSearcher{}, nil)

	out, err := engine.explainer(context.Background(), QAState{})
	require.NoError(t, err)
	assert.Contains(t, out.Final, "답변을 생성하지 못했습니다")
}
