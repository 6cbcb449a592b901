package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/rag/docstore"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return []float32{0.1, 0.2}, nil
}

type stubStore struct {
	existing map[string]bool
	inserted []docstore.Chunk
}

func (s *stubStore) HasFile(ctx context.Context, category, filename string) (bool, error) {
	return s.existing[filename], nil
}

func (s *stubStore) InsertChunks(ctx context.Context, category string, chunks []docstore.Chunk, embeddings [][]float32) error {
	s.inserted = append(s.inserted, chunks...)
	return nil
}

func TestSplitTablesSeparatesBlocks(t *testing.T) {
	text := "시장 개요 설명입니다.\n" +
		"| 연도 | 설치량 |\n" +
		"| 2024 | 3.2GW |\n" +
		"| 2025 | 4.1GW |\n" +
		"추가 설명 문단입니다.\n"

	tables, prose := splitTables(text)
	require.Len(t, tables, 1)
	assert.Contains(t, tables[0], "| 2025 | 4.1GW |")
	assert.Contains(t, prose, "시장 개요 설명입니다.")
	assert.Contains(t, prose, "추가 설명 문단입니다.")
	assert.NotContains(t, prose, "3.2GW")
}

func TestSplitTablesSingleLineStaysProse(t *testing.T) {
	tables, prose := splitTables("본문 | 구분자 | 포함 한 줄\n다음 줄")
	assert.Empty(t, tables)
	assert.Contains(t, prose, "구분자")
}

func TestChunkPagesRecordsPageNumbers(t *testing.T) {
	g := New(&stubEmbedder{}, &stubStore{}, nil)

	pages := []string{
		"첫 페이지 본문입니다.",
		"| a | b |\n| 1 | 2 |",
		"",
		strings.Repeat("긴 본문 문단. ", 200),
	}
	chunks, err := g.chunkPages("r.pdf", pages)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "text", chunks[0].ChunkType)

	var sawTable bool
	var lastPageChunks int
	for _, c := range chunks {
		assert.Equal(t, "r.pdf", c.Filename)
		if c.ChunkType == "table" {
			sawTable = true
			assert.Equal(t, 2, c.Page)
		}
		assert.NotEqual(t, 3, c.Page, "empty pages yield no chunks")
		if c.Page == 4 {
			lastPageChunks++
			assert.LessOrEqual(t, len([]rune(c.Content)), chunkSize+chunkOverlap)
		}
	}
	assert.True(t, sawTable)
	assert.Greater(t, lastPageChunks, 1, "long pages split into multiple chunks")
}

func TestIngestFileSkipsExisting(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &stubStore{existing: map[string]bool{"done.pdf": true}}
	g := New(embedder, store, nil)

	require.NoError(t, g.IngestFile(context.Background(), "/data/done.pdf", "NAVER"))
	assert.Zero(t, embedder.calls)
	assert.Empty(t, store.inserted)
}
