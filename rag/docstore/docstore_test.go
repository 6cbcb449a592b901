package docstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/log"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock, &log.NoOpLogger{}), mock
}

func TestSearchReturnsNearestChunks(t *testing.T) {
	store, mock := newMockStore(t)
	embedding := []float32{0.25, -1, 0.5}

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $2::vector")).
		WithArgs("NAVER", "[0.25,-1,0.5]", 8).
		WillReturnRows(pgxmock.NewRows([]string{"content", "page", "filename", "chunk_type"}).
			AddRow("2025년 태양광 설치 전망", 3, "(2025-01-02) Report - X Corp.pdf", "text").
			AddRow("| 연도 | 용량 |", 5, "(2025-01-02) Report - X Corp.pdf", "table"))

	chunks, err := store.Search(context.Background(), "NAVER", embedding, 8)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "2025년 태양광 설치 전망", chunks[0].Content)
	assert.Equal(t, 3, chunks[0].Page)
	assert.Equal(t, "table", chunks[1].ChunkType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRejectsNonPositiveK(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.Search(context.Background(), "NAVER", []float32{1}, 0)
	assert.ErrorContains(t, err, "k must be positive")
}

func TestHasFile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("NAVER", "report.pdf").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.HasFile(context.Background(), "NAVER", "report.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertChunks(t *testing.T) {
	store, mock := newMockStore(t)
	chunks := []Chunk{
		{Content: "chunk one", Page: 1, Filename: "r.pdf", ChunkType: "text"},
		{Content: "chunk two", Page: 2, Filename: "r.pdf", ChunkType: "text"},
	}
	embeddings := [][]float32{{0.1}, {0.2}}

	for i := range chunks {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
			WithArgs("NAVER", "r.pdf", chunks[i].Page, "text", chunks[i].Content, VectorLiteral(embeddings[i])).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.InsertChunks(context.Background(), "NAVER", chunks, embeddings))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertChunksLengthMismatch(t *testing.T) {
	store, _ := newMockStore(t)
	err := store.InsertChunks(context.Background(), "NAVER", []Chunk{{}}, nil)
	assert.ErrorContains(t, err, "same length")
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,-0.5,0]", VectorLiteral([]float32{1, -0.5, 0}))
	assert.Equal(t, "[]", VectorLiteral(nil))
}
