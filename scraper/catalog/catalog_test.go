package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/scraper"
)

func TestMemoryInsertIsIdempotent(t *testing.T) {
	cat := NewMemory()
	ctx := context.Background()

	meta := scraper.Metadata{
		Source:    "naver_research",
		Title:     "Report",
		PDFURL:    "https://x/a1.pdf",
		LocalPath: "/downloads/(2025-01-02) Report - X Corp.pdf",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, cat.Insert(ctx, meta))
	require.NoError(t, cat.Insert(ctx, meta))

	assert.Equal(t, 1, cat.Len())

	// A later insert with the same URL but different title is still a no-op.
	changed := meta
	changed.Title = "Report v2"
	require.NoError(t, cat.Insert(ctx, changed))
	assert.Equal(t, 1, cat.Len())

	stored, ok := cat.Get("https://x/a1.pdf")
	require.True(t, ok)
	assert.Equal(t, "Report", stored.Title)
}

func TestMemoryDistinctURLs(t *testing.T) {
	cat := NewMemory()
	ctx := context.Background()

	require.NoError(t, cat.Insert(ctx, scraper.Metadata{PDFURL: "https://x/a1.pdf"}))
	require.NoError(t, cat.Insert(ctx, scraper.Metadata{PDFURL: "https://x/a2.pdf"}))
	assert.Equal(t, 2, cat.Len())
}
