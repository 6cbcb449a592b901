// Package ingest loads collected PDF reports into the document store:
// extract text per page, split it into chunks, embed each chunk and
// insert the batch. Ingestion is idempotent per file.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/rag/docstore"
)

const (
	chunkSize    = 800
	chunkOverlap = 120
)

// Embedder produces embedding vectors for chunk contents.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence surface the ingestor writes to.
type Store interface {
	HasFile(ctx context.Context, category, filename string) (bool, error)
	InsertChunks(ctx context.Context, category string, chunks []docstore.Chunk, embeddings [][]float32) error
}

// Ingestor turns PDF files into embedded document chunks.
type Ingestor struct {
	embedder Embedder
	store    Store
	logger   log.Logger
	splitter textsplitter.RecursiveCharacter
}

// New creates an ingestor.
func New(embedder Embedder, store Store, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Ingestor{
		embedder: embedder,
		store:    store,
		logger:   logger,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// IngestFile loads one PDF. Files already present in the store are
// skipped.
func (g *Ingestor) IngestFile(ctx context.Context, path, category string) error {
	filename := filepath.Base(path)

	exists, err := g.store.HasFile(ctx, category, filename)
	if err != nil {
		return err
	}
	if exists {
		g.logger.Info("[INGEST] already ingested, skipping: %s", filename)
		return nil
	}

	pages, err := extractPages(path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", filename, err)
	}

	chunks, err := g.chunkPages(filename, pages)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		g.logger.Warn("[INGEST] no extractable text: %s", filename)
		return nil
	}

	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		if embeddings[i], err = g.embedder.Embed(ctx, c.Content); err != nil {
			return fmt.Errorf("embed chunk %d of %s: %w", i, filename, err)
		}
	}

	if err := g.store.InsertChunks(ctx, category, chunks, embeddings); err != nil {
		return err
	}
	g.logger.Info("[INGEST] %s: %d chunks", filename, len(chunks))
	return nil
}

// IngestDir loads every PDF in the directory. Per-file failures are
// logged and counted, not fatal.
func (g *Ingestor) IngestDir(ctx context.Context, dir, category string) (ingested, failed int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ingested, failed, err
		}
		if err := g.IngestFile(ctx, filepath.Join(dir, entry.Name()), category); err != nil {
			failed++
			g.logger.Error("[INGEST] %s failed: %v", entry.Name(), err)
			continue
		}
		ingested++
	}
	return ingested, failed, nil
}

// chunkPages splits each page's prose into overlapping chunks and keeps
// table-looking blocks whole as table chunks.
func (g *Ingestor) chunkPages(filename string, pages []string) ([]docstore.Chunk, error) {
	var chunks []docstore.Chunk
	for i, page := range pages {
		pageNo := i + 1
		tables, prose := splitTables(page)

		for _, table := range tables {
			chunks = append(chunks, docstore.Chunk{
				Content:   table,
				Page:      pageNo,
				Filename:  filename,
				ChunkType: "table",
			})
		}

		if strings.TrimSpace(prose) == "" {
			continue
		}
		parts, err := g.splitter.SplitText(prose)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, docstore.Chunk{
				Content:   part,
				Page:      pageNo,
				Filename:  filename,
				ChunkType: "text",
			})
		}
	}
	return chunks, nil
}

// splitTables separates markdown-style table blocks (two or more
// consecutive lines with at least two column separators) from prose.
func splitTables(text string) (tables []string, prose string) {
	lines := strings.Split(text, "\n")
	var proseLines, block []string

	flush := func() {
		if len(block) >= 2 {
			tables = append(tables, strings.Join(block, "\n"))
		} else {
			proseLines = append(proseLines, block...)
		}
		block = nil
	}

	for _, line := range lines {
		if strings.Count(line, "|") >= 2 {
			block = append(block, line)
			continue
		}
		flush()
		proseLines = append(proseLines, line)
	}
	flush()

	return tables, strings.Join(proseLines, "\n")
}

// extractPages reads the plain text of each page.
func extractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the file.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
