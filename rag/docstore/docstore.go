// Package docstore persists document chunks and their embeddings in
// PostgreSQL with pgvector, and serves similarity search for retrieval.
package docstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zongseung/energyrag/log"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Chunk is one retrievable unit of a source document.
type Chunk struct {
	Content   string
	Page      int
	Filename  string
	ChunkType string // "text" or "table"
}

// Store wraps the documents table.
type Store struct {
	pool   DBPool
	logger log.Logger
}

// New connects a pool to the given DSN.
func New(ctx context.Context, dsn string, logger log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// NewWithPool creates a store over an existing pool. Useful for testing
// with mocks.
func NewWithPool(pool DBPool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the documents table and its indexes if missing.
// dim is the embedding dimensionality.
func (s *Store) InitSchema(ctx context.Context, dim int) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			category TEXT NOT NULL,
			filename TEXT NOT NULL,
			page INTEGER NOT NULL DEFAULT 0,
			chunk_type TEXT NOT NULL DEFAULT 'text',
			content TEXT NOT NULL,
			embedding vector(%d)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (category);
		CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents (filename);
	`, dim)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Search returns the k chunks nearest to the query embedding within one
// category, ordered by cosine distance.
func (s *Store) Search(ctx context.Context, category string, embedding []float32, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	query := `
		SELECT content, page, filename, chunk_type
		FROM documents
		WHERE category = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, category, VectorLiteral(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Content, &c.Page, &c.Filename, &c.ChunkType); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}
	return chunks, nil
}

// LoadByFilenames returns all table chunks of the named files, for
// answers that need the full structured rows rather than the nearest
// fragments.
func (s *Store) LoadByFilenames(ctx context.Context, category string, filenames []string) ([]Chunk, error) {
	if len(filenames) == 0 {
		return nil, nil
	}

	query := `
		SELECT content, page, filename, chunk_type
		FROM documents
		WHERE category = $1 AND chunk_type = 'table' AND filename = ANY($2)
		ORDER BY filename, page
	`
	rows, err := s.pool.Query(ctx, query, category, filenames)
	if err != nil {
		return nil, fmt.Errorf("load by filename: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Content, &c.Page, &c.Filename, &c.ChunkType); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}
	return chunks, nil
}

// HasFile reports whether any chunk of the file is already stored;
// ingestion uses it to stay idempotent.
func (s *Store) HasFile(ctx context.Context, category, filename string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE category = $1 AND filename = $2)`,
		category, filename,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("file lookup: %w", err)
	}
	return exists, nil
}

// InsertChunks writes one document's chunks with their embeddings.
func (s *Store) InsertChunks(ctx context.Context, category string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings must have same length")
	}

	query := `
		INSERT INTO documents (category, filename, page, chunk_type, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6::vector)
	`
	for i, c := range chunks {
		_, err := s.pool.Exec(ctx, query,
			category, c.Filename, c.Page, c.ChunkType, c.Content, VectorLiteral(embeddings[i]))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w", i, c.Filename, err)
		}
	}
	if s.logger != nil {
		s.logger.Info("[DOCSTORE] inserted %d chunks", len(chunks))
	}
	return nil
}

// VectorLiteral renders an embedding in pgvector's input syntax.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
