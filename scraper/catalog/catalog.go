// Package catalog records artifact metadata, deduplicated by origin URL.
package catalog

import (
	"context"
	"sync"

	"github.com/zongseung/energyrag/scraper"
)

// Catalog stores one metadata record per artifact. Insert is idempotent
// on the PDF URL: inserting an already-known URL is a no-op.
type Catalog interface {
	Insert(ctx context.Context, meta scraper.Metadata) error
}

// Memory is an in-process catalog, used in tests and as the degraded
// mode when no Mongo URI is configured.
type Memory struct {
	mu      sync.Mutex
	records map[string]scraper.Metadata
}

var _ Catalog = (*Memory)(nil)

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]scraper.Metadata)}
}

// Insert records the metadata unless the URL is already known.
func (m *Memory) Insert(ctx context.Context, meta scraper.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[meta.PDFURL]; ok {
		return nil
	}
	m.records[meta.PDFURL] = meta
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Get returns the record for a URL, if present.
func (m *Memory) Get(url string) (scraper.Metadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.records[url]
	return meta, ok
}
