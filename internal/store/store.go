// Package store defines the vector store boundary: a key-value store with
// upsert-by-id and nearest-neighbor search, safe under concurrent writers
// (last writer wins per id).
package store

import "context"

// Record - единица хранения: чанк с вектором и метаданными
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// Hit is one retrieval result, most similar first.
type Hit struct {
	ID         string
	Text       string
	Metadata   map[string]string
	Similarity float32
}

type Store interface {
	// Upsert writes the whole batch or none of it; an existing record with
	// the same id is overwritten, never duplicated.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k records ordered by descending similarity.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)

	Count() int
}
