package store

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// Chromem backs the Store interface with an embedded chromem-go collection.
type Chromem struct {
	coll *chromem.Collection
}

func NewChromem(coll *chromem.Collection) *Chromem {
	return &Chromem{coll: coll}
}

func (s *Chromem) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	// Validate the whole batch before touching the collection so a bad
	// record cannot leave a document half-committed.
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if r.ID == "" || r.Text == "" || len(r.Embedding) == 0 {
			return fmt.Errorf("invalid record (id=%q): id, text and embedding are required", r.ID)
		}
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Embedding: r.Embedding,
			Metadata:  r.Metadata,
		})
	}

	return s.coll.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *Chromem) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if n := s.coll.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.coll.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			ID:         r.ID,
			Text:       r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

func (s *Chromem) Count() int {
	return s.coll.Count()
}
