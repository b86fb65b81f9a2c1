package app

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult - результат векторного поиска
type SearchResult struct {
	Content    string
	Source     string
	Section    string
	Title      string
	Similarity float32
}

// searchRelevantChunks ищет релевантные чанки в коллекции
func (a *App) searchRelevantChunks(ctx context.Context, queryText string) ([]SearchResult, error) {
	vectors, err := a.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := a.store.Query(ctx, vectors[0], a.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	// Фильтруем по similarity и преобразуем
	var results []SearchResult
	for _, h := range hits {
		if h.Similarity < a.cfg.MinSimilarity {
			continue
		}

		results = append(results, SearchResult{
			Content:    h.Text,
			Source:     h.Metadata["source"],
			Section:    h.Metadata["section_kind"],
			Title:      h.Metadata["title"],
			Similarity: h.Similarity,
		})
	}

	return results, nil
}

const perDocLimit = 5000

// buildContext собирает контекст для LLM с контролем размера.
// Each chunk is capped at perDocLimit chars and the whole context at
// MaxContextChars; at least one document is always included.
func (a *App) buildContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No relevant context found in the database."
	}

	var buf strings.Builder
	included := 0

	for i, r := range results {
		text := r.Content
		if len(text) > perDocLimit {
			text = text[:perDocLimit] + "... [truncated]"
		}

		entry := fmt.Sprintf("[Document %d] (Source: %s, Section: %s)\n%s", i+1, r.Source, r.Section, text)

		// Первый документ включаем всегда, пусть и с обрезкой
		if buf.Len()+len(entry) > a.cfg.MaxContextChars {
			if included == 0 {
				remaining := a.cfg.MaxContextChars - buf.Len() - 200
				if remaining > 0 && remaining < len(entry) {
					entry = entry[:remaining] + "... [truncated]"
				}
				buf.WriteString(entry)
				included++
			}
			break
		}

		if included > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(entry)
		included++
	}

	if included < len(results) {
		buf.WriteString(fmt.Sprintf("\n\n[Note: Showing %d of %d retrieved documents due to size limits]", included, len(results)))
	}

	return buf.String()
}
