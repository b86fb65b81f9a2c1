package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"paperbase/internal/chunker"
	"paperbase/internal/ingest"
	"paperbase/internal/store"
)

// IngestionReport - итог обработки одного документа
type IngestionReport struct {
	Source        string
	Title         string
	Sections      map[string]string // вид секции -> стратегия извлечения
	LowConfidence bool
	Chunks        int
	Skipped       bool
	Err           error
}

// IngestStats aggregates reports over a batch of documents.
type IngestStats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Chunks    int
}

// IngestDocument прогоняет документ через pipeline:
// normalize -> extract -> chunk -> derive id -> embed -> upsert.
// Either the whole document lands in the store or nothing does; a failed
// embedding or upsert leaves zero chunks committed for this document.
func (a *App) IngestDocument(ctx context.Context, doc ingest.Document) IngestionReport {
	rep := IngestionReport{Source: doc.Source, Title: doc.Title, Sections: make(map[string]string)}

	if strings.TrimSpace(doc.Text) == "" {
		rep.Err = fmt.Errorf("empty or unreadable document text")
		return rep
	}

	var chunks []chunker.Chunk

	// Явно заданный CHUNK_METHOD обходит секционный pipeline для любого
	// источника; markdown со структурой режем по заголовкам goldmark'ом
	ext := strings.ToLower(filepath.Ext(doc.Source))
	if a.cfg.ChunkMethod != "" || ext == ".md" || ext == ".markdown" {
		var chunkr chunker.Chunker
		var err error
		if a.cfg.ChunkMethod != "" {
			chunkr, err = a.factory.GetChunkerByMethod(a.cfg.ChunkMethod)
		} else {
			chunkr, err = a.factory.GetChunker(doc.Source, "")
		}
		if err != nil {
			log.Printf("⚠️  %v, falling back to section pipeline", err)
		} else if c, cerr := chunkr.Chunk(doc.Text, doc.Source); cerr != nil {
			log.Printf("⚠️  Chunker failed: %v, falling back to section pipeline", cerr)
		} else {
			chunks = c
		}
	}

	if chunks == nil {
		normalized := ingest.Normalize(doc.Text)
		if normalized == "" {
			rep.Err = fmt.Errorf("document is empty after normalization")
			return rep
		}

		sections := a.extractor.Extract(normalized)
		for kind, sec := range sections {
			rep.Sections[string(kind)] = sec.Strategy.String()
			if !sec.Confident() {
				rep.LowConfidence = true
			}
		}
		if title, ok := sections[ingest.KindTitle]; ok && rep.Title == "" {
			rep.Title = title.Text
		}

		chunks = a.chunker.ChunkSections(sections, doc.Source)
	}

	if rep.Title == "" {
		rep.Title = filepath.Base(doc.Source)
	}
	if len(chunks) == 0 {
		rep.Err = fmt.Errorf("no chunks produced")
		return rep
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	// Один batch embed на документ
	vectors, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		rep.Err = fmt.Errorf("embedding failed: %w", err)
		return rep
	}
	if len(vectors) != len(chunks) {
		rep.Err = fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		return rep
	}

	records := make([]store.Record, len(chunks))
	for i, ch := range chunks {
		meta := map[string]string{
			"source":       ch.Source,
			"title":        rep.Title,
			"section_kind": string(ch.Section),
			"chunk_index":  strconv.Itoa(ch.Index),
		}
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		records[i] = store.Record{ID: ch.ID, Embedding: vectors[i], Text: ch.Text, Metadata: meta}
	}

	if err := a.store.Upsert(ctx, records); err != nil {
		rep.Err = fmt.Errorf("store upsert failed: %w", err)
		return rep
	}

	rep.Chunks = len(chunks)
	return rep
}

// IngestPath обрабатывает локальный файл (pdf, md, txt)
func (a *App) IngestPath(ctx context.Context, path string) IngestionReport {
	info, err := os.Stat(path)
	if err != nil {
		return IngestionReport{Source: path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}

	// Пропускаем неизменённые файлы
	a.mu.Lock()
	prev, known := a.metadata.Files[path]
	a.mu.Unlock()
	if known && !a.cfg.ForceReindex && prev.LastModified.Equal(info.ModTime()) && prev.Size == info.Size() {
		return IngestionReport{Source: path, Skipped: true}
	}

	doc, err := ingest.ReadFile(path)
	if err != nil {
		return IngestionReport{Source: path, Err: err}
	}

	rep := a.IngestDocument(ctx, doc)
	if rep.Err == nil {
		a.mu.Lock()
		a.metadata.Files[path] = FileInfo{
			Path:         path,
			LastModified: info.ModTime(),
			Size:         info.Size(),
			Chunks:       rep.Chunks,
		}
		a.mu.Unlock()
	}
	return rep
}

// IngestURL обрабатывает веб-страницу
func (a *App) IngestURL(ctx context.Context, rawURL string) IngestionReport {
	doc, err := ingest.FetchURL(ctx, rawURL)
	if err != nil {
		return IngestionReport{Source: rawURL, Err: err}
	}
	return a.IngestDocument(ctx, doc)
}

// IngestAll processes documents independently with bounded concurrency.
// Documents share no mutable state; chunk ids are content-derived, so two
// workers ingesting the same document converge to the same stored state.
func (a *App) IngestAll(ctx context.Context, sources []string) IngestStats {
	sem := make(chan struct{}, a.cfg.MaxConcurrency)
	var wg sync.WaitGroup
	reports := make([]IngestionReport, len(sources))

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, source string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			var rep IngestionReport
			if isURL(source) {
				rep = a.IngestURL(ctx, source)
			} else {
				rep = a.IngestPath(ctx, source)
			}
			reports[idx] = rep

			switch {
			case rep.Err != nil:
				log.Printf("❌ [%d/%d] %s: %v", idx+1, len(sources), source, rep.Err)
			case rep.Skipped:
				log.Printf("⏭️  [%d/%d] Skipping unchanged file: %s", idx+1, len(sources), source)
			case rep.LowConfidence:
				log.Printf("⚠️  [%d/%d] %s: %d chunks, low-confidence sections (%s)", idx+1, len(sources), source, rep.Chunks, formatSections(rep))
			default:
				log.Printf("✅ [%d/%d] %s: %d chunks (%s)", idx+1, len(sources), source, rep.Chunks, formatSections(rep))
			}
		}(i, src)
	}

	wg.Wait()

	stats := IngestStats{Total: len(sources)}
	for _, rep := range reports {
		switch {
		case rep.Skipped:
			stats.Skipped++
		case rep.Err != nil:
			stats.Failed++
		default:
			stats.Succeeded++
			stats.Chunks += rep.Chunks
		}
	}

	if stats.Succeeded > 0 {
		if err := a.saveMetadata(); err != nil {
			log.Printf("⚠️  Failed to save metadata: %v", err)
		}
		if err := a.saveDB(); err != nil {
			log.Printf("⚠️  Failed to save vector database: %v", err)
		}
	}

	log.Printf("📊 Summary:")
	log.Printf("   Total documents: %d", stats.Total)
	log.Printf("   ✅ Ingested: %d (%d chunks)", stats.Succeeded, stats.Chunks)
	log.Printf("   ⏭️  Skipped: %d", stats.Skipped)
	log.Printf("   ❌ Errors: %d", stats.Failed)
	log.Printf("   📦 Records in store: %d", a.store.Count())

	return stats
}

func formatSections(rep IngestionReport) string {
	if len(rep.Sections) == 0 {
		return "markdown headings"
	}
	parts := make([]string, 0, len(rep.Sections))
	for _, kind := range ingest.KindOrder {
		if strat, ok := rep.Sections[string(kind)]; ok {
			parts = append(parts, fmt.Sprintf("%s/%s", kind, strat))
		}
	}
	return strings.Join(parts, ", ")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
