package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/internal/chunker"
	"paperbase/internal/config"
	"paperbase/internal/embed"
	"paperbase/internal/ingest"
	"paperbase/internal/store"
)

// fakeStore накапливает записи в памяти; last writer wins по id
type fakeStore struct {
	mu      sync.Mutex
	records map[string]store.Record
	upserts int // количество batch-вызовов Upsert
	fail    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]store.Record)}
}

func (f *fakeStore) Upsert(ctx context.Context, records []store.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.fail {
		return errors.New("store unavailable")
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, k int) ([]store.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []store.Hit
	for _, r := range f.records {
		hits = append(hits, store.Hit{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Similarity: 1})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeStore) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func fakeEmbedder() embed.Embedder {
	return embed.Func(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{float32(len(text)), 1}, nil
	})
}

func failingEmbedder() embed.Embedder {
	return embed.Func(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model offline")
	})
}

func newTestApp(st store.Store, emb embed.Embedder) *App {
	cfg := &config.Config{
		ChunkSize:       1500,
		MinChunk:        64,
		TopK:            5,
		MaxContextChars: 30000,
		MaxConcurrency:  2,
	}
	chunkCfg := chunker.Config{MaxChunkSize: cfg.ChunkSize, MinChunkSize: cfg.MinChunk}
	var fn chromem.EmbeddingFunc = func(ctx context.Context, text string) ([]float32, error) {
		v, err := emb.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return v[0], nil
	}
	return &App{
		cfg:           cfg,
		metadata:      &Metadata{Files: make(map[string]FileInfo)},
		extractor:     ingest.NewExtractor(),
		chunker:       chunker.NewSectionChunker(chunkCfg),
		factory:       chunker.NewFactory(chunkCfg),
		embedder:      emb,
		embeddingFunc: fn,
		store:         st,
	}
}

func TestIngestDocumentNumberedHeadings(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "I. INTRODUCTION\nDeep learning is powerful.\nII. CONCLUSION\nWe showed results.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)
	assert.Equal(t, 2, rep.Chunks)
	assert.Equal(t, 2, st.Count())
	// Весь документ уходит в store одним batch'ем
	assert.Equal(t, 1, st.upserts)

	sections := make(map[string]bool)
	for _, r := range st.records {
		sections[r.Metadata["section_kind"]] = true
		assert.Equal(t, "0", r.Metadata["chunk_index"])
		assert.Equal(t, "paper.txt", r.Metadata["source"])
	}
	assert.True(t, sections["introduction"])
	assert.True(t, sections["conclusion"])
}

func TestIngestDocumentIdempotent(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "I. INTRODUCTION\nDeep learning is powerful.\nII. CONCLUSION\nWe showed results.",
	}

	rep1 := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep1.Err)
	first := st.ids()

	rep2 := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep2.Err)

	// Повторная обработка даёт те же id - upsert, не дубли
	assert.Equal(t, first, st.ids())
	assert.Equal(t, rep1.Chunks, rep2.Chunks)
}

func TestIngestDocumentEmbedFailureLeavesStoreEmpty(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, failingEmbedder())

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nSome opening text.\nConclusion\nSome closing text.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.Error(t, rep.Err)
	assert.Equal(t, 0, st.Count())
}

func TestIngestDocumentStoreFailureReported(t *testing.T) {
	st := newFakeStore()
	st.fail = true
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nSome opening text.\nConclusion\nSome closing text.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.Error(t, rep.Err)
	assert.Contains(t, rep.Err.Error(), "upsert")
}

func TestIngestDocumentEmptyText(t *testing.T) {
	a := newTestApp(newFakeStore(), fakeEmbedder())

	rep := a.IngestDocument(context.Background(), ingest.Document{Source: "empty.txt", Text: "   "})
	require.Error(t, rep.Err)
}

func TestIngestDocumentMetadata(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "study.txt",
		Text: "A Study of Retrieval Pipelines\n\n" +
			"Abstract\nWe evaluate chunking for retrieval over scientific text.\n\n" +
			"Introduction\nRetrieval pipelines need reliable chunk boundaries.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)
	assert.Equal(t, "A Study of Retrieval Pipelines", rep.Title)

	for _, r := range st.records {
		assert.Equal(t, "study.txt", r.Metadata["source"])
		assert.Equal(t, "A Study of Retrieval Pipelines", r.Metadata["title"])
		assert.NotEmpty(t, r.Metadata["section_kind"])
		assert.NotEmpty(t, r.Metadata["chunk_index"])
		assert.NotEmpty(t, r.Metadata["strategy"])
	}
}

func TestIngestDocumentMarkdownHeadings(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "notes.md",
		Text: "# Guide\n\n" +
			"## Setup\n\nInstall the binary and configure paths.\n\n" +
			"## Usage\n\nRun the indexer over your documents.\n\n" +
			"## Troubleshooting\n\nCheck the logs when ingestion fails.\n",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)
	assert.Greater(t, rep.Chunks, 1)

	headings := make(map[string]bool)
	for _, r := range st.records {
		headings[r.Metadata["heading"]] = true
	}
	assert.True(t, headings["Setup"])
	assert.True(t, headings["Usage"])
}

func TestIngestDocumentExplicitChunkMethod(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())
	a.cfg.ChunkMethod = "simple"

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nOpening text of the study.\nConclusion\nClosing text of the study.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)
	require.Greater(t, rep.Chunks, 0)

	// Явно заданный метод обходит извлечение секций: всё уходит в body
	assert.Empty(t, rep.Sections)
	for _, r := range st.records {
		assert.Equal(t, "body", r.Metadata["section_kind"])
	}
}

func TestIngestPathSkipsUnchangedFile(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	path := filepath.Join(t.TempDir(), "paper.txt")
	content := "I. INTRODUCTION\nDeep learning is powerful.\nII. CONCLUSION\nWe showed results."
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rep := a.IngestPath(context.Background(), path)
	require.NoError(t, rep.Err)
	assert.False(t, rep.Skipped)
	assert.Equal(t, 1, st.upserts)
	first := st.ids()

	info, ok := a.metadata.Files[path]
	require.True(t, ok)
	assert.Equal(t, rep.Chunks, info.Chunks)

	// Неизменённый файл пропускается, store не трогается
	rep2 := a.IngestPath(context.Background(), path)
	require.NoError(t, rep2.Err)
	assert.True(t, rep2.Skipped)
	assert.Equal(t, 1, st.upserts)
	assert.Equal(t, first, st.ids())
}

func TestIngestPathChangedFileReingested(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	path := filepath.Join(t.TempDir(), "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("Introduction\nFirst draft of the text."), 0644))

	rep := a.IngestPath(context.Background(), path)
	require.NoError(t, rep.Err)
	first := st.ids()

	// Изменение содержимого меняет размер - файл обрабатывается заново
	require.NoError(t, os.WriteFile(path, []byte("Introduction\nSecond, longer draft of the text."), 0644))

	rep2 := a.IngestPath(context.Background(), path)
	require.NoError(t, rep2.Err)
	assert.False(t, rep2.Skipped)
	assert.Equal(t, 2, st.upserts)
	assert.NotEqual(t, first, st.ids())
}

func TestIngestPathForceReindex(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	path := filepath.Join(t.TempDir(), "paper.txt")
	content := "I. INTRODUCTION\nDeep learning is powerful.\nII. CONCLUSION\nWe showed results."
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rep := a.IngestPath(context.Background(), path)
	require.NoError(t, rep.Err)
	first := st.ids()

	a.cfg.ForceReindex = true

	rep2 := a.IngestPath(context.Background(), path)
	require.NoError(t, rep2.Err)
	assert.False(t, rep2.Skipped)
	assert.Equal(t, 2, st.upserts)
	// Принудительная переиндексация того же содержимого даёт те же id
	assert.Equal(t, first, st.ids())
}

func TestIngestDocumentUnstructuredFallsBackToBody(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())

	doc := ingest.Document{
		Source: "note.txt",
		Text:   "Just a short note without any recognizable paper structure in it.",
	}

	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)

	kinds := make(map[string]int)
	for _, r := range st.records {
		kinds[r.Metadata["section_kind"]]++
	}
	assert.Equal(t, 1, kinds["body"])
	assert.True(t, rep.LowConfidence)
}
