package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/internal/ingest"
)

func TestBuildContextEmpty(t *testing.T) {
	a := newTestApp(newFakeStore(), fakeEmbedder())
	got := a.buildContext(nil)
	assert.Equal(t, "No relevant context found in the database.", got)
}

func TestBuildContextFormatsEntries(t *testing.T) {
	a := newTestApp(newFakeStore(), fakeEmbedder())

	results := []SearchResult{
		{Content: "First chunk.", Source: "a.pdf", Section: "abstract"},
		{Content: "Second chunk.", Source: "b.pdf", Section: "conclusion"},
	}

	got := a.buildContext(results)
	assert.Contains(t, got, "[Document 1] (Source: a.pdf, Section: abstract)")
	assert.Contains(t, got, "[Document 2] (Source: b.pdf, Section: conclusion)")
	assert.Contains(t, got, "First chunk.")
	assert.NotContains(t, got, "[Note: Showing")
}

func TestBuildContextTruncatesLongChunks(t *testing.T) {
	a := newTestApp(newFakeStore(), fakeEmbedder())

	results := []SearchResult{
		{Content: strings.Repeat("x", perDocLimit+500), Source: "a.pdf", Section: "body"},
	}

	got := a.buildContext(results)
	assert.Contains(t, got, "... [truncated]")
	assert.Less(t, len(got), perDocLimit+200)
}

func TestBuildContextHonorsBudget(t *testing.T) {
	a := newTestApp(newFakeStore(), fakeEmbedder())
	a.cfg.MaxContextChars = 300

	results := []SearchResult{
		{Content: strings.Repeat("a", 200), Source: "a.pdf", Section: "body"},
		{Content: strings.Repeat("b", 200), Source: "b.pdf", Section: "body"},
		{Content: strings.Repeat("c", 200), Source: "c.pdf", Section: "body"},
	}

	got := a.buildContext(results)
	assert.Contains(t, got, "[Document 1]")
	assert.NotContains(t, got, "[Document 2]")
	assert.Contains(t, got, "[Note: Showing 1 of 3 retrieved documents due to size limits]")
}

func TestSearchFiltersBySimilarity(t *testing.T) {
	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())
	a.cfg.MinSimilarity = 0.5

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nOpening words of the study.\nConclusion\nClosing words of the study.",
	}
	rep := a.IngestDocument(context.Background(), doc)
	require.NoError(t, rep.Err)

	// fakeStore возвращает similarity=1 для всех записей
	results, err := a.searchRelevantChunks(context.Background(), "what is the study about")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "paper.txt", r.Source)
		assert.NotEmpty(t, r.Section)
	}

	// Порог выше любой similarity отсекает всё
	a.cfg.MinSimilarity = 1.5
	results, err = a.searchRelevantChunks(context.Background(), "what is the study about")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnswerUsesRetrievedContext(t *testing.T) {
	var gotPrompt string
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		gotPrompt = req.Messages[1].Content

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"The study is about chunking."}}]}`)
	}))
	defer llm.Close()

	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())
	a.cfg.LLMURL = llm.URL
	a.cfg.LLMModel = "test-model"

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nThis study examines chunk boundaries.\nConclusion\nBoundaries matter for retrieval.",
	}
	require.NoError(t, a.IngestDocument(context.Background(), doc).Err)

	answer, results, err := a.Answer(context.Background(), "what does the study examine?")
	require.NoError(t, err)
	assert.Equal(t, "The study is about chunking.", answer)
	assert.NotEmpty(t, results)
	assert.Contains(t, gotPrompt, "chunk boundaries")
	assert.Contains(t, gotPrompt, "Question: what does the study examine?")
}

func TestAnswerLLMError(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer llm.Close()

	st := newFakeStore()
	a := newTestApp(st, fakeEmbedder())
	a.cfg.LLMURL = llm.URL

	doc := ingest.Document{
		Source: "paper.txt",
		Text:   "Introduction\nSome text for the index.\nConclusion\nFinal thoughts here.",
	}
	require.NoError(t, a.IngestDocument(context.Background(), doc).Err)

	_, _, err := a.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
