package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"paperbase/internal/chunker"
	"paperbase/internal/config"
	"paperbase/internal/embed"
	"paperbase/internal/ingest"
	"paperbase/internal/store"

	"github.com/philippgille/chromem-go"
)

const collectionName = "papers"

type App struct {
	cfg           *config.Config
	db            *chromem.DB
	store         store.Store
	embedder      embed.Embedder
	embeddingFunc chromem.EmbeddingFunc
	extractor     *ingest.Extractor
	chunker       *chunker.SectionChunker
	factory       *chunker.Factory
	metadata      *Metadata
	mu            sync.Mutex // guards metadata
}

type Metadata struct {
	Files    map[string]FileInfo `json:"files"`
	DataPath string              `json:"data_path"`
}

type FileInfo struct {
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
	Chunks       int       `json:"chunks"`
}

func New(cfg *config.Config) (*App, error) {
	chunkCfg := chunker.Config{MaxChunkSize: cfg.ChunkSize, MinChunkSize: cfg.MinChunk}

	a := &App{
		cfg:      cfg,
		metadata: &Metadata{Files: make(map[string]FileInfo)},
		extractor: ingest.NewExtractorWithVocabulary(ingest.Vocabulary{
			ingest.KindAbstract:     cfg.AbstractHeadings,
			ingest.KindIntroduction: cfg.IntroductionHeadings,
			ingest.KindConclusion:   cfg.ConclusionHeadings,
		}),
		chunker: chunker.NewSectionChunker(chunkCfg),
		factory: chunker.NewFactory(chunkCfg),
	}

	// Initialize embedding collaborator
	switch cfg.EmbedProvider {
	case "openai":
		a.embedder = embed.NewOpenAICompat(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIEmbedModel)
	case "ollama", "":
		a.embedder = embed.NewOllama(cfg.OllamaEmbedModel, cfg.OllamaURL+"/api")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}

	a.embeddingFunc = func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := a.embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}

	// Initialize vector database
	a.db = chromem.NewDB()

	return a, nil
}

func (a *App) Init() error {
	if a.cfg.EmbedProvider != "openai" {
		if err := ensureOllamaModels(a.cfg); err != nil {
			return fmt.Errorf("ollama model check failed: %w", err)
		}
	}

	// Load metadata first
	_ = a.loadMetadata() // ignore error, may not exist

	if a.cfg.ForceReindex {
		log.Printf("Force reindexing enabled, clearing existing metadata and index...")
		a.metadata.Files = make(map[string]FileInfo)
		_ = os.Remove(a.cfg.MetadataFile)
		_ = os.Remove(a.cfg.DBFile)
	}

	// Load existing DB if it exists
	if _, err := os.Stat(a.cfg.DBFile); err == nil {
		log.Printf("Found existing DB file, loading...")
		if err := a.db.ImportFromFile(a.cfg.DBFile, "", collectionName); err != nil {
			return fmt.Errorf("failed to load vector database: %w", err)
		}
	} else {
		log.Printf("No existing DB file found, starting fresh")
	}

	coll, err := a.db.GetOrCreateCollection(collectionName, map[string]string{}, a.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	a.store = store.NewChromem(coll)

	log.Printf("Collection %q ready with %d records", collectionName, a.store.Count())
	return nil
}

func (a *App) loadMetadata() error {
	f, err := os.Open(a.cfg.MetadataFile)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(&a.metadata)
}

func (a *App) saveMetadata() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Create(a.cfg.MetadataFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(a.metadata)
}

func (a *App) saveDB() error {
	return a.db.ExportToFile(a.cfg.DBFile, true, "", collectionName)
}

func ensureOllamaModels(cfg *config.Config) error {
	type ollamaPullRequest struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}

	// 1. Check if Ollama is running
	resp, err := http.Get(cfg.OllamaURL + "/api/tags")
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s", cfg.OllamaURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("ollama is not running or not reachable at %s", cfg.OllamaURL)
	}

	// 2. Check if the embedding model exists
	model := cfg.OllamaEmbedModel
	found := false
	body, _ := io.ReadAll(resp.Body)
	if bytes.Contains(body, []byte(model)) {
		found = true
	}
	if !found {
		log.Printf("Model %s not found, pulling...", model)
		b, _ := json.Marshal(ollamaPullRequest{Name: model, Stream: false})
		pullResp, err := http.Post(cfg.OllamaURL+"/api/pull", "application/json", bytes.NewBuffer(b))
		if err != nil {
			return fmt.Errorf("failed to pull model %s: %v", model, err)
		}
		defer pullResp.Body.Close()
		if pullResp.StatusCode != 200 {
			return fmt.Errorf("failed to pull model %s: status %d", model, pullResp.StatusCode)
		}
		log.Printf("Model %s pulled successfully", model)
	} else {
		log.Printf("Model %s is available", model)
	}
	return nil
}
