package config

import (
	"path/filepath"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// Chunking
	ChunkSize   int    `env:"CHUNK_SIZE" envDefault:"1500"`
	MinChunk    int    `env:"MIN_CHUNK" envDefault:"64"`
	ChunkMethod string `env:"CHUNK_METHOD"`

	// Heading vocabulary overrides per section kind
	AbstractHeadings     []string `env:"ABSTRACT_HEADINGS" envSeparator:","`
	IntroductionHeadings []string `env:"INTRODUCTION_HEADINGS" envSeparator:","`
	ConclusionHeadings   []string `env:"CONCLUSION_HEADINGS" envSeparator:","`

	// Embeddings
	EmbedProvider    string `env:"EMBED_PROVIDER" envDefault:"ollama"`
	OllamaURL        string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbedModel string `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIKey        string `env:"OPENAI_API_KEY"`
	OpenAIEmbedModel string `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`

	// LLM (OpenAI-compatible chat endpoint)
	LLMURL      string  `env:"LLM_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMKey      string  `env:"LLM_KEY"`
	LLMModel    string  `env:"LLM_MODEL" envDefault:"llama-3.3-70b-versatile"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"1000"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`

	// Retrieval
	TopK            int     `env:"TOP_K" envDefault:"5"`
	MinSimilarity   float32 `env:"MIN_SIMILARITY" envDefault:"0.3"`
	MaxContextChars int     `env:"MAX_CONTEXT_CHARS" envDefault:"30000"`

	MaxConcurrency int  `env:"MAX_CONCURRENCY" envDefault:"4"`
	ForceReindex   bool `env:"FORCE_REINDEX" envDefault:"false"`

	MetadataFile string
	DBFile       string
}

func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	cfg.DBFile = filepath.Join(cfg.DataDir, "paperbase.db")
	cfg.MetadataFile = filepath.Join(cfg.DataDir, "metadata.json")
	return nil
}
