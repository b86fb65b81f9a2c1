// Package embed adapts embedding providers to the batch interface the
// ingestion pipeline consumes. The model itself is a black box: text in,
// fixed-length vector out.
package embed

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// Embedder turns texts into vectors, one per input, order-preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// funcEmbedder lifts a single-text chromem embedding func to the batch contract.
type funcEmbedder struct {
	fn chromem.EmbeddingFunc
}

func (f funcEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.fn(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// NewOllama создаёт embedder поверх локальной Ollama
func NewOllama(model, apiURL string) Embedder {
	return funcEmbedder{fn: chromem.NewEmbeddingFuncOllama(model, apiURL)}
}

// NewOpenAICompat создаёт embedder для OpenAI-совместимого endpoint'а
func NewOpenAICompat(baseURL, apiKey, model string) Embedder {
	return funcEmbedder{fn: chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, nil)}
}

// Func wraps an arbitrary chromem embedding func; used to plug fakes in tests.
func Func(fn chromem.EmbeddingFunc) Embedder {
	return funcEmbedder{fn: fn}
}
