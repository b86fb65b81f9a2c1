package chunker

import (
	"log"

	"paperbase/internal/ingest"
)

// TextChunker разбивает plain text по размеру с границами предложений
type TextChunker struct {
	config Config
}

// NewTextChunker создаёт новый simple chunker
func NewTextChunker(config Config) *TextChunker {
	return &TextChunker{config: config}
}

func (t *TextChunker) Name() string {
	return "text"
}

func (t *TextChunker) Chunk(content, source string) ([]Chunk, error) {
	parts := SplitText(content, t.config.MaxChunkSize, t.config.MinChunkSize)
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, NewChunk(p, source, ingest.KindBody, i, nil))
	}
	log.Printf("✅ [%s] Created %d chunks", t.Name(), len(chunks))
	return chunks, nil
}
