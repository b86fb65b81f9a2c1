package chunker

import (
	"paperbase/internal/ingest"
)

// SectionChunker строит чанки из извлечённых секций документа.
// Секции обходятся в стабильном порядке видов; chunk_index нумеруется с нуля
// внутри каждой пары (source, section kind).
type SectionChunker struct {
	config Config
}

func NewSectionChunker(config Config) *SectionChunker {
	return &SectionChunker{config: config}
}

func (s *SectionChunker) Name() string {
	return "sections"
}

// ChunkSections splits every extracted section into bounded windows carrying
// section provenance. Regenerated fresh per ingestion call.
func (s *SectionChunker) ChunkSections(sections map[ingest.SectionKind]ingest.Section, source string) []Chunk {
	var chunks []Chunk
	for _, kind := range ingest.KindOrder {
		sec, ok := sections[kind]
		if !ok {
			continue
		}
		parts := SplitText(sec.Text, s.config.MaxChunkSize, s.config.MinChunkSize)
		for i, p := range parts {
			meta := map[string]string{"strategy": sec.Strategy.String()}
			chunks = append(chunks, NewChunk(p, source, kind, i, meta))
		}
	}
	return chunks
}
