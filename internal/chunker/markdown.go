package chunker

import (
	"fmt"
	"log"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"paperbase/internal/ingest"
)

// MarkdownChunker разбивает markdown документы с адаптивным выбором стратегии
type MarkdownChunker struct {
	config Config
}

// NewMarkdownChunker создаёт новый markdown chunker
func NewMarkdownChunker(config Config) *MarkdownChunker {
	return &MarkdownChunker{config: config}
}

func (m *MarkdownChunker) Name() string {
	return "markdown"
}

// DocumentStructure содержит информацию о структуре документа
type DocumentStructure struct {
	HeadingCounts   map[int]int // уровень заголовка -> количество
	TotalParagraphs int
}

// ChunkingStrategy определяет стратегию разбиения
type ChunkingStrategy struct {
	Level int // уровень заголовка (2-4)
}

func (m *MarkdownChunker) Chunk(content, source string) ([]Chunk, error) {
	md := goldmark.New()
	reader := text.NewReader([]byte(content))
	doc := md.Parser().Parse(reader)

	// Анализируем структуру документа
	structure := m.analyzeStructure(doc)

	// Выбираем стратегию разбиения
	strategy, err := m.selectStrategy(structure)
	if err != nil {
		// Явно возвращаем ошибку - пусть вызывающий код решает что делать
		return nil, fmt.Errorf("markdown chunker cannot process this content: %w", err)
	}

	log.Printf("📊 [%s] Document structure: headings=%v, paragraphs=%d",
		m.Name(), structure.HeadingCounts, structure.TotalParagraphs)
	log.Printf("🎯 [%s] Selected strategy: heading (level %d)", m.Name(), strategy.Level)

	chunks := m.chunkByHeadings(doc, []byte(content), source, strategy.Level)

	log.Printf("✅ [%s] Created %d chunks", m.Name(), len(chunks))
	return chunks, nil
}

// analyzeStructure анализирует структуру markdown документа
func (m *MarkdownChunker) analyzeStructure(doc ast.Node) DocumentStructure {
	structure := DocumentStructure{
		HeadingCounts: make(map[int]int),
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if heading, ok := n.(*ast.Heading); ok {
				structure.HeadingCounts[heading.Level]++
			}
			if _, ok := n.(*ast.Paragraph); ok {
				structure.TotalParagraphs++
			}
		}
		return ast.WalkContinue, nil
	})

	return structure
}

// selectStrategy выбирает уровень заголовков для разбиения
func (m *MarkdownChunker) selectStrategy(structure DocumentStructure) (ChunkingStrategy, error) {
	// Проверяем заголовки от H2 до H4 (наиболее частые для структурированных документов)
	for level := 2; level <= 4; level++ {
		count := structure.HeadingCounts[level]
		minHeadings := 3
		switch level {
		case 2:
			minHeadings = 3
		case 3:
			minHeadings = 5
		default:
			minHeadings = 10
		}

		if count >= minHeadings {
			return ChunkingStrategy{Level: level}, nil
		}
	}

	// Нет подходящей markdown структуры - возвращаем ошибку
	return ChunkingStrategy{}, fmt.Errorf(
		"no suitable markdown structure found (headings: %v, paragraphs: %d)",
		structure.HeadingCounts, structure.TotalParagraphs,
	)
}

// chunkByHeadings разбивает документ по заголовкам указанного уровня
func (m *MarkdownChunker) chunkByHeadings(doc ast.Node, content []byte, source string, targetLevel int) []Chunk {
	var chunks []Chunk
	var currentChunk strings.Builder
	var currentSection string
	var currentLevel int
	index := 0

	flush := func() {
		if currentChunk.Len() == 0 {
			return
		}
		chunks = append(chunks, m.finalizeChunk(currentChunk.String(), source, currentSection, currentLevel, &index)...)
		currentChunk.Reset()
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if heading, ok := n.(*ast.Heading); ok {
				headingText := extractText(heading, content)

				// Заголовок целевого уровня или выше начинает новый чанк
				if heading.Level <= targetLevel {
					flush()
					currentSection = headingText
					currentLevel = heading.Level
					currentChunk.WriteString(headingText + "\n\n")
				} else {
					// Подзаголовки включаем в текущий чанк
					currentChunk.WriteString("\n" + headingText + "\n\n")
				}
			} else if textNode, ok := n.(*ast.Text); ok {
				currentChunk.Write(textNode.Segment.Value(content))
			}
		} else {
			if _, ok := n.(*ast.Paragraph); ok {
				currentChunk.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	flush()

	return chunks
}

// finalizeChunk обрабатывает чанк: разбивает если большой
func (m *MarkdownChunker) finalizeChunk(chunkText, source, section string, level int, index *int) []Chunk {
	parts := SplitText(chunkText, m.config.MaxChunkSize, m.config.MinChunkSize)
	out := make([]Chunk, 0, len(parts))
	for partNum, p := range parts {
		metadata := map[string]string{
			"level": fmt.Sprintf("%d", level),
		}
		if section != "" {
			metadata["heading"] = section
		}
		if len(parts) > 1 {
			metadata["part"] = fmt.Sprintf("%d", partNum+1)
		}
		out = append(out, NewChunk(p, source, ingest.KindBody, *index, metadata))
		*index++
	}
	return out
}

// extractText извлекает текст из узла AST
func extractText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
		}
	}
	return buf.String()
}
