package chunker

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"paperbase/internal/ingest"
)

var idWhitespace = regexp.MustCompile(`\s+`)

// DeriveID выводит стабильный идентификатор чанка из его координат и текста.
// Pure function: повторная обработка того же документа даёт те же id (upsert
// вместо дублей), а смена границ чанков меняет fingerprint и порождает новые
// id вместо тихого слияния со старыми записями.
func DeriveID(source string, kind ingest.SectionKind, index int, text string) string {
	src := idWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(source)), "_")
	fp := sha1.Sum([]byte(text))
	base := fmt.Sprintf("%s::%s::%d::%s", src, kind, index, hex.EncodeToString(fp[:4]))
	h := sha1.Sum([]byte(base))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// NewChunk создаёт чанк с автоматической генерацией ID
func NewChunk(text, source string, kind ingest.SectionKind, index int, metadata map[string]string) Chunk {
	text = strings.TrimSpace(text)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return Chunk{
		ID:       DeriveID(source, kind, index, text),
		Text:     text,
		Source:   source,
		Section:  kind,
		Index:    index,
		Metadata: metadata,
	}
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*\s*|[^.!?]+$`)

// SplitSentences разбивает текст на предложения
func SplitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// SplitByParagraphs разбивает текст на параграфы
func SplitByParagraphs(text string) []string {
	paragraphs := strings.Split(text, "\n\n")
	var result []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// SplitText packs sentences into contiguous windows of at most maxChars,
// breaking at sentence boundaries and never mid-word. A trailing window
// shorter than minChars is folded into its predecessor when the merged text
// still fits maxChars; the size ceiling wins over the merge floor.
func SplitText(text string, maxChars, minChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = 1500
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var pieces []string
	for _, s := range sentences {
		if len(s) <= maxChars {
			pieces = append(pieces, s)
			continue
		}
		pieces = append(pieces, splitLongSentence(s, maxChars)...)
	}

	var chunks []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+1+len(p) > maxChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}

	if n := len(chunks); n > 1 && minChars > 0 && len(chunks[n-1]) < minChars {
		merged := chunks[n-2] + " " + chunks[n-1]
		if len(merged) <= maxChars {
			chunks = append(chunks[:n-2], merged)
		}
	}

	return chunks
}

// splitLongSentence режет предложение длиннее лимита по границам слов
func splitLongSentence(s string, maxChars int) []string {
	var parts []string
	var cur strings.Builder
	for _, w := range strings.Fields(s) {
		if len(w) > maxChars {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			parts = append(parts, cutRunes(w, maxChars)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(w) > maxChars {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// cutRunes - крайний случай: одно "слово" длиннее лимита (URL и т.п.)
func cutRunes(w string, maxChars int) []string {
	var parts []string
	runes := []rune(w)
	for start := 0; start < len(runes); {
		end := start
		size := 0
		for end < len(runes) && size+utf8.RuneLen(runes[end]) <= maxChars {
			size += utf8.RuneLen(runes[end])
			end++
		}
		parts = append(parts, string(runes[start:end]))
		start = end
	}
	return parts
}
