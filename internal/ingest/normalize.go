package ingest

import (
	"regexp"
	"strings"
)

var (
	ligatures = strings.NewReplacer(
		"ﬀ", "ff",
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬅ", "ft",
		"ﬆ", "st",
		" ", " ",
	)

	// Слово, разорванное переносом в конце строки: "net-\nwork" -> "network"
	hyphenBreak = regexp.MustCompile(`([a-zA-Z])-\n[ \t]*([a-z])`)

	spaceRun      = regexp.MustCompile(`[ \t]+`)
	trailingSpace = regexp.MustCompile(` +\n`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)

	// Standalone page numbers: "3", "iv", "Page 3 of 12"
	pageNumberLine = regexp.MustCompile(`(?i)^\s*(?:\d{1,4}|[ivxlc]{1,6}|page\s+\d+(?:\s+of\s+\d+)?)\s*$`)

	digitRun = regexp.MustCompile(`\d+`)
)

// Normalize cleans raw extracted text: ligatures, hyphenation artifacts,
// page furniture, collapsed whitespace. Paragraph breaks (blank lines) are
// preserved because the section extractor anchors heading matches to lines.
// Total and deterministic; garbled input degrades to best-effort cleanup.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = ligatures.Replace(s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")
	s = stripPageFurniture(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// stripPageFurniture removes repeated headers/footers and bare page numbers.
// Pages are form-feed-delimited (the PDF reader inserts \f between pages);
// a line counts as furniture when the same line, digits ignored, shows up at
// the margins of at least half the pages.
func stripPageFurniture(s string) string {
	pages := strings.Split(s, "\f")

	counts := make(map[string]int)
	if len(pages) >= 3 {
		for _, p := range pages {
			lines := strings.Split(p, "\n")
			for _, idx := range marginLineIndexes(lines) {
				counts[furnitureKey(lines[idx])]++
			}
		}
	}
	threshold := (len(pages) + 1) / 2
	if threshold < 3 {
		threshold = 3
	}

	var cleaned []string
	for _, p := range pages {
		lines := strings.Split(p, "\n")
		margins := make(map[int]bool)
		for _, idx := range marginLineIndexes(lines) {
			margins[idx] = true
		}

		kept := lines[:0:0]
		for i, ln := range lines {
			trimmed := strings.TrimSpace(ln)
			if trimmed != "" && pageNumberLine.MatchString(trimmed) {
				continue
			}
			if margins[i] && counts[furnitureKey(ln)] >= threshold {
				continue
			}
			kept = append(kept, ln)
		}
		cleaned = append(cleaned, strings.Join(kept, "\n"))
	}

	return strings.Join(cleaned, "\n")
}

// marginLineIndexes returns the indexes of the first and last two non-empty
// lines of a page, where running heads and footers live.
func marginLineIndexes(lines []string) []int {
	var idxs []int
	seen := make(map[int]bool)

	n := 0
	for i := 0; i < len(lines) && n < 2; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			idxs = append(idxs, i)
			seen[i] = true
			n++
		}
	}
	n = 0
	for i := len(lines) - 1; i >= 0 && n < 2; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			if !seen[i] {
				idxs = append(idxs, i)
			}
			n++
		}
	}
	return idxs
}

func furnitureKey(line string) string {
	key := strings.ToLower(strings.TrimSpace(line))
	key = digitRun.ReplaceAllString(key, "#")
	return spaceRun.ReplaceAllString(key, " ")
}
