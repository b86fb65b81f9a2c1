package ingest

import (
	"regexp"
	"strings"
)

// Vocabulary maps a section kind to the heading keywords that announce it.
type Vocabulary map[SectionKind][]string

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		KindAbstract:     {"abstract"},
		KindIntroduction: {"introduction"},
		KindConclusion:   {"conclusion", "conclusions", "concluding remarks"},
	}
}

var targetKinds = []SectionKind{KindAbstract, KindIntroduction, KindConclusion}

// Roman numerals I-X or arabic 1-10, IEEE/ACM/arXiv style: "I.", "1.", "1)",
// possibly glued to the keyword ("I.INTRODUCTION").
const enumPrefix = `(?:(?:10|[1-9]|[ivx]{1,4})[ \t]*[.)]?[ \t]*)`

// Extractor recovers labeled sections from normalized text using four ordered
// strategies: whole-line heading match, numbered-heading fallback, positional
// heuristic, whole-document fallback. It never fails; absence of a kind is a
// valid outcome.
type Extractor struct {
	vocab      Vocabulary
	headingRe  map[SectionKind]*regexp.Regexp
	numberedRe map[SectionKind]*regexp.Regexp
	refRe      *regexp.Regexp
	auxRe      *regexp.Regexp
	enumRe     *regexp.Regexp
}

func NewExtractor() *Extractor {
	return NewExtractorWithVocabulary(DefaultVocabulary())
}

func NewExtractorWithVocabulary(vocab Vocabulary) *Extractor {
	def := DefaultVocabulary()
	e := &Extractor{
		vocab:      make(Vocabulary, len(targetKinds)),
		headingRe:  make(map[SectionKind]*regexp.Regexp, len(targetKinds)),
		numberedRe: make(map[SectionKind]*regexp.Regexp, len(targetKinds)),
	}
	for _, kind := range targetKinds {
		kws := vocab[kind]
		if len(kws) == 0 {
			kws = def[kind]
		}
		e.vocab[kind] = kws
		e.headingRe[kind] = regexp.MustCompile(
			`(?i)^` + enumPrefix + `?` + keywordAlt(kws) + `[ \t]*[:.]?[ \t]*$`)
		// PDF extraction sometimes shreds heading caps ("C ONCLUSION"), so the
		// numbered fallback tolerates spaces inside the keyword.
		e.numberedRe[kind] = regexp.MustCompile(
			`(?i)^[ \t]*(?:10|[1-9]|[ivx]{1,4})[ \t]*[.)][ \t]*` + spacedKeywordAlt(kws) + `[ \t]*[:—–-]?[ \t]*`)
	}
	e.refRe = regexp.MustCompile(`(?i)^` + enumPrefix + `?(?:references|bibliography)[ \t]*[:.]?[ \t]*$`)
	e.auxRe = regexp.MustCompile(`(?i)^` + enumPrefix + `?(?:keywords|index terms|acknowledgments?|acknowledgements?|appendix)[ \t]*[:.]?[ \t]*$`)
	e.enumRe = regexp.MustCompile(`(?i)^[ \t]*(?:10|[1-9]|[ivx]{1,4})[ \t]*[.)][ \t]*\S`)
	return e
}

func keywordAlt(kws []string) string {
	quoted := make([]string, len(kws))
	for i, kw := range kws {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(kw))
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

func spacedKeywordAlt(kws []string) string {
	alts := make([]string, len(kws))
	for i, kw := range kws {
		var words []string
		for _, w := range strings.Fields(strings.ToLower(kw)) {
			letters := strings.Split(w, "")
			for j := range letters {
				letters[j] = regexp.QuoteMeta(letters[j])
			}
			words = append(words, strings.Join(letters, `[ \t]*`))
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

type textLine struct {
	text  string
	start int
	end   int
}

type textBlock struct {
	text  string
	start int
	end   int
}

type foundHeading struct {
	kind     SectionKind
	idx      int
	boundary bool
	ref      bool
}

// Extract runs the strategy cascade over normalized text. The returned map
// holds at most one section per kind; positional and whole-document results
// are low-confidence (see Section.Confident).
func (e *Extractor) Extract(text string) map[SectionKind]Section {
	out := make(map[SectionKind]Section)
	if strings.TrimSpace(text) == "" {
		return out
	}
	lines := splitTextLines(text)

	// Single pass marking every recognized heading line. Whole lines only:
	// an inline "introduction" mid-sentence is never a heading.
	var headings []foundHeading
	for i, ln := range lines {
		t := strings.TrimSpace(ln.text)
		if t == "" {
			continue
		}
		if e.refRe.MatchString(t) {
			headings = append(headings, foundHeading{idx: i, boundary: true, ref: true})
			continue
		}
		if e.auxRe.MatchString(t) {
			headings = append(headings, foundHeading{idx: i, boundary: true})
			continue
		}
		for _, kind := range targetKinds {
			if e.headingRe[kind].MatchString(t) {
				headings = append(headings, foundHeading{kind: kind, idx: i})
				break
			}
		}
	}

	refsStart := len(text)
	for _, h := range headings {
		if h.ref {
			refsStart = lines[h.idx].start
			break
		}
	}

	// Strategy 1: heading-anchored. First confident match per kind wins;
	// a section runs to the next recognized heading of any kind.
	for hi, h := range headings {
		if h.boundary {
			continue
		}
		if _, ok := out[h.kind]; ok {
			continue
		}
		start := lines[h.idx].end + 1
		if start > len(text) {
			start = len(text)
		}
		end := len(text)
		if hi+1 < len(headings) {
			end = lines[headings[hi+1].idx].start
		}
		if end < start {
			end = start
		}
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		out[h.kind] = Section{Kind: h.kind, Text: body, Start: start, End: end, Strategy: StrategyHeading}
	}

	// Strategy 2: leading enumerator + keyword, noise-tolerant, text may
	// continue on the heading line.
	for _, kind := range targetKinds {
		if _, ok := out[kind]; ok {
			continue
		}
		for i, ln := range lines {
			if ln.start >= refsStart {
				break
			}
			loc := e.numberedRe[kind].FindStringIndex(ln.text)
			if loc == nil {
				continue
			}
			start := ln.start + loc[1]
			if strings.TrimSpace(ln.text[loc[1]:]) == "" {
				start = ln.end + 1
				if start > len(text) {
					start = len(text)
				}
			}
			end := e.nextBoundary(lines, i, len(text))
			if end < start {
				end = start
			}
			if body := strings.TrimSpace(text[start:end]); body != "" {
				out[kind] = Section{Kind: kind, Text: body, Start: start, End: end, Strategy: StrategyNumbered}
			}
			break
		}
	}

	firstAnchor := len(text)
	if len(headings) > 0 {
		firstAnchor = lines[headings[0].idx].start
	}
	for _, ln := range lines {
		if e.enumRe.MatchString(ln.text) {
			if ln.start < firstAnchor {
				firstAnchor = ln.start
			}
			break
		}
	}

	// Title lives in the header block, before any recognized structure.
	limit := firstAnchor
	if limit > 1000 {
		limit = 1000
	}
	if t, s, en := extractTitle(text[:limit]); t != "" {
		out[KindTitle] = Section{Kind: KindTitle, Text: t, Start: s, End: en, Strategy: StrategyPositional}
	}

	// Strategy 3: positional heuristics. Only attempted when the document has
	// at least one structural anchor; a document with no recognizable
	// structure at all goes straight to the whole-document fallback.
	if firstAnchor < len(text) {
		e.extractPositional(out, text, refsStart, firstAnchor)
	}

	// Strategy 4: never fail outright, only degrade in specificity.
	if !hasContentSection(out) {
		out[KindBody] = Section{
			Kind:     KindBody,
			Text:     strings.TrimSpace(text),
			Start:    0,
			End:      len(text),
			Strategy: StrategyWholeDocument,
		}
	}

	return out
}

const minPositionalChars = 40

func (e *Extractor) extractPositional(out map[SectionKind]Section, text string, refsStart, firstAnchor int) {
	blocks := splitTextBlocks(text)
	if len(blocks) < 2 {
		return
	}

	claimed := func(b textBlock) bool {
		for _, sec := range out {
			if b.start < sec.End && sec.Start < b.end {
				return true
			}
		}
		return false
	}

	if _, ok := out[KindAbstract]; !ok {
		// First paragraph block after the title block, before the first
		// recognized structure.
		for _, b := range blocks[1:] {
			if b.start >= firstAnchor || b.start >= refsStart {
				break
			}
			if len(b.text) < minPositionalChars || claimed(b) {
				continue
			}
			out[KindAbstract] = Section{Kind: KindAbstract, Text: b.text, Start: b.start, End: b.end, Strategy: StrategyPositional}
			break
		}
	}

	if _, ok := out[KindIntroduction]; !ok {
		after := blocks[0].end
		if abs, ok := out[KindAbstract]; ok {
			after = abs.End
		}
		for _, b := range blocks {
			if b.start < after || b.end > refsStart {
				continue
			}
			if len(b.text) < minPositionalChars || claimed(b) {
				continue
			}
			out[KindIntroduction] = Section{Kind: KindIntroduction, Text: b.text, Start: b.start, End: b.end, Strategy: StrategyPositional}
			break
		}
	}

	if _, ok := out[KindConclusion]; !ok {
		// Last paragraph block before the references heading (or end of
		// document when there is none).
		for i := len(blocks) - 1; i >= 1; i-- {
			b := blocks[i]
			if b.end > refsStart {
				continue
			}
			if len(b.text) < minPositionalChars || claimed(b) {
				break
			}
			out[KindConclusion] = Section{Kind: KindConclusion, Text: b.text, Start: b.start, End: b.end, Strategy: StrategyPositional}
			break
		}
	}
}

func (e *Extractor) nextBoundary(lines []textLine, after, eof int) int {
	for j := after + 1; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j].text)
		if t == "" {
			continue
		}
		if e.refRe.MatchString(t) || e.auxRe.MatchString(t) || e.enumRe.MatchString(lines[j].text) {
			return lines[j].start
		}
		for _, kind := range targetKinds {
			if e.headingRe[kind].MatchString(t) {
				return lines[j].start
			}
		}
	}
	return eof
}

func hasContentSection(out map[SectionKind]Section) bool {
	for _, kind := range targetKinds {
		if _, ok := out[kind]; ok {
			return true
		}
	}
	return false
}

// extractTitle takes the first sentence of the leading block; paper titles sit
// at the very top, before the abstract.
func extractTitle(head string) (string, int, int) {
	blocks := splitTextBlocks(head)
	if len(blocks) == 0 {
		return "", 0, 0
	}
	b := blocks[0]
	flat := strings.Join(strings.Fields(b.text), " ")
	if i := strings.Index(flat, ". "); i > 10 {
		flat = flat[:i]
	}
	flat = strings.TrimSpace(flat)
	if len(flat) <= 10 || len(flat) > 300 {
		return "", 0, 0
	}
	return flat, b.start, b.end
}

func splitTextLines(text string) []textLine {
	var lines []textLine
	start := 0
	for {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			lines = append(lines, textLine{text: text[start:], start: start, end: len(text)})
			return lines
		}
		lines = append(lines, textLine{text: text[start : start+i], start: start, end: start + i})
		start += i + 1
	}
}

var blankLineRun = regexp.MustCompile(`\n[ \t]*\n`)

func splitTextBlocks(text string) []textBlock {
	var blocks []textBlock
	pos := 0
	gaps := append(blankLineRun.FindAllStringIndex(text, -1), []int{len(text), len(text)})
	for _, gap := range gaps {
		seg := text[pos:gap[0]]
		if strings.TrimSpace(seg) != "" {
			start := pos + (len(seg) - len(strings.TrimLeft(seg, " \t\n")))
			end := pos + len(strings.TrimRight(seg, " \t\n"))
			blocks = append(blocks, textBlock{text: text[start:end], start: start, end: end})
		}
		pos = gap[1]
	}
	return blocks
}
