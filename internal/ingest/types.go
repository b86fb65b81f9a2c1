package ingest

// Document - сырой входной документ (файл или веб-страница)
type Document struct {
	Source string // путь к файлу или URL
	Title  string // заголовок, если источник его знает (например <title>)
	Text   string // извлечённый текст как есть, до нормализации
}

// SectionKind is the structural label assigned to a span of document text.
type SectionKind string

const (
	KindTitle        SectionKind = "title"
	KindAbstract     SectionKind = "abstract"
	KindIntroduction SectionKind = "introduction"
	KindConclusion   SectionKind = "conclusion"
	KindBody         SectionKind = "body"
)

// KindOrder is the stable order in which sections are chunked and stored.
var KindOrder = []SectionKind{KindTitle, KindAbstract, KindIntroduction, KindBody, KindConclusion}

// Strategy identifies which extraction attempt produced a section.
type Strategy int

const (
	StrategyHeading Strategy = iota
	StrategyNumbered
	StrategyPositional
	StrategyWholeDocument
)

func (s Strategy) String() string {
	switch s {
	case StrategyHeading:
		return "heading"
	case StrategyNumbered:
		return "numbered"
	case StrategyPositional:
		return "positional"
	default:
		return "whole-document"
	}
}

// Section is a labeled span of normalized text. Offsets index into the
// normalized string the section was extracted from.
type Section struct {
	Kind     SectionKind
	Text     string
	Start    int
	End      int
	Strategy Strategy
}

// Confident reports whether the section boundary was found via explicit
// heading recognition rather than positional inference.
func (s Section) Confident() bool {
	return s.Strategy == StrategyHeading || s.Strategy == StrategyNumbered
}
