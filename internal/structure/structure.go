package structure

// Density classifies how demanding a span of content is to read.
type Density string

const (
	DensityLow    Density = "low"
	DensityMedium Density = "medium"
	DensityHigh   Density = "high"
)

// BreakImpact rates how badly a page break inside an element hurts the reader.
type BreakImpact string

const (
	ImpactLow    BreakImpact = "low"
	ImpactMedium BreakImpact = "medium"
	ImpactHigh   BreakImpact = "high"
)

// SpecialKind identifies non-prose content that constrains break placement.
type SpecialKind string

const (
	KindImage SpecialKind = "image"
	KindTable SpecialKind = "table"
	KindList  SpecialKind = "list"
	KindCode  SpecialKind = "code"
	KindQuote SpecialKind = "quote"
)

// BlockType is the rhetorical function of a span of paragraphs.
type BlockType string

const (
	BlockDialogue      BlockType = "dialogue"
	BlockNarrative     BlockType = "narrative"
	BlockDescriptive   BlockType = "descriptive"
	BlockExpository    BlockType = "expository"
	BlockArgumentative BlockType = "argumentative"
	BlockTransitional  BlockType = "transitional"
)

// Heading is one heading element with its break-relevant scores.
type Heading struct {
	Level          int      // 1-6
	Text           string
	Position       int      // byte offset into Document.Text
	Importance     int      // 1-10
	BreakPriority  int      // 1-10
	Path           []string // ancestor heading texts, outermost first
	HasSubheadings bool
}

// Paragraph is one prose paragraph with its break quality.
type Paragraph struct {
	Position     int // byte offset of the paragraph start
	End          int // byte offset just past the paragraph
	WordCount    int
	BreakQuality int // 1-10, quality of breaking *after* this paragraph
	Density      Density
}

// Section spans a heading to the next heading of equal or shallower level.
type Section struct {
	Title           string
	Start, End      int
	Level           int
	Priority        int // 1-10
	ChapterBoundary bool
}

// Special is an image, table, list, code block or quote.
type Special struct {
	Kind          SpecialKind
	Start, End    int
	Accessibility int // 1-10
	Impact        BreakImpact
}

// SemanticBlock is a contiguous span classified by rhetorical function.
type SemanticBlock struct {
	Type       BlockType
	Start, End int
	Importance int     // 1-10
	Confidence float64 // 0-1
}

// Flow carries chapter-level reading metrics derived during analysis.
type Flow struct {
	AvgParagraphWords float64
	AvgSentenceWords  float64
	DialogueRatio     float64
	Complexity        Density
}

// Document is the full structural analysis of one chapter. All positions are
// byte offsets into Text, the normalized flattening of the chapter markup.
// A Document is immutable once returned by the analyzer.
type Document struct {
	Text       string
	WordCount  int
	Headings   []Heading
	Paragraphs []Paragraph
	Sections   []Section
	Special    []Special
	Blocks     []SemanticBlock
	Flow       Flow
}

// Empty reports whether analysis found no usable structure. Downstream
// stages treat an empty document as the signal to fall back to plain
// word-count pagination.
func (d *Document) Empty() bool {
	return len(d.Headings) == 0 && len(d.Paragraphs) == 0 && len(d.Sections) == 0
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
