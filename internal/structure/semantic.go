package structure

import "strings"

// blockMergeGap is the maximum gap, in bytes, across which adjacent blocks
// of the same type are merged into one span.
const blockMergeGap = 100

var speechVerbs = []string{
	"said", "asked", "replied", "answered", "whispered", "shouted",
	"muttered", "exclaimed", "murmured", "cried",
}

var temporalMarkers = []string{
	"then", "when", "after", "before", "during", "while", "suddenly",
	"once", "moment", "later",
}

var sensoryWords = []string{
	"bright", "dark", "cold", "warm", "soft", "rough", "sweet", "bitter",
	"loud", "quiet", "vast", "tiny", "pale", "gleaming", "fragrant",
}

var logicalConnectors = []string{
	"therefore", "because", "however", "thus", "consequently",
	"although", "nevertheless", "hence", "since", "argue", "evidence",
}

var transitionalOpeners = []string{
	"meanwhile", "later", "afterwards", "afterward", "eventually",
	"finally", "soon", "elsewhere", "the next",
}

var blockImportance = map[BlockType]int{
	BlockDialogue:      6,
	BlockNarrative:     5,
	BlockDescriptive:   4,
	BlockExpository:    5,
	BlockArgumentative: 7,
	BlockTransitional:  8,
}

// classifyBlocks assigns a rhetorical type to each paragraph span, then
// merges adjacent same-type blocks that sit within blockMergeGap of each
// other.
func (a *Analyzer) classifyBlocks(doc *Document) {
	var blocks []SemanticBlock
	for _, p := range doc.Paragraphs {
		t := doc.Text[p.Position:p.End]
		typ, conf := classifyParagraph(t, p.WordCount)
		blocks = append(blocks, SemanticBlock{
			Type:       typ,
			Start:      p.Position,
			End:        p.End,
			Importance: blockImportance[typ],
			Confidence: conf,
		})
	}

	var merged []SemanticBlock
	for _, b := range blocks {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.Type == b.Type && b.Start-last.End <= blockMergeGap {
				last.End = b.End
				if b.Confidence > last.Confidence {
					last.Confidence = b.Confidence
				}
				continue
			}
		}
		merged = append(merged, b)
	}
	doc.Blocks = merged
}

// classifyParagraph applies the lexical heuristics in priority order:
// dialogue and transitional signals are the most distinctive, expository is
// the default.
func classifyParagraph(t string, words int) (BlockType, float64) {
	lower := strings.ToLower(t)

	hasQuotes := strings.ContainsAny(t, "\"“”") || strings.Contains(t, "‘")
	verbs := countMatches(lower, speechVerbs)
	if hasQuotes && verbs > 0 {
		return BlockDialogue, confidence(2 + verbs)
	}
	if hasQuotes && words < 40 {
		return BlockDialogue, confidence(1)
	}

	if words < 25 {
		for _, op := range transitionalOpeners {
			if strings.HasPrefix(lower, op) {
				return BlockTransitional, confidence(3)
			}
		}
	}

	logical := countMatches(lower, logicalConnectors)
	temporal := countMatches(lower, temporalMarkers)
	sensory := countMatches(lower, sensoryWords)

	switch {
	case logical >= 2 && logical >= temporal && logical >= sensory:
		return BlockArgumentative, confidence(logical)
	case temporal >= 2 && temporal >= sensory:
		return BlockNarrative, confidence(temporal)
	case sensory >= 2:
		return BlockDescriptive, confidence(sensory)
	case logical == 1:
		return BlockArgumentative, confidence(1)
	case temporal == 1:
		return BlockNarrative, confidence(1)
	}
	return BlockExpository, confidence(1)
}

func countMatches(lower string, terms []string) int {
	n := 0
	for _, term := range terms {
		if containsWord(lower, term) {
			n++
		}
	}
	return n
}

// containsWord matches term at word boundaries so "then" does not fire on
// "strengthen".
func containsWord(lower, term string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], term)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(lower[i-1])
		afterIdx := i + len(term)
		after := afterIdx >= len(lower) || !isWordByte(lower[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(term)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}

func confidence(hits int) float64 {
	c := 0.5 + 0.15*float64(hits)
	if c > 1 {
		c = 1
	}
	return c
}

// computeFlow derives chapter-level reading metrics used by the break
// scorer's target calculation.
func (a *Analyzer) computeFlow(doc *Document) {
	if len(doc.Paragraphs) == 0 {
		doc.Flow = Flow{Complexity: DensityMedium}
		return
	}

	totalWords := 0
	for _, p := range doc.Paragraphs {
		totalWords += p.WordCount
	}
	doc.Flow.AvgParagraphWords = float64(totalWords) / float64(len(doc.Paragraphs))

	sentences := 0
	for _, r := range doc.Text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences > 0 {
		doc.Flow.AvgSentenceWords = float64(doc.WordCount) / float64(sentences)
	}

	dialogueBytes := 0
	for _, b := range doc.Blocks {
		if b.Type == BlockDialogue {
			dialogueBytes += b.End - b.Start
		}
	}
	if len(doc.Text) > 0 {
		doc.Flow.DialogueRatio = float64(dialogueBytes) / float64(len(doc.Text))
	}

	switch {
	case doc.Flow.AvgSentenceWords > 20:
		doc.Flow.Complexity = DensityHigh
	case doc.Flow.AvgSentenceWords > 0 && doc.Flow.AvgSentenceWords < 12:
		doc.Flow.Complexity = DensityLow
	default:
		doc.Flow.Complexity = DensityMedium
	}
}
