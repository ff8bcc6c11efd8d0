// Package score turns a structural analysis into an ordered list of scored
// break points sized to a words-per-page target.
package score

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dgallion1/pagebreak/internal/settings"
	"github.com/dgallion1/pagebreak/internal/structure"
)

// BreakType records which candidate source produced a break point.
type BreakType string

const (
	TypeHeading   BreakType = "heading"
	TypeParagraph BreakType = "paragraph"
	TypeSection   BreakType = "section"
	TypeSemantic  BreakType = "semantic"
	TypeVisual    BreakType = "visual"
	TypeForced    BreakType = "forced"
)

// Impact is a qualitative judgment on one axis of a break's effect.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNeutral  Impact = "neutral"
	ImpactNegative Impact = "negative"
)

// Assessment judges a break point on the three axes the reader feels.
type Assessment struct {
	ReadingFlow   Impact `json:"reading_flow"`
	Comprehension Impact `json:"comprehension"`
	Accessibility Impact `json:"accessibility"`
}

// BreakPoint is a candidate page split with its quality and impact.
type BreakPoint struct {
	ID         string     `json:"id"`
	Position   int        `json:"position"`
	Type       BreakType  `json:"type"`
	Quality    int        `json:"quality"` // 1-10
	Reasoning  string     `json:"reasoning"`
	Assessment Assessment `json:"assessment"`
}

const (
	baseWordsPerPage = 300
	minWordsPerPage  = 100
	maxWordsPerPage  = 600

	// searchCharsPerWord scales the candidate search radius around each
	// target offset: ~6 bytes of text per word of target.
	searchCharsPerWord = 6

	forcedQuality = 3
	vetoPenalty   = 3
)

// Scorer is a stateless service; one instance serves all chapters.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// TargetWordsPerPage derives the page budget from content complexity, the
// reader's level, an explicit preference, and the screen class, clamped to
// [100, 600].
func (s *Scorer) TargetWordsPerPage(doc *structure.Document, layout settings.Layout) int {
	target := float64(baseWordsPerPage)

	switch doc.Flow.Complexity {
	case structure.DensityHigh:
		target -= 100
	case structure.DensityLow:
		target += 100
	}

	switch layout.ReadingLevel {
	case settings.LevelBeginner:
		target *= 0.7
	case settings.LevelAdvanced:
		target *= 1.2
	}

	if layout.PreferredWordsPerPage > 0 {
		target = float64(layout.PreferredWordsPerPage)
	}

	switch layout.Screen() {
	case settings.ScreenSmall:
		target *= 0.8
	case settings.ScreenLarge:
		target *= 1.2
	}

	n := int(target)
	if n < minWordsPerPage {
		n = minWordsPerPage
	}
	if n > maxWordsPerPage {
		n = maxWordsPerPage
	}
	return n
}

// FindBreakPoints selects the break points for one chapter. A chapter whose
// word count fits the target yields no breaks (a single page). The walk is
// guaranteed to terminate: every stride either finds a candidate or forces
// a break at the exact target offset.
func (s *Scorer) FindBreakPoints(doc *structure.Document, layout settings.Layout) []BreakPoint {
	target := s.TargetWordsPerPage(doc, layout)
	if doc.WordCount <= target {
		return nil
	}

	words := wordStarts(doc.Text)
	candidates := s.candidates(doc, layout)

	var selected []BreakPoint
	lastPos := 0
	wordIdx := target

	for wordIdx < len(words) {
		targetOffset := words[wordIdx]
		radius := searchCharsPerWord * target

		best := pickCandidate(candidates, targetOffset, radius, lastPos)
		if best == nil {
			best = pickCandidate(candidates, targetOffset, radius*2, lastPos)
		}
		if best == nil {
			forced := BreakPoint{
				ID:        uuid.NewString(),
				Position:  targetOffset,
				Type:      TypeForced,
				Quality:   forcedQuality,
				Reasoning: fmt.Sprintf("no viable break near offset %d, forced at target", targetOffset),
				Assessment: Assessment{
					ReadingFlow:   ImpactNegative,
					Comprehension: ImpactNegative,
					Accessibility: ImpactNegative,
				},
			}
			best = &forced
		}

		selected = append(selected, *best)
		lastPos = best.Position

		// Next stride starts from the chosen break so page sizes stay near
		// the target even when a break landed far from its target offset.
		wordIdx = sort.SearchInts(words, best.Position) + target
	}

	return selected
}

// candidates merges the five break sources, applies the special-content
// veto, annotates assessments, and returns the list sorted by position.
func (s *Scorer) candidates(doc *structure.Document, layout settings.Layout) []BreakPoint {
	var out []BreakPoint

	for _, h := range doc.Headings {
		if h.Importance < 6 || h.Position == 0 {
			continue
		}
		out = append(out, BreakPoint{
			Position:  h.Position,
			Type:      TypeHeading,
			Quality:   h.BreakPriority,
			Reasoning: fmt.Sprintf("heading %q (level %d)", h.Text, h.Level),
		})
	}

	for _, p := range doc.Paragraphs {
		if p.BreakQuality < 6 || p.End >= len(doc.Text) {
			continue
		}
		out = append(out, BreakPoint{
			Position:  p.End,
			Type:      TypeParagraph,
			Quality:   p.BreakQuality,
			Reasoning: "paragraph end",
		})
	}

	for _, sec := range doc.Sections {
		if sec.Priority < 7 && !sec.ChapterBoundary {
			continue
		}
		if sec.Start == 0 {
			continue
		}
		out = append(out, BreakPoint{
			Position:  sec.Start,
			Type:      TypeSection,
			Quality:   sec.Priority,
			Reasoning: fmt.Sprintf("section boundary %q", sec.Title),
		})
	}

	for i := 1; i < len(doc.Blocks); i++ {
		prev, cur := doc.Blocks[i-1], doc.Blocks[i]
		if prev.Type == cur.Type || prev.Confidence < 0.7 || cur.Confidence < 0.7 {
			continue
		}
		out = append(out, BreakPoint{
			Position:  cur.Start,
			Type:      TypeSemantic,
			Quality:   7,
			Reasoning: fmt.Sprintf("transition %s to %s", prev.Type, cur.Type),
		})
	}

	for _, sp := range doc.Special {
		if sp.Impact != structure.ImpactHigh || sp.Start == 0 {
			continue
		}
		out = append(out, BreakPoint{
			Position:  sp.Start,
			Type:      TypeVisual,
			Quality:   6,
			Reasoning: fmt.Sprintf("before %s block", sp.Kind),
		})
	}

	for i := range out {
		bp := &out[i]
		bp.ID = uuid.NewString()
		if vetoed(doc, layout, bp.Position) {
			bp.Quality = bp.Quality - vetoPenalty
			if bp.Quality < 1 {
				bp.Quality = 1
			}
			bp.Assessment = Assessment{
				ReadingFlow:   ImpactNegative,
				Comprehension: ImpactNegative,
				Accessibility: ImpactNegative,
			}
			bp.Reasoning += " (inside high-impact content)"
			continue
		}
		bp.Assessment = assess(bp.Type, bp.Quality)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// vetoed reports whether pos falls strictly inside a high-impact special
// element whose boundary the settings say to respect.
func vetoed(doc *structure.Document, layout settings.Layout, pos int) bool {
	for _, sp := range doc.Special {
		if sp.Impact != structure.ImpactHigh {
			continue
		}
		if sp.Kind == structure.KindImage && !layout.RespectImageBounds {
			continue
		}
		if sp.Kind == structure.KindTable && !layout.RespectTableBounds {
			continue
		}
		if pos > sp.Start && pos < sp.End {
			return true
		}
	}
	return false
}

func assess(typ BreakType, quality int) Assessment {
	a := Assessment{
		ReadingFlow:   ImpactNeutral,
		Comprehension: ImpactNeutral,
		Accessibility: ImpactNeutral,
	}
	if typ == TypeHeading || typ == TypeSection {
		a.ReadingFlow = ImpactPositive
		a.Comprehension = ImpactPositive
	}
	switch {
	case quality >= 7:
		a.ReadingFlow = ImpactPositive
		a.Accessibility = ImpactPositive
	case quality <= 3:
		a.ReadingFlow = ImpactNegative
		a.Comprehension = ImpactNegative
	}
	return a
}

// pickCandidate returns the candidate within radius of targetOffset that
// maximizes 0.7*quality + 0.3*proximity, skipping positions at or before
// lastPos. Proximity maps distance onto a 0-10 scale.
func pickCandidate(candidates []BreakPoint, targetOffset, radius, lastPos int) *BreakPoint {
	lo := targetOffset - radius
	hi := targetOffset + radius

	first := sort.Search(len(candidates), func(i int) bool {
		return candidates[i].Position >= lo
	})

	var best *BreakPoint
	bestScore := -1.0
	for i := first; i < len(candidates) && candidates[i].Position <= hi; i++ {
		c := &candidates[i]
		if c.Position <= lastPos {
			continue
		}
		dist := c.Position - targetOffset
		if dist < 0 {
			dist = -dist
		}
		proximity := 10 * (1 - float64(dist)/float64(radius))
		score := 0.7*float64(c.Quality) + 0.3*proximity
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// wordStarts returns the byte offset of every word start in text.
func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i := 0; i < len(text); i++ {
		space := text[i] == ' ' || text[i] == '\n' || text[i] == '\t' || text[i] == '\r'
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
	}
	return starts
}
