package structure

import (
	"strings"

	"golang.org/x/net/html"
)

// Analyzer converts sanitized chapter markup into a Document. It holds no
// state between calls; one instance can serve all chapters concurrently.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// headingKeywords earn an importance bonus when present in heading text.
var headingKeywords = []string{
	"chapter", "introduction", "conclusion", "prologue", "epilogue",
	"part", "summary", "preface", "appendix",
}

// continuationWords at the start of the next paragraph penalize breaking
// after the current one.
var continuationWords = map[string]bool{
	"however":      true,
	"therefore":    true,
	"moreover":     true,
	"furthermore":  true,
	"nevertheless": true,
	"consequently": true,
	"thus":         true,
	"hence":        true,
	"additionally": true,
	"also":         true,
	"yet":          true,
	"still":        true,
}

// Analyze walks the markup once, flattening text nodes into Document.Text
// while recording structural elements at their running byte offsets.
// It never fails: markup that cannot be traversed yields an empty Document
// so the caller can fall back to word-count pagination.
func (a *Analyzer) Analyze(markup string) *Document {
	doc := &Document{}
	defer func() {
		if recover() != nil {
			*doc = Document{}
		}
	}()

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return doc
	}

	var text strings.Builder

	// appendBlock writes one flattened block and returns its [start, end)
	// span in the output text.
	appendBlock := func(s string) (int, int) {
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		start := text.Len()
		text.WriteString(s)
		return start, text.Len()
	}

	var headingStack []Heading

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				t := textContent(n)
				if t != "" {
					start, _ := appendBlock(t)
					for len(headingStack) > 0 && headingStack[len(headingStack)-1].Level >= level {
						headingStack = headingStack[:len(headingStack)-1]
					}
					path := make([]string, 0, len(headingStack))
					for _, h := range headingStack {
						path = append(path, h.Text)
					}
					h := Heading{Level: level, Text: t, Position: start, Path: path}
					headingStack = append(headingStack, h)
					doc.Headings = append(doc.Headings, h)
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			case "p":
				t := textContent(n)
				if t != "" {
					start, end := appendBlock(t)
					doc.Paragraphs = append(doc.Paragraphs, Paragraph{
						Position:  start,
						End:       end,
						WordCount: len(strings.Fields(t)),
					})
				}
				return
			case "img", "figure", "svg":
				// Images flatten to their alt text (or a placeholder) so the
				// element occupies a real span that breaks can be vetoed over.
				t := imageText(n)
				start, end := appendBlock(t)
				doc.Special = append(doc.Special, Special{
					Kind:          KindImage,
					Start:         start,
					End:           end,
					Accessibility: imageAccessibility(n),
					Impact:        ImpactHigh,
				})
				return
			case "table":
				t := textContent(n)
				if t != "" {
					start, end := appendBlock(t)
					doc.Special = append(doc.Special, Special{
						Kind: KindTable, Start: start, End: end,
						Accessibility: 4, Impact: ImpactHigh,
					})
				}
				return
			case "pre", "code":
				t := textContent(n)
				if t != "" {
					start, end := appendBlock(t)
					doc.Special = append(doc.Special, Special{
						Kind: KindCode, Start: start, End: end,
						Accessibility: 5, Impact: ImpactMedium,
					})
				}
				return
			case "ul", "ol", "dl":
				t := textContent(n)
				if t != "" {
					start, end := appendBlock(t)
					doc.Special = append(doc.Special, Special{
						Kind: KindList, Start: start, End: end,
						Accessibility: 7, Impact: ImpactMedium,
					})
				}
				return
			case "blockquote":
				t := textContent(n)
				if t != "" {
					start, end := appendBlock(t)
					doc.Special = append(doc.Special, Special{
						Kind: KindQuote, Start: start, End: end,
						Accessibility: 8, Impact: ImpactLow,
					})
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}

	doc.Text = text.String()
	doc.WordCount = len(strings.Fields(doc.Text))

	a.scoreHeadings(doc)
	a.scoreParagraphs(doc)
	a.buildSections(doc)
	a.classifyBlocks(doc)
	a.computeFlow(doc)

	return doc
}

// scoreHeadings assigns importance and break priority from level, keywords
// and position. The first and last headings of a chapter get a bonus.
func (a *Analyzer) scoreHeadings(doc *Document) {
	for i := range doc.Headings {
		h := &doc.Headings[i]

		score := 8 - h.Level
		lower := strings.ToLower(h.Text)
		for _, kw := range headingKeywords {
			if strings.Contains(lower, kw) {
				score += 2
				break
			}
		}
		if i == 0 || i == len(doc.Headings)-1 {
			score++
		}
		h.Importance = clampScore(score)

		priority := h.Importance
		if h.Level <= 2 {
			priority++
		}
		h.BreakPriority = clampScore(priority)

		for j := i + 1; j < len(doc.Headings); j++ {
			if doc.Headings[j].Level <= h.Level {
				break
			}
			h.HasSubheadings = true
			break
		}
	}
}

// scoreParagraphs rates how cleanly a break lands after each paragraph:
// terminal punctuation and shortness help, a continuation word opening the
// next paragraph hurts.
func (a *Analyzer) scoreParagraphs(doc *Document) {
	for i := range doc.Paragraphs {
		p := &doc.Paragraphs[i]
		t := doc.Text[p.Position:p.End]

		score := 5
		if endsWithTerminal(t) {
			score += 2
		}
		if p.WordCount > 0 && p.WordCount < 60 {
			score++
		}
		if i+1 < len(doc.Paragraphs) {
			next := doc.Paragraphs[i+1]
			fields := strings.Fields(doc.Text[next.Position:next.End])
			if len(fields) > 0 {
				first := strings.ToLower(strings.Trim(fields[0], ",.;:"))
				if continuationWords[first] {
					score -= 2
				}
			}
		}
		p.BreakQuality = clampScore(score)
		p.Density = paragraphDensity(t, p.WordCount)
	}
}

// buildSections derives sections from headings: each runs to the next
// heading of equal or shallower level, or to the end of the chapter.
func (a *Analyzer) buildSections(doc *Document) {
	for i, h := range doc.Headings {
		end := len(doc.Text)
		for j := i + 1; j < len(doc.Headings); j++ {
			if doc.Headings[j].Level <= h.Level {
				end = doc.Headings[j].Position
				break
			}
		}
		doc.Sections = append(doc.Sections, Section{
			Title:           h.Text,
			Start:           h.Position,
			End:             end,
			Level:           h.Level,
			Priority:        h.BreakPriority,
			ChapterBoundary: h.Level == 1,
		})
	}
}

func endsWithTerminal(t string) bool {
	t = strings.TrimRight(t, "\"'”’)")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func paragraphDensity(t string, words int) Density {
	if words == 0 {
		return DensityLow
	}
	avgWordLen := float64(len(t)) / float64(words)
	switch {
	case avgWordLen > 6.5:
		return DensityHigh
	case avgWordLen < 4.5:
		return DensityLow
	default:
		return DensityMedium
	}
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func imageText(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "alt" && strings.TrimSpace(attr.Val) != "" {
			return strings.TrimSpace(attr.Val)
		}
	}
	if t := textContent(n); t != "" {
		return t
	}
	return "[image]"
}

func imageAccessibility(n *html.Node) int {
	for _, attr := range n.Attr {
		if attr.Key == "alt" && strings.TrimSpace(attr.Val) != "" {
			return 8
		}
	}
	return 2
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
