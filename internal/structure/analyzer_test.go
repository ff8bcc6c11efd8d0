package structure

import (
	"strings"
	"testing"
)

func TestAnalyze_HeadingsAndOffsets(t *testing.T) {
	markup := `<h1>Chapter One</h1>
<p>The first paragraph sits here with several words in it.</p>
<h2>A Section</h2>
<p>The second paragraph follows the section heading.</p>`

	doc := NewAnalyzer().Analyze(markup)

	if len(doc.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(doc.Headings))
	}
	if doc.Headings[0].Text != "Chapter One" || doc.Headings[0].Level != 1 {
		t.Errorf("heading 0: got %q level %d", doc.Headings[0].Text, doc.Headings[0].Level)
	}
	if doc.Headings[0].Position != 0 {
		t.Errorf("first heading should sit at offset 0, got %d", doc.Headings[0].Position)
	}

	// Every recorded position must index the flattened text correctly.
	for _, h := range doc.Headings {
		if !strings.HasPrefix(doc.Text[h.Position:], h.Text) {
			t.Errorf("heading %q not at its recorded offset %d", h.Text, h.Position)
		}
	}
	for i, p := range doc.Paragraphs {
		if p.End <= p.Position || p.End > len(doc.Text) {
			t.Errorf("paragraph %d has invalid span [%d,%d)", i, p.Position, p.End)
		}
	}

	if len(doc.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(doc.Paragraphs))
	}
	if doc.WordCount == 0 {
		t.Error("expected nonzero word count")
	}
}

func TestAnalyze_HeadingImportance(t *testing.T) {
	markup := `<h1>Chapter Five</h1><p>Some body text here.</p><h4>Minor note</h4><p>More text.</p>`
	doc := NewAnalyzer().Analyze(markup)

	if len(doc.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(doc.Headings))
	}

	// h1 with "chapter" keyword and first-heading bonus outranks a plain h4.
	if doc.Headings[0].Importance <= doc.Headings[1].Importance {
		t.Errorf("h1 importance %d should exceed h4 importance %d",
			doc.Headings[0].Importance, doc.Headings[1].Importance)
	}
	for _, h := range doc.Headings {
		if h.Importance < 1 || h.Importance > 10 {
			t.Errorf("heading %q importance %d outside [1,10]", h.Text, h.Importance)
		}
		if h.BreakPriority < 1 || h.BreakPriority > 10 {
			t.Errorf("heading %q priority %d outside [1,10]", h.Text, h.BreakPriority)
		}
	}
}

func TestAnalyze_HierarchyPath(t *testing.T) {
	markup := `<h1>Part One</h1><p>Intro text.</p><h2>The Journey</h2><p>Body.</p><h3>Departure</h3><p>More.</p>`
	doc := NewAnalyzer().Analyze(markup)

	if len(doc.Headings) != 3 {
		t.Fatalf("expected 3 headings, got %d", len(doc.Headings))
	}
	h3 := doc.Headings[2]
	want := []string{"Part One", "The Journey"}
	if len(h3.Path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, h3.Path)
	}
	for i := range want {
		if h3.Path[i] != want[i] {
			t.Errorf("path[%d]: expected %q, got %q", i, want[i], h3.Path[i])
		}
	}
	if !doc.Headings[0].HasSubheadings {
		t.Error("h1 should report subheadings")
	}
	if doc.Headings[2].HasSubheadings {
		t.Error("h3 should not report subheadings")
	}
}

func TestAnalyze_ParagraphBreakQuality(t *testing.T) {
	clean := `<p>A short sentence that ends cleanly.</p><p>An unrelated new topic starts here.</p>`
	continued := `<p>A short sentence that ends cleanly.</p><p>However, the thought continues into this one.</p>`

	cleanDoc := NewAnalyzer().Analyze(clean)
	contDoc := NewAnalyzer().Analyze(continued)

	if cleanDoc.Paragraphs[0].BreakQuality <= contDoc.Paragraphs[0].BreakQuality {
		t.Errorf("continuation word should lower break quality: clean %d vs continued %d",
			cleanDoc.Paragraphs[0].BreakQuality, contDoc.Paragraphs[0].BreakQuality)
	}
	for _, p := range cleanDoc.Paragraphs {
		if p.BreakQuality < 1 || p.BreakQuality > 10 {
			t.Errorf("break quality %d outside [1,10]", p.BreakQuality)
		}
	}
}

func TestAnalyze_SpecialContent(t *testing.T) {
	markup := `<p>Before the figure.</p>
<img src="map.png" alt="A map of the northern coast">
<table><tr><td>col one</td><td>col two</td></tr></table>
<pre>x := compute()</pre>
<ul><li>first item</li><li>second item</li></ul>
<blockquote>A quoted passage from elsewhere.</blockquote>
<p>After everything.</p>`

	doc := NewAnalyzer().Analyze(markup)

	kinds := map[SpecialKind]int{}
	for _, sp := range doc.Special {
		kinds[sp.Kind]++
		if sp.End < sp.Start {
			t.Errorf("special %s has inverted span", sp.Kind)
		}
	}
	for _, want := range []SpecialKind{KindImage, KindTable, KindCode, KindList, KindQuote} {
		if kinds[want] == 0 {
			t.Errorf("expected at least one %s special", want)
		}
	}

	for _, sp := range doc.Special {
		switch sp.Kind {
		case KindImage, KindTable:
			if sp.Impact != ImpactHigh {
				t.Errorf("%s should carry high break impact, got %s", sp.Kind, sp.Impact)
			}
		case KindQuote:
			if sp.Impact != ImpactLow {
				t.Errorf("quote should carry low break impact, got %s", sp.Impact)
			}
		}
		if sp.Accessibility < 1 || sp.Accessibility > 10 {
			t.Errorf("%s accessibility %d outside [1,10]", sp.Kind, sp.Accessibility)
		}
	}

	// Image with alt text scores accessible; the alt text occupies a span.
	for _, sp := range doc.Special {
		if sp.Kind == KindImage {
			if sp.Accessibility < 5 {
				t.Errorf("alt-texted image accessibility %d too low", sp.Accessibility)
			}
			if sp.End == sp.Start {
				t.Error("image should occupy a nonzero span")
			}
		}
	}
}

func TestAnalyze_SemanticBlocks(t *testing.T) {
	markup := `<p>"Where are you going?" she asked quietly.</p>
<p>"Home," he said. "It has been a long day."</p>
<p>Therefore the committee concluded that the evidence, although incomplete, supported the claim; however, objections remained because the sample was small.</p>`

	doc := NewAnalyzer().Analyze(markup)

	if len(doc.Blocks) < 2 {
		t.Fatalf("expected at least 2 semantic blocks, got %d", len(doc.Blocks))
	}
	// The two dialogue paragraphs sit 2 bytes apart and must merge.
	if doc.Blocks[0].Type != BlockDialogue {
		t.Errorf("first block should be dialogue, got %s", doc.Blocks[0].Type)
	}
	if doc.Blocks[0].End <= doc.Paragraphs[0].End {
		t.Error("adjacent dialogue paragraphs should merge into one block")
	}
	last := doc.Blocks[len(doc.Blocks)-1]
	if last.Type != BlockArgumentative {
		t.Errorf("connector-heavy paragraph should classify argumentative, got %s", last.Type)
	}
	for _, b := range doc.Blocks {
		if b.Importance < 1 || b.Importance > 10 {
			t.Errorf("block importance %d outside [1,10]", b.Importance)
		}
		if b.Confidence < 0 || b.Confidence > 1 {
			t.Errorf("block confidence %f outside [0,1]", b.Confidence)
		}
	}
}

func TestAnalyze_TransitionalBlock(t *testing.T) {
	markup := `<p>Meanwhile, across the city, the plan unfolded.</p>`
	doc := NewAnalyzer().Analyze(markup)
	if len(doc.Blocks) != 1 || doc.Blocks[0].Type != BlockTransitional {
		t.Fatalf("expected one transitional block, got %+v", doc.Blocks)
	}
}

func TestAnalyze_Sections(t *testing.T) {
	markup := `<h1>Part One</h1><p>Opening.</p><h2>First</h2><p>Alpha.</p><h2>Second</h2><p>Beta.</p>`
	doc := NewAnalyzer().Analyze(markup)

	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	if !doc.Sections[0].ChapterBoundary {
		t.Error("h1 section should flag chapter boundary")
	}
	// The h1 section spans to the end; the first h2 section ends where the
	// second begins.
	if doc.Sections[0].End != len(doc.Text) {
		t.Errorf("h1 section should span to end, got %d of %d", doc.Sections[0].End, len(doc.Text))
	}
	if doc.Sections[1].End != doc.Sections[2].Start {
		t.Errorf("adjacent h2 sections should abut: %d vs %d", doc.Sections[1].End, doc.Sections[2].Start)
	}
}

func TestAnalyze_MalformedMarkupDegrades(t *testing.T) {
	cases := []string{
		"",
		"<<<<>>>>",
		"<p unclosed",
		strings.Repeat("<div>", 50),
	}
	for _, markup := range cases {
		doc := NewAnalyzer().Analyze(markup)
		if doc == nil {
			t.Fatalf("Analyze(%q) returned nil", markup)
		}
		// Must not panic and must be safe downstream.
		if doc.WordCount != len(strings.Fields(doc.Text)) {
			t.Errorf("word count inconsistent for %q", markup)
		}
	}
}

func TestAnalyze_SkipsNonContent(t *testing.T) {
	markup := `<nav>skip this</nav><script>var x = 1;</script><p>Keep this sentence.</p><footer>and skip this</footer>`
	doc := NewAnalyzer().Analyze(markup)
	if strings.Contains(doc.Text, "skip this") || strings.Contains(doc.Text, "var x") {
		t.Errorf("non-content elements leaked into text: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Keep this sentence.") {
		t.Errorf("paragraph content missing from text: %q", doc.Text)
	}
}

func TestAnalyze_FlowComplexity(t *testing.T) {
	short := `<p>He ran. She hid. It rained. They left. All done.</p>`
	long := `<p>` + strings.Repeat("the committee deliberated extensively regarding jurisdictional frameworks and procedural implementation strategies across multiple overlapping regulatory domains without reaching ", 3) + `a conclusion.</p>`

	if d := NewAnalyzer().Analyze(short); d.Flow.Complexity != DensityLow {
		t.Errorf("short sentences should read low complexity, got %s", d.Flow.Complexity)
	}
	if d := NewAnalyzer().Analyze(long); d.Flow.Complexity != DensityHigh {
		t.Errorf("long sentences should read high complexity, got %s", d.Flow.Complexity)
	}
}
