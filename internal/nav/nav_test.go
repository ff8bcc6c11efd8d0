package nav

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/pagebreak/internal/paginate"
)

// stubSource serves fixed pre-built maps so navigation math is exact.
type stubSource struct {
	title string
	maps  []*paginate.PageBreakMap
	words []int
}

func (s *stubSource) Title() string        { return s.title }
func (s *stubSource) ChapterCount() int    { return len(s.maps) }
func (s *stubSource) TargetWordsPerPage() int { return 100 }

func (s *stubSource) ChapterTitle(ch int) string { return fmt.Sprintf("Chapter %d", ch+1) }

func (s *stubSource) ChapterWordCount(ch int) int { return s.words[ch] }

func (s *stubSource) MapFor(ctx context.Context, ch int) (*paginate.PageBreakMap, error) {
	if ch < 0 || ch >= len(s.maps) {
		return nil, fmt.Errorf("chapter %d out of range", ch)
	}
	return s.maps[ch], nil
}

func (s *stubSource) CachedMap(ch int) *paginate.PageBreakMap {
	if ch < 0 || ch >= len(s.maps) {
		return nil
	}
	return s.maps[ch]
}

type countingReporter struct {
	errors int
}

func (r *countingReporter) ReportError(stage string, err error) { r.errors++ }

// buildMap lays pages end to end at 6 bytes per word.
func buildMap(chapter int, pageWords []int, headings []paginate.HeadingMark) *paginate.PageBreakMap {
	m := &paginate.PageBreakMap{ChapterIndex: chapter, Headings: headings}
	start := 0
	for i, w := range pageWords {
		end := start + w*6
		m.Pages = append(m.Pages, paginate.PageInfo{
			PageNumber:  i,
			StartOffset: start,
			EndOffset:   end,
			WordCount:   w,
		})
		m.WordCount += w
		start = end
	}
	m.ContentLength = start
	return m
}

func testController() (*Controller, *stubSource, *countingReporter) {
	src := &stubSource{
		title: "The Long Voyage",
		maps: []*paginate.PageBreakMap{
			buildMap(0, []int{100, 100}, []paginate.HeadingMark{
				{Text: "Intro", Level: 1, Position: 0},
				{Text: "Later", Level: 2, Position: 600},
			}),
			buildMap(1, []int{50, 60, 70}, nil),
			buildMap(2, []int{80, 90}, nil),
		},
		words: []int{200, 180, 170},
	}
	rep := &countingReporter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(src, rep, log), src, rep
}

func TestGlobalPageRoundTrip(t *testing.T) {
	c, src, _ := testController()

	for ch := 0; ch < src.ChapterCount(); ch++ {
		for p := 0; p < src.maps[ch].PageCount(); p++ {
			global := c.ToGlobalPage(ch, p)
			gotCh, gotP, ok := c.ToChapterPosition(global)
			if !ok {
				t.Fatalf("round trip (%d,%d): global %d reported beyond book", ch, p, global)
			}
			if gotCh != ch || gotP != p {
				t.Errorf("round trip (%d,%d) via global %d came back (%d,%d)", ch, p, global, gotCh, gotP)
			}
		}
	}

	if total := c.EstimatedTotalPages(); total != 7 {
		t.Errorf("expected 7 total pages, got %d", total)
	}
	if _, _, ok := c.ToChapterPosition(7); ok {
		t.Error("global page one past the book should not resolve")
	}
	if _, _, ok := c.ToChapterPosition(-1); ok {
		t.Error("negative global page should not resolve")
	}
}

func TestNavigateToChapterPage(t *testing.T) {
	c, _, _ := testController()
	ctx := context.Background()

	if err := c.NavigateToChapterPage(ctx, 1, 2); err != nil {
		t.Fatalf("valid navigation failed: %v", err)
	}
	pos := c.Position()
	if pos.ChapterIndex != 1 || pos.ChapterPage != 2 {
		t.Errorf("position (%d,%d), expected (1,2)", pos.ChapterIndex, pos.ChapterPage)
	}
	if pos.GlobalPage != 4 {
		t.Errorf("global page %d, expected 4", pos.GlobalPage)
	}
	if pos.OffsetInChapter != 660 {
		t.Errorf("offset %d, expected page start 660", pos.OffsetInChapter)
	}
	if pos.EstimatedTotalPages != 7 {
		t.Errorf("estimated total %d, expected 7", pos.EstimatedTotalPages)
	}
}

func TestNavigate_InvalidTargetsLeavePositionUntouched(t *testing.T) {
	c, _, rep := testController()
	ctx := context.Background()

	if err := c.NavigateToChapterPage(ctx, 0, 1); err != nil {
		t.Fatalf("setup navigation failed: %v", err)
	}
	before := c.Position()

	cases := []struct {
		name string
		do   func() error
	}{
		{"chapter out of range", func() error { return c.NavigateToChapterPage(ctx, 99, 0) }},
		{"negative chapter", func() error { return c.NavigateToChapterPage(ctx, -1, 0) }},
		{"page out of range", func() error { return c.NavigateToChapterPage(ctx, 0, 99) }},
		{"global page beyond book", func() error { return c.NavigateToGlobalPage(ctx, 999) }},
		{"negative offset", func() error { return c.NavigateToPosition(ctx, 0, -4) }},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); err == nil {
				t.Fatal("expected an error")
			}
			after := c.Position()
			if after.ChapterIndex != before.ChapterIndex || after.ChapterPage != before.ChapterPage {
				t.Errorf("position moved to (%d,%d)", after.ChapterIndex, after.ChapterPage)
			}
		})
	}
	if rep.errors != len(cases) {
		t.Errorf("expected %d reported errors, got %d", len(cases), rep.errors)
	}
}

func TestNavigateToPosition_NearestPage(t *testing.T) {
	c, _, _ := testController()
	ctx := context.Background()

	// Offset 400 in chapter 1 lands on page 1 (300-660).
	if err := c.NavigateToPosition(ctx, 1, 400); err != nil {
		t.Fatalf("navigate failed: %v", err)
	}
	pos := c.Position()
	if pos.ChapterPage != 1 || pos.OffsetInChapter != 400 {
		t.Errorf("got page %d offset %d, expected page 1 offset 400", pos.ChapterPage, pos.OffsetInChapter)
	}

	// Beyond the chapter: snaps to the last page, keeps the offset.
	if err := c.NavigateToPosition(ctx, 1, 99999); err != nil {
		t.Fatalf("navigate failed: %v", err)
	}
	if got := c.Position().ChapterPage; got != 2 {
		t.Errorf("out-of-range offset should snap to last page, got %d", got)
	}
}

func TestNavigateToGlobalPage(t *testing.T) {
	c, _, _ := testController()
	ctx := context.Background()

	if err := c.NavigateToGlobalPage(ctx, 5); err != nil {
		t.Fatalf("navigate failed: %v", err)
	}
	pos := c.Position()
	if pos.ChapterIndex != 2 || pos.ChapterPage != 0 {
		t.Errorf("global 5 should be (2,0), got (%d,%d)", pos.ChapterIndex, pos.ChapterPage)
	}
}

func TestRestore(t *testing.T) {
	c, _, _ := testController()

	c.Restore(Position{ChapterIndex: 2, ChapterPage: 1, GlobalPage: 6})
	if got := c.Position(); got.ChapterIndex != 2 || got.ChapterPage != 1 {
		t.Errorf("restore did not install position, got (%d,%d)", got.ChapterIndex, got.ChapterPage)
	}

	c.Restore(Position{ChapterIndex: 42})
	if got := c.Position(); got.ChapterIndex != 2 {
		t.Errorf("out-of-range restore should be discarded, got chapter %d", got.ChapterIndex)
	}
}

func TestContext_BreadcrumbsAndHeadings(t *testing.T) {
	c, _, _ := testController()
	ctx := context.Background()

	if err := c.NavigateToChapterPage(ctx, 0, 1); err != nil {
		t.Fatalf("navigate failed: %v", err)
	}
	nc, err := c.Context(ctx)
	if err != nil {
		t.Fatalf("context failed: %v", err)
	}

	kinds := make([]string, len(nc.Breadcrumbs))
	for i, cr := range nc.Breadcrumbs {
		kinds[i] = cr.Kind
	}
	want := []string{"book", "chapter", "section", "page"}
	if len(kinds) != len(want) {
		t.Fatalf("expected trail %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected trail %v, got %v", want, kinds)
		}
	}
	if nc.Breadcrumbs[0].Label != "The Long Voyage" {
		t.Errorf("book crumb label %q", nc.Breadcrumbs[0].Label)
	}
	if nc.Breadcrumbs[2].Label != "Later" {
		t.Errorf("section crumb should be the preceding heading, got %q", nc.Breadcrumbs[2].Label)
	}
	if nc.CurrentHeading != "Later" || nc.NextHeading != "" {
		t.Errorf("headings around: got %q / %q", nc.CurrentHeading, nc.NextHeading)
	}
	if nc.CurrentPage == nil || nc.CurrentPage.PageNumber != 1 {
		t.Error("current page missing or wrong")
	}
}

func TestQuickJumps(t *testing.T) {
	c, _, _ := testController()
	ctx := context.Background()

	if _, err := c.AddBookmark(1, 350, "the twist"); err != nil {
		t.Fatalf("bookmark failed: %v", err)
	}
	if _, err := c.AddBookmark(7, 0, "bad"); err == nil {
		t.Fatal("bookmark in missing chapter should fail")
	}
	for i := 0; i < 7; i++ {
		if _, err := c.AddHighlight(0, i*10, fmt.Sprintf("highlight number %d", i)); err != nil {
			t.Fatalf("highlight failed: %v", err)
		}
	}

	nc, err := c.Context(ctx)
	if err != nil {
		t.Fatalf("context failed: %v", err)
	}

	counts := map[TargetKind]int{}
	lastGlobal := -1
	for _, j := range nc.QuickJumps {
		counts[j.Kind]++
		if j.GlobalPage < lastGlobal {
			t.Fatal("quick jumps must be sorted by global page")
		}
		lastGlobal = j.GlobalPage
	}
	if counts[TargetChapterStart] != 3 || counts[TargetChapterEnd] != 3 {
		t.Errorf("expected 3 chapter starts and ends, got %d/%d",
			counts[TargetChapterStart], counts[TargetChapterEnd])
	}
	if counts[TargetBookmark] != 1 {
		t.Errorf("expected 1 bookmark target, got %d", counts[TargetBookmark])
	}
	if counts[TargetHighlight] != 5 {
		t.Errorf("only the 5 most recent highlights belong, got %d", counts[TargetHighlight])
	}
}

func TestVelocity(t *testing.T) {
	c, _, _ := testController()

	if wpm := c.WordsPerMinute(); wpm != 200 {
		t.Errorf("no history should fall back to 200 wpm, got %f", wpm)
	}

	c.RecordSession(600, 2*time.Minute)
	if wpm := c.WordsPerMinute(); wpm != 300 {
		t.Errorf("expected 300 wpm, got %f", wpm)
	}

	c.RecordSession(0, time.Minute)
	c.RecordSession(100, 0)
	if wpm := c.WordsPerMinute(); wpm != 300 {
		t.Errorf("empty sessions must not move the estimate, got %f", wpm)
	}

	for i := 0; i < 15; i++ {
		c.RecordSession(100, time.Minute)
	}
	// Window keeps only the last 10 sessions, the 600-word one aged out.
	if wpm := c.WordsPerMinute(); wpm != 100 {
		t.Errorf("window should hold the recent uniform pace, got %f", wpm)
	}
}

func TestEstimateMinutesBetween(t *testing.T) {
	c, _, _ := testController()

	// Pages (0,0) and (0,1) hold 100 words each; crossing both at the
	// default 200 wpm takes one minute.
	minutes, err := c.EstimateMinutesBetween(0, 2)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if minutes != 1.0 {
		t.Errorf("expected 1.0 minutes, got %f", minutes)
	}

	// Reversed arguments measure the same span.
	rev, err := c.EstimateMinutesBetween(2, 0)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if rev != minutes {
		t.Errorf("reversed estimate %f differs from %f", rev, minutes)
	}

	same, err := c.EstimateMinutesBetween(3, 3)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if same != 0 {
		t.Errorf("zero-page span should take no time, got %f", same)
	}

	if _, err := c.EstimateMinutesBetween(0, 999); err == nil {
		t.Error("estimate beyond the book should fail")
	}
}
