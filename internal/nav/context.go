package nav

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pagebreak/internal/paginate"
)

// recentHighlightLimit caps how many highlights appear in quick-jump lists.
const recentHighlightLimit = 5

// Crumb is one level of the book > chapter > section > page trail. Crumbs
// carry only coordinates; the rendering layer decides what tapping one does.
type Crumb struct {
	Kind       string `json:"kind"` // book, chapter, section, page
	Label      string `json:"label"`
	Chapter    int    `json:"chapter"`
	Offset     int    `json:"offset"`
	GlobalPage int    `json:"global_page"`
}

// TargetKind tags a quick-jump destination.
type TargetKind string

const (
	TargetChapterStart TargetKind = "chapter_start"
	TargetChapterEnd   TargetKind = "chapter_end"
	TargetBookmark     TargetKind = "bookmark"
	TargetHighlight    TargetKind = "highlight"
)

// JumpTarget is a data-only quick-jump descriptor.
type JumpTarget struct {
	Kind       TargetKind `json:"kind"`
	Label      string     `json:"label"`
	Chapter    int        `json:"chapter"`
	Offset     int        `json:"offset"`
	GlobalPage int        `json:"global_page"`
}

// Bookmark marks a position the reader saved.
type Bookmark struct {
	ID        string    `json:"id"`
	Chapter   int       `json:"chapter"`
	Offset    int       `json:"offset"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Highlight is a span the reader marked, anchored at its start offset.
type Highlight struct {
	ID        string    `json:"id"`
	Chapter   int       `json:"chapter"`
	Offset    int       `json:"offset"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NavContext is everything the rendering layer needs to draw chrome around
// the current page.
type NavContext struct {
	Position       Position           `json:"position"`
	CurrentPage    *paginate.PageInfo `json:"current_page,omitempty"`
	Breadcrumbs    []Crumb            `json:"breadcrumbs"`
	QuickJumps     []JumpTarget       `json:"quick_jumps"`
	CurrentHeading string             `json:"current_heading,omitempty"`
	NextHeading    string             `json:"next_heading,omitempty"`
}

// AddBookmark records a bookmark at the given coordinates.
func (c *Controller) AddBookmark(chapter, offset int, label string) (Bookmark, error) {
	if chapter < 0 || chapter >= c.src.ChapterCount() {
		return Bookmark{}, c.invalid(fmt.Errorf("bookmark chapter %d out of range", chapter))
	}
	b := Bookmark{
		ID:        uuid.NewString(),
		Chapter:   chapter,
		Offset:    offset,
		Label:     label,
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.bookmarks = append(c.bookmarks, b)
	c.mu.Unlock()
	return b, nil
}

// AddHighlight records a highlight at the given coordinates.
func (c *Controller) AddHighlight(chapter, offset int, text string) (Highlight, error) {
	if chapter < 0 || chapter >= c.src.ChapterCount() {
		return Highlight{}, c.invalid(fmt.Errorf("highlight chapter %d out of range", chapter))
	}
	h := Highlight{
		ID:        uuid.NewString(),
		Chapter:   chapter,
		Offset:    offset,
		Text:      text,
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.highlights = append(c.highlights, h)
	c.mu.Unlock()
	return h, nil
}

// Context assembles the navigation context for the current position. It
// paginates the current chapter on demand; all other chapters are served
// from cache or estimates.
func (c *Controller) Context(ctx context.Context) (NavContext, error) {
	pos := c.Position()

	m, err := c.src.MapFor(ctx, pos.ChapterIndex)
	if err != nil {
		return NavContext{}, fmt.Errorf("paginate chapter %d: %w", pos.ChapterIndex, err)
	}

	nc := NavContext{
		Position:    pos,
		Breadcrumbs: c.breadcrumbs(pos, m),
		QuickJumps:  c.quickJumps(),
	}
	if pos.ChapterPage >= 0 && pos.ChapterPage < m.PageCount() {
		page := m.Pages[pos.ChapterPage]
		nc.CurrentPage = &page
	}

	cur, next := headingsAround(m, pos.OffsetInChapter)
	nc.CurrentHeading = cur
	nc.NextHeading = next
	return nc, nil
}

func (c *Controller) breadcrumbs(pos Position, m *paginate.PageBreakMap) []Crumb {
	crumbs := []Crumb{
		{Kind: "book", Label: c.src.Title(), Chapter: 0, GlobalPage: 0},
		{
			Kind:       "chapter",
			Label:      c.src.ChapterTitle(pos.ChapterIndex),
			Chapter:    pos.ChapterIndex,
			GlobalPage: c.ToGlobalPage(pos.ChapterIndex, 0),
		},
	}

	if section, offset, ok := precedingHeading(m, pos.OffsetInChapter); ok {
		page := m.PageAt(offset)
		crumbs = append(crumbs, Crumb{
			Kind:       "section",
			Label:      section,
			Chapter:    pos.ChapterIndex,
			Offset:     offset,
			GlobalPage: c.ToGlobalPage(pos.ChapterIndex, page.PageNumber),
		})
	}

	crumbs = append(crumbs, Crumb{
		Kind:       "page",
		Label:      fmt.Sprintf("Page %d", pos.GlobalPage+1),
		Chapter:    pos.ChapterIndex,
		Offset:     pos.OffsetInChapter,
		GlobalPage: pos.GlobalPage,
	})
	return crumbs
}

// quickJumps merges chapter starts/ends, bookmarks and the most recent
// highlights, sorted by global page.
func (c *Controller) quickJumps() []JumpTarget {
	var targets []JumpTarget

	for i := 0; i < c.src.ChapterCount(); i++ {
		start := c.ToGlobalPage(i, 0)
		end := start + c.pageCount(i) - 1
		targets = append(targets,
			JumpTarget{
				Kind:       TargetChapterStart,
				Label:      c.src.ChapterTitle(i),
				Chapter:    i,
				GlobalPage: start,
			},
			JumpTarget{
				Kind:       TargetChapterEnd,
				Label:      fmt.Sprintf("%s (end)", c.src.ChapterTitle(i)),
				Chapter:    i,
				GlobalPage: end,
			},
		)
	}

	c.mu.Lock()
	bookmarks := append([]Bookmark(nil), c.bookmarks...)
	highlights := append([]Highlight(nil), c.highlights...)
	c.mu.Unlock()

	for _, b := range bookmarks {
		label := b.Label
		if label == "" {
			label = "Bookmark"
		}
		targets = append(targets, JumpTarget{
			Kind:       TargetBookmark,
			Label:      label,
			Chapter:    b.Chapter,
			Offset:     b.Offset,
			GlobalPage: c.globalPageForOffset(b.Chapter, b.Offset),
		})
	}

	sort.Slice(highlights, func(i, j int) bool {
		return highlights[i].CreatedAt.After(highlights[j].CreatedAt)
	})
	if len(highlights) > recentHighlightLimit {
		highlights = highlights[:recentHighlightLimit]
	}
	for _, h := range highlights {
		label := h.Text
		if len(label) > 40 {
			label = label[:40] + "…"
		}
		targets = append(targets, JumpTarget{
			Kind:       TargetHighlight,
			Label:      label,
			Chapter:    h.Chapter,
			Offset:     h.Offset,
			GlobalPage: c.globalPageForOffset(h.Chapter, h.Offset),
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].GlobalPage < targets[j].GlobalPage
	})
	return targets
}

// globalPageForOffset resolves an offset inside a chapter to a global page,
// using the cached map when present and a proportional estimate otherwise.
func (c *Controller) globalPageForOffset(chapter, offset int) int {
	base := c.ToGlobalPage(chapter, 0)
	if m := c.src.CachedMap(chapter); m != nil {
		if p := m.PageAt(offset); p != nil {
			return base + p.PageNumber
		}
		return base
	}
	return base
}

// precedingHeading finds the nearest heading at or before the offset.
func precedingHeading(m *paginate.PageBreakMap, offset int) (string, int, bool) {
	text, pos, found := "", 0, false
	for _, h := range m.Headings {
		if h.Position > offset {
			break
		}
		text, pos, found = h.Text, h.Position, true
	}
	return text, pos, found
}

// headingsAround returns the current section heading and the next one.
func headingsAround(m *paginate.PageBreakMap, offset int) (current, next string) {
	for _, h := range m.Headings {
		if h.Position <= offset {
			current = h.Text
		} else {
			next = h.Text
			break
		}
	}
	return current, next
}
