// Package nav tracks the reader's cross-chapter position and answers
// navigation queries on top of the pagination cache.
package nav

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pagebreak/internal/paginate"
)

// PageSource supplies pagination results. MapFor paginates on demand
// (cache-fill-on-miss); CachedMap only consults the cache so page-count
// estimates never trigger work.
type PageSource interface {
	Title() string
	ChapterCount() int
	ChapterTitle(chapter int) string
	ChapterWordCount(chapter int) int
	TargetWordsPerPage() int
	MapFor(ctx context.Context, chapter int) (*paginate.PageBreakMap, error)
	CachedMap(chapter int) *paginate.PageBreakMap
}

// Reporter receives navigation errors so the recovery layer can count them.
// Invalid navigation is reported, never fatal.
type Reporter interface {
	ReportError(stage string, err error)
}

// Position is the single source of truth for where the reader is.
type Position struct {
	GlobalPage          int       `json:"global_page_number"`
	ChapterIndex        int       `json:"chapter_index"`
	ChapterPage         int       `json:"chapter_page_number"`
	OffsetInChapter     int       `json:"offset_in_chapter"`
	EstimatedTotalPages int       `json:"estimated_total_pages"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Controller owns the position and all navigation state. All mutation goes
// through its validated setters.
type Controller struct {
	src    PageSource
	report Reporter
	log    *slog.Logger

	mu         sync.Mutex
	pos        Position
	bookmarks  []Bookmark
	highlights []Highlight
	sessions   []Session
}

func NewController(src PageSource, report Reporter, log *slog.Logger) *Controller {
	return &Controller{src: src, report: report, log: log}
}

// Position returns a copy of the current position.
func (c *Controller) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Restore installs a previously persisted position after validating its
// chapter index. Out-of-range data is discarded rather than trusted.
func (c *Controller) Restore(p Position) {
	if p.ChapterIndex < 0 || p.ChapterIndex >= c.src.ChapterCount() {
		c.log.Warn("discarding persisted position", "chapter", p.ChapterIndex)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = p
}

// pageCount returns the chapter's page count from the cache, or a
// word-count estimate when uncached.
func (c *Controller) pageCount(chapter int) int {
	if m := c.src.CachedMap(chapter); m != nil {
		return m.PageCount()
	}
	target := c.src.TargetWordsPerPage()
	if target <= 0 {
		target = 300
	}
	words := c.src.ChapterWordCount(chapter)
	pages := (words + target - 1) / target
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ToGlobalPage converts a (chapter, page) pair into a book-wide page
// number by summing preceding chapters' page counts.
func (c *Controller) ToGlobalPage(chapter, page int) int {
	global := page
	for i := 0; i < chapter; i++ {
		global += c.pageCount(i)
	}
	return global
}

// ToChapterPosition inverts ToGlobalPage. The second return is false when
// the global page exceeds the book.
func (c *Controller) ToChapterPosition(globalPage int) (chapter, page int, ok bool) {
	if globalPage < 0 {
		return 0, 0, false
	}
	remaining := globalPage
	for i := 0; i < c.src.ChapterCount(); i++ {
		n := c.pageCount(i)
		if remaining < n {
			return i, remaining, true
		}
		remaining -= n
	}
	return 0, 0, false
}

// EstimatedTotalPages sums page counts across the whole book.
func (c *Controller) EstimatedTotalPages() int {
	total := 0
	for i := 0; i < c.src.ChapterCount(); i++ {
		total += c.pageCount(i)
	}
	return total
}

// NavigateToChapterPage moves the reader to a specific page of a chapter.
// Invalid targets leave the position untouched; the error is reported and
// returned, never panicked.
func (c *Controller) NavigateToChapterPage(ctx context.Context, chapter, page int) error {
	if chapter < 0 || chapter >= c.src.ChapterCount() {
		return c.invalid(fmt.Errorf("chapter %d out of range [0,%d)", chapter, c.src.ChapterCount()))
	}
	m, err := c.src.MapFor(ctx, chapter)
	if err != nil {
		return c.invalid(fmt.Errorf("paginate chapter %d: %w", chapter, err))
	}
	if page < 0 || page >= m.PageCount() {
		return c.invalid(fmt.Errorf("page %d out of range [0,%d) in chapter %d", page, m.PageCount(), chapter))
	}

	c.setPosition(chapter, page, m.Pages[page].StartOffset)
	return nil
}

// NavigateToPosition moves to the page containing the given character
// offset, or the nearest page when the offset falls outside every range.
func (c *Controller) NavigateToPosition(ctx context.Context, chapter, offset int) error {
	if chapter < 0 || chapter >= c.src.ChapterCount() {
		return c.invalid(fmt.Errorf("chapter %d out of range [0,%d)", chapter, c.src.ChapterCount()))
	}
	if offset < 0 {
		return c.invalid(fmt.Errorf("negative offset %d", offset))
	}
	m, err := c.src.MapFor(ctx, chapter)
	if err != nil {
		return c.invalid(fmt.Errorf("paginate chapter %d: %w", chapter, err))
	}
	p := m.PageAt(offset)
	if p == nil {
		return c.invalid(fmt.Errorf("chapter %d has no pages", chapter))
	}

	c.setPosition(chapter, p.PageNumber, offset)
	return nil
}

// NavigateToGlobalPage moves to a book-wide page number.
func (c *Controller) NavigateToGlobalPage(ctx context.Context, globalPage int) error {
	chapter, page, ok := c.ToChapterPosition(globalPage)
	if !ok {
		return c.invalid(fmt.Errorf("global page %d beyond book", globalPage))
	}
	return c.NavigateToChapterPage(ctx, chapter, page)
}

func (c *Controller) setPosition(chapter, page, offset int) {
	global := c.ToGlobalPage(chapter, page)
	total := c.EstimatedTotalPages()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = Position{
		GlobalPage:          global,
		ChapterIndex:        chapter,
		ChapterPage:         page,
		OffsetInChapter:     offset,
		EstimatedTotalPages: total,
		LastUpdated:         time.Now(),
	}
}

func (c *Controller) invalid(err error) error {
	if c.report != nil {
		c.report.ReportError("navigation", err)
	}
	c.log.Warn("invalid navigation target", "error", err)
	return err
}
