// Package paginate converts scored break points into the contiguous page
// ranges that make up one chapter's pagination result.
package paginate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pagebreak/internal/score"
	"github.com/dgallion1/pagebreak/internal/settings"
	"github.com/dgallion1/pagebreak/internal/structure"
)

// wordsPerMinute is the default reading rate used for per-page estimates.
const wordsPerMinute = 200

// PageInfo describes one page of a chapter.
type PageInfo struct {
	ID               string            `json:"id"`
	PageNumber       int               `json:"page_number"` // 0-based within chapter
	GlobalPageNumber int               `json:"global_page_number"`
	StartOffset      int               `json:"start_offset"`
	EndOffset        int               `json:"end_offset"`
	WordCount        int               `json:"word_count"`
	EstimatedReadMin float64           `json:"estimated_read_minutes"`
	HasImages        bool              `json:"has_images"`
	HasTables        bool              `json:"has_tables"`
	ContentDensity   structure.Density `json:"content_density"`
	BreakQuality     int               `json:"break_quality"` // 1-10
}

// HeadingMark is a light heading record stamped into the map so navigation
// can resolve sections and breadcrumbs without re-running analysis.
type HeadingMark struct {
	Text     string `json:"text"`
	Level    int    `json:"level"`
	Position int    `json:"position"`
}

// PageBreakMap is the complete pagination result for one chapter under one
// settings snapshot. It is immutable once built; the cache owns its
// lifetime.
type PageBreakMap struct {
	ChapterIndex   int                `json:"chapter_index"`
	ContentLength  int                `json:"content_length"`
	WordCount      int                `json:"word_count"`
	Pages          []PageInfo         `json:"pages"`
	BreakPoints    []score.BreakPoint `json:"break_points"`
	Headings       []HeadingMark      `json:"headings"`
	LastCalculated time.Time          `json:"last_calculated"`
	SettingsKey    string             `json:"settings_key"`
	Fallback       bool               `json:"fallback"`
}

// PageCount returns the number of pages in the chapter.
func (m *PageBreakMap) PageCount() int {
	return len(m.Pages)
}

// PageAt returns the page containing offset, or the nearest page when the
// offset falls outside the content range.
func (m *PageBreakMap) PageAt(offset int) *PageInfo {
	if len(m.Pages) == 0 {
		return nil
	}
	for i := range m.Pages {
		p := &m.Pages[i]
		if offset >= p.StartOffset && offset < p.EndOffset {
			return p
		}
	}
	if offset < m.Pages[0].StartOffset {
		return &m.Pages[0]
	}
	return &m.Pages[len(m.Pages)-1]
}

// Breaker orchestrates analysis and scoring for one chapter and emits its
// PageBreakMap. It is a pure function of its inputs plus the layout
// snapshot it stamps into the result.
type Breaker struct {
	analyzer *structure.Analyzer
	scorer   *score.Scorer
}

func NewBreaker(analyzer *structure.Analyzer, scorer *score.Scorer) *Breaker {
	return &Breaker{analyzer: analyzer, scorer: scorer}
}

// Paginate analyzes the chapter markup, scores break points, and converts
// them into contiguous pages. A chapter with no breaks yields exactly one
// page spanning the whole content; an empty chapter yields one zero-length
// page.
func (b *Breaker) Paginate(markup string, chapterIndex, globalPageOffset int, layout settings.Layout) *PageBreakMap {
	doc := b.analyzer.Analyze(markup)
	breaks := b.scorer.FindBreakPoints(doc, layout)
	return b.build(doc, breaks, chapterIndex, globalPageOffset, layout)
}

func (b *Breaker) build(doc *structure.Document, breaks []score.BreakPoint, chapterIndex, globalPageOffset int, layout settings.Layout) *PageBreakMap {
	m := &PageBreakMap{
		ChapterIndex:   chapterIndex,
		ContentLength:  len(doc.Text),
		WordCount:      doc.WordCount,
		BreakPoints:    breaks,
		LastCalculated: time.Now(),
		SettingsKey:    layout.CacheKey(),
	}
	for _, h := range doc.Headings {
		m.Headings = append(m.Headings, HeadingMark{Text: h.Text, Level: h.Level, Position: h.Position})
	}

	// Page boundaries: each break position strictly inside the content.
	// Breaks at the edges or out of order would create empty pages and are
	// dropped. The quality of the break ending a page becomes that page's
	// break quality; the final page ends at the chapter boundary, which is
	// a perfect break.
	type bound struct{ pos, quality int }
	var bounds []bound
	for _, bp := range breaks {
		last := 0
		if len(bounds) > 0 {
			last = bounds[len(bounds)-1].pos
		}
		if bp.Position > last && bp.Position < len(doc.Text) {
			bounds = append(bounds, bound{bp.Position, bp.Quality})
		}
	}

	start := 0
	for _, bd := range bounds {
		m.Pages = append(m.Pages, b.page(doc, start, bd.pos, len(m.Pages), globalPageOffset, bd.quality))
		start = bd.pos
	}
	m.Pages = append(m.Pages, b.page(doc, start, len(doc.Text), len(m.Pages), globalPageOffset, 10))
	return m
}

func (b *Breaker) page(doc *structure.Document, start, end, number, globalOffset, quality int) PageInfo {
	text := doc.Text[start:end]
	words := len(strings.Fields(text))

	p := PageInfo{
		ID:               uuid.NewString(),
		PageNumber:       number,
		GlobalPageNumber: globalOffset + number,
		StartOffset:      start,
		EndOffset:        end,
		WordCount:        words,
		EstimatedReadMin: float64(words) / wordsPerMinute,
		ContentDensity:   pageDensity(text, words),
		BreakQuality:     quality,
	}

	for _, sp := range doc.Special {
		if sp.Start >= end || sp.End <= start {
			continue
		}
		switch sp.Kind {
		case structure.KindImage:
			p.HasImages = true
		case structure.KindTable:
			p.HasTables = true
		}
	}
	return p
}

func pageDensity(text string, words int) structure.Density {
	if words == 0 {
		return structure.DensityLow
	}
	avgWordLen := float64(len(text)) / float64(words)
	switch {
	case avgWordLen > 6.5:
		return structure.DensityHigh
	case avgWordLen < 4.5:
		return structure.DensityLow
	default:
		return structure.DensityMedium
	}
}
