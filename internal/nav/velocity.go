package nav

import (
	"fmt"
	"time"
)

const (
	// velocityWindow is how many recent sessions feed the estimate.
	velocityWindow = 10
	// defaultWPM is assumed until the reader has any history.
	defaultWPM = 200
)

// Session is one recorded stretch of reading.
type Session struct {
	Words    int           `json:"words"`
	Duration time.Duration `json:"duration"`
	EndedAt  time.Time     `json:"ended_at"`
}

// RecordSession adds a reading session to the rolling window. Sessions with
// no words or no elapsed time carry no signal and are dropped.
func (c *Controller) RecordSession(words int, duration time.Duration) {
	if words <= 0 || duration <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, Session{Words: words, Duration: duration, EndedAt: time.Now()})
	if len(c.sessions) > velocityWindow {
		c.sessions = c.sessions[len(c.sessions)-velocityWindow:]
	}
}

// WordsPerMinute estimates the reader's pace from the rolling window,
// falling back to the default with no history.
func (c *Controller) WordsPerMinute() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalWords := 0
	var totalTime time.Duration
	for _, s := range c.sessions {
		totalWords += s.Words
		totalTime += s.Duration
	}
	if totalWords == 0 || totalTime <= 0 {
		return defaultWPM
	}
	return float64(totalWords) / totalTime.Minutes()
}

// EstimateMinutesBetween predicts reading time from one global page to
// another at the estimated pace. Cached chapters contribute exact per-page
// word counts; uncached chapters contribute proportional estimates.
func (c *Controller) EstimateMinutesBetween(fromGlobal, toGlobal int) (float64, error) {
	if toGlobal < fromGlobal {
		fromGlobal, toGlobal = toGlobal, fromGlobal
	}
	fromChapter, fromPage, ok := c.ToChapterPosition(fromGlobal)
	if !ok {
		return 0, fmt.Errorf("global page %d beyond book", fromGlobal)
	}
	toChapter, toPage, ok := c.ToChapterPosition(toGlobal)
	if !ok {
		return 0, fmt.Errorf("global page %d beyond book", toGlobal)
	}

	words := 0
	for ch := fromChapter; ch <= toChapter; ch++ {
		startPage := 0
		if ch == fromChapter {
			startPage = fromPage
		}
		endPage := c.pageCount(ch) - 1
		if ch == toChapter {
			endPage = toPage - 1 // Pages before the target, exclusive.
			if ch == fromChapter && toPage <= fromPage {
				break
			}
		}
		words += c.wordsInPageRange(ch, startPage, endPage)
	}

	return float64(words) / c.WordsPerMinute(), nil
}

// wordsInPageRange sums word counts for pages [start, end] of a chapter.
func (c *Controller) wordsInPageRange(chapter, start, end int) int {
	if end < start {
		return 0
	}
	if m := c.src.CachedMap(chapter); m != nil {
		words := 0
		for i := start; i <= end && i < m.PageCount(); i++ {
			words += m.Pages[i].WordCount
		}
		return words
	}
	total := c.src.ChapterWordCount(chapter)
	pages := c.pageCount(chapter)
	if pages == 0 {
		return 0
	}
	span := end - start + 1
	if span > pages {
		span = pages
	}
	return total * span / pages
}
