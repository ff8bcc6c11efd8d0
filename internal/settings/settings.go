package settings

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ScreenClass buckets a display into small/medium/large for pagination targets.
type ScreenClass string

const (
	ScreenSmall  ScreenClass = "small"
	ScreenMedium ScreenClass = "medium"
	ScreenLarge  ScreenClass = "large"
)

// ReadingLevel adjusts the words-per-page target for the reader's pace.
type ReadingLevel string

const (
	LevelBeginner     ReadingLevel = "beginner"
	LevelIntermediate ReadingLevel = "intermediate"
	LevelAdvanced     ReadingLevel = "advanced"
)

// Layout is the full layout parameter tuple supplied by the settings
// provider. Any change to it invalidates every cached pagination result,
// so the tuple doubles as the cache key source.
type Layout struct {
	FontSize              int    `json:"font_size"`
	LineHeight            float64 `json:"line_height"`
	ColumnWidth           int    `json:"column_width"`
	MarginSize            int    `json:"margin_size"`
	PageLayout            string `json:"page_layout"`
	ScreenWidth           int    `json:"screen_width"`
	ScreenHeight          int    `json:"screen_height"`
	PreferredWordsPerPage int    `json:"preferred_words_per_page"`
	AllowOrphanLines      bool   `json:"allow_orphan_lines"`
	RespectImageBounds    bool   `json:"respect_image_boundaries"`
	RespectTableBounds    bool   `json:"respect_table_boundaries"`

	ReadingLevel ReadingLevel `json:"reading_level,omitempty"`
}

// Default returns layout parameters for a typical single-column phone screen.
func Default() Layout {
	return Layout{
		FontSize:           16,
		LineHeight:         1.5,
		ColumnWidth:        600,
		MarginSize:         24,
		PageLayout:         "single",
		ScreenWidth:        390,
		ScreenHeight:       844,
		AllowOrphanLines:   false,
		RespectImageBounds: true,
		RespectTableBounds: true,
		ReadingLevel:       LevelIntermediate,
	}
}

// CacheKey serializes the tuple and hashes it. Two Layouts produce the same
// key iff every field matches, which is exactly the invalidation contract.
func (l Layout) CacheKey() string {
	data, err := json.Marshal(l)
	if err != nil {
		// Layout contains only plain scalar fields; Marshal cannot fail.
		return "invalid"
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// Screen classifies the display by its shorter dimension.
func (l Layout) Screen() ScreenClass {
	short := l.ScreenWidth
	if l.ScreenHeight < short {
		short = l.ScreenHeight
	}
	switch {
	case short < 480:
		return ScreenSmall
	case short > 900:
		return ScreenLarge
	default:
		return ScreenMedium
	}
}

// Provider supplies the current layout parameters. The engine holds one and
// re-reads it whenever a pagination result is produced or validated.
type Provider interface {
	Layout() Layout
}

// Static is a Provider returning a fixed Layout, used in tests and by the
// server which swaps the whole value on settings updates.
type Static struct {
	L Layout
}

func (s Static) Layout() Layout { return s.L }
