// Package engine orchestrates the full pagination pipeline: content in,
// analysis, scoring, page breaking, caching, navigation, persistence and
// recovery.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pagebreak/internal/cache"
	"github.com/dgallion1/pagebreak/internal/config"
	"github.com/dgallion1/pagebreak/internal/content"
	"github.com/dgallion1/pagebreak/internal/nav"
	"github.com/dgallion1/pagebreak/internal/paginate"
	"github.com/dgallion1/pagebreak/internal/persist"
	"github.com/dgallion1/pagebreak/internal/recovery"
	"github.com/dgallion1/pagebreak/internal/score"
	"github.com/dgallion1/pagebreak/internal/settings"
	"github.com/dgallion1/pagebreak/internal/structure"
)

// State is what the engine persists: never raw page maps, which are always
// recomputed on demand.
type State struct {
	Position       nav.Position `json:"position"`
	CachedChapters []int        `json:"cached_chapters"`
	SettingsKey    string       `json:"settings_key"`
	SavedAt        time.Time    `json:"saved_at"`
}

// Engine owns the shared mutable pieces (cache, settings, position) and
// exposes the pagination and navigation API the outer layers consume.
type Engine struct {
	provider content.Provider
	breaker  *paginate.Breaker
	scorer   *score.Scorer
	cache    *cache.Cache
	rec      *recovery.Manager
	nav      *nav.Controller
	saver    *persist.Saver
	log      *slog.Logger
	cfg      config.Config

	mu     sync.Mutex
	layout settings.Layout

	prefetchMu     sync.Mutex
	prefetchCancel context.CancelFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the engine. The navigation controller is created here because
// the engine is its page source.
func New(cfg config.Config, provider content.Provider, store persist.Store, log *slog.Logger) *Engine {
	analyzer := structure.NewAnalyzer()
	scorer := score.NewScorer()

	e := &Engine{
		provider: provider,
		breaker:  paginate.NewBreaker(analyzer, scorer),
		scorer:   scorer,
		cache:    cache.New(cache.Config{Capacity: cfg.CacheCapacity, TTL: cfg.CacheTTL}),
		rec:      recovery.NewManager(log),
		saver:    persist.NewSaver(store, cfg.StateKey, cfg.SaveDebounce, log),
		log:      log,
		cfg:      cfg,
		layout:   settings.Default(),
	}
	e.nav = nav.NewController(e, e.rec, log)
	return e
}

// Start restores persisted state and launches the periodic cleanup and
// health-check loop.
func (e *Engine) Start(ctx context.Context) {
	e.restore()

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				e.cache.Cleanup()
				e.rec.HealthCheck()
			}
		}
	}()
}

// Stop cancels background work and flushes pending persistence.
func (e *Engine) Stop() {
	e.cancelPrefetch()
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.persistState()
	e.saver.Flush()
}

// Nav returns the navigation controller.
func (e *Engine) Nav() *nav.Controller { return e.nav }

// Recovery returns the fallback layer.
func (e *Engine) Recovery() *recovery.Manager { return e.rec }

// CacheStats returns the cache diagnostics view.
func (e *Engine) CacheStats() cache.Stats { return e.cache.Stats() }

// Layout returns the current layout snapshot.
func (e *Engine) Layout() settings.Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout
}

// UpdateLayout swaps the settings tuple. The whole cache is invalidated
// before any entry under the new key can be inserted, so stale pages are
// never served under new layout parameters.
func (e *Engine) UpdateLayout(l settings.Layout) {
	e.mu.Lock()
	changed := l.CacheKey() != e.layout.CacheKey()
	e.layout = l
	e.mu.Unlock()

	if changed {
		e.cancelPrefetch()
		e.cache.InvalidateAll()
		e.log.Info("settings changed, cache invalidated", "key", l.CacheKey())
		e.persistState()
	}
}

// Title implements nav.PageSource.
func (e *Engine) Title() string { return e.provider.Title() }

// ChapterCount implements nav.PageSource.
func (e *Engine) ChapterCount() int { return e.provider.ChapterCount() }

// ChapterTitle implements nav.PageSource.
func (e *Engine) ChapterTitle(chapter int) string {
	ch, err := e.provider.Chapter(chapter)
	if err != nil {
		return fmt.Sprintf("Chapter %d", chapter+1)
	}
	if ch.Title == "" {
		return fmt.Sprintf("Chapter %d", chapter+1)
	}
	return ch.Title
}

// ChapterWordCount implements nav.PageSource.
func (e *Engine) ChapterWordCount(chapter int) int {
	ch, err := e.provider.Chapter(chapter)
	if err != nil {
		return 0
	}
	return ch.WordCount
}

// TargetWordsPerPage implements nav.PageSource: the budget under the
// current layout with neutral content complexity, used for estimates.
func (e *Engine) TargetWordsPerPage() int {
	return e.scorer.TargetWordsPerPage(&structure.Document{}, e.Layout())
}

// CachedMap implements nav.PageSource without triggering pagination.
func (e *Engine) CachedMap(chapter int) *paginate.PageBreakMap {
	return e.cache.Peek(chapter, e.Layout().CacheKey())
}

// MapFor implements nav.PageSource: cache-fill-on-miss for exactly one
// chapter. Structural or scoring failures degrade to a fallback map rather
// than surfacing an error; only missing content is an error.
func (e *Engine) MapFor(ctx context.Context, chapter int) (*paginate.PageBreakMap, error) {
	if chapter < 0 || chapter >= e.provider.ChapterCount() {
		return nil, fmt.Errorf("chapter %d out of range [0,%d)", chapter, e.provider.ChapterCount())
	}

	layout := e.Layout()
	key := layout.CacheKey()
	if m := e.cache.Get(chapter, key); m != nil {
		return m, nil
	}

	ch, err := e.provider.Chapter(chapter)
	if err != nil {
		e.rec.ReportError("content", err)
		return nil, fmt.Errorf("load chapter %d: %w", chapter, err)
	}

	globalOffset := e.globalOffset(chapter, key)
	m := e.paginateChapter(ch, chapter, globalOffset, layout)
	e.cache.Put(chapter, m, e.nav.Position().ChapterIndex)
	e.persistState()
	return m, nil
}

// paginateChapter runs the pipeline with a panic guard; any failure yields
// the recovery layer's word-count fallback so reading never blocks.
func (e *Engine) paginateChapter(ch content.Chapter, chapter, globalOffset int, layout settings.Layout) (m *paginate.PageBreakMap) {
	defer func() {
		if r := recover(); r != nil {
			e.rec.ReportError("paginate", fmt.Errorf("chapter %d: %v", chapter, r))
			m = e.rec.FallbackMap(chapter, ch.WordCount, len(ch.Markup), globalOffset, layout.CacheKey())
		}
	}()

	if e.rec.Mode() == recovery.ModeBasic || e.rec.Mode() == recovery.ModeEmergency {
		return e.rec.FallbackMap(chapter, ch.WordCount, len(ch.Markup), globalOffset, layout.CacheKey())
	}

	m = e.breaker.Paginate(ch.Markup, chapter, globalOffset, layout)
	if m.WordCount == 0 && ch.WordCount > 0 {
		// The analyzer got nothing out of markup that has words: structural
		// parse failure. Degrade instead of serving an empty chapter.
		e.rec.ReportError("structure", fmt.Errorf("chapter %d: empty analysis for %d words", chapter, ch.WordCount))
		return e.rec.FallbackMap(chapter, ch.WordCount, len(ch.Markup), globalOffset, layout.CacheKey())
	}
	return m
}

// globalOffset sums page counts of preceding chapters from cached maps or
// word-count estimates.
func (e *Engine) globalOffset(chapter int, key string) int {
	target := e.TargetWordsPerPage()
	if target <= 0 {
		target = 300
	}
	offset := 0
	for i := 0; i < chapter; i++ {
		if m := e.cache.Peek(i, key); m != nil {
			offset += m.PageCount()
			continue
		}
		words := e.ChapterWordCount(i)
		pages := (words + target - 1) / target
		if pages < 1 {
			pages = 1
		}
		offset += pages
	}
	return offset
}

// NotePosition persists the position (debounced) and kicks off prefetch
// around the new chapter. Call after any successful navigation.
func (e *Engine) NotePosition(ctx context.Context) {
	e.persistState()
	e.prefetch(ctx, e.nav.Position().ChapterIndex)
}

// prefetch paginates chapters within the configured radius of the current
// chapter, best-effort. A new navigation cancels any prefetch in flight.
func (e *Engine) prefetch(parent context.Context, center int) {
	if e.cfg.PrefetchRadius <= 0 {
		return
	}

	e.prefetchMu.Lock()
	if e.prefetchCancel != nil {
		e.prefetchCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	e.prefetchCancel = cancel
	e.prefetchMu.Unlock()

	var chapters []int
	for d := 1; d <= e.cfg.PrefetchRadius; d++ {
		for _, c := range []int{center + d, center - d} {
			if c >= 0 && c < e.provider.ChapterCount() {
				chapters = append(chapters, c)
			}
		}
	}

	sem := make(chan struct{}, e.cfg.PrefetchWorkers)
	for _, c := range chapters {
		e.wg.Add(1)
		go func(c int) {
			defer e.wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			if _, err := e.MapFor(ctx, c); err != nil {
				e.log.Warn("prefetch failed", "chapter", c, "error", err)
			}
		}(c)
	}
}

func (e *Engine) cancelPrefetch() {
	e.prefetchMu.Lock()
	defer e.prefetchMu.Unlock()
	if e.prefetchCancel != nil {
		e.prefetchCancel()
		e.prefetchCancel = nil
	}
}

// Recover clears cache and persisted state, re-runs pagination on the
// current chapter as a canary, and reports whether the system returned to
// healthy.
func (e *Engine) Recover(ctx context.Context) bool {
	canaryChapter := e.nav.Position().ChapterIndex
	return e.rec.AttemptRecovery(ctx,
		func() {
			e.cache.InvalidateAll()
			e.saver.Clear()
		},
		func(ctx context.Context) error {
			m, err := e.MapFor(ctx, canaryChapter)
			if err != nil {
				return err
			}
			if m.Fallback {
				return fmt.Errorf("canary chapter %d still in fallback", canaryChapter)
			}
			return nil
		},
	)
}

// persistState schedules a debounced write of the current state.
func (e *Engine) persistState() {
	state := State{
		Position:       e.nav.Position(),
		CachedChapters: e.cache.CachedChapters(),
		SettingsKey:    e.Layout().CacheKey(),
		SavedAt:        time.Now(),
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	e.saver.Save(string(raw))
}

// restore loads persisted state at startup. Corrupt or incompatible data is
// discarded rather than trusted.
func (e *Engine) restore() {
	raw, ok := e.saver.Load()
	if !ok {
		return
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		e.log.Warn("discarding corrupt persisted state", "error", err)
		e.saver.Clear()
		e.rec.ReportError("persistence", err)
		return
	}
	e.nav.Restore(state.Position)
	e.log.Info("restored position",
		"chapter", state.Position.ChapterIndex,
		"page", state.Position.ChapterPage,
		"saved_at", state.SavedAt)
}
