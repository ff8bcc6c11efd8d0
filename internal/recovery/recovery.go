// Package recovery wraps the pagination engine with a degradation state
// machine and a word-count-only fallback so the reader can always make
// progress.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pagebreak/internal/paginate"
	"github.com/dgallion1/pagebreak/internal/structure"
)

// Mode is the system health state.
type Mode string

const (
	ModeHealthy   Mode = "healthy"
	ModeDegraded  Mode = "degraded"
	ModeBasic     Mode = "fallback-basic"
	ModeEmergency Mode = "fallback-emergency"
)

const (
	degradedThreshold = 2 // recent errors above this -> degraded
	basicThreshold    = 5 // recent errors above this -> fallback-basic
	errorWindow       = 5 * time.Minute
	latencyWindow     = 20 // samples
	slowLatency       = 250 * time.Millisecond

	maxRecoveryAttempts = 3

	fallbackWordsPerPage = 300
	fallbackQuality      = 3
)

type errRecord struct {
	stage string
	at    time.Time
}

// Manager tracks error pressure and the current mode.
type Manager struct {
	log *slog.Logger

	mu        sync.Mutex
	mode      Mode
	errors    []errRecord
	latencies []time.Duration
	attempts  int
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{log: log, mode: ModeHealthy}
}

// Mode returns the current health state.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// ReportError counts a component failure and re-evaluates the mode.
// Nothing reported here is fatal; the worst outcome is degraded quality.
func (m *Manager) ReportError(stage string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, errRecord{stage: stage, at: time.Now()})
	m.log.Warn("component error", "stage", stage, "error", err, "mode", m.mode)
	m.evaluate()
}

// RecordLatency feeds a rendering/request latency sample into the health
// signal.
func (m *Manager) RecordLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, d)
	if len(m.latencies) > latencyWindow {
		m.latencies = m.latencies[len(m.latencies)-latencyWindow:]
	}
}

// HealthCheck prunes stale errors and re-evaluates the mode. The engine
// calls it periodically.
func (m *Manager) HealthCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluate()
}

// evaluate recomputes the mode from recent error count and latency.
// Emergency mode is sticky: only a successful recovery leaves it.
func (m *Manager) evaluate() {
	if m.mode == ModeEmergency {
		return
	}

	cutoff := time.Now().Add(-errorWindow)
	recent := m.errors[:0]
	for _, e := range m.errors {
		if e.at.After(cutoff) {
			recent = append(recent, e)
		}
	}
	m.errors = recent

	n := len(m.errors)
	slow := m.slowLatencies()

	var next Mode
	switch {
	case n > basicThreshold:
		next = ModeBasic
	case n > degradedThreshold || slow:
		next = ModeDegraded
	default:
		next = ModeHealthy
	}
	if next != m.mode {
		m.log.Info("mode transition", "from", m.mode, "to", next, "recent_errors", n)
		m.mode = next
	}
}

func (m *Manager) slowLatencies() bool {
	if len(m.latencies) < latencyWindow/2 {
		return false
	}
	slow := 0
	for _, d := range m.latencies {
		if d > slowLatency {
			slow++
		}
	}
	return slow*2 > len(m.latencies)
}

// AttemptRecovery clears corrupted state via the provided func, re-runs the
// pagination pipeline on a canary chapter, and returns to healthy on
// success. After maxRecoveryAttempts failures the system locks into
// emergency mode.
func (m *Manager) AttemptRecovery(ctx context.Context, clear func(), canary func(context.Context) error) bool {
	m.mu.Lock()
	if m.attempts >= maxRecoveryAttempts {
		m.mode = ModeEmergency
		m.mu.Unlock()
		return false
	}
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	m.log.Info("recovery attempt", "attempt", attempt)
	clear()
	if err := canary(ctx); err != nil {
		m.mu.Lock()
		if m.attempts >= maxRecoveryAttempts {
			m.mode = ModeEmergency
		}
		m.mu.Unlock()
		m.log.Warn("recovery canary failed", "attempt", attempt, "error", err)
		return false
	}

	m.mu.Lock()
	m.mode = ModeHealthy
	m.errors = nil
	m.attempts = 0
	m.mu.Unlock()
	m.log.Info("recovery succeeded", "attempt", attempt)
	return true
}

// FallbackMap synthesizes a word-count-only pagination for a chapter whose
// structural pipeline failed: the content is divided evenly into
// ceil(words/300) pages at quality 3 with no break-point metadata.
func (m *Manager) FallbackMap(chapterIndex, wordCount, contentLength, globalPageOffset int, settingsKey string) *paginate.PageBreakMap {
	pages := (wordCount + fallbackWordsPerPage - 1) / fallbackWordsPerPage
	if pages < 1 {
		pages = 1
	}

	out := &paginate.PageBreakMap{
		ChapterIndex:   chapterIndex,
		ContentLength:  contentLength,
		WordCount:      wordCount,
		LastCalculated: time.Now(),
		SettingsKey:    settingsKey,
		Fallback:       true,
	}

	wordsLeft := wordCount
	for i := 0; i < pages; i++ {
		start := contentLength * i / pages
		end := contentLength * (i + 1) / pages
		words := fallbackWordsPerPage
		if words > wordsLeft {
			words = wordsLeft
		}
		wordsLeft -= words
		out.Pages = append(out.Pages, paginate.PageInfo{
			ID:               uuid.NewString(),
			PageNumber:       i,
			GlobalPageNumber: globalPageOffset + i,
			StartOffset:      start,
			EndOffset:        end,
			WordCount:        words,
			EstimatedReadMin: float64(words) / 200,
			ContentDensity:   structure.DensityMedium,
			BreakQuality:     fallbackQuality,
		})
	}
	return out
}
