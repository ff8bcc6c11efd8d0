// Package cache is the bounded, priority-evicted store of pagination
// results, keyed by chapter index. It is the only shared mutable state in
// the engine; every access goes through one mutex so eviction always sees a
// consistent view.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/pagebreak/internal/paginate"
)

// Config controls cache behavior.
type Config struct {
	Capacity int           // Max entries held at once.
	TTL      time.Duration // Entry lifetime since calculation.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: 20,
		TTL:      15 * time.Minute,
	}
}

// Entry wraps one chapter's PageBreakMap with its bookkeeping.
type Entry struct {
	Map          *paginate.PageBreakMap
	Timestamp    time.Time
	AccessCount  int
	LastAccessed time.Time
	Priority     int // 1-10, recomputed on every write
}

// Stats is a read-only derived view for diagnostics.
type Stats struct {
	Entries       int     `json:"entries"`
	Capacity      int     `json:"capacity"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	HitRate       float64 `json:"hit_rate"`
	AvgAgeSeconds float64 `json:"avg_age_seconds"`
	MemoryBytes   int64   `json:"memory_bytes_estimate"`
	MostAccessed  int     `json:"most_accessed_chapter"`
	LeastAccessed int     `json:"least_accessed_chapter"`
}

// Cache holds pagination results for up to Capacity chapters.
type Cache struct {
	mu        sync.Mutex
	entries   map[int]*Entry
	capacity  int
	ttl       time.Duration
	hits      int64
	misses    int64
	evictions int64

	// history keeps lifetime access counts per chapter across evictions,
	// feeding the frequency bonus when an entry is re-cached.
	history map[int]int
}

func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Cache{
		entries:  make(map[int]*Entry),
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		history:  make(map[int]int),
	}
}

// Get returns the cached map for a chapter, or nil on a miss. A hit
// requires the entry to be younger than the TTL and stamped with the given
// settings key; anything else is evicted and reported as a miss.
func (c *Cache) Get(chapter int, settingsKey string) *paginate.PageBreakMap {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[chapter]
	if !ok {
		c.misses++
		return nil
	}
	if time.Since(e.Timestamp) > c.ttl || e.Map.SettingsKey != settingsKey {
		delete(c.entries, chapter)
		c.misses++
		return nil
	}

	e.AccessCount++
	e.LastAccessed = time.Now()
	c.history[chapter]++
	c.hits++
	return e.Map
}

// Peek returns the cached map without touching hit/miss counters or access
// bookkeeping. Page-count estimation uses it so estimates never skew the
// diagnostics.
func (c *Cache) Peek(chapter int, settingsKey string) *paginate.PageBreakMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[chapter]
	if !ok || time.Since(e.Timestamp) > c.ttl || e.Map.SettingsKey != settingsKey {
		return nil
	}
	return e.Map
}

// Put stores a chapter's map, recomputing every entry's priority against
// the current chapter and evicting the lowest-priority, least-recently
// accessed entries until a slot is free.
func (c *Cache) Put(chapter int, m *paginate.PageBreakMap, currentChapter int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[chapter] = &Entry{
		Map:          m,
		Timestamp:    now,
		LastAccessed: now,
	}

	for idx, e := range c.entries {
		e.Priority = priorityFor(idx, currentChapter, c.history[idx])
	}

	for len(c.entries) > c.capacity {
		victim, ok := c.victim(chapter)
		if !ok {
			break
		}
		delete(c.entries, victim)
		c.evictions++
	}
}

// victim picks the lowest-priority entry, breaking ties by least-recent
// access. The entry just inserted is never the victim.
func (c *Cache) victim(justInserted int) (int, bool) {
	best := -1
	var bestEntry *Entry
	for idx, e := range c.entries {
		if idx == justInserted {
			continue
		}
		if bestEntry == nil ||
			e.Priority < bestEntry.Priority ||
			(e.Priority == bestEntry.Priority && e.LastAccessed.Before(bestEntry.LastAccessed)) {
			best = idx
			bestEntry = e
		}
	}
	return best, bestEntry != nil
}

// priorityFor scores an entry: 10 for the current chapter, 9 for adjacent,
// falling off with distance, plus a small frequency bonus, clamped to
// [1, 10].
func priorityFor(chapter, current, accessCount int) int {
	dist := chapter - current
	if dist < 0 {
		dist = -dist
	}
	p := 10 - dist
	p += accessCount / 5
	if p > 10 {
		p = 10
	}
	if p < 1 {
		p = 1
	}
	return p
}

// Invalidate clears one chapter's entry.
func (c *Cache) Invalidate(chapter int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, chapter)
}

// InvalidateAll clears the whole cache atomically, used on settings change.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int]*Entry)
}

// Cleanup purges expired entries independent of access pattern. The engine
// runs it on a ticker.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for idx, e := range c.entries {
		if now.Sub(e.Timestamp) > c.ttl {
			delete(c.entries, idx)
		}
	}
}

// CachedChapters returns the chapter indices currently held, sorted.
func (c *Cache) CachedChapters() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.entries))
	for idx := range c.entries {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats computes the diagnostic view.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:       len(c.entries),
		Capacity:      c.capacity,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		MostAccessed:  -1,
		LeastAccessed: -1,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}

	now := time.Now()
	var ageSum float64
	maxAccess, minAccess := -1, -1
	for idx, e := range c.entries {
		ageSum += now.Sub(e.Timestamp).Seconds()
		s.MemoryBytes += estimateBytes(e.Map)
		if maxAccess < 0 || e.AccessCount > maxAccess {
			maxAccess = e.AccessCount
			s.MostAccessed = idx
		}
		if minAccess < 0 || e.AccessCount < minAccess {
			minAccess = e.AccessCount
			s.LeastAccessed = idx
		}
	}
	if len(c.entries) > 0 {
		s.AvgAgeSeconds = ageSum / float64(len(c.entries))
	}
	return s
}

// estimateBytes approximates the in-memory footprint of one map. The cache
// never holds chapter text, only the derived records.
func estimateBytes(m *paginate.PageBreakMap) int64 {
	const (
		baseBytes    = 256
		pageBytes    = 160
		breakBytes   = 240
		headingBytes = 64
	)
	return baseBytes +
		int64(len(m.Pages))*pageBytes +
		int64(len(m.BreakPoints))*breakBytes +
		int64(len(m.Headings))*headingBytes
}
