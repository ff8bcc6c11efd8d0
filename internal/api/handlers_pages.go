package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pagebreak/internal/settings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"mode":   s.engine.Recovery().Mode(),
	})
}

// handleBook summarizes the book: chapter titles, word counts and page
// estimates.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	type chapterSummary struct {
		Index     int    `json:"index"`
		Title     string `json:"title"`
		WordCount int    `json:"word_count"`
		Pages     int    `json:"pages"` // exact when cached, estimated otherwise
		Cached    bool   `json:"cached"`
	}

	nav := s.engine.Nav()
	var chapters []chapterSummary
	for i := 0; i < s.engine.ChapterCount(); i++ {
		cs := chapterSummary{
			Index:     i,
			Title:     s.engine.ChapterTitle(i),
			WordCount: s.engine.ChapterWordCount(i),
		}
		if m := s.engine.CachedMap(i); m != nil {
			cs.Pages = m.PageCount()
			cs.Cached = true
		} else {
			cs.Pages = nav.ToGlobalPage(i+1, 0) - nav.ToGlobalPage(i, 0)
		}
		chapters = append(chapters, cs)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":                 s.engine.Title(),
		"chapters":              chapters,
		"estimated_total_pages": nav.EstimatedTotalPages(),
	})
}

// handleChapterPages returns the PageBreakMap for one chapter, paginating
// on demand.
func (s *Server) handleChapterPages(w http.ResponseWriter, r *http.Request) {
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		jsonError(w, "chapter must be an integer", http.StatusBadRequest)
		return
	}

	m, err := s.engine.MapFor(r.Context(), chapter)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.CacheStats())
}

// handleSettings replaces the layout tuple, invalidating all cached
// pagination.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var layout settings.Layout
	if err := json.NewDecoder(r.Body).Decode(&layout); err != nil {
		jsonError(w, "invalid settings payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.engine.UpdateLayout(layout)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"settings_key": layout.CacheKey(),
	})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	recovered := s.engine.Recover(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"recovered": recovered,
		"mode":      s.engine.Recovery().Mode(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
