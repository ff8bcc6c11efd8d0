package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// handlePosition returns the current cross-chapter position.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Nav().Position())
}

// navigateRequest selects one navigation mode by which fields are present:
// global_page alone, chapter+offset, or chapter+page.
type navigateRequest struct {
	Chapter    *int `json:"chapter,omitempty"`
	Page       *int `json:"page,omitempty"`
	Offset     *int `json:"offset,omitempty"`
	GlobalPage *int `json:"global_page,omitempty"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid navigation payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	nav := s.engine.Nav()
	ctx := r.Context()

	var err error
	switch {
	case req.GlobalPage != nil:
		err = nav.NavigateToGlobalPage(ctx, *req.GlobalPage)
	case req.Chapter != nil && req.Offset != nil:
		err = nav.NavigateToPosition(ctx, *req.Chapter, *req.Offset)
	case req.Chapter != nil && req.Page != nil:
		err = nav.NavigateToChapterPage(ctx, *req.Chapter, *req.Page)
	default:
		jsonError(w, "specify global_page, chapter+page, or chapter+offset", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.engine.NotePosition(ctx)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nav.Position())
}

// handleContext returns breadcrumbs, quick-jump targets and the current
// page for the rendering layer.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	nc, err := s.engine.Nav().Context(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nc)
}

// handleReadingTime estimates minutes between two global pages at the
// reader's measured pace.
func (s *Server) handleReadingTime(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		jsonError(w, "from must be an integer global page", http.StatusBadRequest)
		return
	}
	to, err := strconv.Atoi(r.URL.Query().Get("to"))
	if err != nil {
		jsonError(w, "to must be an integer global page", http.StatusBadRequest)
		return
	}

	nav := s.engine.Nav()
	minutes, err := nav.EstimateMinutesBetween(from, to)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"minutes":          minutes,
		"words_per_minute": nav.WordsPerMinute(),
	})
}

// handleSession records a completed reading session for the velocity
// estimate.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Words           int     `json:"words"`
		DurationSeconds float64 `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid session payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Words <= 0 || req.DurationSeconds <= 0 {
		jsonError(w, "words and duration_seconds must be positive", http.StatusBadRequest)
		return
	}

	s.engine.Nav().RecordSession(req.Words, time.Duration(req.DurationSeconds*float64(time.Second)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"words_per_minute": s.engine.Nav().WordsPerMinute(),
	})
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chapter int    `json:"chapter"`
		Offset  int    `json:"offset"`
		Label   string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid bookmark payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	b, err := s.engine.Nav().AddBookmark(req.Chapter, req.Offset, req.Label)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chapter int    `json:"chapter"`
		Offset  int    `json:"offset"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid highlight payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	h, err := s.engine.Nav().AddHighlight(req.Chapter, req.Offset, req.Text)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h)
}
