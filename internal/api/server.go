package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/pagebreak/internal/config"
	"github.com/dgallion1/pagebreak/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP surface the rendering layer consumes.
type Server struct {
	router chi.Router
	engine *engine.Engine
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(eng *engine.Engine, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		engine: eng,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(LatencyReporter(s.engine.Recovery()))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints. With no key configured the API is open,
	// which fits a single-reader local deployment.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/book", s.handleBook)
		r.Get("/api/chapters/{chapter}/pages", s.handleChapterPages)

		r.Get("/api/position", s.handlePosition)
		r.Post("/api/navigate", s.handleNavigate)
		r.Get("/api/context", s.handleContext)
		r.Get("/api/reading-time", s.handleReadingTime)

		r.Post("/api/sessions", s.handleSession)
		r.Post("/api/bookmarks", s.handleBookmark)
		r.Post("/api/highlights", s.handleHighlight)

		r.Get("/api/cache/stats", s.handleCacheStats)
		r.Put("/api/settings", s.handleSettings)
		r.Post("/api/recover", s.handleRecover)
	})

	s.router = r
}
