package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pagebreak/internal/api"
	"github.com/dgallion1/pagebreak/internal/config"
	"github.com/dgallion1/pagebreak/internal/content"
	"github.com/dgallion1/pagebreak/internal/engine"
	"github.com/dgallion1/pagebreak/internal/persist"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load book content.
	provider, err := content.NewDir(cfg.BookDir)
	if err != nil {
		log.Error("failed to load book", "dir", cfg.BookDir, "error", err)
		os.Exit(1)
	}
	log.Info("loaded book", "title", provider.Title(), "chapters", provider.ChapterCount())

	// Initialize persistence.
	store, closeStore, err := newStore(cfg)
	if err != nil {
		log.Error("failed to initialize persistence", "backend", cfg.PersistBackend, "error", err)
		os.Exit(1)
	}

	// Initialize engine.
	eng := engine.New(cfg, provider, store, log)
	eng.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(eng, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		eng.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		closeStore()
	}()

	log.Info("starting pagebreak", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newStore builds the configured persistence backend. The returned func
// releases any held connections.
func newStore(cfg config.Config) (persist.Store, func(), error) {
	switch cfg.PersistBackend {
	case "memory":
		return persist.NewMemory(), func() {}, nil
	case "redis":
		r, err := persist.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	default:
		f, err := persist.NewFile(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	}
}
