package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Book content
	BookDir string

	// Auth
	APIKey string

	// Pagination cache
	CacheCapacity   int
	CacheTTL        time.Duration
	CleanupInterval time.Duration

	// Prefetch
	PrefetchRadius  int
	PrefetchWorkers int

	// Persistence
	PersistBackend string // memory, file, redis
	StateFile      string
	StateKey       string
	SaveDebounce   time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		BookDir: envOr("BOOK_DIR", "./book"),

		APIKey: os.Getenv("PAGEBREAK_API_KEY"),

		CacheCapacity:   envInt("CACHE_CAPACITY", 20),
		CacheTTL:        envDuration("CACHE_TTL", 15*time.Minute),
		CleanupInterval: envDuration("CLEANUP_INTERVAL", 60*time.Second),

		PrefetchRadius:  envInt("PREFETCH_RADIUS", 2),
		PrefetchWorkers: envInt("PREFETCH_WORKERS", 2),

		PersistBackend: envOr("PERSIST_BACKEND", "file"),
		StateFile:      envOr("STATE_FILE", defaultStateFile()),
		StateKey:       envOr("STATE_KEY", "pagebreak/state"),
		SaveDebounce:   envDuration("SAVE_DEBOUNCE", time.Second),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
	}

	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.CleanupInterval < 60*time.Second {
		cfg.CleanupInterval = 60 * time.Second
	}
	if cfg.PrefetchRadius < 0 {
		cfg.PrefetchRadius = 0
	}
	if cfg.PrefetchWorkers <= 0 {
		cfg.PrefetchWorkers = 2
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BookDir == "" {
		return fmt.Errorf("BOOK_DIR is required")
	}
	switch c.PersistBackend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("PERSIST_BACKEND must be memory, file or redis, got %q", c.PersistBackend)
	}
	return nil
}

func defaultStateFile() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pagebreak", "state.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "pagebreak", "state.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
