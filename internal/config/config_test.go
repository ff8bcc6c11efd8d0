package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8091" {
		t.Errorf("default port %q", cfg.Port)
	}
	if cfg.CacheCapacity != 20 {
		t.Errorf("default cache capacity %d", cfg.CacheCapacity)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("default cache ttl %v", cfg.CacheTTL)
	}
	if cfg.PersistBackend != "file" {
		t.Errorf("default backend %q", cfg.PersistBackend)
	}
	if cfg.SaveDebounce != time.Second {
		t.Errorf("default save debounce %v", cfg.SaveDebounce)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_CAPACITY", "7")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("PERSIST_BACKEND", "memory")
	t.Setenv("PREFETCH_RADIUS", "-3")
	t.Setenv("CLEANUP_INTERVAL", "5s")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("port %q", cfg.Port)
	}
	if cfg.CacheCapacity != 7 {
		t.Errorf("cache capacity %d", cfg.CacheCapacity)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("cache ttl %v", cfg.CacheTTL)
	}
	if cfg.PersistBackend != "memory" {
		t.Errorf("backend %q", cfg.PersistBackend)
	}
	if cfg.PrefetchRadius != 0 {
		t.Errorf("negative radius should clamp to 0, got %d", cfg.PrefetchRadius)
	}
	if cfg.CleanupInterval != 60*time.Second {
		t.Errorf("cleanup interval has a 60s floor, got %v", cfg.CleanupInterval)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.BookDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing book dir should fail validation")
	}

	cfg = Load()
	cfg.PersistBackend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend should fail validation")
	}
}
