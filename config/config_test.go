package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DBMaxOpenConns != 25 || cfg.DBMaxIdleConns != 5 {
		t.Errorf("pool defaults = %d/%d, want 25/5", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.ConflictRetryDelay != 50*time.Millisecond {
		t.Errorf("retry delay default = %v, want 50ms", cfg.ConflictRetryDelay)
	}
	if cfg.BoundaryFile != "municipality_boundary.geojson" {
		t.Errorf("boundary file default = %s", cfg.BoundaryFile)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_MAX_IDLE_CONNS", "10")
	t.Setenv("CONFLICT_RETRY_DELAY", "200ms")

	cfg := Load()

	if cfg.DBMaxOpenConns != 40 || cfg.DBMaxIdleConns != 10 {
		t.Errorf("pool sizes = %d/%d, want 40/10", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.ConflictRetryDelay != 200*time.Millisecond {
		t.Errorf("retry delay = %v, want 200ms", cfg.ConflictRetryDelay)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("CONFLICT_RETRY_DELAY", "soon")

	cfg := Load()

	if cfg.DBMaxOpenConns != 25 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.DBMaxOpenConns)
	}
	if cfg.ConflictRetryDelay != 50*time.Millisecond {
		t.Errorf("malformed duration should fall back to default, got %v", cfg.ConflictRetryDelay)
	}
}
