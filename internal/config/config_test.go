package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dealwatch")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIPort != 8000 {
		t.Errorf("api port %d, want 8000", cfg.APIPort)
	}
	if cfg.CheckInterval != 5*time.Minute {
		t.Errorf("check interval %v, want 5m", cfg.CheckInterval)
	}
	if cfg.RetentionWindow != 30*24*time.Hour {
		t.Errorf("retention %v, want 30 days", cfg.RetentionWindow)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DEALWATCH_DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without a database url")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dealwatch")
	t.Setenv("CHECK_INTERVAL", "90s")
	t.Setenv("CHECK_WORKERS", "8")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CheckInterval != 90*time.Second {
		t.Errorf("check interval %v, want 90s", cfg.CheckInterval)
	}
	if cfg.CheckWorkers != 8 {
		t.Errorf("workers %d, want 8", cfg.CheckWorkers)
	}
	if !cfg.DryRun {
		t.Error("dry run not applied")
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[0] != "https://a.example.com" {
		t.Errorf("cors origins %v", cfg.CORSAllowOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dealwatch")
	t.Setenv("SUMMARY_HOUR", "25")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for impossible summary hour")
	}
}
