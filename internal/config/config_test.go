package config

import (
	"errors"
	"testing"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	if _, err := Load(); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DailyRequestLimit != 20 {
		t.Fatalf("daily limit default = %d, want 20", cfg.DailyRequestLimit)
	}
	if cfg.ChatRetentionHours != 2 {
		t.Fatalf("chat retention default = %d, want 2", cfg.ChatRetentionHours)
	}
	if cfg.LogRetentionHours != 24 {
		t.Fatalf("log retention default = %d, want 24", cfg.LogRetentionHours)
	}
	if cfg.DefaultCollection != "nexus_slot_1" {
		t.Fatalf("default collection = %q", cfg.DefaultCollection)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("MAX_REQUESTS_LIMIT", "5")
	t.Setenv("CHAT_RETENTION_HOURS", "1")
	t.Setenv("LOG_RETENTION_HOURS", "48")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DailyRequestLimit != 5 || cfg.ChatRetentionHours != 1 || cfg.LogRetentionHours != 48 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
