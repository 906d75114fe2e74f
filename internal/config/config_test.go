package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STUDIO_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.Port != "8787" {
		t.Errorf("expected default port 8787, got %q", cfg.Port)
	}
	if cfg.TrainingPollInterval != 10*time.Second {
		t.Errorf("expected 10s poll interval, got %v", cfg.TrainingPollInterval)
	}
	if cfg.ThreadStore != ThreadStoreSQLite {
		t.Errorf("expected sqlite thread store, got %q", cfg.ThreadStore)
	}
}

func TestLoadPrefersStudioAPIURL(t *testing.T) {
	t.Setenv("STUDIO_API_URL", "https://studio.example.com/prod/")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://legacy.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://studio.example.com/prod" {
		t.Errorf("expected trimmed studio URL, got %q", cfg.APIURL)
	}
}

func TestLoadFallsBackToPublicAPIURL(t *testing.T) {
	t.Setenv("STUDIO_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://legacy.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://legacy.example.com" {
		t.Errorf("expected legacy URL, got %q", cfg.APIURL)
	}
}

func TestLoadRejectsUnknownThreadStore(t *testing.T) {
	t.Setenv("STUDIO_API_URL", "https://studio.example.com")
	t.Setenv("STUDIO_THREAD_STORE", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown thread store")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("STUDIO_TEST_DURATION", "15")
	if got := getEnvDuration("STUDIO_TEST_DURATION", time.Second); got != 15*time.Second {
		t.Errorf("expected bare seconds to parse, got %v", got)
	}

	t.Setenv("STUDIO_TEST_DURATION", "250ms")
	if got := getEnvDuration("STUDIO_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("expected duration string to parse, got %v", got)
	}

	t.Setenv("STUDIO_TEST_DURATION", "soon")
	if got := getEnvDuration("STUDIO_TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("expected fallback for garbage, got %v", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("STUDIO_TEST_BOOL", "yes")
	if !getEnvBool("STUDIO_TEST_BOOL", false) {
		t.Error("expected yes to be true")
	}
	t.Setenv("STUDIO_TEST_BOOL", "maybe")
	if getEnvBool("STUDIO_TEST_BOOL", false) {
		t.Error("expected fallback for unrecognized value")
	}
}
