package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "http://backend:8000")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("default port: got %q", cfg.Port)
	}
	if cfg.PublicAPIURL != "http://backend:8000" {
		t.Errorf("public URL should fall back to backend URL, got %q", cfg.PublicAPIURL)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("default cache TTL: got %v", cfg.CacheTTL)
	}
	if cfg.RateLimitRPS != 2 || cfg.RateLimitBurst != 5 {
		t.Errorf("default rate limit: got rps=%v burst=%v", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestNewRequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "")

	if _, err := New(); err == nil {
		t.Error("expected error when BACKEND_API_URL is unset")
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "http://backend:8000")
	t.Setenv("PUBLIC_API_URL", "https://api.example.com")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "5s")
	t.Setenv("RATE_LIMIT_RPS", "10")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("PORT override ignored: %q", cfg.Port)
	}
	if cfg.PublicAPIURL != "https://api.example.com" {
		t.Errorf("PUBLIC_API_URL override ignored: %q", cfg.PublicAPIURL)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("CACHE_TTL override ignored: %v", cfg.CacheTTL)
	}
	if cfg.RateLimitRPS != 10 {
		t.Errorf("RATE_LIMIT_RPS override ignored: %v", cfg.RateLimitRPS)
	}
}

func TestNewInvalidValuesFallBack(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "http://backend:8000")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("invalid CACHE_TTL should use default, got %v", cfg.CacheTTL)
	}
	if cfg.RateLimitRPS != 2 {
		t.Errorf("invalid RATE_LIMIT_RPS should use default, got %v", cfg.RateLimitRPS)
	}
}
