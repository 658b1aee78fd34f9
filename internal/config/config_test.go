package config

import (
	"testing"
	"time"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":18090")
	t.Setenv("API_BASE_URL", "http://127.0.0.1:15000/api")
	t.Setenv("GEOCODER_BASE_URL", "http://127.0.0.1:16000/geocode")
	t.Setenv("GEOCODER_API_KEY", "test-key")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("REFRESH_INTERVAL", "500ms")
	t.Setenv("GEOCODE_CONCURRENCY", "2")
	t.Setenv("SESSION_FILE", "/tmp/session-test.json")
	t.Setenv("REDIS_ADDR", "127.0.0.1:16379")

	cfg := Load()
	if cfg.HTTPAddr != ":18090" {
		t.Fatalf("expected HTTP_ADDR override, got %s", cfg.HTTPAddr)
	}
	if cfg.APIBaseURL != "http://127.0.0.1:15000/api" {
		t.Fatalf("expected API_BASE_URL override, got %s", cfg.APIBaseURL)
	}
	if cfg.GeocoderBaseURL != "http://127.0.0.1:16000/geocode" {
		t.Fatalf("expected GEOCODER_BASE_URL override, got %s", cfg.GeocoderBaseURL)
	}
	if cfg.GeocoderAPIKey != "test-key" {
		t.Fatalf("expected GEOCODER_API_KEY override, got %s", cfg.GeocoderAPIKey)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("expected REQUEST_TIMEOUT 3s, got %s", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval != 500*time.Millisecond {
		t.Fatalf("expected REFRESH_INTERVAL 500ms, got %s", cfg.RefreshInterval)
	}
	if cfg.GeocodeConcurrency != 2 {
		t.Fatalf("expected GEOCODE_CONCURRENCY 2, got %d", cfg.GeocodeConcurrency)
	}
	if cfg.SessionFile != "/tmp/session-test.json" {
		t.Fatalf("expected SESSION_FILE override, got %s", cfg.SessionFile)
	}
	if cfg.RedisAddr != "127.0.0.1:16379" {
		t.Fatalf("expected REDIS_ADDR override, got %s", cfg.RedisAddr)
	}
}

func TestLoadConfigSecondsFallback(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL_SECONDS", "7")

	cfg := Load()
	if cfg.RefreshInterval != 7*time.Second {
		t.Fatalf("expected REFRESH_INTERVAL 7s from seconds fallback, got %s", cfg.RefreshInterval)
	}
}
