package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyEnv_OverridesFileValues(t *testing.T) {
	t.Setenv("BIND_ADDR", "0.0.0.0:6000")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RATE_LIMIT_PER_SECOND", "7")
	t.Setenv("ENABLE_COMPRESSION", "false")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("MAX_REQUEST_SIZE", "4096")

	cfg := Defaults()
	ApplyEnv(&cfg)
	if cfg.BindAddr != "0.0.0.0:6000" || cfg.RateLimitPerSecond != 7 || cfg.EnableCompression {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.RemoteEnabled() {
		t.Fatalf("remote should be enabled when OPENAI_API_KEY is set")
	}
	if cfg.FetchTimeout.Std() != 45*time.Second || cfg.MaxRequestSize != 4096 {
		t.Fatalf("unexpected durations/sizes: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins=%v", cfg.CORSAllowedOrigins)
	}
}

func TestApplyEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST_SIZE", "lots")
	cfg := Defaults()
	ApplyEnv(&cfg)
	if cfg.RateLimitBurst != 20 {
		t.Fatalf("burst=%d", cfg.RateLimitBurst)
	}
}

func TestNormalize_DerivesPaths(t *testing.T) {
	cfg := Defaults()
	cfg.ModelsDir = "/srv/models"
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RegistryDir != "/srv/models" {
		t.Fatalf("registry dir=%q", cfg.RegistryDir)
	}
	if cfg.StatePath != filepath.Join("/srv/models", "active_model.env") {
		t.Fatalf("state path=%q", cfg.StatePath)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.APIKey = "short"
	cfg.RateLimitPerSecond = 0
	cfg.StateBackend = "redis"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"API_KEY", "RATE_LIMIT_PER_SECOND", "REDIS_ADDR"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in %q", want, msg)
		}
	}

	ok := Defaults()
	ok.APIKey = "0123456789abcdef"
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
