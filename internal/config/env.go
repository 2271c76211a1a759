package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"privgate/internal/common/fsutil"
)

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() Config {
	return Config{
		BindAddr:           "127.0.0.1:5142",
		RemoteModel:        "gpt-4o",
		RemoteBaseURL:      "https://api.openai.com/v1",
		RemoteTimeout:      Duration(60 * time.Second),
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
		RateLimitBackend:   "memory",
		MaxRequestSize:     1 << 20,
		EnableCompression:  true,
		EnableCORS:         true,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "info",
		LogFormat:          "json",
		ModelsDir:          "~/.privgate/models",
		IntegritySource:    "registry",
		RegistryMaxAge:     Duration(180 * 24 * time.Hour),
		FetchTimeout:       Duration(30 * time.Minute),
		StateBackend:       "file",
		LocalRuntime:       "server",
		LlamaServerURL:     "http://127.0.0.1:8081",
		LlamaCtx:           4096,
		LocalMaxTokens:     512,
		LocalQueueDepth:    8,
		LocalMaxWait:       Duration(30 * time.Second),
		AuditLedger:        "~/.privgate/audit/ledger.jsonl",
	}
}

// Resolve builds the effective configuration: .env is preloaded into the
// process environment (existing variables win), then the optional config
// file is read, then environment variables override it.
func Resolve(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Defaults()
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	ApplyEnv(&cfg)
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config) {
	envStr(&cfg.BindAddr, "BIND_ADDR")
	envStr(&cfg.APIKey, "API_KEY")
	envStr(&cfg.RemoteAPIKey, "OPENAI_API_KEY")
	envStr(&cfg.RemoteModel, "GPT_MODEL")
	envStr(&cfg.RemoteBaseURL, "OPENAI_BASE_URL")
	envDuration(&cfg.RemoteTimeout, "REMOTE_TIMEOUT")
	envInt(&cfg.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND")
	envInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST_SIZE")
	envStr(&cfg.RateLimitBackend, "RATE_LIMIT_BACKEND")
	envInt64(&cfg.MaxRequestSize, "MAX_REQUEST_SIZE")
	envBool(&cfg.EnableCompression, "ENABLE_COMPRESSION")
	envBool(&cfg.EnableCORS, "ENABLE_CORS")
	envList(&cfg.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
	envStr(&cfg.LogLevel, "LOG_LEVEL")
	envStr(&cfg.LogFormat, "LOG_FORMAT")
	envStr(&cfg.ModelsDir, "MODELS_DIR")
	envStr(&cfg.RegistryDir, "REGISTRY_DIR")
	envStr(&cfg.IntegritySource, "INTEGRITY_SOURCE")
	envDuration(&cfg.RegistryMaxAge, "REGISTRY_MAX_AGE")
	envDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	envDuration(&cfg.VerifyInterval, "VERIFY_INTERVAL")
	envStr(&cfg.StateBackend, "STATE_BACKEND")
	envStr(&cfg.StatePath, "STATE_PATH")
	envStr(&cfg.RedisAddr, "REDIS_ADDR")
	envStr(&cfg.RedisPassword, "REDIS_PASSWORD")
	envInt(&cfg.RedisDB, "REDIS_DB")
	envStr(&cfg.LocalRuntime, "LOCAL_RUNTIME")
	envStr(&cfg.LlamaServerURL, "LLAMA_SERVER_URL")
	envInt(&cfg.LlamaCtx, "LLAMA_CTX")
	envInt(&cfg.LlamaThreads, "LLAMA_THREADS")
	envInt(&cfg.LocalMaxTokens, "LOCAL_MAX_TOKENS")
	envInt(&cfg.LocalQueueDepth, "LOCAL_QUEUE_DEPTH")
	envDuration(&cfg.LocalMaxWait, "LOCAL_MAX_WAIT")
	envStr(&cfg.AuditLedger, "AUDIT_LEDGER")
	envBool(&cfg.TraceStdout, "TRACE_STDOUT")
}

// Normalize expands '~' in paths and derives dependent defaults.
func (c *Config) Normalize() error {
	var err error
	if c.ModelsDir, err = fsutil.ExpandHome(c.ModelsDir); err != nil {
		return err
	}
	if c.RegistryDir == "" {
		c.RegistryDir = c.ModelsDir
	}
	if c.RegistryDir, err = fsutil.ExpandHome(c.RegistryDir); err != nil {
		return err
	}
	if c.StatePath == "" {
		c.StatePath = filepath.Join(c.ModelsDir, "active_model.env")
	}
	if c.StatePath, err = fsutil.ExpandHome(c.StatePath); err != nil {
		return err
	}
	if c.AuditLedger, err = fsutil.ExpandHome(c.AuditLedger); err != nil {
		return err
	}
	c.RateLimitBackend = strings.ToLower(strings.TrimSpace(c.RateLimitBackend))
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))
	c.IntegritySource = strings.ToLower(strings.TrimSpace(c.IntegritySource))
	c.LocalRuntime = strings.ToLower(strings.TrimSpace(c.LocalRuntime))
	return nil
}

// RemoteEnabled reports whether remote credentials are configured.
func (c Config) RemoteEnabled() bool { return strings.TrimSpace(c.RemoteAPIKey) != "" }

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.APIKey) < 16 {
		errs = append(errs, errors.New("API_KEY must be at least 16 characters"))
	}
	if c.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND must be greater than 0"))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST_SIZE must be greater than 0"))
	}
	if c.MaxRequestSize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_SIZE must be greater than 0"))
	}
	if c.FetchTimeout.Std() <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be greater than 0"))
	}
	switch c.IntegritySource {
	case "registry", "inline":
	default:
		errs = append(errs, fmt.Errorf("INTEGRITY_SOURCE must be registry or inline, got %q", c.IntegritySource))
	}
	switch c.StateBackend {
	case "file":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("STATE_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be file or redis, got %q", c.StateBackend))
	}
	switch c.RateLimitBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("RATE_LIMIT_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimitBackend))
	}
	switch c.LocalRuntime {
	case "server", "llama":
	default:
		errs = append(errs, fmt.Errorf("LOCAL_RUNTIME must be server or llama, got %q", c.LocalRuntime))
	}
	return errors.Join(errs...)
}

// Env helpers

func envStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func envBool(dst *bool, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	s := strings.ToLower(v)
	*dst = s == "1" || s == "true" || s == "yes"
}

func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
