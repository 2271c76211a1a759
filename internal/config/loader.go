package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from strings like "30s" in every
// supported config format.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds runtime parameters for the gateway.
type Config struct {
	BindAddr string `json:"bind_addr" yaml:"bind_addr" toml:"bind_addr"`
	APIKey   string `json:"api_key" yaml:"api_key" toml:"api_key"`

	RemoteAPIKey  string   `json:"openai_api_key" yaml:"openai_api_key" toml:"openai_api_key"`
	RemoteModel   string   `json:"gpt_model" yaml:"gpt_model" toml:"gpt_model"`
	RemoteBaseURL string   `json:"openai_base_url" yaml:"openai_base_url" toml:"openai_base_url"`
	RemoteTimeout Duration `json:"remote_timeout" yaml:"remote_timeout" toml:"remote_timeout"`

	RateLimitPerSecond int    `json:"rate_limit_per_second" yaml:"rate_limit_per_second" toml:"rate_limit_per_second"`
	RateLimitBurst     int    `json:"rate_limit_burst_size" yaml:"rate_limit_burst_size" toml:"rate_limit_burst_size"`
	RateLimitBackend   string `json:"rate_limit_backend" yaml:"rate_limit_backend" toml:"rate_limit_backend"`
	MaxRequestSize     int64  `json:"max_request_size" yaml:"max_request_size" toml:"max_request_size"`

	EnableCompression  bool     `json:"enable_compression" yaml:"enable_compression" toml:"enable_compression"`
	EnableCORS         bool     `json:"enable_cors" yaml:"enable_cors" toml:"enable_cors"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	ModelsDir       string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	RegistryDir     string   `json:"registry_dir" yaml:"registry_dir" toml:"registry_dir"`
	IntegritySource string   `json:"integrity_source" yaml:"integrity_source" toml:"integrity_source"`
	RegistryMaxAge  Duration `json:"registry_max_age" yaml:"registry_max_age" toml:"registry_max_age"`
	FetchTimeout    Duration `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`
	VerifyInterval  Duration `json:"verify_interval" yaml:"verify_interval" toml:"verify_interval"`

	StateBackend  string `json:"state_backend" yaml:"state_backend" toml:"state_backend"`
	StatePath     string `json:"state_path" yaml:"state_path" toml:"state_path"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" toml:"redis_db"`

	LocalRuntime    string   `json:"local_runtime" yaml:"local_runtime" toml:"local_runtime"`
	LlamaServerURL  string   `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url"`
	LlamaCtx        int      `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads    int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LocalMaxTokens  int      `json:"local_max_tokens" yaml:"local_max_tokens" toml:"local_max_tokens"`
	LocalQueueDepth int      `json:"local_queue_depth" yaml:"local_queue_depth" toml:"local_queue_depth"`
	LocalMaxWait    Duration `json:"local_max_wait" yaml:"local_max_wait" toml:"local_max_wait"`

	AuditLedger string `json:"audit_ledger" yaml:"audit_ledger" toml:"audit_ledger"`
	TraceStdout bool   `json:"trace_stdout" yaml:"trace_stdout" toml:"trace_stdout"`
}

// Load reads a configuration file based on its extension on top of Defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
