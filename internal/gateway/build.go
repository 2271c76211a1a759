package gateway

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"privgate/internal/activestate"
	"privgate/internal/audit"
	"privgate/internal/config"
	"privgate/internal/inference"
	"privgate/internal/integrity"
	"privgate/internal/ratelimit"
	"privgate/internal/reasoning"
	"privgate/internal/registry"
	"privgate/internal/telemetry"
)

// NewSource returns the truth source selected by cfg.IntegritySource.
func NewSource(cfg config.Config) integrity.Source {
	if cfg.IntegritySource == "inline" {
		return integrity.NewInlineTable(integrity.DefaultInlineEntries())
	}
	return integrity.NewRegistrySource(cfg.RegistryDir, registry.Options{MaxAge: cfg.RegistryMaxAge.Std()})
}

// NewEngine builds the integrity engine for cfg. Events go to pub.
func NewEngine(cfg config.Config, pub integrity.EventPublisher, log zerolog.Logger) *integrity.Engine {
	f := integrity.NewHTTPFetcher(0)
	f.Client = telemetry.InstrumentClient(f.Client)
	return integrity.New(integrity.Config{
		Fetcher:      f,
		Source:       NewSource(cfg),
		Publisher:    pub,
		Logger:       log.With().Str("component", "integrity").Logger(),
		FetchTimeout: cfg.FetchTimeout.Std(),
	})
}

// NewActiveStore returns the file or Redis store selected by cfg.
func NewActiveStore(cfg config.Config, rdb *redis.Client) (activestate.Store, error) {
	switch cfg.StateBackend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("state backend redis requires REDIS_ADDR")
		}
		return activestate.NewRedisStore(rdb, ""), nil
	default:
		return activestate.NewFileStore(cfg.StatePath), nil
	}
}

// Build wires a Gateway and all of its dependencies from cfg.
func Build(cfg config.Config, version string, log zerolog.Logger) (*Gateway, error) {
	var (
		rdb     *redis.Client
		closers []func() error
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		closers = append(closers, rdb.Close)
	}

	ledger := audit.New(cfg.AuditLedger, log.With().Str("component", "audit").Logger())
	engine := NewEngine(cfg, audit.IntegrityPublisher{Ledger: ledger, Logger: log}, log)

	active, err := NewActiveStore(cfg, rdb)
	if err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitBackend == "redis" && rdb != nil {
		rl := ratelimit.NewRedis(rdb, cfg.RateLimitPerSecond, cfg.RateLimitBurst)
		rl.Logger = log
		limiter = rl
	} else {
		limiter = ratelimit.NewTokenBucket(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	var adapter inference.InferenceAdapter
	switch cfg.LocalRuntime {
	case "llama":
		adapter = inference.NewLlamaAdapter(cfg.LlamaCtx, cfg.LlamaThreads)
	default:
		adapter = inference.NewLlamaServerAdapter(cfg.LlamaServerURL, 0, 5*time.Second, log)
	}
	runner := inference.NewRunner(inference.RunnerConfig{
		Adapter:       adapter,
		Params:        inference.InferParams{Temperature: 0.2, MaxTokens: cfg.LocalMaxTokens},
		MaxQueueDepth: cfg.LocalQueueDepth,
		MaxWait:       cfg.LocalMaxWait.Std(),
		Logger:        log.With().Str("component", "inference").Logger(),
	})
	closers = append(closers, runner.Close)

	var remote *reasoning.RemoteClient
	rcfg := reasoning.Config{
		Active:   active,
		Verifier: engine,
		Local:    runner,
		Logger:   log.With().Str("component", "reasoning").Logger(),
	}
	if cfg.RemoteEnabled() {
		remote = reasoning.NewRemoteClient(reasoning.RemoteConfig{
			BaseURL:    cfg.RemoteBaseURL,
			APIKey:     cfg.RemoteAPIKey,
			Model:      cfg.RemoteModel,
			Timeout:    cfg.RemoteTimeout.Std(),
			HTTPClient: telemetry.InstrumentClient(nil),
		})
		rcfg.Remote = remote
	}

	return New(Options{
		Version:        version,
		ModelsDir:      cfg.ModelsDir,
		Engine:         engine,
		Router:         reasoning.NewRouter(rcfg),
		Active:         active,
		Ledger:         ledger,
		Limiter:        limiter,
		Remote:         remote,
		VerifyInterval: cfg.VerifyInterval.Std(),
		Logger:         log,
		closers:        closers,
	}), nil
}
