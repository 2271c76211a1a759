package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"privgate/internal/gateway"
	"privgate/internal/httpapi"
	"privgate/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway",
		Example: "  privgate serve --addr 127.0.0.1:5142\n  privgate serve -c privgate.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.BindAddr = addr
			}
			return serve(cmd.Context(), g)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults BIND_ADDR or 127.0.0.1:5142)")
	return cmd
}

func serve(parent context.Context, g *globals) error {
	cfg, log := g.cfg, g.log
	if err := cfg.Validate(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TraceStdout {
		shutdownTracing, err := telemetry.Init(telemetry.Options{ServiceName: "privgate", Version: g.version, Stdout: true})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdownTracing(sctx)
		}()
	}

	gw, err := gateway.Build(cfg, g.version, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warn().Err(err).Msg("close gateway")
		}
	}()
	go gw.Run(ctx)

	handler := httpapi.NewMux(gw, httpapi.Options{
		APIKey:             cfg.APIKey,
		MaxBodyBytes:       cfg.MaxRequestSize,
		Limiter:            gw.Limiter(),
		EnableCompression:  cfg.EnableCompression,
		EnableCORS:         cfg.EnableCORS,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log.With().Str("component", "http").Logger(),
		LogLevel:           requestLogLevel(cfg.LogLevel),
		BaseContext:        ctx,
		Tracing:            cfg.TraceStdout,
	})
	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.BindAddr).
			Str("mode", gw.Mode()).
			Str("integrity_source", cfg.IntegritySource).
			Str("models_dir", cfg.ModelsDir).
			Msg("privgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// requestLogLevel maps the process log level onto the per-request one.
func requestLogLevel(level string) string {
	switch level {
	case "debug", "trace":
		return "debug"
	case "warn", "error", "fatal", "panic":
		return "error"
	case "disabled":
		return "off"
	default:
		return "info"
	}
}
