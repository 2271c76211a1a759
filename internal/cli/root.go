// Package cli implements the privgate command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"privgate/internal/config"
)

type globals struct {
	version    string
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
	log zerolog.Logger
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(version string) int {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. Configuration is resolved once per
// invocation before any subcommand runs.
func NewRootCmd(version string) *cobra.Command {
	g := &globals{version: version}
	root := &cobra.Command{
		Use:           "privgate",
		Short:         "Local privacy gateway for legal reasoning",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (.yaml, .json or .toml); env vars override it")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: json|console (defaults LOG_FORMAT or json)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(g.configPath)
		if err != nil {
			return err
		}
		if g.logLevel != "" {
			cfg.LogLevel = g.logLevel
		}
		if g.logFormat != "" {
			cfg.LogFormat = g.logFormat
		}
		g.cfg = cfg
		g.log = NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
		return nil
	}

	root.AddCommand(
		newServeCmd(g),
		newModelCmd(g),
		newRegistryCmd(g),
		newAuditCmd(g),
		newKeygenCmd(g),
	)
	return root
}

// NewLogger returns the process logger. Unknown levels fall back to info.
func NewLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if f := strings.ToLower(format); f == "console" || f == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "privgate").Logger()
}
