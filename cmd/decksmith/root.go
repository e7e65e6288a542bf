package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/decksmith/internal/config"
)

type rootOptions struct {
	configPath  string
	metricsAddr string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "decksmith",
		Short:         "Translate reservoir-engineering commands into ECLIPSE schedule keywords",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /readyz on this address")
	pf.StringVar(&opts.logLevel, "log-level", "", "override server.log_level (debug, info, warn, error)")

	root.AddCommand(
		newTranslateCmd(opts),
		newCheckCmd(opts),
		newFmtDeckCmd(),
	)
	return root
}

// loadConfig reads --config when given, applies flag overrides and fills
// defaults.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg := &config.Config{}
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.metricsAddr != "" {
		cfg.Server.MetricsAddr = o.metricsAddr
	}
	if o.logLevel != "" {
		l := config.LogLevel(o.logLevel)
		if !l.IsValid() {
			return config.Config{}, fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", o.logLevel)
		}
		cfg.Server.LogLevel = l
	}
	return cfg.WithDefaults(), nil
}

// newLogger builds a text logger writing to w. The returned level can be
// changed while the logger is in use.
func newLogger(w io.Writer, level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), lv
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
