package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/config"
)

// loadConfig reads --config, or the defaults with environment overrides
// when no file is given.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		return cfg, nil
	}

	cfg := config.Default()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// loadCatalog returns the configured CUE catalog or the built-in one.
func loadCatalog(cfg config.Config) (catalog.Seed, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	seed, err := catalog.LoadCUE(cfg.Catalog)
	if err != nil {
		return catalog.Seed{}, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	return seed, nil
}

// setupLogging installs the default slog logger. --verbose forces debug
// level.
func setupLogging(w io.Writer, opts *RootOptions, cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	slog.SetDefault(slog.New(handler))
}
