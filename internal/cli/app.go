// Package cli provides the serman command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BrainStation-23/serman/internal/config"
	"github.com/BrainStation-23/serman/internal/logging"
	"github.com/BrainStation-23/serman/internal/paths"
	"github.com/BrainStation-23/serman/internal/scheduler"
	"github.com/BrainStation-23/serman/internal/service"
)

// This exists to allow patching during tests.
var newProvider = service.NewProvider

// App holds what every subcommand needs once configuration is loaded.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Provider service.Provider

	ctx    context.Context
	closer io.Closer
}

// newApp loads configuration, builds the logger and selects the provider.
// An unsupported platform fails here, before any command runs.
func newApp(cmd *cobra.Command, configFile string, quiet bool) (*App, error) {
	loader := config.NewLoader(configFile)
	if cmd.Name() == "monitor" {
		loader.SetDefaultLogFile(paths.GetMonitorLogPath())
	}
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Quiet = quiet
	var (
		logger zerolog.Logger
		closer io.Closer
	)
	if isDefaultLogFile(logCfg.File) {
		logger, closer = logging.NewOrStderr(logCfg)
	} else {
		logger, closer, err = logging.New(logCfg)
		if err != nil {
			return nil, err
		}
	}

	ctx := logging.WithContext(cmd.Context(), logger)
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("configuration loaded")
	}

	opts, err := cfg.ProviderOptions()
	if err != nil {
		closer.Close()
		return nil, err
	}
	provider, err := newProvider(ctx, opts)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("cannot manage services on this host: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Provider: provider,
		ctx:      ctx,
		closer:   closer,
	}, nil
}

// isDefaultLogFile reports whether file is one of the built-in log paths, as
// opposed to one the operator chose.
func isDefaultLogFile(file string) bool {
	return file == paths.GetLogPath() || file == paths.GetMonitorLogPath()
}

// Context returns the command context carrying the logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// NewScheduler creates a scheduler bounded by the configured concurrency.
func (a *App) NewScheduler(opts ...scheduler.Option) *scheduler.Scheduler {
	opts = append([]scheduler.Option{scheduler.WithMaxConcurrency(a.Config.Scheduler.MaxConcurrency)}, opts...)
	return scheduler.New(a.Provider, opts...)
}

// Close releases the log file.
func (a *App) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
