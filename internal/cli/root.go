// Package cli implements the gostt-bridge command line harness around a
// transcription session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/gostt-bridge/internal/config"
	"github.com/chaz8081/gostt-bridge/internal/engine"
	"github.com/chaz8081/gostt-bridge/internal/logging"
	"github.com/chaz8081/gostt-bridge/internal/models"
	"github.com/chaz8081/gostt-bridge/internal/transcribe"
)

type appState struct {
	configPath string
	logLevel   string
	verbose    bool
	jsonLogs   bool
	noProgress bool

	cfg    *config.Config
	logger *zap.Logger

	engineFn   func(backend string, logger *zap.Logger) (engine.Engine, error)
	recordFn   func(ctx context.Context, d time.Duration, path string) error
	downloadFn func(ctx context.Context, opts models.Options) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{}
	app.engineFn = transcribe.New
	app.recordFn = app.recordAudio
	app.downloadFn = models.Download

	cmd := &cobra.Command{
		Use:           "gostt-bridge",
		Short:         "Transcribe WAV audio with whisper.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to config file (default: ~/.config/gostt-bridge/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", false, "Enable debug logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", false, "Disable progress indicators")

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newDownloadModelCmd(app))
	cmd.AddCommand(newInitConfigCmd(app))

	return cmd
}

// setup loads the config and builds the logger. An explicit --config must
// exist; the default path is optional.
func (a *appState) setup() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.jsonLogs {
		cfg.Log.JSON = true
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *appState) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		return config.Load(a.configPath)
	}

	path := config.DefaultConfigPath()
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.Default()
	}
	return a.cfg
}
