// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/keinus/make-sps/internal/config"
	"github.com/keinus/make-sps/internal/ledger"
	"github.com/keinus/make-sps/internal/publish"
	"github.com/keinus/make-sps/pkg/record"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer; all Cobra command handlers receive an App reference.
	App struct {
		Config      config.Provider
		NewLedger   LedgerFactory
		NewPublish  PublisherFactory
		stdout      io.Writer
		stderr      io.Writer
		verbose     bool
		configPath  string
		settingsMu  sync.Mutex
		settings    *config.Config
		settingsSrc string
		logger      *slog.Logger
		// installLogger makes the configured logger the slog default.
		installLogger bool
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		NewLedger  LedgerFactory
		NewPublish PublisherFactory
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// Ledger stores report runs.
	Ledger interface {
		Migrate(ctx context.Context) error
		Record(ctx context.Context, run ledger.Run, records []record.FileRecord) (int64, error)
		Runs(ctx context.Context, device string) ([]ledger.Run, error)
		Files(ctx context.Context, runID int64) ([]record.FileRecord, error)
		Close()
	}

	// Publisher uploads rendered reports.
	Publisher interface {
		Publish(ctx context.Context, a publish.Artifact) (publish.Location, error)
	}

	// LedgerFactory opens a ledger for a DSN.
	LedgerFactory func(ctx context.Context, dsn string) (Ledger, error)

	// PublisherFactory creates a publisher for a bucket configuration.
	PublisherFactory func(cfg publish.Config) (Publisher, error)
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewLedger == nil {
		deps.NewLedger = func(ctx context.Context, dsn string) (Ledger, error) {
			pg, err := ledger.Open(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return pg, nil
		}
	}
	if deps.NewPublish == nil {
		deps.NewPublish = func(cfg publish.Config) (Publisher, error) {
			s3, err := publish.NewS3(cfg)
			if err != nil {
				return nil, err
			}
			return s3, nil
		}
	}

	return &App{
		Config:     deps.Config,
		NewLedger:  deps.NewLedger,
		NewPublish: deps.NewPublish,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// Settings loads the effective configuration once per App.
func (a *App) Settings(ctx context.Context) (*config.Config, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	if a.settings != nil {
		return a.settings, nil
	}
	cfg, src, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	a.settings = cfg
	a.settingsSrc = src
	a.logger = newLogger(a.stderr, cfg.Log, a.verbose || cfg.UI.Verbose)
	return cfg, nil
}

// Logger returns the configured logger, or a default stderr logger before
// configuration has loaded.
func (a *App) Logger() *slog.Logger {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	if a.logger == nil {
		a.logger = newLogger(a.stderr, config.LogConfig{}, a.verbose)
	}
	return a.logger
}

// ColorScheme returns the configured glamour style name, or auto before
// configuration has loaded.
func (a *App) ColorScheme() string {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	if a.settings == nil || a.settings.UI.ColorScheme == "" {
		return string(config.ColorSchemeAuto)
	}
	return string(a.settings.UI.ColorScheme)
}

// Verbose reports whether verbose output was requested by flag or config.
func (a *App) Verbose() bool {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	return a.verbose || (a.settings != nil && a.settings.UI.Verbose)
}
