// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/internal/config"
	"github.com/keinus/make-sps/internal/issue"
)

// skipSettingsAnnotation marks commands that must work without a loadable
// configuration.
const skipSettingsAnnotation = "make-sps/skip-settings"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the make-sps command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Software product specification generator",
		Long: TitleStyle.Render("make-sps") + SubtitleStyle.Render(" - Software product specification generator") + `

make-sps inventories a software delivery (a directory or a .zip archive),
classifies every file, fingerprints it, counts source lines and lays out
the SPS file tables.

` + SubtitleStyle.Render("Examples:") + `
  make-sps build ./delivery --device RDR-1 --version 1.0
  make-sps build ./delivery.zip --format hwpx --out section0.xml
  make-sps manifest init ./delivery
  make-sps classify main.go logo.png .dll
  make-sps config show`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(""); err != nil {
				return err
			}
			if cmd.Annotations[skipSettingsAnnotation] != "" {
				return nil
			}
			if _, err := app.Settings(cmd.Context()); err != nil {
				return app.fail(cmd, err)
			}
			if app.installLogger {
				slog.SetDefault(app.Logger())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is the platform config dir, then ./config.cue)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newClassifyCommand(app))
	rootCmd.AddCommand(newLocCommand(app))
	rootCmd.AddCommand(newManifestCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the mapped status code on failure.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	app.installLogger = true
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		os.Exit(ExitCode(err))
	}
}

// errorHandler leaves errors already rendered by App.fail alone and lets
// fang style everything else.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != ExitUsage {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// fail renders err for the user and converts it into an ExitError. Errors
// already rendered pass through unchanged.
func (a *App) fail(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	verbose := a.Verbose()
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	if id, ok := issue.IssueOf(err); ok && verbose {
		if entry := issue.Get(id); entry != nil {
			rendered, renderErr := entry.Render(a.ColorScheme())
			if renderErr != nil {
				slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			} else {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: ExitCode(err), Err: err}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// usageArgs wraps a positional argument validator so its failures map to the
// usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(fn(cmd, args))
	}
}
