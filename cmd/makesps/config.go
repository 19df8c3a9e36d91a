// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/internal/config"
)

// newConfigCommand creates the `make-sps config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	skip := map[string]string{skipSettingsAnnotation: "true"}

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage make-sps configuration",
		Long: `Manage make-sps configuration.

Configuration is stored in:
  - Linux: ~/.config/make-sps/config.cue
  - macOS: ~/Library/Application Support/make-sps/config.cue
  - Windows: %APPDATA%\make-sps\config.cue

A config.cue in the working directory is used when the platform file is
missing. Every key can be overridden with MAKESPS_<SECTION>_<KEY>, and a .env
file in the working directory is loaded first.`,
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Settings(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			showConfig(app.stdout, cfg.Redacted(), app.settingsSrc)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Create default configuration file",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return app.fail(cmd, err)
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), CmdStyle.Render(path))
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return app.fail(cmd, err)
			}
			path, err := config.DefaultPath(dir)
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE (credentials masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Settings(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			redacted := cfg.Redacted()
			fmt.Fprint(app.stdout, config.GenerateCUE(&redacted))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg config.Config, source string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	value := func(v any) string {
		s := fmt.Sprint(v)
		if s == "" {
			return SubtitleStyle.Render("(unset)")
		}
		return valueStyle.Render(s)
	}
	list := func(items []string) string {
		if len(items) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(strings.Join(items, ", "))
	}
	section := func(name string, pairs ...string) {
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
		for i := 0; i+1 < len(pairs); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", pairs[i], pairs[i+1])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if source == "" {
		fmt.Fprintf(w, "%s: %s\n\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n\n", keyStyle.Render("Config file"), source)
	}

	workers := "auto"
	if cfg.Scan.Workers > 0 {
		workers = strconv.Itoa(cfg.Scan.Workers)
	}
	section("scan",
		"workers", value(workers),
		"exclude", list(cfg.Scan.Exclude),
		"etc_patterns", list(cfg.Scan.EtcPatterns))
	section("classify",
		"unknown_fallback", value(cfg.Classify.UnknownFallback))
	section("fingerprint",
		"algorithm", value(cfg.Fingerprint.Algorithm),
		"on_error", value(cfg.Fingerprint.OnError))
	section("describe",
		"provider", value(cfg.Describe.Provider),
		"model", value(cfg.Describe.Model),
		"api_base", value(cfg.Describe.APIBase),
		"max_file_size", value(cfg.Describe.MaxFileSize),
		"timeout", value(cfg.Describe.Timeout),
		"cache_size", value(cfg.Describe.CacheSize))
	section("report",
		"format", value(cfg.Report.Format))
	s3 := cfg.Publish.S3
	section("publish.s3",
		"enabled", value(s3.Enabled),
		"endpoint", value(s3.Endpoint),
		"region", value(s3.Region),
		"bucket", value(s3.Bucket),
		"prefix", value(s3.Prefix),
		"access_key", value(s3.AccessKey),
		"secret_key", value(s3.SecretKey),
		"use_ssl", value(s3.UseSSL))
	section("ledger.postgres",
		"enabled", value(cfg.Ledger.Postgres.Enabled),
		"dsn", value(cfg.Ledger.Postgres.DSN))
	section("ui",
		"color_scheme", value(cfg.UI.ColorScheme),
		"verbose", value(cfg.UI.Verbose))
	section("log",
		"level", value(cfg.Log.Level),
		"format", value(cfg.Log.Format))
}
