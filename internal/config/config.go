// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/keinus/make-sps/internal/issue"
	"github.com/keinus/make-sps/pkg/cueutil"
	"github.com/keinus/make-sps/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "make-sps"
	// EnvPrefix prefixes environment overrides, e.g. MAKESPS_SCAN_WORKERS.
	EnvPrefix = "MAKESPS"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvFileName is the dotenv file read from the working directory.
	EnvFileName = ".env"

	redacted = "********"
)

//go:embed config_schema.cue
var configSchema []byte

var configSchemaDef = cueutil.MustCompile(configSchema, "#Config")

// ConfigDir returns the make-sps configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultPath returns the config file path inside dir, or inside ConfigDir
// when dir is empty.
func DefaultPath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = EnvFileName
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadWithOptions performs option-driven config loading. Precedence, lowest
// first: defaults, config file, MAKESPS_* environment variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'make-sps config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cuePath, err := DefaultPath(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		localCuePath := ConfigFileName + "." + ConfigFileExt
		switch {
		case fileExists(cuePath):
			resolvedPath = cuePath
		case fileExists(localCuePath):
			resolvedPath = localCuePath
		}
		// No config file means defaults plus environment.
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment values bypass the CUE schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check MAKESPS_* environment overrides").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.exclude", d.Scan.Exclude)
	v.SetDefault("scan.etc_patterns", d.Scan.EtcPatterns)
	v.SetDefault("classify.unknown_fallback", string(d.Classify.UnknownFallback))
	v.SetDefault("fingerprint.algorithm", string(d.Fingerprint.Algorithm))
	v.SetDefault("fingerprint.on_error", string(d.Fingerprint.OnError))
	v.SetDefault("describe.provider", string(d.Describe.Provider))
	v.SetDefault("describe.model", d.Describe.Model)
	v.SetDefault("describe.api_base", d.Describe.APIBase)
	v.SetDefault("describe.max_file_size", string(d.Describe.MaxFileSize))
	v.SetDefault("describe.timeout", d.Describe.Timeout.String())
	v.SetDefault("describe.cache_size", d.Describe.CacheSize)
	v.SetDefault("report.format", string(d.Report.Format))
	v.SetDefault("publish.s3.enabled", d.Publish.S3.Enabled)
	v.SetDefault("publish.s3.endpoint", d.Publish.S3.Endpoint)
	v.SetDefault("publish.s3.region", d.Publish.S3.Region)
	v.SetDefault("publish.s3.bucket", d.Publish.S3.Bucket)
	v.SetDefault("publish.s3.prefix", d.Publish.S3.Prefix)
	v.SetDefault("publish.s3.access_key", d.Publish.S3.AccessKey)
	v.SetDefault("publish.s3.secret_key", d.Publish.S3.SecretKey)
	v.SetDefault("publish.s3.use_ssl", d.Publish.S3.UseSSL)
	v.SetDefault("ledger.postgres.enabled", d.Ledger.Postgres.Enabled)
	v.SetDefault("ledger.postgres.dsn", d.Ledger.Postgres.DSN)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", string(d.Log.Format))
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Config fields are optional, so the file
// is checked as a partial document.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchemaDef, data, path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir (ConfigDir when
// empty) unless one exists. It returns the path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgPath, err := DefaultPath(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// Redacted returns a copy of cfg with credentials masked.
func (c Config) Redacted() Config {
	out := c
	if out.Publish.S3.SecretKey != "" {
		out.Publish.S3.SecretKey = redacted
	}
	if out.Publish.S3.AccessKey != "" {
		out.Publish.S3.AccessKey = redacted
	}
	if out.Ledger.Postgres.DSN != "" {
		out.Ledger.Postgres.DSN = redactDSN(out.Ledger.Postgres.DSN)
	}
	return out
}

// redactDSN masks the password of a postgres URL DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return redacted
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":" + redacted + "@" + host
}

// GenerateCUE generates a CUE representation of the configuration.
// Credentials are written only when set; prefer the environment for them.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// make-sps configuration file\n")
	sb.WriteString("// Every key can be overridden with MAKESPS_<SECTION>_<KEY> environment variables.\n\n")

	sb.WriteString("scan: {\n")
	fmt.Fprintf(&sb, "\tworkers: %d\n", cfg.Scan.Workers)
	fmt.Fprintf(&sb, "\texclude: %s\n", cueList(cfg.Scan.Exclude))
	fmt.Fprintf(&sb, "\tetc_patterns: %s\n", cueList(cfg.Scan.EtcPatterns))
	sb.WriteString("}\n")

	sb.WriteString("\nclassify: {\n")
	fmt.Fprintf(&sb, "\tunknown_fallback: %q\n", orDefault(string(cfg.Classify.UnknownFallback), "unclassified"))
	sb.WriteString("}\n")

	sb.WriteString("\nfingerprint: {\n")
	fmt.Fprintf(&sb, "\talgorithm: %q\n", cfg.Fingerprint.Algorithm)
	fmt.Fprintf(&sb, "\ton_error: %q\n", orDefault(string(cfg.Fingerprint.OnError), "skip"))
	sb.WriteString("}\n")

	sb.WriteString("\ndescribe: {\n")
	fmt.Fprintf(&sb, "\tprovider: %q\n", orDefault(string(cfg.Describe.Provider), "none"))
	if cfg.Describe.Model != "" {
		fmt.Fprintf(&sb, "\tmodel: %q\n", cfg.Describe.Model)
	}
	if cfg.Describe.APIBase != "" {
		fmt.Fprintf(&sb, "\tapi_base: %q\n", cfg.Describe.APIBase)
	}
	if cfg.Describe.MaxFileSize != "" {
		fmt.Fprintf(&sb, "\tmax_file_size: %q\n", cfg.Describe.MaxFileSize)
	}
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Describe.Timeout.String())
	fmt.Fprintf(&sb, "\tcache_size: %d\n", cfg.Describe.CacheSize)
	sb.WriteString("}\n")

	sb.WriteString("\nreport: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", orDefault(string(cfg.Report.Format), "markdown"))
	sb.WriteString("}\n")

	s3 := cfg.Publish.S3
	sb.WriteString("\npublish: {\n")
	sb.WriteString("\ts3: {\n")
	fmt.Fprintf(&sb, "\t\tenabled: %v\n", s3.Enabled)
	fmt.Fprintf(&sb, "\t\tendpoint: %q\n", s3.Endpoint)
	if s3.Region != "" {
		fmt.Fprintf(&sb, "\t\tregion: %q\n", s3.Region)
	}
	fmt.Fprintf(&sb, "\t\tbucket: %q\n", s3.Bucket)
	fmt.Fprintf(&sb, "\t\tprefix: %q\n", s3.Prefix)
	if s3.AccessKey != "" {
		fmt.Fprintf(&sb, "\t\taccess_key: %q\n", s3.AccessKey)
	}
	if s3.SecretKey != "" {
		fmt.Fprintf(&sb, "\t\tsecret_key: %q\n", s3.SecretKey)
	}
	fmt.Fprintf(&sb, "\t\tuse_ssl: %v\n", s3.UseSSL)
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	sb.WriteString("\nledger: {\n")
	sb.WriteString("\tpostgres: {\n")
	fmt.Fprintf(&sb, "\t\tenabled: %v\n", cfg.Ledger.Postgres.Enabled)
	if cfg.Ledger.Postgres.DSN != "" {
		fmt.Fprintf(&sb, "\t\tdsn: %q\n", cfg.Ledger.Postgres.DSN)
	}
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
