// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keinus/make-sps/internal/describe"
	"github.com/keinus/make-sps/internal/render"
	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/fingerprint"
	"github.com/keinus/make-sps/pkg/record"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelDebug logs everything.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs informational messages and above.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// LogFormatText is the human-readable log format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidByteSize is returned when a ByteSize cannot be parsed.
	ErrInvalidByteSize = errors.New("invalid byte size")
	// ErrInvalidScanConfig is the sentinel error wrapped by InvalidScanConfigError.
	ErrInvalidScanConfig = errors.New("invalid scan config")
	// ErrInvalidDescribeConfig is the sentinel error wrapped by InvalidDescribeConfigError.
	ErrInvalidDescribeConfig = errors.New("invalid describe config")
	// ErrInvalidPublishConfig is the sentinel error wrapped by InvalidPublishConfigError.
	ErrInvalidPublishConfig = errors.New("invalid publish config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level written to the log.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the log encoding.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// ByteSize is a human-readable size such as "1MB" or "512KB".
	ByteSize string

	// InvalidByteSizeError is returned when a ByteSize cannot be parsed.
	InvalidByteSizeError struct {
		Value ByteSize
		Err   error
	}

	// InvalidScanConfigError collects ScanConfig field errors.
	InvalidScanConfigError struct {
		FieldErrors []error
	}

	// InvalidDescribeConfigError collects DescribeConfig field errors.
	InvalidDescribeConfigError struct {
		FieldErrors []error
	}

	// InvalidPublishConfigError collects PublishConfig field errors.
	InvalidPublishConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Scan        ScanConfig        `json:"scan" mapstructure:"scan"`
		Classify    ClassifyConfig    `json:"classify" mapstructure:"classify"`
		Fingerprint FingerprintConfig `json:"fingerprint" mapstructure:"fingerprint"`
		Describe    DescribeConfig    `json:"describe" mapstructure:"describe"`
		Report      ReportConfig      `json:"report" mapstructure:"report"`
		Publish     PublishConfig     `json:"publish" mapstructure:"publish"`
		Ledger      LedgerConfig      `json:"ledger" mapstructure:"ledger"`
		UI          UIConfig          `json:"ui" mapstructure:"ui"`
		Log         LogConfig         `json:"log" mapstructure:"log"`
	}

	// ScanConfig controls directory traversal.
	ScanConfig struct {
		// Workers bounds concurrent record assembly. Zero selects the CPU count.
		Workers int `json:"workers" mapstructure:"workers"`
		// Exclude lists doublestar globs pruned from the scan.
		Exclude []string `json:"exclude" mapstructure:"exclude"`
		// EtcPatterns lists doublestar globs whose files are reported as etc.
		EtcPatterns []string `json:"etc_patterns" mapstructure:"etc_patterns"`
	}

	// ClassifyConfig controls extension classification.
	ClassifyConfig struct {
		UnknownFallback category.Fallback `json:"unknown_fallback" mapstructure:"unknown_fallback"`
	}

	// FingerprintConfig controls content checksums.
	FingerprintConfig struct {
		Algorithm fingerprint.Algorithm `json:"algorithm" mapstructure:"algorithm"`
		OnError   record.FailurePolicy  `json:"on_error" mapstructure:"on_error"`
	}

	// DescribeConfig selects the file description backend.
	DescribeConfig struct {
		Provider    describe.Provider `json:"provider" mapstructure:"provider"`
		Model       string            `json:"model" mapstructure:"model"`
		APIBase     string            `json:"api_base" mapstructure:"api_base"`
		MaxFileSize ByteSize          `json:"max_file_size" mapstructure:"max_file_size"`
		Timeout     time.Duration     `json:"timeout" mapstructure:"timeout"`
		CacheSize   int               `json:"cache_size" mapstructure:"cache_size"`
	}

	// ReportConfig controls the rendered output.
	ReportConfig struct {
		Format render.Format `json:"format" mapstructure:"format"`
	}

	// PublishConfig groups artifact destinations.
	PublishConfig struct {
		S3 S3Config `json:"s3" mapstructure:"s3"`
	}

	// S3Config configures upload to an S3-compatible store.
	S3Config struct {
		Enabled   bool   `json:"enabled" mapstructure:"enabled"`
		Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
		Region    string `json:"region" mapstructure:"region"`
		Bucket    string `json:"bucket" mapstructure:"bucket"`
		Prefix    string `json:"prefix" mapstructure:"prefix"`
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
	}

	// LedgerConfig groups run history backends.
	LedgerConfig struct {
		Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	}

	// PostgresConfig configures the PostgreSQL ledger.
	PostgresConfig struct {
		Enabled bool   `json:"enabled" mapstructure:"enabled"`
		DSN     string `json:"dsn" mapstructure:"dsn"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}

	// LogConfig configures the process logger.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is recognized.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is recognized.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// String returns the string representation of the ByteSize.
func (s ByteSize) String() string { return string(s) }

// Bytes parses the size. The zero value is 0.
func (s ByteSize) Bytes() (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := describe.ParseSize(string(s))
	if err != nil {
		return 0, &InvalidByteSizeError{Value: s, Err: err}
	}
	return n, nil
}

// IsValid returns whether the ByteSize parses.
func (s ByteSize) IsValid() (bool, []error) {
	if _, err := s.Bytes(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidByteSizeError.
func (e *InvalidByteSizeError) Error() string {
	return fmt.Sprintf("invalid byte size %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidByteSize for errors.Is() compatibility.
func (e *InvalidByteSizeError) Unwrap() error { return ErrInvalidByteSize }

// IsValid returns whether the ScanConfig has valid fields.
func (c ScanConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan.workers must not be negative, got %d", c.Workers))
	}
	for _, p := range append(append([]string{}, c.Exclude...), c.EtcPatterns...) {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("scan patterns must not be empty"))
			break
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidScanConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidScanConfigError.
func (e *InvalidScanConfigError) Error() string {
	return fmt.Sprintf("invalid scan config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidScanConfig for errors.Is() compatibility.
func (e *InvalidScanConfigError) Unwrap() error { return ErrInvalidScanConfig }

// IsValid returns whether the DescribeConfig has valid fields.
func (c DescribeConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Provider.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.MaxFileSize.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("describe.timeout must not be negative, got %s", c.Timeout))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("describe.cache_size must not be negative, got %d", c.CacheSize))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDescribeConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDescribeConfigError.
func (e *InvalidDescribeConfigError) Error() string {
	return fmt.Sprintf("invalid describe config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidDescribeConfig for errors.Is() compatibility.
func (e *InvalidDescribeConfigError) Unwrap() error { return ErrInvalidDescribeConfig }

// IsValid returns whether the PublishConfig has valid fields. Disabled
// destinations are not checked.
func (c PublishConfig) IsValid() (bool, []error) {
	var errs []error
	if c.S3.Enabled {
		if strings.TrimSpace(c.S3.Endpoint) == "" {
			errs = append(errs, errors.New("publish.s3.endpoint is required when enabled"))
		}
		if strings.TrimSpace(c.S3.Bucket) == "" {
			errs = append(errs, errors.New("publish.s3.bucket is required when enabled"))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidPublishConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPublishConfigError.
func (e *InvalidPublishConfigError) Error() string {
	return fmt.Sprintf("invalid publish config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidPublishConfig for errors.Is() compatibility.
func (e *InvalidPublishConfigError) Unwrap() error { return ErrInvalidPublishConfig }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	check := func(valid bool, fieldErrs []error) {
		if !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	check(c.Scan.IsValid())
	check(c.Classify.UnknownFallback.IsValid())
	check(c.Fingerprint.Algorithm.IsValid())
	check(c.Fingerprint.OnError.IsValid())
	check(c.Describe.IsValid())
	check(c.Report.Format.IsValid())
	check(c.Publish.IsValid())
	check(c.UI.ColorScheme.IsValid())
	check(c.Log.Level.IsValid())
	check(c.Log.Format.IsValid())
	if c.Ledger.Postgres.Enabled && strings.TrimSpace(c.Ledger.Postgres.DSN) == "" {
		errs = append(errs, errors.New("ledger.postgres.dsn is required when enabled"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers:     0,
			Exclude:     []string{},
			EtcPatterns: []string{},
		},
		Classify: ClassifyConfig{UnknownFallback: category.FallbackUnclassified},
		Fingerprint: FingerprintConfig{
			Algorithm: fingerprint.SHA256,
			OnError:   record.PolicySkip,
		},
		Describe: DescribeConfig{
			Provider:    describe.ProviderNone,
			MaxFileSize: "1MB",
			Timeout:     describe.DefaultTimeout,
			CacheSize:   describe.DefaultCacheSize,
		},
		Report: ReportConfig{Format: render.FormatMarkdown},
		Publish: PublishConfig{
			S3: S3Config{Prefix: "sps", UseSSL: true},
		},
		UI: UIConfig{ColorScheme: ColorSchemeAuto},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}
