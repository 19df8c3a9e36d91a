// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/keinus/make-sps/internal/config"
)

// newLogger builds the process logger. verbose forces debug level.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
		Level:           logLevel(cfg.Level),
		Formatter:       logFormatter(cfg.Format),
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return slog.New(logger)
}

func logLevel(l config.LogLevel) log.Level {
	switch l {
	case config.LogLevelDebug:
		return log.DebugLevel
	case config.LogLevelWarn:
		return log.WarnLevel
	case config.LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func logFormatter(f config.LogFormat) log.Formatter {
	switch f {
	case config.LogFormatJSON:
		return log.JSONFormatter
	case config.LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
