// SPDX-License-Identifier: MPL-2.0

// Package describe supplies short file descriptions for the inventory report.
//
// Descriptions come from a language model: a local Ollama server or the
// Gemini API. Every describer satisfies record.Describer. An empty
// description is a normal result; the record assembler then falls back to
// the file's leading comment.
package describe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/keinus/make-sps/pkg/record"
)

const (
	// ProviderNone disables descriptions.
	ProviderNone Provider = "none"
	// ProviderOllama uses a local Ollama server.
	ProviderOllama Provider = "ollama"
	// ProviderGemini uses the Gemini API.
	ProviderGemini Provider = "gemini"

	// MaxResponseLen is the longest accepted description, in characters.
	// Longer model output is discarded.
	MaxResponseLen = 100

	// DefaultMaxFileSize is the largest file sent to a model.
	DefaultMaxFileSize int64 = 1 << 20

	// DefaultTimeout bounds one generation request.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheSize is the number of cached descriptions per build.
	DefaultCacheSize = 1024
)

var (
	// ErrUnavailable is returned when the configured model backend cannot be reached.
	ErrUnavailable = errors.New("describer unavailable")

	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("file too large to describe")

	// ErrInvalidProvider is the sentinel error wrapped by InvalidProviderError.
	ErrInvalidProvider = errors.New("invalid describe provider")
)

type (
	// Provider selects the description backend.
	Provider string

	// InvalidProviderError is returned when a Provider value is not recognized.
	InvalidProviderError struct {
		Value Provider
	}

	// Config selects and configures a describer.
	Config struct {
		Provider Provider
		Model    string
		// APIBase is the Ollama base URL, or a Gemini endpoint override.
		APIBase string
		// APIKey is the Gemini API key. Empty lets the SDK read GEMINI_API_KEY.
		APIKey      string
		MaxFileSize int64
		Timeout     time.Duration
		// CacheSize enables the checksum-keyed cache when positive.
		CacheSize int
		Logger    *slog.Logger
	}

	// Nop never describes anything.
	Nop struct{}
)

// New builds the describer cfg selects, wrapped in a cache when
// cfg.CacheSize is positive. The returned describer is scoped to one report
// build; callers create a fresh one per build.
func New(ctx context.Context, cfg Config) (record.Describer, error) {
	if valid, errs := cfg.Provider.IsValid(); !valid {
		return nil, errs[0]
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var d record.Describer
	switch cfg.Provider {
	case ProviderOllama:
		o := NewOllama(cfg.APIBase, cfg.Model,
			WithMaxFileSize(cfg.MaxFileSize),
			WithTimeout(cfg.Timeout),
		)
		if err := o.Ping(ctx); err != nil {
			cfg.Logger.Warn("ollama server unreachable; descriptions disabled", "api_base", cfg.APIBase, "error", err)
		}
		d = o
	case ProviderGemini:
		g, err := NewGemini(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.APIBase,
			MaxFileSize: cfg.MaxFileSize,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		d = g
	default:
		return Nop{}, nil
	}

	if cfg.CacheSize > 0 {
		return NewCached(d, cfg.CacheSize)
	}
	return d, nil
}

// Describe implements record.Describer.
func (Nop) Describe(context.Context, record.Subject) (string, error) { return "", nil }

// Prompt builds the generation prompt for file content.
func Prompt(content string) string {
	return "\n파일 내용:\n'''\n" + content + "\n'''\n\n" +
		"이 파일이 어떤 파일인지 한글 15자 이내로 설명만 작성. 개조식 문장으로 작성. 마지막에 \"입니다\" 빼.\n"
}

// accept normalizes model output and drops answers that ignored the length
// instruction.
func accept(response string) string {
	response = strings.TrimSpace(response)
	if utf8.RuneCountInString(response) > MaxResponseLen {
		return ""
	}
	return response
}

// String returns the string representation of the Provider.
func (p Provider) String() string { return string(p) }

// IsValid returns whether the Provider is recognized. The empty value means none.
func (p Provider) IsValid() (bool, []error) {
	switch p {
	case "", ProviderNone, ProviderOllama, ProviderGemini:
		return true, nil
	default:
		return false, []error{&InvalidProviderError{Value: p}}
	}
}

// Error implements the error interface for InvalidProviderError.
func (e *InvalidProviderError) Error() string {
	return fmt.Sprintf("invalid describe provider %q (valid: %s, %s, %s)", e.Value, ProviderNone, ProviderOllama, ProviderGemini)
}

// Unwrap returns ErrInvalidProvider for errors.Is() compatibility.
func (e *InvalidProviderError) Unwrap() error { return ErrInvalidProvider }
