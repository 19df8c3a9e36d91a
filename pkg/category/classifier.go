// SPDX-License-Identifier: MPL-2.0

package category

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// FallbackUnclassified resolves unknown extensions to Unclassified.
	FallbackUnclassified Fallback = "unclassified"
	// FallbackConfiguration resolves unknown extensions to Configuration.
	FallbackConfiguration Fallback = "configuration"
)

// ErrInvalidFallback is the sentinel error wrapped by InvalidFallbackError.
var ErrInvalidFallback = errors.New("invalid unknown-extension fallback")

type (
	// Fallback selects the category assigned to extensions no table lists.
	// The zero value ("") behaves like FallbackUnclassified.
	Fallback string

	// InvalidFallbackError is returned when a Fallback value is not recognized.
	InvalidFallbackError struct {
		Value Fallback
	}

	// Classifier maps file extensions to categories. The zero value is ready
	// to use and falls back to Unclassified.
	Classifier struct {
		fallback Category
	}
)

// index maps lowercased extensions to their first matching category.
var index = buildIndex()

func buildIndex() map[string]Category {
	m := make(map[string]Category)
	for _, entry := range lookupOrder {
		for _, ext := range entry.extensions {
			key := strings.ToLower(ext)
			if _, taken := m[key]; taken {
				continue
			}
			m[key] = entry.category
		}
	}
	return m
}

// NewClassifier creates a classifier with the given unknown-extension fallback.
func NewClassifier(fallback Fallback) (*Classifier, error) {
	if valid, errs := fallback.IsValid(); !valid {
		return nil, errs[0]
	}
	c := &Classifier{fallback: Unclassified}
	if fallback == FallbackConfiguration {
		c.fallback = Configuration
	}
	return c, nil
}

// Classify returns the category for an extension such as ".go" or "GO".
// A missing leading dot is tolerated. Classify never fails.
func (c *Classifier) Classify(ext string) Category {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if cat, ok := index[ext]; ok {
		return cat
	}
	if c == nil {
		return Unclassified
	}
	return c.fallback
}

// ClassifyPath classifies a file path by its final extension.
func (c *Classifier) ClassifyPath(path string) Category {
	return c.Classify(filepath.Ext(path))
}

// Fallback returns the category assigned to unknown extensions.
func (c *Classifier) Fallback() Category {
	if c == nil {
		return Unclassified
	}
	return c.fallback
}

// String returns the string representation of the Fallback.
func (f Fallback) String() string { return string(f) }

// IsValid returns whether the Fallback is a recognized value.
func (f Fallback) IsValid() (bool, []error) {
	switch f {
	case "", FallbackUnclassified, FallbackConfiguration:
		return true, nil
	default:
		return false, []error{&InvalidFallbackError{Value: f}}
	}
}

// Error implements the error interface for InvalidFallbackError.
func (e *InvalidFallbackError) Error() string {
	return fmt.Sprintf("invalid unknown-extension fallback %q (valid: %s, %s)",
		e.Value, FallbackUnclassified, FallbackConfiguration)
}

// Unwrap returns ErrInvalidFallback for errors.Is() compatibility.
func (e *InvalidFallbackError) Unwrap() error { return ErrInvalidFallback }
