// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("document does not match schema")

	// ErrTooLarge is wrapped by every SizeError.
	ErrTooLarge = errors.New("document too large")
)

type (
	// Violation is one schema failure.
	Violation struct {
		// Path is the dotted field path, e.g. "project.csu[0].dir". Empty for
		// document-level errors such as syntax errors.
		Path    string
		Message string
	}

	// ValidationError lists the violations found in one document.
	ValidationError struct {
		File       string
		Violations []Violation
	}

	// SizeError is returned for documents above the schema limit.
	SizeError struct {
		File  string
		Size  int64
		Limit int64
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return fmt.Sprintf("%s: %d schema violations:\n  %s", e.File, len(lines), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalid for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Paths returns the field path of every violation.
func (e *ValidationError) Paths() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Path)
	}
	return out
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds the %d byte limit", e.File, e.Size, e.Limit)
}

// Unwrap returns ErrTooLarge for errors.Is() compatibility.
func (e *SizeError) Unwrap() error { return ErrTooLarge }

func newValidationError(err error, file string) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return &ValidationError{File: file, Violations: []Violation{{Message: err.Error()}}}
	}

	ve := &ValidationError{File: file}
	for _, e := range list {
		sel := cueerrors.Path(e)
		path := fieldPath(sel)
		msg := e.Error()
		// cue prefixes messages with its own dotted path.
		if raw := strings.Join(sel, "."); raw != "" && strings.HasPrefix(msg, raw+":") {
			msg = strings.TrimSpace(strings.TrimPrefix(msg, raw+":"))
		}
		ve.Violations = append(ve.Violations, Violation{Path: path, Message: msg})
	}
	return ve
}

// fieldPath renders cue selectors as a dotted path with list indices in
// brackets: ["project" "csu" "0" "dir"] becomes project.csu[0].dir.
func fieldPath(sel []string) string {
	var b strings.Builder
	for i, s := range sel {
		if _, err := strconv.Atoi(s); err == nil && i > 0 {
			b.WriteString("[" + s + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}
