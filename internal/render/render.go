// SPDX-License-Identifier: MPL-2.0

// Package render turns a report document into an output format.
//
// Every renderer walks the same docmodel.Document; none of them reads the
// inventory directly.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/keinus/make-sps/pkg/docmodel"
)

const (
	// FormatMarkdown renders GitHub-flavored markdown.
	FormatMarkdown Format = "markdown"
	// FormatTerminal renders styled tables for a terminal.
	FormatTerminal Format = "terminal"
	// FormatJSON renders the document tree as JSON.
	FormatJSON Format = "json"
	// FormatHWPX renders an HWPML section (section0.xml) body.
	FormatHWPX Format = "hwpx"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid report format")

type (
	// Format names an output format.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}

	// Renderer writes a document in one format.
	Renderer interface {
		Name() string
		// Extension is the file extension for the output, without the dot.
		Extension() string
		Render(w io.Writer, doc *docmodel.Document) error
	}

	// Options tunes renderers that support it.
	Options struct {
		// Pretty renders markdown through glamour for terminal display.
		Pretty bool
		// Width is the wrap width for pretty output; zero means no wrap.
		Width int
		// Style is the glamour style for pretty output: "auto", "dark" or
		// "light". Empty means auto.
		Style string
		// NoColor disables terminal styling.
		NoColor bool
	}
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatTerminal, FormatJSON, FormatHWPX}
}

// New returns the renderer for format.
func New(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatMarkdown, "":
		return &Markdown{Pretty: opts.Pretty, Width: opts.Width, Style: opts.Style}, nil
	case FormatTerminal:
		return &Terminal{NoColor: opts.NoColor}, nil
	case FormatJSON:
		return &JSON{Indent: "  "}, nil
	case FormatHWPX:
		return &HWPX{}, nil
	default:
		return nil, &InvalidFormatError{Value: format}
	}
}

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// IsValid returns whether the Format is one of the defined formats.
// The zero value is valid and selects markdown.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case "", FormatMarkdown, FormatTerminal, FormatJSON, FormatHWPX:
		return true, nil
	default:
		return false, []error{&InvalidFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid report format %q (valid: markdown, terminal, json, hwpx)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }
