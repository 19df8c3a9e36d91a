// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/keinus/make-sps/internal/manifest"
	"github.com/keinus/make-sps/internal/scan"
)

// Process exit codes.
const (
	ExitFailure          = 1
	ExitUsage            = 2
	ExitRootNotFound     = 3
	ExitManifestNotFound = 4
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// usageError marks err as a command line misuse.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitUsage, Err: err}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, scan.ErrRootNotFound):
		return ExitRootNotFound
	case errors.Is(err, manifest.ErrNotFound):
		return ExitManifestNotFound
	default:
		return ExitFailure
	}
}
