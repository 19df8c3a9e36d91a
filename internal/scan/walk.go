// SPDX-License-Identifier: MPL-2.0

// Package scan lists the files of a delivery tree and runs per-file work on
// a bounded worker pool.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrRootNotFound is returned when the scan root is missing or is not a
	// directory. It is the only fatal scan condition.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrInvalidPattern is returned for malformed exclude patterns.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// defaultExcludes are always skipped: VCS metadata and archive or OS
// artifacts that are never part of a delivery.
var defaultExcludes = []string{
	"**/.git/**",
	"**/.svn/**",
	"**/__MACOSX/**",
	"**/.DS_Store",
	"**/Thumbs.db",
}

// Options configures Walk.
type Options struct {
	// Exclude lists doublestar patterns matched against slash-separated
	// paths relative to the root. A matching directory prunes its subtree.
	Exclude []string
	// Skip lists exact paths to leave out, e.g. the manifest file.
	Skip   []string
	Logger *slog.Logger
}

// DefaultExcludes returns a copy of the built-in exclude patterns.
func DefaultExcludes() []string {
	return append([]string(nil), defaultExcludes...)
}

// Walk returns the regular files under root in lexical order. Symbolic links
// are not followed. Unreadable entries are logged and skipped.
func Walk(ctx context.Context, root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	excludes := make([]string, 0, len(defaultExcludes)+len(opts.Exclude))
	excludes = append(excludes, defaultExcludes...)
	for _, pat := range opts.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pat)
		}
		excludes = append(excludes, pat)
	}

	skip := make(map[string]struct{}, len(opts.Skip))
	for _, p := range opts.Skip {
		if abs, absErr := filepath.Abs(p); absErr == nil {
			skip[abs] = struct{}{}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkDirErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkDirErr != nil {
			if path == root {
				return walkDirErr
			}
			logger.Warn("skipping inaccessible path", "path", path, "error", walkDirErr)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil //nolint:nilerr // the root itself and unrelatable paths are not files
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matchesAny(excludes, rel) || matchesAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matchesAny(excludes, rel) {
			return nil
		}
		if _, ok := skip[absOrSelf(path)]; ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}
	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
