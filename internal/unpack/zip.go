// SPDX-License-Identifier: MPL-2.0

// Package unpack extracts zipped deliveries for scanning.
package unpack

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxSize caps the total uncompressed size of an archive.
	DefaultMaxSize int64 = 4 << 30

	// DefaultMaxFiles caps the number of archive entries.
	DefaultMaxFiles = 200_000
)

var (
	// ErrUnsafePath is returned for entries that would land outside dest.
	ErrUnsafePath = errors.New("archive entry escapes destination")

	// ErrTooLarge is returned when an archive exceeds a size or entry limit.
	ErrTooLarge = errors.New("archive exceeds extraction limit")
)

type (
	// Options bounds extraction. Zero values select the defaults.
	Options struct {
		MaxSize  int64
		MaxFiles int
	}

	// Option configures Zip.
	Option func(*Options)
)

// WithMaxSize caps the total uncompressed bytes written.
func WithMaxSize(n int64) Option {
	return func(o *Options) { o.MaxSize = n }
}

// WithMaxFiles caps the number of entries.
func WithMaxFiles(n int) Option {
	return func(o *Options) { o.MaxFiles = n }
}

// IsZip reports whether path names a zip archive by extension.
func IsZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// Zip extracts archive into dest, which is created when missing. Symbolic
// links in the archive are skipped. Entry modification times are preserved.
func Zip(ctx context.Context, archive, dest string, opts ...Option) error {
	o := Options{MaxSize: DefaultMaxSize, MaxFiles: DefaultMaxFiles}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archive, err)
	}
	defer r.Close()

	if len(r.File) > o.MaxFiles {
		return fmt.Errorf("%w: %d entries (max %d)", ErrTooLarge, len(r.File), o.MaxFiles)
	}

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destAbs, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destAbs, err)
	}

	var written int64
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := entryPath(destAbs, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		case !mode.IsRegular():
			continue
		}

		n, err := extractFile(f, target, o.MaxSize-written)
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

// entryPath resolves name under dest, rejecting absolute and escaping paths.
func entryPath(dest, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dest, clean), nil
}

func extractFile(f *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}

	// Read one byte past the budget to detect overflow without trusting the
	// header's declared size.
	n, copyErr := io.Copy(out, io.LimitReader(rc, budget+1))
	closeErr := out.Close()
	if copyErr != nil {
		return n, fmt.Errorf("extracting %s: %w", f.Name, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("writing %s: %w", target, closeErr)
	}
	if n > budget {
		return n, fmt.Errorf("%w: more than %d bytes uncompressed", ErrTooLarge, budget)
	}

	if mt := f.Modified; !mt.IsZero() {
		_ = os.Chtimes(target, mt, mt) //nolint:errcheck // times are informational
	}
	return n, nil
}
