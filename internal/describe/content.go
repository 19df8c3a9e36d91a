// SPDX-License-Identifier: MPL-2.0

package describe

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/djherbis/times"
	units "github.com/docker/go-units"
)

// ParseSize parses sizes such as "512KB", "10 mb" or "1.5GiB" as binary
// multiples. A bare number is a byte count. Sizes that do not fit in an
// int64 are rejected.
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid file size %q: %w", s, err)
	}
	// Float-to-int conversion of an out-of-range size is not portable:
	// it wraps negative on amd64 and saturates on arm64.
	if n < 0 || n == math.MaxInt64 {
		return 0, fmt.Errorf("file size %q overflows", s)
	}
	return n, nil
}

// LoadContent returns the text a model is asked to describe: the file body
// when it is valid UTF-8, otherwise a metadata summary. Files above limit
// yield ErrTooLarge.
func LoadContent(path string, limit int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if limit > 0 && info.Size() > limit {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return metadataSummary(path, info), nil
}

// metadataSummary describes a binary file by name, size and timestamps.
func metadataSummary(path string, info os.FileInfo) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)

	mod := info.ModTime()
	created, accessed := mod, mod
	if ts, err := times.Stat(path); err == nil {
		accessed = ts.AccessTime()
		switch {
		case ts.HasBirthTime():
			created = ts.BirthTime()
		case ts.HasChangeTime():
			created = ts.ChangeTime()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Filename: %s\n", strings.TrimSuffix(name, ext))
	fmt.Fprintf(&b, "Extension: %s\n", ext)
	fmt.Fprintf(&b, "Size: %d bytes\n", info.Size())
	fmt.Fprintf(&b, "Creation Time: %s\n", created.Format(time.RFC3339))
	fmt.Fprintf(&b, "Modification Time: %s\n", mod.Format(time.RFC3339))
	fmt.Fprintf(&b, "Access Time: %s", accessed.Format(time.RFC3339))
	return b.String()
}
