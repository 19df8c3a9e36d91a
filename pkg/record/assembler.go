// SPDX-License-Identifier: MPL-2.0

package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/djherbis/times"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/comment"
	"github.com/keinus/make-sps/pkg/fingerprint"
	"github.com/keinus/make-sps/pkg/imageinfo"
	"github.com/keinus/make-sps/pkg/loc"
)

const (
	// DateLayout is the report date format.
	DateLayout = "2006-01-02"

	// PolicySkip drops records whose content cannot be fingerprinted.
	PolicySkip FailurePolicy = "skip"
	// PolicySentinel keeps such records with fingerprint.ErrorSentinel.
	PolicySentinel FailurePolicy = "sentinel"
)

var (
	// ErrSkipped marks a record-level failure. The batch continues.
	ErrSkipped = errors.New("record skipped")

	// ErrInvalidFailurePolicy is the sentinel error wrapped by InvalidFailurePolicyError.
	ErrInvalidFailurePolicy = errors.New("invalid fingerprint failure policy")

	// ErrInvalidEtcPattern is returned for malformed etc glob patterns.
	ErrInvalidEtcPattern = errors.New("invalid etc pattern")
)

type (
	// FailurePolicy decides what happens to a record whose fingerprint fails.
	// The zero value ("") behaves like PolicySkip.
	FailurePolicy string

	// InvalidFailurePolicyError is returned when a FailurePolicy value is not recognized.
	InvalidFailurePolicyError struct {
		Value FailurePolicy
	}

	// Options configures an Assembler. Nil fields get defaults.
	Options struct {
		Classifier *category.Classifier
		// Describer is optional.
		Describer Describer
		// EtcPatterns are doublestar globs matched against the slash-relative
		// path; matching files are assigned category.Etc.
		EtcPatterns []string
		// OnFingerprintError selects the fingerprint failure policy.
		OnFingerprintError FailurePolicy
		// Digest computes file checksums (default fingerprint.File).
		Digest func(path string, alg fingerprint.Algorithm) (string, error)
		// Location is the time zone for report dates (default time.Local).
		Location *time.Location
		Logger   *slog.Logger
	}

	// Assembler derives FileRecords from files. It holds no per-scan state
	// and is safe for concurrent use.
	Assembler struct {
		classifier *category.Classifier
		describer  Describer
		etc        []string
		policy     FailurePolicy
		digest     func(string, fingerprint.Algorithm) (string, error)
		loc        *time.Location
		logger     *slog.Logger
	}
)

// NewAssembler validates opts and returns an Assembler.
func NewAssembler(opts Options) (*Assembler, error) {
	if valid, errs := opts.OnFingerprintError.IsValid(); !valid {
		return nil, errs[0]
	}
	for _, pattern := range opts.EtcPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEtcPattern, pattern)
		}
	}

	a := &Assembler{
		classifier: opts.Classifier,
		describer:  opts.Describer,
		etc:        append([]string(nil), opts.EtcPatterns...),
		policy:     opts.OnFingerprintError,
		digest:     opts.Digest,
		loc:        opts.Location,
		logger:     opts.Logger,
	}
	if a.classifier == nil {
		a.classifier = &category.Classifier{}
	}
	if a.policy == "" {
		a.policy = PolicySkip
	}
	if a.digest == nil {
		a.digest = fingerprint.File
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Assemble builds the record for the regular file at filePath. root is the
// scan root that directory paths are made relative to. Errors wrapping
// ErrSkipped are record-level; callers log them and move on.
func (a *Assembler) Assemble(ctx context.Context, filePath, root string, rc Context) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return FileRecord{}, skip(filePath, err)
	}
	if !info.Mode().IsRegular() {
		return FileRecord{}, skip(filePath, errors.New("not a regular file"))
	}

	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return FileRecord{}, skip(filePath, err)
	}
	relSlash := filepath.ToSlash(rel)

	cat := a.classifier.ClassifyPath(filePath)
	if a.isEtc(relSlash) {
		cat = category.Etc
	}

	rec := FileRecord{
		Device:   rc.Device,
		CSU:      rc.CSU,
		Category: cat,
		Dir:      DirOf(relSlash),
		RelPath:  relSlash,
		Name:     info.Name(),
		Version:  rc.Version,
		Size:     info.Size(),
		Date:     a.date(filePath, info, cat),
	}
	if cat == category.Execution {
		rec.PartNumber = rc.PartNumberPrefix
	}

	digest, err := a.digest(filePath, rc.Algorithm)
	if err != nil {
		if a.policy == PolicySkip || errors.Is(err, fingerprint.ErrInvalidAlgorithm) {
			return FileRecord{}, skip(filePath, err)
		}
		a.logger.Warn("fingerprint failed; recording sentinel", "path", relSlash, "error", err)
	}
	rec.Checksum = fingerprint.OrSentinel(digest, err)

	switch {
	case cat.CountsLines():
		rec.Measure = strconv.Itoa(loc.CountFile(filePath))
	case cat == category.Image:
		img, err := imageinfo.Inspect(filePath)
		if err != nil {
			return FileRecord{}, skip(filePath, err)
		}
		rec.Measure = img.Measure()
	}

	rec.Description = a.describe(ctx, filePath, rec)
	return rec, nil
}

func (a *Assembler) describe(ctx context.Context, filePath string, rec FileRecord) string {
	if a.describer != nil {
		desc, err := a.describer.Describe(ctx, Subject{
			Path:     filePath,
			Name:     rec.Name,
			Size:     rec.Size,
			Checksum: rec.Checksum,
			Category: rec.Category,
		})
		if err != nil {
			a.logger.Debug("describer failed; using leading comment", "path", rec.RelPath, "error", err)
		} else if desc != "" {
			return desc
		}
	}
	return comment.Leading(filePath)
}

func (a *Assembler) isEtc(relSlash string) bool {
	for _, pattern := range a.etc {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}

// date applies the category-dependent timestamp rule. Creation time falls
// back to the status change time, then to the modification time, on
// filesystems that do not record it.
func (a *Assembler) date(filePath string, info os.FileInfo, cat category.Category) string {
	t := info.ModTime()
	if cat.UsesCreationTime() {
		if ts, err := times.Stat(filePath); err == nil {
			switch {
			case ts.HasBirthTime():
				t = ts.BirthTime()
			case ts.HasChangeTime():
				t = ts.ChangeTime()
			}
		}
	}
	return t.In(a.loc).Format(DateLayout)
}

// DirOf returns the report directory for a slash-relative file path: the
// parent directory with a leading "/", or "/" at the root.
func DirOf(relSlash string) string {
	dir := path.Dir(relSlash)
	if dir == "." || dir == "/" {
		return "/"
	}
	if dir[0] != '/' {
		dir = "/" + dir
	}
	return dir
}

func skip(filePath string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrSkipped, filePath, cause)
}

// String returns the string representation of the FailurePolicy.
func (p FailurePolicy) String() string { return string(p) }

// IsValid returns whether the FailurePolicy is recognized.
func (p FailurePolicy) IsValid() (bool, []error) {
	switch p {
	case "", PolicySkip, PolicySentinel:
		return true, nil
	default:
		return false, []error{&InvalidFailurePolicyError{Value: p}}
	}
}

// Error implements the error interface for InvalidFailurePolicyError.
func (e *InvalidFailurePolicyError) Error() string {
	return fmt.Sprintf("invalid fingerprint failure policy %q (valid: %s, %s)", e.Value, PolicySkip, PolicySentinel)
}

// Unwrap returns ErrInvalidFailurePolicy for errors.Is() compatibility.
func (e *InvalidFailurePolicyError) Unwrap() error { return ErrInvalidFailurePolicy }
