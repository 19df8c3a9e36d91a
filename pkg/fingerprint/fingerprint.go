// SPDX-License-Identifier: MPL-2.0

// Package fingerprint computes streaming content digests used as integrity
// checksums in the delivery inventory.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // MD5 is a delivery checksum format, not a security primitive
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

const (
	// MD5 selects the MD5 digest.
	MD5 Algorithm = "MD5"
	// SHA256 selects the SHA-256 digest.
	SHA256 Algorithm = "SHA256"

	// DefaultChunkSize is the read buffer size used when folding content into the hash.
	DefaultChunkSize = 8 * 1024

	// ErrorSentinel is the digest text recorded when a file could not be read.
	ErrorSentinel = "Error"
)

var (
	// ErrInvalidAlgorithm is the sentinel error wrapped by InvalidAlgorithmError.
	ErrInvalidAlgorithm = errors.New("invalid fingerprint algorithm")

	// ErrUnreadable signals that content could not be read to completion.
	ErrUnreadable = errors.New("content unreadable")
)

type (
	// Algorithm names a supported digest.
	Algorithm string

	// InvalidAlgorithmError is returned when an Algorithm value is not recognized.
	InvalidAlgorithmError struct {
		Value Algorithm
	}
)

// ParseAlgorithm parses an algorithm name case-insensitively. "SHA-256" is
// accepted as an alias of SHA256.
func ParseAlgorithm(s string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "")
	a := Algorithm(normalized)
	if valid, errs := a.IsValid(); !valid {
		return "", errs[0]
	}
	return a, nil
}

// String returns the string representation of the Algorithm.
func (a Algorithm) String() string { return string(a) }

// IsValid returns whether the Algorithm is supported.
func (a Algorithm) IsValid() (bool, []error) {
	switch a {
	case MD5, SHA256:
		return true, nil
	default:
		return false, []error{&InvalidAlgorithmError{Value: a}}
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec // checksum format
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, &InvalidAlgorithmError{Value: a}
	}
}

// Sum reads r to EOF in DefaultChunkSize chunks and returns the hex digest.
func Sum(r io.Reader, alg Algorithm) (string, error) {
	return SumBuffer(r, alg, DefaultChunkSize)
}

// SumBuffer is Sum with an explicit chunk size. Only one chunk is held in
// memory at a time.
func SumBuffer(r io.Reader, alg Algorithm, chunkSize int) (string, error) {
	h, err := alg.newHash()
	if err != nil {
		return "", err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File opens path and returns its digest. Any open or read failure wraps
// ErrUnreadable; the caller decides whether to skip the record or record
// ErrorSentinel.
func File(path string, alg Algorithm) (string, error) {
	if valid, errs := alg.IsValid(); !valid {
		return "", errs[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	return Sum(f, alg)
}

// OrSentinel returns digest, or ErrorSentinel when err is non-nil.
func OrSentinel(digest string, err error) string {
	if err != nil {
		return ErrorSentinel
	}
	return digest
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer honors the chunk size.
type onlyReader struct {
	io.Reader
}

// Error implements the error interface for InvalidAlgorithmError.
func (e *InvalidAlgorithmError) Error() string {
	return fmt.Sprintf("invalid fingerprint algorithm %q (valid: %s, %s)", e.Value, MD5, SHA256)
}

// Unwrap returns ErrInvalidAlgorithm for errors.Is() compatibility.
func (e *InvalidAlgorithmError) Unwrap() error { return ErrInvalidAlgorithm }
