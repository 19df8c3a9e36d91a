// SPDX-License-Identifier: MPL-2.0

// Package record defines the canonical per-file inventory record and the
// assembler that derives it from a file on disk.
package record

import (
	"context"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/fingerprint"
)

type (
	// FileRecord is the inventory entry for one delivered file. Records are
	// created during the scan phase and treated as values afterwards; the
	// inventory builder works on copies when assigning ordinals.
	FileRecord struct {
		Device   string            `json:"device"`
		CSU      string            `json:"csu"`
		Category category.Category `json:"category"`
		// Ordinal is the 1-based position within the record's inventory
		// section. Zero until the inventory is built.
		Ordinal int `json:"ordinal"`
		// Dir is the slash-separated directory relative to the scan root,
		// always starting with "/". Files at the root have Dir "/".
		Dir string `json:"dir"`
		// RelPath is the slash-separated path relative to the scan root.
		RelPath string `json:"rel_path"`
		Name    string `json:"name"`
		Version string `json:"version"`
		Size    int64  `json:"size"`
		// Checksum is the hex digest, or fingerprint.ErrorSentinel.
		Checksum string `json:"checksum"`
		// Date is YYYY-MM-DD: creation time for execution-like categories,
		// modification time otherwise.
		Date string `json:"date"`
		// PartNumber carries the prefix for Execution records; the inventory
		// builder appends the ordinal suffix. Empty for other categories.
		PartNumber string `json:"part_number"`
		// Measure is the logical line count for line-counted categories and
		// "{w}x{h} {bits}bits" for images.
		Measure     string `json:"measure"`
		Description string `json:"description"`
	}

	// Context is the request-scoped input shared by every record of a scan.
	Context struct {
		Device           string
		CSU              string
		Version          string
		PartNumberPrefix string
		Algorithm        fingerprint.Algorithm
	}

	// Subject is what a Describer sees of a file.
	Subject struct {
		Path     string
		Name     string
		Size     int64
		Checksum string
		Category category.Category
	}

	// Describer supplies a short human-readable description of a file.
	// An empty result means "no description"; the assembler then falls back
	// to the file's leading comment.
	Describer interface {
		Describe(ctx context.Context, s Subject) (string, error)
	}
)

// ChecksumFailed reports whether the record carries the error sentinel.
func (r FileRecord) ChecksumFailed() bool {
	return r.Checksum == fingerprint.ErrorSentinel
}
