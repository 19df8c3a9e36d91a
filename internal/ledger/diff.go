// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"slices"

	"github.com/keinus/make-sps/pkg/record"
)

type (
	// Change is one file that differs between two runs.
	Change struct {
		RelPath string
		Old     *record.FileRecord
		New     *record.FileRecord
	}

	// Diff groups the changes between two runs by kind. Each slice is
	// ordered by path.
	Diff struct {
		Added    []Change
		Removed  []Change
		Modified []Change
	}
)

// Compare matches records by relative path. A file is modified when its
// checksum or size differs; a failed checksum always counts as modified.
func Compare(older, newer []record.FileRecord) Diff {
	before := make(map[string]*record.FileRecord, len(older))
	for i := range older {
		before[older[i].RelPath] = &older[i]
	}
	after := make(map[string]*record.FileRecord, len(newer))
	for i := range newer {
		after[newer[i].RelPath] = &newer[i]
	}

	var d Diff
	for path, n := range after {
		o, ok := before[path]
		switch {
		case !ok:
			d.Added = append(d.Added, Change{RelPath: path, New: n})
		case o.Checksum != n.Checksum || o.Size != n.Size || n.ChecksumFailed():
			d.Modified = append(d.Modified, Change{RelPath: path, Old: o, New: n})
		}
	}
	for path, o := range before {
		if _, ok := after[path]; !ok {
			d.Removed = append(d.Removed, Change{RelPath: path, Old: o})
		}
	}

	byPath := func(a, b Change) int {
		switch {
		case a.RelPath < b.RelPath:
			return -1
		case a.RelPath > b.RelPath:
			return 1
		default:
			return 0
		}
	}
	slices.SortFunc(d.Added, byPath)
	slices.SortFunc(d.Removed, byPath)
	slices.SortFunc(d.Modified, byPath)
	return d
}

// Empty reports whether the runs are identical.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}
