// SPDX-License-Identifier: MPL-2.0

// Package inventory groups file records into the report's standard buckets,
// orders them by storage directory and assigns per-section ordinals.
package inventory

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/record"
)

const (
	// BucketExecution holds execution, configuration and database files.
	BucketExecution Bucket = iota
	// BucketProject holds project descriptors.
	BucketProject
	// BucketSource holds source code and images, one section per CSU.
	BucketSource
	// BucketOther holds unclassified and explicitly designated files.
	BucketOther
)

// PartNumberSuffixFormat is appended to the part-number prefix of
// Execution-category records.
const PartNumberSuffixFormat = "E%03d"

type (
	// Bucket is one of the four standard report groupings.
	Bucket int

	// Section is an ordered, numbered group of records.
	Section struct {
		Bucket Bucket
		// CSU is set for BucketSource sections only.
		CSU     string
		Records []record.FileRecord
	}

	// Inventory is the grouped result of a scan. It is built once and not
	// mutated afterwards.
	Inventory struct {
		Execution Section
		Project   Section
		// Sources holds one section per CSU that has source or image files,
		// in ascending CSU order.
		Sources []Section
		Other   Section
	}
)

// BucketOf returns the bucket a category is reported under.
func BucketOf(c category.Category) Bucket {
	switch c {
	case category.Execution, category.Configuration, category.Database:
		return BucketExecution
	case category.Project:
		return BucketProject
	case category.Source, category.Image:
		return BucketSource
	default:
		return BucketOther
	}
}

// String returns the bucket identifier.
func (b Bucket) String() string {
	switch b {
	case BucketExecution:
		return "execution"
	case BucketProject:
		return "project"
	case BucketSource:
		return "source"
	case BucketOther:
		return "other"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// Build groups records into sections. The input slice is not modified;
// sections hold copies with Ordinal and PartNumber assigned.
func Build(records []record.FileRecord) *Inventory {
	inv := &Inventory{
		Execution: Section{Bucket: BucketExecution},
		Project:   Section{Bucket: BucketProject},
		Other:     Section{Bucket: BucketOther},
	}
	byCSU := make(map[string][]record.FileRecord)

	for _, rec := range records {
		switch BucketOf(rec.Category) {
		case BucketExecution:
			inv.Execution.Records = append(inv.Execution.Records, rec)
		case BucketProject:
			inv.Project.Records = append(inv.Project.Records, rec)
		case BucketSource:
			byCSU[rec.CSU] = append(byCSU[rec.CSU], rec)
		default:
			inv.Other.Records = append(inv.Other.Records, rec)
		}
	}

	for _, csu := range slices.Sorted(maps.Keys(byCSU)) {
		inv.Sources = append(inv.Sources, Section{Bucket: BucketSource, CSU: csu, Records: byCSU[csu]})
	}

	inv.Execution.number()
	inv.Project.number()
	for i := range inv.Sources {
		inv.Sources[i].number()
	}
	inv.Other.number()
	return inv
}

// number sorts the section by directory (stable, so scan order breaks ties)
// and assigns ordinals from 1.
func (s *Section) number() {
	slices.SortStableFunc(s.Records, func(a, b record.FileRecord) int {
		return cmp.Compare(a.Dir, b.Dir)
	})
	for i := range s.Records {
		rec := &s.Records[i]
		rec.Ordinal = i + 1
		if rec.Category == category.Execution {
			rec.PartNumber += fmt.Sprintf(PartNumberSuffixFormat, rec.Ordinal)
		}
	}
}

// Len returns the number of records in the section.
func (s Section) Len() int { return len(s.Records) }

// Sections returns every section in document order: execution, project,
// per-CSU sources, other.
func (inv *Inventory) Sections() []Section {
	out := make([]Section, 0, len(inv.Sources)+3)
	out = append(out, inv.Execution, inv.Project)
	out = append(out, inv.Sources...)
	return append(out, inv.Other)
}

// Records flattens the numbered sections in document order.
func (inv *Inventory) Records() []record.FileRecord {
	out := make([]record.FileRecord, 0, inv.Len())
	for _, s := range inv.Sections() {
		out = append(out, s.Records...)
	}
	return out
}

// Len returns the total number of records across all sections.
func (inv *Inventory) Len() int {
	n := 0
	for _, s := range inv.Sections() {
		n += s.Len()
	}
	return n
}

// SourceTotal returns the number of project and per-CSU source records,
// the "원시 파일" total.
func (inv *Inventory) SourceTotal() int {
	n := inv.Project.Len()
	for _, s := range inv.Sources {
		n += s.Len()
	}
	return n
}

// CountByCategory tallies records per category.
func (inv *Inventory) CountByCategory() map[category.Category]int {
	counts := make(map[category.Category]int)
	for _, s := range inv.Sections() {
		for _, rec := range s.Records {
			counts[rec.Category]++
		}
	}
	return counts
}
