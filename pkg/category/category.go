// SPDX-License-Identifier: MPL-2.0

// Package category classifies delivered files into audit categories.
//
// The category set is closed. Classification is a pure function of the file
// extension: the lowercased extension is checked against ordered extension
// tables and the first match wins. Extensions that match no table resolve to
// the classifier's fallback category.
package category

import (
	"errors"
	"fmt"
)

const (
	// Unclassified is the zero value: no extension table matched.
	Unclassified Category = iota
	// Execution covers binaries, libraries, installers and launch scripts.
	Execution
	// Configuration covers settings and environment files.
	Configuration
	// Database covers database files and tabular data dumps.
	Database
	// Project covers IDE and build-system project descriptors.
	Project
	// Source covers program source code.
	Source
	// Image covers raster and vector image assets.
	Image
	// Etc is an explicit "other" designation applied by path pattern,
	// independent of the extension tables.
	Etc
)

// ErrInvalidCategory is the sentinel error wrapped by InvalidCategoryError.
var ErrInvalidCategory = errors.New("invalid file category")

type (
	// Category is a closed set of file audit categories.
	Category int

	// InvalidCategoryError is returned when a Category value is outside the closed set.
	InvalidCategoryError struct {
		Value Category
	}
)

// All returns every category in declaration order.
func All() []Category {
	return []Category{Unclassified, Execution, Configuration, Database, Project, Source, Image, Etc}
}

// String returns the stable English identifier of the category.
func (c Category) String() string {
	switch c {
	case Unclassified:
		return "unclassified"
	case Execution:
		return "execution"
	case Configuration:
		return "configuration"
	case Database:
		return "database"
	case Project:
		return "project"
	case Source:
		return "source"
	case Image:
		return "image"
	case Etc:
		return "etc"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label returns the display label used in the report template.
func (c Category) Label() string {
	switch c {
	case Execution:
		return "실행파일"
	case Configuration:
		return "환경파일"
	case Database:
		return "DB파일"
	case Project:
		return "프로젝트 파일"
	case Source:
		return "소스코드"
	case Image:
		return "이미지 파일"
	case Etc:
		return "기타 파일"
	default:
		return "미식별 파일"
	}
}

// IsValid returns whether the category is a member of the closed set.
func (c Category) IsValid() (bool, []error) {
	if c < Unclassified || c > Etc {
		return false, []error{&InvalidCategoryError{Value: c}}
	}
	return true, nil
}

// UsesCreationTime reports whether the report date for this category is the
// file's creation time rather than its modification time.
func (c Category) UsesCreationTime() bool {
	return c == Execution || c == Configuration || c == Database
}

// CountsLines reports whether the measure field holds a logical line count.
func (c Category) CountsLines() bool {
	return c == Source || c == Configuration || c == Project
}

// Error implements the error interface for InvalidCategoryError.
func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid file category %d", int(e.Value))
}

// Unwrap returns ErrInvalidCategory for errors.Is() compatibility.
func (e *InvalidCategoryError) Unwrap() error { return ErrInvalidCategory }

// Parse returns the category whose String() form is name.
func Parse(name string) (Category, error) {
	for _, c := range All() {
		if c.String() == name {
			return c, nil
		}
	}
	return Unclassified, fmt.Errorf("%w: %q", ErrInvalidCategory, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if valid, errs := c.IsValid(); !valid {
		return nil, errs[0]
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
