// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"testing"
)

func TestFieldPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sel  []string
		want string
	}{
		{nil, ""},
		{[]string{"project"}, "project"},
		{[]string{"project", "device"}, "project.device"},
		{[]string{"project", "csu", "0", "dir"}, "project.csu[0].dir"},
		{[]string{"items", "0", "values", "1"}, "items[0].values[1]"},
	}
	for _, tt := range tests {
		if got := fieldPath(tt.sel); got != tt.want {
			t.Errorf("fieldPath(%v) = %q, want %q", tt.sel, got, tt.want)
		}
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	one := &ValidationError{File: "make-sps.yaml", Violations: []Violation{{Path: "project.device", Message: "empty"}}}
	if got := one.Error(); got != "make-sps.yaml: project.device: empty" {
		t.Errorf("Error() = %q", got)
	}

	many := &ValidationError{File: "config.cue", Violations: []Violation{
		{Message: "syntax error"},
		{Path: "scan.workers", Message: "invalid value -1"},
	}}
	want := "config.cue: 2 schema violations:\n  syntax error\n  scan.workers: invalid value -1"
	if got := many.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(many, ErrInvalid) {
		t.Error("ValidationError should wrap ErrInvalid")
	}
}

func TestNewValidationError_PlainError(t *testing.T) {
	t.Parallel()

	err := newValidationError(errors.New("boom"), "config.cue")
	if got := err.Error(); got != "config.cue: boom" {
		t.Errorf("Error() = %q", got)
	}
}
