// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
)

const projectSchema = `
#Project: {
	device:        string & !=""
	version:       string
	partnumber?:   string
	checksum_type: *"SHA256" | "MD5"
	csu?: [...{
		csu: string & !=""
		dir: string
	}]
}

#Settings: {
	scan?: {
		workers?: int & >=0
		exclude?: [...string]
	}
	report?: format?: "markdown" | "json" | "terminal" | "hwpx"
}
`

type (
	testCSU struct {
		CSU string `json:"csu"`
		Dir string `json:"dir"`
	}

	testProject struct {
		Device       string    `json:"device"`
		Version      string    `json:"version"`
		PartNumber   string    `json:"partnumber,omitempty"`
		ChecksumType string    `json:"checksum_type"`
		CSU          []testCSU `json:"csu,omitempty"`
	}
)

func TestCompile(t *testing.T) {
	t.Parallel()

	if _, err := Compile([]byte(projectSchema), "#Project"); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if _, err := Compile([]byte(projectSchema), "#Missing"); err == nil {
		t.Error("Compile() with unknown definition should fail")
	}
	if _, err := Compile([]byte("#A: {"), "#A"); err == nil {
		t.Error("Compile() with broken source should fail")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustCompile() should panic on a missing definition")
		}
	}()
	MustCompile([]byte(projectSchema), "#Missing")
}

func TestDecode(t *testing.T) {
	t.Parallel()

	s := MustCompile([]byte(projectSchema), "#Project")

	t.Run("cue document", func(t *testing.T) {
		t.Parallel()

		p, err := Decode[testProject](s, []byte(`
device:        "RDR-1"
version:       "v1.0"
checksum_type: "MD5"
csu: [{csu: "core", dir: "src/core"}, {csu: "ui", dir: "src/ui"}]
`), "make-sps.cue")
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if p.Device != "RDR-1" || p.ChecksumType != "MD5" || len(p.CSU) != 2 || p.CSU[1].Dir != "src/ui" {
			t.Errorf("decoded = %+v", p)
		}
	})

	t.Run("json document takes schema defaults", func(t *testing.T) {
		t.Parallel()

		p, err := Decode[testProject](s, []byte(`{"device": "RDR-1", "version": "v1.0"}`), "make-sps.json")
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if p.ChecksumType != "SHA256" {
			t.Errorf("checksum_type = %q, want default SHA256", p.ChecksumType)
		}
	})

	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{"invalid enum", `{"device": "D", "version": "v1", "checksum_type": "CRC32"}`, "checksum_type"},
		{"missing device", `{"version": "v1"}`, "device"},
		{"empty csu name", `{"device": "D", "version": "v1", "csu": [{"csu": "", "dir": "x"}]}`, "csu[0].csu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode[testProject](s, []byte(tt.doc), "make-sps.yaml")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Decode() error = %v, want *ValidationError", err)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Error("ValidationError should wrap ErrInvalid")
			}
			if ve.File != "make-sps.yaml" || !strings.HasPrefix(err.Error(), "make-sps.yaml: ") {
				t.Errorf("error = %q, want the filename first", err)
			}
			if !slices.Contains(ve.Paths(), tt.wantPath) {
				t.Errorf("Paths() = %v, want %q", ve.Paths(), tt.wantPath)
			}
		})
	}
}

func TestDecode_Syntax(t *testing.T) {
	t.Parallel()

	s := MustCompile([]byte(projectSchema), "#Project")
	_, err := Decode[testProject](s, []byte(`device: "D`), "")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.File != "<input>" {
		t.Fatalf("Decode() error = %v, want *ValidationError for <input>", err)
	}
}

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	s := MustCompile([]byte(projectSchema), "#Settings")

	m, err := DecodeMap(s, []byte(`scan: workers: 4`), "config.cue")
	if err != nil {
		t.Fatalf("DecodeMap() error = %v", err)
	}
	scan, ok := m["scan"].(map[string]any)
	if !ok || len(m) != 1 {
		t.Fatalf("DecodeMap() = %v, want only scan", m)
	}
	if _, ok := scan["exclude"]; ok {
		t.Error("unset optional field should stay absent")
	}

	empty, err := DecodeMap(s, []byte(`{}`), "config.cue")
	if err != nil || len(empty) != 0 {
		t.Errorf("DecodeMap({}) = %v, %v", empty, err)
	}

	_, err = DecodeMap(s, []byte(`report: format: "pdf"`), "config.cue")
	var ve *ValidationError
	if !errors.As(err, &ve) || !slices.Contains(ve.Paths(), "report.format") {
		t.Errorf("DecodeMap() error = %v, want a report.format violation", err)
	}
}

func TestSchema_Limit(t *testing.T) {
	t.Parallel()

	s := MustCompile([]byte(projectSchema), "#Project").WithLimit(64)
	if _, err := Decode[testProject](s, []byte(`{"device": "D", "version": "v"}`), "m.json"); err != nil {
		t.Errorf("Decode() within limit error = %v", err)
	}

	big := []byte(`{"device": "` + strings.Repeat("a", 100) + `", "version": "v"}`)
	_, err := Decode[testProject](s, big, "m.json")
	var se *SizeError
	if !errors.As(err, &se) || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decode() error = %v, want *SizeError", err)
	}
	if se.Limit != 64 || se.Size != int64(len(big)) {
		t.Errorf("SizeError = %+v", se)
	}

	if err := (&Schema{}).CheckSize(make([]byte, DefaultLimit), "x"); err != nil {
		t.Errorf("CheckSize() at the default limit error = %v", err)
	}
}

func TestSchema_Concurrent(t *testing.T) {
	t.Parallel()

	s := MustCompile([]byte(projectSchema), "#Project")
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if _, err := Decode[testProject](s, []byte(`{"device": "D", "version": "v"}`), "m.json"); err != nil {
				t.Errorf("Decode() error = %v", err)
			}
		})
	}
	wg.Wait()
}
