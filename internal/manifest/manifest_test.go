// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/keinus/make-sps/pkg/cueutil"
	"github.com/keinus/make-sps/pkg/fingerprint"
)

const yamlManifest = `project:
  device: RDR-1
  version: v1.2
  partnumber: PN-RDR
  checksum_type: MD5
  csu:
    - csu: core
      dir: src/core
    - csu: ui
      dir: src/ui
`

const tomlManifest = `[project]
device = "RDR-1"
version = "v1.2"
partnumber = "PN-RDR"
checksum_type = "MD5"

[[project.csu]]
csu = "core"
dir = "src/core"

[[project.csu]]
csu = "ui"
dir = "src/ui"
`

const cueManifest = `project: {
	device:        "RDR-1"
	version:       "v1.2"
	partnumber:    "PN-RDR"
	checksum_type: "MD5"
	csu: [{csu: "core", dir: "src/core"}, {csu: "ui", dir: "src/ui"}]
}
`

func wantProject() Project {
	return Project{
		Device:       "RDR-1",
		Version:      "v1.2",
		PartNumber:   "PN-RDR",
		ChecksumType: fingerprint.MD5,
		CSU:          []CSU{{Name: "core", Dir: "src/core"}, {Name: "ui", Dir: "src/ui"}},
	}
}

func equalProject(a, b Project) bool {
	if a.Device != b.Device || a.Version != b.Version || a.PartNumber != b.PartNumber ||
		a.ChecksumType != b.ChecksumType || len(a.CSU) != len(b.CSU) {
		return false
	}
	for i := range a.CSU {
		if a.CSU[i] != b.CSU[i] {
			return false
		}
	}
	return true
}

func TestParse_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"yaml", "make-sps.yaml", yamlManifest},
		{"yml", "make-sps.yml", yamlManifest},
		{"toml", "make-sps.toml", tomlManifest},
		{"cue", "make-sps.cue", cueManifest},
		{"json", "make-sps.json", `{"project": {"device": "RDR-1", "version": "v1.2", "partnumber": "PN-RDR",
			"checksum_type": "MD5", "csu": [{"csu": "core", "dir": "src/core"}, {"csu": "ui", "dir": "src/ui"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := Parse([]byte(tt.data), tt.filename)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !equalProject(f.Project, wantProject()) {
				t.Errorf("Parse() = %+v, want %+v", f.Project, wantProject())
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte("project:\n  device: RDR-1\n"), "make-sps.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Project.ChecksumType != fingerprint.SHA256 {
		t.Errorf("ChecksumType = %q, want SHA256", f.Project.ChecksumType)
	}
	if f.Project.Version != "" || f.Project.PartNumber != "" || len(f.Project.CSU) != 0 {
		t.Errorf("unexpected defaults: %+v", f.Project)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
		target   error
	}{
		{"missing device", "make-sps.yaml", "project:\n  version: v1\n", ErrInvalid},
		{"empty document", "make-sps.yaml", "", ErrInvalid},
		{"bad checksum", "make-sps.yaml", "project:\n  device: D\n  checksum_type: CRC32\n", ErrInvalid},
		{"absolute dir", "make-sps.yaml", "project:\n  device: D\n  csu:\n    - csu: a\n      dir: /etc\n", ErrInvalid},
		{"parent dir", "make-sps.yaml", "project:\n  device: D\n  csu:\n    - csu: a\n      dir: ../x\n", ErrInvalid},
		{"duplicate csu", "make-sps.yaml", "project:\n  device: D\n  csu:\n    - csu: a\n      dir: x\n    - csu: a\n      dir: y\n", ErrDuplicateCSU},
		{"unknown field", "make-sps.yaml", "project:\n  device: D\n  owner: me\n", ErrInvalid},
		{"broken yaml", "make-sps.yaml", "project: [\n", ErrInvalid},
		{"broken toml", "make-sps.toml", "[project\n", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data), tt.filename)
			if !errors.Is(err, tt.target) {
				t.Errorf("Parse() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestParse_ErrorNamesFile(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"project": {"device": ""}}`), "make-sps.json")
	if err == nil || !strings.Contains(err.Error(), "make-sps.json") {
		t.Errorf("Parse() error = %v, want file name in message", err)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("project:\n  device: D\n  checksum_type: CRC\n"), "make-sps.yaml")
	var ve *cueutil.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Parse() error = %v, want *cueutil.ValidationError", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("schema violations should wrap ErrInvalid")
	}
	if !slices.Contains(ve.Paths(), "project.checksum_type") {
		t.Errorf("Paths() = %v, want project.checksum_type", ve.Paths())
	}
}

func TestParse_TooLarge(t *testing.T) {
	t.Parallel()

	big := []byte("project:\n  device: D\n  version: \"" + strings.Repeat("x", int(MaxFileSize)) + "\"\n")
	_, err := Parse(big, "make-sps.yaml")
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, cueutil.ErrTooLarge) {
		t.Errorf("Parse() error = %v, want ErrInvalid wrapping cueutil.ErrTooLarge", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	f := &File{Project: Project{
		Device:       "D",
		ChecksumType: fingerprint.SHA256,
		CSU:          []CSU{{Name: "a", Dir: "x"}, {Name: "a", Dir: "../y"}},
	}}
	err := f.Validate()
	if !errors.Is(err, ErrDuplicateCSU) || !errors.Is(err, ErrDirOutsideRoot) {
		t.Errorf("Validate() error = %v, want both duplicate and outside-root", err)
	}

	f.Project.ChecksumType = "CRC"
	f.Project.CSU = nil
	if err := f.Validate(); !errors.Is(err, fingerprint.ErrInvalidAlgorithm) {
		t.Errorf("Validate() error = %v, want ErrInvalidAlgorithm", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := Find(root); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find(empty) error = %v, want ErrNotFound", err)
	}

	if err := os.WriteFile(filepath.Join(root, "make-sps.toml"), []byte(tomlManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "make-sps.yaml"), []byte(yamlManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := Find(root)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if filepath.Base(path) != "make-sps.yaml" {
		t.Errorf("Find() = %s, want YAML to take priority", path)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !equalProject(f.Project, wantProject()) {
		t.Errorf("Load() = %+v", f.Project)
	}

	if _, err := Load(filepath.Join(root, "missing.yaml")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStarter(t *testing.T) {
	t.Parallel()

	data, err := Starter("RDR-1", CSU{Name: "core", Dir: "src"})
	if err != nil {
		t.Fatalf("Starter() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# make-sps project manifest") {
		t.Errorf("Starter() missing header:\n%s", data)
	}
	if !strings.Contains(string(data), "# csu[].dir is relative to the delivery root") {
		t.Errorf("Starter() header does not say how csu dirs resolve:\n%s", data)
	}

	f, err := Parse(data, "make-sps.yaml")
	if err != nil {
		t.Fatalf("starter manifest does not parse: %v", err)
	}
	if f.Project.Device != "RDR-1" || len(f.Project.CSU) != 1 || f.Project.CSU[0].Dir != "src" {
		t.Errorf("starter = %+v", f.Project)
	}

	data, err = Starter("")
	if err != nil {
		t.Fatalf("Starter(\"\") error = %v", err)
	}
	if _, err := Parse(data, "make-sps.yaml"); err != nil {
		t.Errorf("default starter does not parse: %v", err)
	}
}
