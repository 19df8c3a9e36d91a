// SPDX-License-Identifier: MPL-2.0

// Package manifest loads the optional project manifest that drives
// multi-CSU delivery scans.
//
// A manifest names the device, version, part-number prefix and checksum
// algorithm, and maps CSU names to subdirectories of the delivery root. It
// may be written in YAML, TOML, CUE or JSON; every format is validated
// against the same embedded CUE schema.
package manifest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/keinus/make-sps/pkg/cueutil"
	"github.com/keinus/make-sps/pkg/fingerprint"
)

// MaxFileSize bounds manifest files.
const MaxFileSize int64 = 1 << 20

//go:embed manifest_schema.cue
var schemaBytes []byte

var schema = cueutil.MustCompile(schemaBytes, "#Manifest").WithLimit(MaxFileSize)

// Filenames lists the manifest names tried by Find, in priority order.
var Filenames = []string{"make-sps.yaml", "make-sps.yml", "make-sps.toml", "make-sps.cue", "make-sps.json"}

var (
	// ErrNotFound is returned when no manifest exists where one is required.
	ErrNotFound = errors.New("manifest not found")

	// ErrInvalid is returned for manifests that fail to parse or validate.
	ErrInvalid = errors.New("invalid manifest")

	// ErrDuplicateCSU is returned when two CSU entries share a name.
	ErrDuplicateCSU = errors.New("duplicate CSU name")

	// ErrDirOutsideRoot is returned for CSU directories that escape the root.
	ErrDirOutsideRoot = errors.New("CSU directory outside delivery root")
)

type (
	// File is the manifest document.
	File struct {
		Project Project `json:"project" yaml:"project"`
	}

	// Project is the delivery description.
	Project struct {
		Device       string                `json:"device" yaml:"device"`
		Version      string                `json:"version" yaml:"version"`
		PartNumber   string                `json:"partnumber" yaml:"partnumber"`
		ChecksumType fingerprint.Algorithm `json:"checksum_type" yaml:"checksum_type"`
		CSU          []CSU                 `json:"csu,omitempty" yaml:"csu,omitempty"`
	}

	// CSU maps a subsystem name to its directory under the delivery root.
	CSU struct {
		Name string `json:"csu" yaml:"csu"`
		Dir  string `json:"dir" yaml:"dir"`
	}
)

// Find returns the first manifest file present in root.
func Find(root string) (string, error) {
	for _, name := range Filenames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, root, strings.Join(Filenames, ", "))
}

// Load reads and validates the manifest at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Parse decodes manifest bytes. The format follows the filename extension.
func Parse(data []byte, filename string) (*File, error) {
	if err := schema.CheckSize(data, filename); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	doc, err := toCUEInput(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, filename, err)
	}

	f, err := cueutil.Decode[File](schema, doc, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, filename, err)
	}
	return f, nil
}

// toCUEInput converts YAML and TOML documents to JSON, which CUE compiles
// directly. CUE and JSON documents pass through.
func toCUEInput(data []byte, filename string) ([]byte, error) {
	var generic map[string]any
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		return data, nil
	}
	if generic == nil {
		generic = map[string]any{}
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}
	return out, nil
}

// Validate checks the rules the schema cannot express.
func (f *File) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(f.Project.CSU))
	for i, c := range f.Project.CSU {
		if _, dup := seen[c.Name]; dup {
			errs = append(errs, fmt.Errorf("project.csu[%d]: %w %q", i, ErrDuplicateCSU, c.Name))
		}
		seen[c.Name] = struct{}{}
		if !filepath.IsLocal(filepath.FromSlash(c.Dir)) {
			errs = append(errs, fmt.Errorf("project.csu[%d].dir: %w: %q", i, ErrDirOutsideRoot, c.Dir))
		}
	}
	if valid, algErrs := f.Project.ChecksumType.IsValid(); !valid {
		errs = append(errs, algErrs...)
	}
	return errors.Join(errs...)
}

// Starter returns a commented starter manifest for device.
func Starter(device string, csus ...CSU) ([]byte, error) {
	if device == "" {
		device = "DEVICE"
	}
	if len(csus) == 0 {
		csus = []CSU{{Name: "main", Dir: "."}}
	}
	f := File{Project: Project{
		Device:       device,
		Version:      "v1.0",
		PartNumber:   "",
		ChecksumType: fingerprint.SHA256,
		CSU:          csus,
	}}
	body, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("encoding starter manifest: %w", err)
	}
	header := "# make-sps project manifest\n" +
		"# checksum_type: SHA256 | MD5\n" +
		"# csu[].dir is relative to the delivery root given to build.\n"
	return append([]byte(header), body...), nil
}
