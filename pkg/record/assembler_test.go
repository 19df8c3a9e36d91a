// SPDX-License-Identifier: MPL-2.0

package record

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/djherbis/times"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/fingerprint"
)

type stubDescriber struct {
	text string
	err  error
	seen []Subject
}

func (s *stubDescriber) Describe(_ context.Context, subj Subject) (string, error) {
	s.seen = append(s.seen, subj)
	return s.text, s.err
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newAssembler(t *testing.T, opts Options) *Assembler {
	t.Helper()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	a, err := NewAssembler(opts)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	return a
}

var testContext = Context{
	Device:           "RDR-1",
	CSU:              "core",
	Version:          "v1.2",
	PartNumberPrefix: "PN-7",
	Algorithm:        fingerprint.SHA256,
}

func TestAssemble_Source(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "src", "pkg", "main.go")
	writeFile(t, path, []byte("// Entry point\npackage main\n\nfunc main() {}\n"))
	mtime := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	rec, err := newAssembler(t, Options{}).Assemble(t.Context(), path, root, testContext)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := FileRecord{
		Device:      "RDR-1",
		CSU:         "core",
		Category:    category.Source,
		Dir:         "/src/pkg",
		RelPath:     "src/pkg/main.go",
		Name:        "main.go",
		Version:     "v1.2",
		Size:        int64(len("// Entry point\npackage main\n\nfunc main() {}\n")),
		Date:        "2024-03-09",
		Measure:     "2",
		Description: "Entry point",
	}
	want.Checksum, _ = fingerprint.File(path, fingerprint.SHA256)
	if rec != want {
		t.Errorf("Assemble() =\n%+v\nwant\n%+v", rec, want)
	}
}

func TestAssemble_ExecutionCarriesPartNumberPrefix(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "app.exe")
	writeFile(t, path, []byte{0x4d, 0x5a, 0x00})

	rec, err := newAssembler(t, Options{}).Assemble(t.Context(), path, root, testContext)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if rec.Category != category.Execution || rec.PartNumber != "PN-7" {
		t.Errorf("category/part = %v/%q", rec.Category, rec.PartNumber)
	}
	if rec.Dir != "/" || rec.Measure != "" {
		t.Errorf("dir/measure = %q/%q", rec.Dir, rec.Measure)
	}
	if rec.Date == "" {
		t.Error("Date is empty")
	}
}

func TestAssemble_Image(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 16))); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(root, "img", "icon.png")
	writeFile(t, good, buf.Bytes())
	bad := filepath.Join(root, "img", "logo.svg")
	writeFile(t, bad, []byte("<svg/>"))

	a := newAssembler(t, Options{})
	rec, err := a.Assemble(t.Context(), good, root, testContext)
	if err != nil {
		t.Fatalf("Assemble(png) error = %v", err)
	}
	if rec.Category != category.Image || rec.Measure != "32x16 8bits" {
		t.Errorf("png record = %v %q", rec.Category, rec.Measure)
	}

	if _, err := a.Assemble(t.Context(), bad, root, testContext); !errors.Is(err, ErrSkipped) {
		t.Errorf("Assemble(svg) error = %v, want ErrSkipped", err)
	}
}

func TestAssemble_EtcPatternOverridesExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "docs", "notes", "guide.py")
	writeFile(t, path, []byte("print(1)\n"))

	a := newAssembler(t, Options{EtcPatterns: []string{"docs/**"}})
	rec, err := a.Assemble(t.Context(), path, root, testContext)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if rec.Category != category.Etc || rec.Measure != "" {
		t.Errorf("record = %v %q, want etc without measure", rec.Category, rec.Measure)
	}
}

func TestAssemble_DescriberPrecedence(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "run.py")
	writeFile(t, path, []byte("# launcher\nprint(1)\n"))

	tests := []struct {
		name string
		desc *stubDescriber
		want string
	}{
		{"describer wins", &stubDescriber{text: "실행 스크립트"}, "실행 스크립트"},
		{"empty falls back to comment", &stubDescriber{}, "launcher"},
		{"error falls back to comment", &stubDescriber{text: "ignored", err: errors.New("offline")}, "launcher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newAssembler(t, Options{Describer: tt.desc})
			rec, err := a.Assemble(t.Context(), path, root, testContext)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if rec.Description != tt.want {
				t.Errorf("Description = %q, want %q", rec.Description, tt.want)
			}
			if len(tt.desc.seen) != 1 || tt.desc.seen[0].Checksum != rec.Checksum {
				t.Errorf("describer saw %+v", tt.desc.seen)
			}
		})
	}
}

func TestAssemble_Skips(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, []byte("x"))

	a := newAssembler(t, Options{OnFingerprintError: PolicySentinel})

	if _, err := a.Assemble(t.Context(), filepath.Join(root, "gone.txt"), root, testContext); !errors.Is(err, ErrSkipped) {
		t.Errorf("missing file error = %v, want ErrSkipped", err)
	}
	if _, err := a.Assemble(t.Context(), root, root, testContext); !errors.Is(err, ErrSkipped) {
		t.Errorf("directory error = %v, want ErrSkipped", err)
	}

	badAlg := testContext
	badAlg.Algorithm = "CRC32"
	if _, err := a.Assemble(t.Context(), path, root, badAlg); !errors.Is(err, fingerprint.ErrInvalidAlgorithm) {
		t.Errorf("invalid algorithm error = %v, want ErrInvalidAlgorithm", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := a.Assemble(ctx, path, root, testContext); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v, want context.Canceled", err)
	}
}

func TestNewAssembler_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewAssembler(Options{OnFingerprintError: "retry"}); !errors.Is(err, ErrInvalidFailurePolicy) {
		t.Errorf("policy error = %v, want ErrInvalidFailurePolicy", err)
	}
	if _, err := NewAssembler(Options{EtcPatterns: []string{"docs/[a"}}); !errors.Is(err, ErrInvalidEtcPattern) {
		t.Errorf("pattern error = %v, want ErrInvalidEtcPattern", err)
	}
}

func TestDirOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want string
	}{
		{"a.txt", "/"},
		{"bin/a.exe", "/bin"},
		{"x/y/z/a.c", "/x/y/z"},
	}
	for _, tt := range tests {
		if got := DirOf(tt.rel); got != tt.want {
			t.Errorf("DirOf(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestAssemble_FingerprintFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "src", "main.c")
	writeFile(t, path, []byte("int main(void) { return 0; }\n"))

	readErr := errors.New("read main.c: input/output error")
	failing := func(string, fingerprint.Algorithm) (string, error) { return "", readErr }

	t.Run("sentinel keeps the record", func(t *testing.T) {
		t.Parallel()

		a := newAssembler(t, Options{OnFingerprintError: PolicySentinel, Digest: failing})
		rec, err := a.Assemble(t.Context(), path, root, testContext)
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if rec.Checksum != fingerprint.ErrorSentinel {
			t.Errorf("Checksum = %q, want %q", rec.Checksum, fingerprint.ErrorSentinel)
		}
		if rec.Category != category.Source || rec.Measure != "1" || rec.Name != "main.c" {
			t.Errorf("record = %+v, want the rest of the fields filled", rec)
		}
	})

	for _, policy := range []FailurePolicy{PolicySkip, ""} {
		t.Run("skip policy "+string(policy), func(t *testing.T) {
			t.Parallel()

			a := newAssembler(t, Options{OnFingerprintError: policy, Digest: failing})
			_, err := a.Assemble(t.Context(), path, root, testContext)
			if !errors.Is(err, ErrSkipped) || !errors.Is(err, readErr) {
				t.Errorf("Assemble() error = %v, want ErrSkipped wrapping the read error", err)
			}
		})
	}

	t.Run("sentinel never masks a bad algorithm", func(t *testing.T) {
		t.Parallel()

		a := newAssembler(t, Options{OnFingerprintError: PolicySentinel})
		badAlg := testContext
		badAlg.Algorithm = "CRC32"
		if _, err := a.Assemble(t.Context(), path, root, badAlg); !errors.Is(err, ErrSkipped) {
			t.Errorf("Assemble() error = %v, want ErrSkipped", err)
		}
	})
}

func TestAssemble_UnreadableFile(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root can read mode 000 files")
	}

	root := t.TempDir()
	path := filepath.Join(root, "locked.bin")
	writeFile(t, path, []byte("payload"))
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	rec, err := newAssembler(t, Options{OnFingerprintError: PolicySentinel}).Assemble(t.Context(), path, root, testContext)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if rec.Checksum != fingerprint.ErrorSentinel || rec.Size != int64(len("payload")) {
		t.Errorf("record = %+v, want sentinel checksum with the stat size", rec)
	}

	if _, err := newAssembler(t, Options{}).Assemble(t.Context(), path, root, testContext); !errors.Is(err, ErrSkipped) {
		t.Errorf("Assemble() under skip policy error = %v, want ErrSkipped", err)
	}
}

func TestAssemble_DateSource(t *testing.T) {
	t.Parallel()

	old := time.Date(2001, 2, 3, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		category category.Category
		creation bool
	}{
		{"app.exe", category.Execution, true},
		{"app.ini", category.Configuration, true},
		{"seed.sql", category.Database, true},
		{"main.go", category.Source, false},
		{"notes.txt", category.Unclassified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			path := filepath.Join(root, tt.name)
			writeFile(t, path, []byte("x\n"))
			if err := os.Chtimes(path, old, old); err != nil {
				t.Fatal(err)
			}

			rec, err := newAssembler(t, Options{}).Assemble(t.Context(), path, root, testContext)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if rec.Category != tt.category {
				t.Fatalf("Category = %v, want %v", rec.Category, tt.category)
			}

			want := old
			if tt.creation {
				ts, err := times.Stat(path)
				if err != nil {
					t.Fatal(err)
				}
				switch {
				case ts.HasBirthTime():
					want = ts.BirthTime()
				case ts.HasChangeTime():
					want = ts.ChangeTime()
				}
			}
			if got, wantDate := rec.Date, want.UTC().Format(DateLayout); got != wantDate {
				t.Errorf("Date = %q, want %q", got, wantDate)
			}
			if tt.creation && rec.Date == old.Format(DateLayout) {
				t.Errorf("Date = %q is the modification time", rec.Date)
			}
		})
	}
}
