// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keinus/make-sps/internal/config"
	"github.com/keinus/make-sps/internal/issue"
	"github.com/keinus/make-sps/internal/manifest"
	"github.com/keinus/make-sps/internal/testutil"
	"github.com/keinus/make-sps/pkg/category"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Dependencies{})
	if err := env.run(t, "classify", "main.go", "logo.png", ".dll", "go", "notes.xyz"); err != nil {
		t.Fatalf("classify error = %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"source", "소스코드", "image", "이미지 파일", "execution", "실행파일", "unclassified", "미식별 파일"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClassify_UnknownAsConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Dependencies{})
	if err := env.run(t, "classify", "--unknown-as-config", "notes.xyz"); err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "configuration") {
		t.Errorf("unknown extension should fall back to configuration:\n%s", env.stdout)
	}

	cfg := config.DefaultConfig()
	cfg.Classify.UnknownFallback = category.FallbackConfiguration
	env = newTestEnv(t, cfg, Dependencies{})
	if err := env.run(t, "classify", "notes.xyz"); err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "환경파일") {
		t.Errorf("config fallback should apply:\n%s", env.stdout)
	}
}

func TestClassifyArg(t *testing.T) {
	t.Parallel()

	c := &category.Classifier{}
	tests := []struct {
		arg  string
		want category.Category
	}{
		{"main.go", category.Source},
		{"dir/app.EXE", category.Execution},
		{"go", category.Source},
		{".png", category.Image},
		{"Makefile", category.Unclassified},
	}
	for _, tt := range tests {
		if got := classifyArg(c, tt.arg); got != tt.want {
			t.Errorf("classifyArg(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestLoc(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a.go": "package a\n\n// comment\nfunc A() {}\n",
		"b.py": "# comment\nx = 1\n",
	})
	env := newTestEnv(t, nil, Dependencies{})
	if err := env.run(t, "loc", filepath.Join(root, "a.go"), filepath.Join(root, "b.py")); err != nil {
		t.Fatalf("loc error = %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"a.go", "b.py", "total", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLoc_Unreadable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, Dependencies{})
	err := env.run(t, "loc", filepath.Join(t.TempDir(), "missing.go"))
	if ExitCode(err) != ExitFailure {
		t.Fatalf("exit code = %d, want %d", ExitCode(err), ExitFailure)
	}
	if !strings.Contains(env.stdout.String(), "unreadable") {
		t.Errorf("output should mark the file unreadable:\n%s", env.stdout)
	}
}

func TestManifest_InitAndValidate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "core"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(root, "ui"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(root, ".git"), 0o755)

	env := newTestEnv(t, nil, Dependencies{})
	if err := env.run(t, "manifest", "init", root, "--device", "RDR-1", "--from-dirs"); err != nil {
		t.Fatalf("manifest init error = %v", err)
	}

	path := filepath.Join(root, manifest.Filenames[0])
	f, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("generated manifest does not load: %v", err)
	}
	if f.Project.Device != "RDR-1" {
		t.Errorf("device = %q", f.Project.Device)
	}
	if len(f.Project.CSU) != 2 || f.Project.CSU[0].Name != "core" || f.Project.CSU[1].Name != "ui" {
		t.Errorf("CSUs = %+v, want core and ui", f.Project.CSU)
	}

	if err := env.run(t, "manifest", "init", root); err == nil {
		t.Error("second init without --force should fail")
	}
	if err := env.run(t, "manifest", "init", root, "--force"); err != nil {
		t.Errorf("init --force error = %v", err)
	}

	env.stdout.Reset()
	if err := env.run(t, "manifest", "validate", root); err != nil {
		t.Fatalf("manifest validate error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "is valid") {
		t.Errorf("validate output = %q", env.stdout)
	}
}

func TestManifest_ValidateErrors(t *testing.T) {
	t.Parallel()

	bad := filepath.Join(t.TempDir(), "make-sps.yaml")
	testutil.MustWriteFile(t, bad, []byte("project:\n  device: D\n  checksum_type: CRC\n"))

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantIssue issue.Id
	}{
		{"empty dir", t.TempDir(), ExitManifestNotFound, issue.ManifestNotFoundId},
		{"missing file", filepath.Join(t.TempDir(), "make-sps.yaml"), ExitManifestNotFound, issue.ManifestNotFoundId},
		{"invalid", bad, ExitFailure, issue.ManifestParseErrorId},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, nil, Dependencies{})
			err := env.run(t, "manifest", "validate", tt.target)
			if got := ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.wantCode, err)
			}
			if id, _ := issue.IssueOf(err); id != tt.wantIssue {
				t.Errorf("IssueOf() = %v, want %v", id, tt.wantIssue)
			}
		})
	}
}

func TestConfigShow_Redacts(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Publish.S3.SecretKey = "topsecret"
	cfg.Ledger.Postgres.DSN = "postgres://sps:hunter2@db/sps"
	env := newTestEnv(t, nil, Dependencies{Config: staticProvider{cfg: cfg, src: "/etc/make-sps/config.cue"}})

	if err := env.run(t, "config", "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	out := env.stdout.String()
	if strings.Contains(out, "topsecret") || strings.Contains(out, "hunter2") {
		t.Errorf("credentials leaked:\n%s", out)
	}
	for _, want := range []string{"/etc/make-sps/config.cue", "SHA256", "markdown", "postgres://sps:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Publish.S3.AccessKey = "AKIAEXAMPLE"
	env := newTestEnv(t, cfg, Dependencies{})
	if err := env.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump error = %v", err)
	}
	out := env.stdout.String()
	if strings.Contains(out, "AKIAEXAMPLE") {
		t.Errorf("dump leaked the access key:\n%s", out)
	}
	if !strings.Contains(out, "fingerprint") {
		t.Errorf("dump output = %q", out)
	}
}

// Config init and path touch the process-wide config dir override, so these
// tests do not run in parallel.
func TestConfigInitAndPath(t *testing.T) {
	dir := t.TempDir()
	config.SetConfigDirOverride(dir)
	t.Cleanup(config.Reset)

	// A broken provider proves init and path do not load settings.
	env := newTestEnv(t, nil, Dependencies{Config: staticProvider{err: os.ErrInvalid}})

	if err := env.run(t, "config", "path"); err != nil {
		t.Fatalf("config path error = %v", err)
	}
	want := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	if !strings.Contains(env.stdout.String(), want) {
		t.Errorf("path output = %q, want %q", env.stdout, want)
	}

	if err := env.run(t, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	env.stdout.Reset()
	if err := env.run(t, "config", "init"); err != nil {
		t.Fatalf("second config init error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "already exists") {
		t.Errorf("second init output = %q", env.stdout)
	}
}
