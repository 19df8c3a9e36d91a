// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
)

func mustWrite(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
		t.Fatal(err)
	}
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{
		"b.txt",
		"a/z.go",
		"a/b/c.go",
		"build/out.o",
		"docs/readme.md",
		".git/config",
		"sub/.DS_Store",
		"make-sps.yaml",
	} {
		mustWrite(t, root, rel)
	}
	if err := os.Symlink(filepath.Join(root, "b.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := Walk(t.Context(), root, Options{
		Exclude: []string{"build"},
		Skip:    []string{filepath.Join(root, "make-sps.yaml")},
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"a/b/c.go", "a/z.go", "b.txt", "docs/readme.md"}
	if got := relAll(t, root, files); !reflect.DeepEqual(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}
}

func TestWalk_RootNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, root := range []string{filepath.Join(dir, "missing"), file} {
		if _, err := Walk(t.Context(), root, Options{}); !errors.Is(err, ErrRootNotFound) {
			t.Errorf("Walk(%s) error = %v, want ErrRootNotFound", root, err)
		}
	}
}

func TestWalk_InvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := Walk(t.Context(), t.TempDir(), Options{Exclude: []string{"[a"}}); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("Walk() error = %v, want ErrInvalidPattern", err)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWrite(t, root, "a.txt")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := Walk(ctx, root, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}

func TestRun_PreservesOrderAndIsolatesErrors(t *testing.T) {
	t.Parallel()

	jobs := []int{1, 2, 3, 4, 5, 6, 7, 8}
	boom := errors.New("odd")
	var active, peak atomic.Int32

	out, err := Run(t.Context(), jobs, 3, func(_ context.Context, n int) (int, error) {
		cur := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		if n%2 == 1 {
			return 0, boom
		}
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != len(jobs) {
		t.Fatalf("outcomes = %d, want %d", len(out), len(jobs))
	}
	for i, o := range out {
		n := jobs[i]
		if n%2 == 1 {
			if !errors.Is(o.Err, boom) {
				t.Errorf("job %d error = %v, want boom", n, o.Err)
			}
			continue
		}
		if o.Err != nil || o.Value != n*10 {
			t.Errorf("job %d = %+v", n, o)
		}
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	out, err := Run(ctx, []int{1, 2, 3}, 1, func(_ context.Context, n int) (int, error) {
		cancel()
		return n, nil
	})
	if !errors.Is(err, context.Canceled) || out != nil {
		t.Errorf("Run() = %v, %v; want nil, context.Canceled", out, err)
	}
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()

	out, err := Run(t.Context(), []string(nil), 0, func(context.Context, string) (string, error) {
		t.Error("fn called for empty job list")
		return "", nil
	})
	if err != nil || len(out) != 0 {
		t.Errorf("Run(empty) = %v, %v", out, err)
	}
}
