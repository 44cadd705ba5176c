// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/fusioner/internal/testutil"
)

func TestFreshDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "root")
	testutil.MustWriteFile(t, filepath.Join(dir, "stale", "file.txt"), []byte("old"))

	if err := FreshDir(dir); err != nil {
		t.Fatalf("FreshDir() error = %v", err)
	}
	empty, err := IsEmptyDir(dir)
	if err != nil || !empty {
		t.Errorf("FreshDir() left content behind (empty=%v, err=%v)", empty, err)
	}
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	for range 2 {
		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir() error = %v", err)
		}
	}
	testutil.MustWriteFile(t, filepath.Join(dir, "keep"), []byte("x"))
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep")); err != nil {
		t.Errorf("EnsureDir() removed existing content: %v", err)
	}
}

func TestMoveTreeMissingOrEmptySource(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	dest := filepath.Join(tmp, "dest")
	var m Mover

	if err := m.MoveTree(filepath.Join(tmp, "missing"), dest); err != nil {
		t.Fatalf("MoveTree(missing) error = %v", err)
	}
	testutil.MustMkdirAll(t, filepath.Join(tmp, "empty"), 0o755)
	if err := m.MoveTree(filepath.Join(tmp, "empty"), dest); err != nil {
		t.Fatalf("MoveTree(empty) error = %v", err)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("MoveTree() created dest for a no-op move")
	}
}

func TestMoveTreeMerges(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "forge-temp")
	dest := filepath.Join(tmp, "merged-temp")

	testutil.MustWriteFile(t, filepath.Join(src, "forge", "com", "example", "A.class"), []byte("forge"))
	testutil.MustWriteFile(t, filepath.Join(src, "META-INF", "forge-mixins.json"), []byte("{}"))
	testutil.MustWriteFile(t, filepath.Join(src, "pack.mcmeta"), []byte("new"))
	testutil.MustWriteFile(t, filepath.Join(src, "logo.png"), []byte("same"))

	testutil.MustWriteFile(t, filepath.Join(dest, "fabric", "com", "example", "A.class"), []byte("fabric"))
	testutil.MustWriteFile(t, filepath.Join(dest, "META-INF", "fabric-mixins.json"), []byte("{}"))
	testutil.MustWriteFile(t, filepath.Join(dest, "pack.mcmeta"), []byte("old"))
	testutil.MustWriteFile(t, filepath.Join(dest, "logo.png"), []byte("same"))

	overwrites := map[string]bool{}
	m := Mover{OnOverwrite: func(path string, identical bool) {
		overwrites[filepath.Base(path)] = identical
	}}
	if err := m.MoveTree(src, dest); err != nil {
		t.Fatalf("MoveTree() error = %v", err)
	}

	for _, rel := range []string{
		"forge/com/example/A.class",
		"fabric/com/example/A.class",
		"META-INF/forge-mixins.json",
		"META-INF/fabric-mixins.json",
	} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s in dest: %v", rel, err)
		}
	}
	if got := string(testutil.MustReadFile(t, filepath.Join(dest, "pack.mcmeta"))); got != "new" {
		t.Errorf("pack.mcmeta = %q, want the moved file to win", got)
	}
	if identical, ok := overwrites["pack.mcmeta"]; !ok || identical {
		t.Errorf("overwrite of pack.mcmeta reported as %v (seen=%v)", identical, ok)
	}
	if identical := overwrites["logo.png"]; !identical {
		t.Error("overwrite of logo.png should be reported identical")
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		t.Fatalf("ReadDir(src) error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("source still holds %d children after move", len(entries))
	}
}

func TestMoveTreeIntoSelf(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(tmp, "a", "x"), []byte("x"))

	var m Mover
	err := m.MoveTree(tmp, filepath.Join(tmp, "a"))
	if !errors.Is(err, ErrMoveIntoSelf) {
		t.Errorf("MoveTree() error = %v, want ErrMoveIntoSelf", err)
	}
}

func TestPruneEmpty(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "forge", "com", "example"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(root, "com", "example", "shared", "S.class"), []byte("s"))

	if err := PruneEmpty(root); err != nil {
		t.Fatalf("PruneEmpty() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "forge")); !errors.Is(err, os.ErrNotExist) {
		t.Error("empty forge tree should have been pruned")
	}
	if _, err := os.Stat(filepath.Join(root, "com", "example", "shared", "S.class")); err != nil {
		t.Errorf("non-empty tree was pruned: %v", err)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	a := filepath.Join(tmp, "a")
	b := filepath.Join(tmp, "b")
	testutil.MustWriteFile(t, a, []byte("content"))
	testutil.MustWriteFile(t, b, []byte("content"))

	if !sameContent(a, b) {
		t.Error("sameContent() = false for identical files")
	}
	if _, err := Digest(filepath.Join(tmp, "missing")); err == nil {
		t.Error("Digest() of missing file should fail")
	}
}
