// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/fusioner/internal/testutil"
	"github.com/invowk/fusioner/pkg/types"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "work")
	testutil.MustWriteFile(t, filepath.Join(root, "leftover"), []byte("x"))

	l, err := Create(root)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "leftover")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Create() should start from a fresh directory")
	}

	if got, want := l.StagingDir(types.VariantForge), filepath.Join(root, "forge-temp"); got != want {
		t.Errorf("StagingDir() = %q, want %q", got, want)
	}
	if got, want := l.StagingDir("extra"), filepath.Join(root, "extra-temp"); got != want {
		t.Errorf("StagingDir(custom) = %q, want %q", got, want)
	}
	if got, want := l.MergeDir(), filepath.Join(root, "merged-temp"); got != want {
		t.Errorf("MergeDir() = %q, want %q", got, want)
	}

	if err := l.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Error("Remove() left the workspace root behind")
	}
}

func TestCreateTemporary(t *testing.T) {
	t.Parallel()

	l, err := Create("")
	if err != nil {
		t.Fatalf("Create(\"\") error = %v", err)
	}
	t.Cleanup(func() { _ = l.Remove() })

	if info, err := os.Stat(l.Root); err != nil || !info.IsDir() {
		t.Errorf("temporary root not created: %v", err)
	}
}
