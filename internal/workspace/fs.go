// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

const dirPerm = 0o755

// ErrMoveIntoSelf is returned when a directory would be moved into one of its
// own subdirectories.
var ErrMoveIntoSelf = errors.New("cannot move directory into a subdirectory of itself")

type (
	// Mover moves directory trees with rename-then-copy fallback semantics.
	// The zero value is ready to use.
	Mover struct {
		// OnMove, when set, is called after each top-level child is relocated.
		OnMove func(src, dest string)
		// OnOverwrite, when set, is called before an existing destination file
		// is replaced. identical reports whether both files have the same
		// content digest.
		OnOverwrite func(dest string, identical bool)
	}
)

// FreshDir removes path if it exists and recreates it empty.
func FreshDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear directory %s: %w", path, err)
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates path and any missing parents. It is a no-op when the
// directory already exists.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// IsEmptyDir reports whether path is a directory with no entries. A missing
// path counts as empty.
func IsEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// MoveTree moves every immediate child of src into dest. It is a no-op when
// src does not exist or is empty. Child directories that already exist at
// dest are merged recursively; files overwrite any existing file of the same
// name. Content at dest that shares no name with a moved child is left alone.
//
// After MoveTree returns nil, none of the children listed at src remain there.
func (m *Mover) MoveTree(src, dest string) error {
	entries, err := os.ReadDir(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", src, err)
	}
	if len(entries) == 0 {
		return nil
	}

	if err := EnsureDir(dest); err != nil {
		return err
	}

	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			err = m.moveDir(from, to)
		} else {
			err = m.moveFile(from, to)
		}
		if err != nil {
			return err
		}
		if m.OnMove != nil {
			m.OnMove(from, to)
		}
	}

	return nil
}

func (m *Mover) moveDir(src, dest string) error {
	if isWithin(dest, src) {
		return fmt.Errorf("%w: %s -> %s", ErrMoveIntoSelf, src, dest)
	}

	info, err := os.Stat(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if renameErr := os.Rename(src, dest); renameErr == nil {
			return nil
		}
		if err := copyDir(src, dest); err != nil {
			return fmt.Errorf("failed to copy directory %s to %s: %w", src, dest, err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat %s: %w", dest, err)
	case !info.IsDir():
		// A file is in the way; the incoming directory replaces it.
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace %s: %w", dest, err)
		}
		return m.moveDir(src, dest)
	default:
		if err := m.MoveTree(src, dest); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("failed to delete original directory %s after move: %w", src, err)
	}
	return nil
}

func (m *Mover) moveFile(src, dest string) error {
	if info, err := os.Stat(dest); err == nil {
		if info.IsDir() {
			if err := os.RemoveAll(dest); err != nil {
				return fmt.Errorf("failed to replace %s: %w", dest, err)
			}
		} else if m.OnOverwrite != nil {
			m.OnOverwrite(dest, sameContent(src, dest))
		}
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	if err := copyFile(src, dest); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("failed to delete original file %s after copy: %w", src, err)
	}
	return nil
}

// PruneEmpty removes every empty directory below root, deepest first. root
// itself is kept.
func PruneEmpty(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		empty, err := IsEmptyDir(dirs[i])
		if err != nil {
			return err
		}
		if empty {
			if err := os.Remove(dirs[i]); err != nil {
				return fmt.Errorf("failed to remove empty directory %s: %w", dirs[i], err)
			}
		}
	}
	return nil
}

// Digest returns the BLAKE3-256 digest of the file at path.
func Digest(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func sameContent(a, b string) bool {
	da, err := Digest(a)
	if err != nil {
		return false
	}
	db, err := Digest(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da[:], db[:])
}

// isWithin reports whether path lies strictly below dir.
func isWithin(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator))
}

// copyDir recursively copies a directory, skipping symlinks.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file, replacing dst if present.
func copyFile(src, dst string) (err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
