// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zip"
)

// zipMagic is the local file header signature every non-empty zip starts with.
var zipMagic = []byte("PK\x03\x04")

// ErrNoArchive is returned when a directory holds no zip archive.
var ErrNoArchive = errors.New("no archive found")

// IsZip reports whether the file at path starts with the zip local header
// signature.
func IsZip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, zipMagic), nil
}

// Entries returns the entry names of the archive at path in archive order.
func Entries(path string) (names []string, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	names = make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names, nil
}

// ResolveInput returns path itself when it is a file. When path is a
// directory, the zip archive with the shortest file name inside it is
// returned, which skips the "-sources" and "-dev" siblings build tools emit
// next to the main artifact.
func ResolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", path, err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(path, e.Name())
		ok, err := IsZip(full)
		if err != nil {
			return "", err
		}
		if ok {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoArchive, path)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) < len(candidates[j])
	})
	return filepath.Join(path, candidates[0]), nil
}
