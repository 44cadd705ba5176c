// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/pkg/relocation"
)

// ErrDuplicateEntry is returned when two input entries relocate to one name.
var ErrDuplicateEntry = errors.New("relocated entries collide")

type (
	// Engine produces a relocated copy of an archive. Implementations must be
	// binary-safe and must copy every entry no rule touches unchanged.
	Engine interface {
		Relocate(ctx context.Context, inputArchive, outputArchive string, rules relocation.Rules) error
	}

	// ZipEngine is the default Engine for jar archives.
	ZipEngine struct {
		// Level is the deflate level for rewritten entries. Zero means best
		// compression.
		Level int
	}
)

// Relocate implements Engine.
func (e *ZipEngine) Relocate(ctx context.Context, inputArchive, outputArchive string, rules relocation.Rules) (err error) {
	remapper := NewRemapper(rules)

	zr, err := zip.OpenReader(inputArchive)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", inputArchive, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err = os.MkdirAll(filepath.Dir(outputArchive), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outputArchive)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", outputArchive, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(outputArchive)
		}
	}()

	level := e.Level
	if level == 0 {
		level = flate.BestCompression
	}
	zw := archive.NewWriter(out, level)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := remapper.RelocatePath(f.Name)
		isDir := strings.HasSuffix(f.Name, "/")
		if seen[name] {
			if isDir {
				continue
			}
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEntry, f.Name, name)
		}
		seen[name] = true

		if err := copyEntry(zw, f, name, remapper); err != nil {
			return fmt.Errorf("failed to relocate %s: %w", f.Name, err)
		}
	}

	return nil
}

func copyEntry(zw *zip.Writer, f *zip.File, name string, remapper *Remapper) (err error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   f.Method,
		Modified: f.Modified,
		Comment:  f.Comment,
	}
	header.SetMode(f.Mode())

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if strings.HasSuffix(name, "/") {
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if !strings.EqualFold(filepath.Ext(f.Name), ".class") {
		_, err = io.Copy(w, rc)
		return err
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	data, err = remapper.RewriteClass(data)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
