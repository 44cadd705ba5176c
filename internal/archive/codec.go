// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/invowk/fusioner/pkg/relocation"
)

const (
	metaDir      = "META-INF/"
	manifestName = "META-INF/MANIFEST.MF"
	classExt     = ".class"
)

var (
	// ErrUnsafePath is returned for archive entries that would extract
	// outside the destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")

	// ErrDuplicateEntry is returned when two files pack to the same entry name.
	ErrDuplicateEntry = errors.New("duplicate archive entry")
)

type (
	// Remapper rewrites entry names and class file contents while packing.
	Remapper interface {
		RelocatePath(name string) string
		RewriteClass(data []byte) ([]byte, error)
	}

	// Codec unpacks archives into directories and packs them back.
	Codec interface {
		Unpack(archivePath, destDir string) error
		Pack(srcDir, destArchive string, rules relocation.Rules) error
	}

	// ZipCodec is the zip/jar Codec.
	ZipCodec struct {
		// Level is the deflate level used by Pack. Zero means best compression.
		Level int
		// Remap builds the Remapper Pack applies for a non-empty rule list.
		// When nil, rules are ignored and entries are packed as-is.
		Remap func(relocation.Rules) Remapper
	}
)

// NewWriter returns a zip writer on w whose deflate entries use the
// klauspost compressor at level.
func NewWriter(w io.Writer, level int) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return zw
}

func (c *ZipCodec) level() int {
	if c.Level == 0 {
		return flate.BestCompression
	}
	return c.Level
}

// Unpack extracts every entry of archivePath below destDir, creating destDir
// if needed.
func (c *ZipCodec) Unpack(archivePath, destDir string) (err error) {
	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination directory: %w", err)
	}
	if err = os.MkdirAll(absDestDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer func() {
		if closeErr := zipReader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, file := range zipReader.File {
		destPath := filepath.Join(absDestDir, filepath.FromSlash(file.Name))

		relPath, relErr := filepath.Rel(absDestDir, destPath)
		if relErr != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, file.Name)
		}

		if file.FileInfo().IsDir() {
			if mkdirErr := os.MkdirAll(destPath, 0o755); mkdirErr != nil {
				return fmt.Errorf("failed to create directory: %w", mkdirErr)
			}
			continue
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(destPath), 0o755); mkdirErr != nil {
			return fmt.Errorf("failed to create parent directory: %w", mkdirErr)
		}

		if extractErr := extractFile(file, destPath); extractErr != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, extractErr)
		}
	}

	return nil
}

// Pack writes every file and directory below srcDir into destArchive. The
// manifest, when present, is written first as jar readers expect. When rules
// is non-empty and a Remap factory is configured, entry names are relocated
// and class files rewritten with the resulting Remapper.
func (c *ZipCodec) Pack(srcDir, destArchive string, rules relocation.Rules) (err error) {
	var remapper Remapper
	if len(rules) > 0 && c.Remap != nil {
		remapper = c.Remap(rules)
	}

	entries, err := collectEntries(srcDir)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(destArchive), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	zipFile, err := os.Create(destArchive)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if closeErr := zipFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(destArchive)
		}
	}()

	zipWriter := NewWriter(zipFile, c.level())
	defer func() {
		if closeErr := zipWriter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	written := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.name
		if remapper != nil {
			name = remapper.RelocatePath(name)
		}
		if written[name] {
			if e.dir {
				continue
			}
			return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
		}
		written[name] = true

		if e.dir {
			if _, createErr := zipWriter.Create(name); createErr != nil {
				return fmt.Errorf("failed to create directory entry: %w", createErr)
			}
			continue
		}

		if writeErr := writeEntry(zipWriter, e, name, remapper); writeErr != nil {
			return writeErr
		}
	}

	return nil
}

type entry struct {
	name string // slash-separated, directories end in "/"
	path string
	dir  bool
	info fs.FileInfo
}

// collectEntries lists srcDir in walk order with the manifest and its
// directory moved to the front.
func collectEntries(srcDir string) ([]entry, error) {
	var entries []entry
	walkErr := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		if relPath == "." {
			return nil
		}
		name := filepath.ToSlash(relPath)

		if d.IsDir() {
			entries = append(entries, entry{name: name + "/", path: path, dir: true})
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("failed to get file info: %w", infoErr)
		}
		entries = append(entries, entry{name: name, path: path, info: info})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", srcDir, walkErr)
	}

	rank := func(e entry) int {
		switch e.name {
		case metaDir:
			return 0
		case manifestName:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rank(entries[i]) < rank(entries[j])
	})
	return entries, nil
}

func writeEntry(zw *zip.Writer, e entry, name string, remapper Remapper) error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", e.path, err)
	}

	if remapper != nil && strings.EqualFold(filepath.Ext(e.name), classExt) {
		data, err = remapper.RewriteClass(data)
		if err != nil {
			return fmt.Errorf("failed to relocate %s: %w", e.name, err)
		}
	}

	header, err := zip.FileInfoHeader(e.info)
	if err != nil {
		return fmt.Errorf("failed to create file header: %w", err)
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write file data: %w", err)
	}
	return nil
}

// extractFile extracts a single file from the archive.
func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := destFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the caller's own build outputs
	_, err = io.Copy(destFile, rc)
	return err
}
