// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// BuildJar writes a zip archive at path holding files, keyed by slash-separated
// entry name. Directory entries for every parent are added the way jar tools
// emit them. The test fails immediately on any error.
func BuildJar(t testing.TB, path string, files map[string][]byte) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer MustClose(t, f)

	zw := zip.NewWriter(f)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	dirs := map[string]bool{}
	for _, name := range names {
		parts := strings.Split(name, "/")
		for i := 1; i < len(parts); i++ {
			dir := strings.Join(parts[:i], "/") + "/"
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			if _, err := zw.Create(dir); err != nil {
				t.Fatalf("failed to add %s: %v", dir, err)
			}
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
}

// ReadJar returns every file entry of the archive at path keyed by entry name.
// Directory entries are skipped.
func ReadJar(t testing.TB, path string) map[string][]byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer MustClose(t, zr)

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		MustClose(t, rc)
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		out[f.Name] = data
	}
	return out
}

// JarNames returns the entry names of the archive at path in archive order,
// directory entries included.
func JarNames(t testing.TB, path string) []string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer MustClose(t, zr)

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

// ClassBytes returns a minimal, well-formed JVM class file for thisClass
// (internal form, e.g. "com/example/Mod") extending java/lang/Object. Each of
// extra becomes an additional CONSTANT_Utf8 entry. A CONSTANT_Long is placed
// before the extras so readers must honor its two-slot width.
func ClassBytes(thisClass string, extra ...string) []byte {
	var buf bytes.Buffer
	u16 := func(v int) {
		_ = binary.Write(&buf, binary.BigEndian, uint16(v))
	}
	utf8 := func(s string) {
		buf.WriteByte(1)
		u16(len(s))
		buf.WriteString(s)
	}

	buf.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	u16(0)  // minor
	u16(52) // major

	// #1 Utf8 this, #2 Class #1, #3 Utf8 super, #4 Class #3, #5-6 Long, #7.. extras
	u16(7 + len(extra))
	utf8(thisClass)
	buf.WriteByte(7)
	u16(1)
	utf8("java/lang/Object")
	buf.WriteByte(7)
	u16(3)
	buf.WriteByte(5)
	_ = binary.Write(&buf, binary.BigEndian, uint64(0x0102030405060708))
	for _, s := range extra {
		utf8(s)
	}

	u16(0x0021) // public super
	u16(2)      // this_class
	u16(4)      // super_class
	u16(0)      // interfaces
	u16(0)      // fields
	u16(0)      // methods
	u16(0)      // attributes

	return buf.Bytes()
}
