// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// KeyManifestVersion is the attribute every manifest starts with.
	KeyManifestVersion = "Manifest-Version"
	// KeyMixinConfigs lists the mixin configs a Forge-family loader applies.
	KeyMixinConfigs = "MixinConfigs"
	// DefaultVersion is written when no input manifest sets a version.
	DefaultVersion = "1.0"

	maxLineBytes = 72
	lineBreak    = "\r\n"
)

// ErrMalformed is returned for a manifest line that is neither an attribute
// nor a continuation.
var ErrMalformed = errors.New("malformed manifest")

// Manifest holds main-section attributes. Keys compare case-insensitively
// and keep the spelling and position of their first insertion.
type Manifest struct {
	order  []string
	values map[string]string
	names  map[string]string
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		values: map[string]string{},
		names:  map[string]string{},
	}
}

// Parse reads the main section of a manifest. Per-entry sections after the
// first blank line are ignored.
func Parse(r io.Reader) (*Manifest, error) {
	m := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var key, value string
	flush := func() {
		if key != "" {
			m.Set(key, value)
		}
		key, value = "", ""
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			if key == "" {
				return nil, fmt.Errorf("%w: continuation without attribute at line %d", ErrMalformed, lineNo)
			}
			value += line[1:]
			continue
		}
		flush()
		k, v, ok := strings.Cut(line, ":")
		v = strings.TrimPrefix(v, " ")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: invalid header at line %d", ErrMalformed, lineNo)
		}
		key, value = k, v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return m, nil
}

// ReadFile parses the manifest at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Get returns the value of key.
func (m *Manifest) Get(key string) (string, bool) {
	v, ok := m.values[strings.ToLower(key)]
	return v, ok
}

// Set stores value under key, overwriting any previous value.
func (m *Manifest) Set(key, value string) {
	lower := strings.ToLower(key)
	if _, ok := m.values[lower]; !ok {
		m.order = append(m.order, lower)
		m.names[lower] = key
	}
	m.values[lower] = value
}

// Keys returns the attribute names in insertion order.
func (m *Manifest) Keys() []string {
	out := make([]string, len(m.order))
	for i, lower := range m.order {
		out[i] = m.names[lower]
	}
	return out
}

// Len returns the number of attributes.
func (m *Manifest) Len() int {
	return len(m.order)
}

// Merge copies every attribute of other into m; other's values win.
func (m *Manifest) Merge(other *Manifest) {
	for _, lower := range other.order {
		m.Set(other.names[lower], other.values[lower])
	}
}

// WriteTo writes the manifest with Manifest-Version first, CRLF line endings
// and lines wrapped at 72 bytes.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	version, ok := m.Get(KeyManifestVersion)
	if !ok {
		version = DefaultVersion
	}
	writeAttribute(&buf, KeyManifestVersion, version)
	for _, lower := range m.order {
		if lower == strings.ToLower(KeyManifestVersion) {
			continue
		}
		writeAttribute(&buf, m.names[lower], m.values[lower])
	}
	buf.WriteString(lineBreak)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// WriteFile writes the manifest to path, creating parent directories.
func (m *Manifest) WriteFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = m.WriteTo(f)
	return err
}

// writeAttribute writes "key: value" split into 72-byte lines, continuation
// lines starting with a space. Multi-byte characters are never split.
func writeAttribute(buf *bytes.Buffer, key, value string) {
	line := key + ": " + value
	limit := maxLineBytes
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		buf.WriteString(line[:cut])
		buf.WriteString(lineBreak)
		buf.WriteByte(' ')
		line = line[cut:]
		limit = maxLineBytes - 1
	}
	buf.WriteString(line)
	buf.WriteString(lineBreak)
}
