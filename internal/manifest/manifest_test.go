// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	t.Parallel()

	input := "Manifest-Version: 1.0\r\n" +
		"Implementation-Title: example\r\n" +
		"MixinConfigs: example.mixins.json,example.forge.mi\r\n" +
		" xins.json\r\n" +
		"Compact:value\n" +
		"\r\n" +
		"Name: com/example/Mod.class\r\n" +
		"SHA-256-Digest: abc\r\n"

	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4 (entry sections ignored): %v", m.Len(), m.Keys())
	}
	if v, _ := m.Get("mixinconfigs"); v != "example.mixins.json,example.forge.mixins.json" {
		t.Errorf("continuation not joined: %q", v)
	}
	if v, _ := m.Get("Compact"); v != "value" {
		t.Errorf("Compact = %q", v)
	}
	if _, ok := m.Get("Name"); ok {
		t.Error("per-entry attribute leaked into main section")
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{" leading continuation\r\n", "no separator\r\n", ": empty key\r\n"} {
		if _, err := Parse(strings.NewReader(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", input, err)
		}
	}
}

func TestSetIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("Implementation-Title", "a")
	m.Set("implementation-title", "b")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if v, _ := m.Get("IMPLEMENTATION-TITLE"); v != "b" {
		t.Errorf("value = %q, want b", v)
	}
	if m.Keys()[0] != "Implementation-Title" {
		t.Errorf("first spelling not kept: %v", m.Keys())
	}
}

func TestWriteTo(t *testing.T) {
	t.Parallel()

	m := New()
	m.Set("Implementation-Title", "example")
	m.Set(KeyMixinConfigs, strings.Repeat("forge-example.mixins.json,", 4)+"last.json")

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "Manifest-Version: 1.0\r\n") {
		t.Errorf("Manifest-Version not first or not defaulted: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\n") {
		t.Errorf("manifest must end with a blank line: %q", out)
	}
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n\r\n"), "\r\n") {
		if len(line) > 72 {
			t.Errorf("line exceeds 72 bytes (%d): %q", len(line), line)
		}
	}

	back, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse(written) error = %v", err)
	}
	want, _ := m.Get(KeyMixinConfigs)
	if got, _ := back.Get(KeyMixinConfigs); got != want {
		t.Errorf("wrapped value read back as %q, want %q", got, want)
	}
}

func TestWriteAttributeKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeAttribute(&buf, "Implementation-Vendor", strings.Repeat("é", 60))
	for _, line := range strings.Split(buf.String(), "\r\n") {
		if !strings.HasPrefix(line, " ") && line != "" && !strings.HasPrefix(line, "Implementation-Vendor") {
			t.Errorf("unexpected line %q", line)
		}
		if !utf8.ValidString(line) {
			t.Errorf("rune split across lines: %q", line)
		}
	}
	back, err := Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v, _ := back.Get("Implementation-Vendor"); v != strings.Repeat("é", 60) {
		t.Errorf("value read back as %q", v)
	}
}
