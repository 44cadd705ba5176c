// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/invowk/fusioner/pkg/types"
)

// RelPath is the manifest location inside an extracted archive.
const RelPath = "META-INF/MANIFEST.MF"

// Fuser merges variant manifests in processing order. Later manifests
// overwrite earlier ones on key collision; the mixin config list is rebuilt
// from the privileged variant's names instead.
type Fuser struct {
	privileged types.VariantName
	fused      *Manifest
}

// NewFuser returns a Fuser for the given privileged variant.
func NewFuser(privileged types.VariantName) *Fuser {
	return &Fuser{privileged: privileged, fused: New()}
}

// Add merges m into the fused manifest. A nil m is ignored.
func (f *Fuser) Add(m *Manifest) {
	if m == nil {
		return
	}
	f.fused.Merge(m)
}

// Finish rebuilds the mixin config list and returns the fused manifest.
// privilegedMixins are the privileged variant's mixin config names, already
// carrying the variant prefix. Names in a pre-existing list are prefixed
// individually before both lists are joined without duplicates. When there
// is neither an existing list nor a privileged name, the key is left unset.
func (f *Fuser) Finish(privilegedMixins []string) *Manifest {
	var names []string
	if existing, ok := f.fused.Get(KeyMixinConfigs); ok {
		for _, name := range SplitList(existing) {
			names = append(names, f.Prefix(name))
		}
	}
	names = append(names, privilegedMixins...)

	if joined := JoinUnique(names); joined != "" {
		f.fused.Set(KeyMixinConfigs, joined)
	}
	return f.fused
}

// Prefix returns name with the privileged variant prefix. A name that already
// starts with the prefix gets it again, matching the file the re-linker
// renamed.
func (f *Fuser) Prefix(name string) string {
	return f.privileged.String() + "-" + name
}

// SplitList splits a comma-separated manifest list, dropping blank items.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JoinUnique joins names with commas, keeping the first occurrence of each.
func JoinUnique(names []string) string {
	var out []string
	for _, name := range names {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

// Capture reads the manifest of an extracted archive rooted at dir and
// deletes the file, so exactly one fused manifest survives the tree merge.
// It returns nil when dir has no manifest.
func Capture(dir string) (*Manifest, error) {
	path := filepath.Join(dir, filepath.FromSlash(RelPath))
	m, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove manifest %s: %w", path, err)
	}
	return m, nil
}
