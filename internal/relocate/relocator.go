// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"context"
	"fmt"
	"strings"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

// MarkerPrefix starts the name of the bootstrap directory architectury
// injects into every platform jar. Two variants carrying the same injected
// package would collide, so it is namespaced like the shared group.
const MarkerPrefix = "architectury_inject"

// VariantRelocator relocates one variant's input archive under the variant's
// namespace. It holds no per-variant state and may be shared across
// concurrent variant units.
type VariantRelocator struct {
	Engine Engine
	Group  types.PackageName
}

// VariantRules builds the relocation list for variant v: the group rule,
// then the caller's overrides, then the marker rule when marker is set.
// The result is derived from its arguments alone, so repeated calls never
// accumulate rules.
func VariantRules(v types.VariantName, group types.PackageName, overrides relocation.Rules, marker string) relocation.Rules {
	rules := relocation.Rules{relocation.New(group.String(), v.String()+"."+group.String())}
	rules = rules.With(overrides...)
	if marker != "" {
		rules = rules.With(relocation.New(marker, v.String()+"."+marker))
	}
	return rules
}

// DetectMarker returns the first top-level injected bootstrap directory
// named in entries. Directory entries take priority; failing those, the
// first path segment of a matching file entry is used. It returns "" when the
// archive carries no injected code.
func DetectMarker(entries []string) string {
	fromFile := ""
	for _, name := range entries {
		first, rest, nested := strings.Cut(name, "/")
		if !strings.HasPrefix(first, MarkerPrefix) {
			continue
		}
		if nested && rest == "" {
			return first
		}
		if nested && fromFile == "" {
			fromFile = first
		}
	}
	return fromFile
}

// Relocate writes a relocated copy of input to output for the variant of
// env and returns the rules it applied.
func (r *VariantRelocator) Relocate(ctx context.Context, env *runenv.Env, input, output string, overrides relocation.Rules) (relocation.Rules, error) {
	entries, err := archive.Entries(input)
	if err != nil {
		return nil, err
	}

	marker := DetectMarker(entries)
	if marker != "" {
		env.Logger.Debug("Found injected bootstrap package", "marker", marker)
	}

	rules := VariantRules(env.Variant, r.Group, overrides, marker)
	env.Logger.Debug("Relocating archive", "input", input, "rules", len(rules))

	if err := r.Engine.Relocate(ctx, input, output, rules); err != nil {
		return nil, fmt.Errorf("failed to relocate %s: %w", input, err)
	}

	env.Record(relocation.Entry{
		Action: relocation.ActionRelocate,
		Path:   input,
		Target: output,
		Rules:  rules,
	})
	return rules, nil
}
