// SPDX-License-Identifier: MPL-2.0

package fusion

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

type (
	// VariantSpec declares one variant of a run. It is not modified by the
	// run; what a run derives from it is reported separately.
	VariantSpec struct {
		Name types.VariantName
		// Input is the input archive, or a directory to pick the archive from.
		// Empty means the variant is inactive.
		Input string
		// Relocations are extra rules applied after the group rule.
		Relocations relocation.Rules
		// Mixins are mixin config names declared by hand. Only used for the
		// privileged variant.
		Mixins []string
	}

	// Options configure a run.
	Options struct {
		Group types.PackageName
		// Variants in processing order. Later variants win manifest key
		// collisions and file clashes during the tree merge.
		Variants   []VariantSpec
		Privileged types.VariantName
		// Duplicates are packages kept once in the output instead of once per
		// variant.
		Duplicates []types.PackageName
		// Output is the path of the fused archive.
		Output string
		// WorkDir roots the workspace. Empty means a fresh temporary directory.
		WorkDir      string
		SkipIfExists bool
		// Sequential processes variants one at a time.
		Sequential bool
		// KeepWorkDir leaves the workspace on disk after the run.
		KeepWorkDir bool
		Classifier  classify.Kind
	}
)

// OutputPath returns "{dir}/{name}-{version}.jar".
func OutputPath(dir, name, version string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jar", name, version))
}

func (o *Options) validate() error {
	if err := o.Group.Validate(); err != nil {
		return &ConfigurationError{Reason: "package group", Err: err}
	}
	if err := o.Privileged.Validate(); err != nil {
		return &ConfigurationError{Reason: "privileged variant", Err: err}
	}
	if o.Output == "" {
		return &ConfigurationError{Reason: "output", Err: fmt.Errorf("output path is empty")}
	}
	if o.WorkDir != "" && within(o.Output, o.WorkDir) {
		return &ConfigurationError{Reason: "output", Err: fmt.Errorf("%s in %s: %w", o.Output, o.WorkDir, ErrOutputInWorkDir)}
	}
	if _, err := classify.ForKind(o.Classifier); err != nil {
		return &ConfigurationError{Reason: "classifier", Err: err}
	}

	seen := map[types.VariantName]bool{}
	for _, v := range o.Variants {
		if err := v.Name.Validate(); err != nil {
			return &ConfigurationError{Reason: "variant name", Err: err}
		}
		if seen[v.Name] {
			return &ConfigurationError{Reason: v.Name.String(), Err: ErrDuplicateVariant}
		}
		seen[v.Name] = true
	}
	for _, p := range o.Duplicates {
		if err := p.Validate(); err != nil {
			return &ConfigurationError{Reason: "duplicate package", Err: err}
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
