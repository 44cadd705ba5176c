// SPDX-License-Identifier: MPL-2.0

// Package dedupe collapses the per-variant copies of packages the user
// declared as shared back into a single copy after the variant trees have
// been merged.
package dedupe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/internal/relink"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/internal/workspace"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

type (
	// Registry is the set of package names declared as shared.
	Registry struct {
		packages []types.PackageName
	}

	// Plan holds the rules that undo variant namespacing for shared packages.
	Plan struct {
		// ClassRules map "variant.pkg" to "pkg".
		ClassRules relocation.Rules
		// PathRules map "variant/pkg/path" to "pkg/path".
		PathRules relocation.Rules
	}

	// Resolver applies a Plan to the merge directory.
	Resolver struct {
		Scanner *classify.Scanner
	}
)

// NewRegistry returns a registry of the given shared packages. Duplicates
// are dropped.
func NewRegistry(packages ...types.PackageName) *Registry {
	r := &Registry{}
	seen := map[types.PackageName]bool{}
	for _, p := range packages {
		if !seen[p] {
			seen[p] = true
			r.packages = append(r.packages, p)
		}
	}
	return r
}

// Packages returns the registered package names.
func (r *Registry) Packages() []types.PackageName {
	return append([]types.PackageName(nil), r.packages...)
}

// Plan derives the class and path rules for every shared package and every
// active variant, in package-major order.
func (r *Registry) Plan(active []types.VariantName) Plan {
	var p Plan
	for _, pkg := range r.packages {
		for _, v := range active {
			p.ClassRules = append(p.ClassRules, relocation.New(v.String()+"."+pkg.String(), pkg.String()))
			p.PathRules = append(p.PathRules, relocation.New(v.String()+"/"+pkg.Path(), pkg.Path()))
		}
	}
	return p
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.ClassRules) == 0
}

// TextRules is the combined table for the merged-tree text pass.
func (p Plan) TextRules() relocation.Rules {
	return relocation.Concat(p.ClassRules, p.PathRules)
}

// Resolve moves each variant copy of a shared package into the shared
// location inside mergeDir, prunes the directories left empty, and rewrites
// every text file with the plan's text rules. It returns the rules the final
// packaging step must apply to class contents.
//
// Variants are moved in plan order. The first copy moved creates the shared
// directory; later copies merge into it and overwrite files of the same name,
// so the last variant wins on a clash. Overwrites are logged and recorded.
func (r *Resolver) Resolve(env *runenv.Env, mergeDir string, plan Plan) (relocation.Rules, error) {
	if plan.Empty() {
		return nil, nil
	}

	mover := &workspace.Mover{
		OnOverwrite: func(dest string, identical bool) {
			if identical {
				env.Logger.Debug("Shared file already present", "file", dest)
			} else {
				env.Logger.Warn("Shared package copies differ, keeping the later variant", "file", dest)
			}
			env.Record(relocation.Entry{Action: relocation.ActionOverwrite, Path: dest, Identical: identical})
		},
	}

	for _, rule := range plan.ClassRules {
		src := filepath.Join(mergeDir, filepath.FromSlash(rule.PathForm().From))
		dest := filepath.Join(mergeDir, filepath.FromSlash(rule.PathForm().To))

		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", src, err)
		}

		env.Logger.Debug("Collapsing shared package", "from", rule.From, "to", rule.To)
		if err := mover.MoveTree(src, dest); err != nil {
			return nil, err
		}
		env.Record(relocation.Entry{
			Action: relocation.ActionMove,
			Path:   src,
			Target: dest,
			Rules:  relocation.Rules{rule},
		})
	}

	if err := workspace.PruneEmpty(mergeDir); err != nil {
		return nil, err
	}

	files, err := r.Scanner.TextFiles(mergeDir)
	if err != nil {
		return nil, err
	}
	if _, err := relink.RewriteTextFiles(env, files, plan.TextRules(), relink.RewriteOptions{FinalNewline: true}); err != nil {
		return nil, err
	}

	return plan.ClassRules.Clone(), nil
}
