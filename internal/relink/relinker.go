// SPDX-License-Identifier: MPL-2.0

package relink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

type (
	// Relinker re-links the resources of one variant staging directory.
	// It holds no per-variant state and may be shared across variant units.
	Relinker struct {
		Scanner    *classify.Scanner
		Group      types.PackageName
		Privileged types.VariantName
	}

	// Result is what re-linking one staging directory produced.
	Result struct {
		// Rules is the variant's local rule table, in application order.
		Rules relocation.Rules
		// Mixins holds the renamed mixin config names. Only the privileged
		// variant reports them.
		Mixins []string
	}
)

// Relink renames the variant-identifying resources under dir and rewrites
// all text files with the resulting rule table: the renames, the group rules,
// then overrides in dotted and slash form. overrides are the caller's
// relocations the engine already applied to the variant's classes. The
// variant is taken from env.
func (r *Relinker) Relink(env *runenv.Env, dir string, overrides relocation.Rules) (*Result, error) {
	v := env.Variant
	privileged := v == r.Privileged
	res := &Result{}

	libs, err := r.Scanner.EmbeddedLibraries(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range libs {
		if res.Rules, err = rename(env, path, v.String()+"-", res.Rules); err != nil {
			return nil, err
		}
	}

	services, err := r.Scanner.PlatformServices(dir, r.Group.String())
	if err != nil {
		return nil, err
	}
	for _, path := range services {
		if res.Rules, err = rename(env, path, v.String()+".", res.Rules); err != nil {
			return nil, err
		}
	}

	found, err := r.Scanner.MixinResources(dir, !privileged, !privileged)
	if err != nil {
		return nil, err
	}
	var mixins []string
	for _, path := range found.Mixins {
		if res.Rules, err = rename(env, path, v.String()+"-", res.Rules); err != nil {
			return nil, err
		}
		mixins = append(mixins, v.String()+"-"+filepath.Base(path))
	}
	if privileged {
		res.Mixins = mixins
	}
	for _, path := range append(found.AccessWideners, found.Refmaps...) {
		if res.Rules, err = rename(env, path, v.String()+"-", res.Rules); err != nil {
			return nil, err
		}
	}

	renamed := len(res.Rules)
	group := r.Group.String()
	res.Rules = res.Rules.With(
		relocation.New(group, v.String()+"."+group),
		relocation.New(r.Group.Path(), v.String()+"/"+r.Group.Path()),
	)
	// Overrides come after the group rules so an override target inside the
	// group is not prefixed a second time.
	for _, o := range overrides {
		if o.IsZero() {
			continue
		}
		res.Rules = res.Rules.With(o)
		if p := o.PathForm(); p != o {
			res.Rules = res.Rules.With(p)
		}
	}

	text, err := r.Scanner.TextFiles(dir)
	if err != nil {
		return nil, err
	}
	n, err := RewriteTextFiles(env, text, res.Rules, RewriteOptions{})
	if err != nil {
		return nil, err
	}
	env.Logger.Debug("Re-linked resources", "renamed", renamed, "rewritten", n)

	return res, nil
}

// rename prefixes the base name of path and returns rules extended with the
// matching name rule.
func rename(env *runenv.Env, path, prefix string, rules relocation.Rules) (relocation.Rules, error) {
	name := filepath.Base(path)
	target := filepath.Join(filepath.Dir(path), prefix+name)
	if err := os.Rename(path, target); err != nil {
		return nil, fmt.Errorf("failed to rename %s: %w", path, err)
	}

	rule := relocation.New(name, prefix+name)
	env.Logger.Debug("Renamed resource", "from", name, "to", rule.To)
	env.Record(relocation.Entry{
		Action: relocation.ActionRename,
		Path:   path,
		Target: target,
		Rules:  relocation.Rules{rule},
	})
	return rules.With(rule), nil
}
