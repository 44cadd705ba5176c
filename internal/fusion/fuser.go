// SPDX-License-Identifier: MPL-2.0

package fusion

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/internal/dedupe"
	"github.com/invowk/fusioner/internal/manifest"
	"github.com/invowk/fusioner/internal/relink"
	"github.com/invowk/fusioner/internal/relocate"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/internal/workspace"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

const outputPerm = 0o777

type (
	// Fuser runs fusions. The zero value is not usable; call New.
	Fuser struct {
		Engine relocate.Engine
		Codec  archive.Codec
	}

	// Result describes a finished run.
	Result struct {
		Output string
		// Skipped is set when the output already existed and SkipIfExists was
		// requested. No other field but Output is filled in that case.
		Skipped bool
		// Digest is the hex BLAKE3-256 digest of the output archive.
		Digest   string
		Variants []VariantResult
		// PackRules are the class rules applied while packing.
		PackRules relocation.Rules
		Ledger    *relocation.Ledger
		// WorkDir is set when the workspace was kept.
		WorkDir string
		Elapsed time.Duration
	}

	// VariantResult is what one variant unit produced.
	VariantResult struct {
		Name  types.VariantName
		Input string
		// Rules are the relocation rules followed by the re-link table.
		Rules  relocation.Rules
		Mixins []string

		manifest *manifest.Manifest
		staging  string
		ledger   *relocation.Ledger
	}

	activeVariant struct {
		spec  VariantSpec
		input string
	}
)

// New returns a Fuser using the zip relocation engine and the zip codec.
func New() *Fuser {
	return &Fuser{
		Engine: &relocate.ZipEngine{},
		Codec:  &archive.ZipCodec{Remap: relocate.Factory},
	}
}

// Run fuses the active variants of opts into opts.Output.
func (f *Fuser) Run(ctx context.Context, env *runenv.Env, opts Options) (*Result, error) {
	start := time.Now()

	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.SkipIfExists {
		if _, err := os.Stat(opts.Output); err == nil {
			env.Logger.Info("Output already exists, skipping", "output", opts.Output)
			return &Result{Output: opts.Output, Skipped: true, Elapsed: time.Since(start)}, nil
		}
	}

	active, err := resolveInputs(env, opts.Variants)
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, &ConfigurationError{Err: ErrNoInputs}
	case 1:
		env.Logger.Warn("Only one variant has an input, the output is a relocated copy of it", "variant", active[0].spec.Name)
	}

	layout, err := workspace.Create(opts.WorkDir)
	if err != nil {
		return nil, err
	}
	env.Root = layout.Root
	env.Logger.Debug("Created workspace", "dir", layout.Root)

	res := &Result{Output: opts.Output, Ledger: env.Ledger}
	if opts.KeepWorkDir {
		res.WorkDir = layout.Root
	} else {
		defer func() {
			if rmErr := layout.Remove(); rmErr != nil {
				env.Logger.Warn("Failed to remove workspace", "dir", layout.Root, "error", rmErr)
			}
		}()
	}

	rc, err := classify.ForKind(opts.Classifier)
	if err != nil {
		return nil, err
	}
	scanner := classify.NewScanner(rc)

	env.Logger.Info("Unpacking input jars", "variants", len(active))
	variants, err := f.processVariants(ctx, env, layout, scanner, opts, active)
	if err != nil {
		return nil, err
	}
	res.Variants = variants

	env.Logger.Info("Fusing jars into single jar")
	if err := mergeVariants(env, layout.MergeDir(), opts.Privileged, variants); err != nil {
		return nil, err
	}

	names := make([]types.VariantName, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	plan := dedupe.NewRegistry(opts.Duplicates...).Plan(names)
	resolver := &dedupe.Resolver{Scanner: scanner}
	packRules, err := resolver.Resolve(env, layout.MergeDir(), plan)
	if err != nil {
		return nil, fmt.Errorf("failed to collapse shared packages: %w", err)
	}
	res.PackRules = packRules

	if err := f.Codec.Pack(layout.MergeDir(), opts.Output, packRules); err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", opts.Output, err)
	}
	if err := os.Chmod(opts.Output, outputPerm); err != nil {
		env.Logger.Debug("Could not widen output permissions", "output", opts.Output, "error", err)
	}
	env.Record(relocation.Entry{Action: relocation.ActionPack, Path: layout.MergeDir(), Target: opts.Output, Rules: packRules})

	sum, err := workspace.Digest(opts.Output)
	if err != nil {
		return nil, err
	}
	res.Digest = hex.EncodeToString(sum[:])
	res.Elapsed = time.Since(start)

	env.Logger.Info("Fused jar created", "output", opts.Output, "variants", len(variants), "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// resolveInputs returns the variants that have an input archive, in
// declaration order. A declared input that does not exist only deactivates
// its variant; an input that exists but is not an archive fails the run.
func resolveInputs(env *runenv.Env, specs []VariantSpec) ([]activeVariant, error) {
	var active []activeVariant
	for _, spec := range specs {
		if spec.Input == "" {
			env.Logger.Debug("Variant has no input, skipping", "variant", spec.Name)
			continue
		}

		input, err := archive.ResolveInput(spec.Input)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, archive.ErrNoArchive) {
			env.Logger.Warn("Input archive not found, skipping variant", "variant", spec.Name, "input", spec.Input)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input of %s: %w", spec.Name, err)
		}

		ok, err := archive.IsZip(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input of %s: %w", spec.Name, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s (%s): %w", input, spec.Name, ErrNotArchive)
		}
		active = append(active, activeVariant{spec: spec, input: input})
	}
	return active, nil
}

// processVariants runs one unit per variant and waits for all of them.
// Results keep declaration order regardless of completion order.
func (f *Fuser) processVariants(ctx context.Context, env *runenv.Env, layout *workspace.Layout, scanner *classify.Scanner, opts Options, active []activeVariant) ([]VariantResult, error) {
	relocator := &relocate.VariantRelocator{Engine: f.Engine, Group: opts.Group}
	relinker := &relink.Relinker{Scanner: scanner, Group: opts.Group, Privileged: opts.Privileged}

	results := make([]VariantResult, len(active))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Sequential {
		g.SetLimit(1)
	}
	for i, av := range active {
		g.Go(func() error {
			venv := env.ForVariant(av.spec.Name)
			r, err := f.processVariant(gctx, venv, layout, relocator, relinker, av, opts.Privileged)
			if err != nil {
				return fmt.Errorf("variant %s: %w", av.spec.Name, err)
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fuser) processVariant(ctx context.Context, env *runenv.Env, layout *workspace.Layout, relocator *relocate.VariantRelocator, relinker *relink.Relinker, av activeVariant, privileged types.VariantName) (*VariantResult, error) {
	v := av.spec.Name
	relocated := layout.RelocatedArchive(v)

	rules, err := relocator.Relocate(ctx, env, av.input, relocated, av.spec.Relocations)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	staging := layout.StagingDir(v)
	if err := f.Codec.Unpack(relocated, staging); err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", relocated, err)
	}
	env.Logger.Debug("Unpacked relocated archive", "dir", staging)

	m, err := manifest.Capture(staging)
	if err != nil {
		return nil, err
	}

	linked, err := relinker.Relink(env, staging, av.spec.Relocations)
	if err != nil {
		return nil, err
	}

	var mixins []string
	if v == privileged {
		prefixer := manifest.NewFuser(privileged)
		for _, name := range av.spec.Mixins {
			mixins = append(mixins, prefixer.Prefix(name))
		}
		mixins = append(mixins, linked.Mixins...)
	}

	return &VariantResult{
		Name:     v,
		Input:    av.input,
		Rules:    relocation.Concat(rules, linked.Rules),
		Mixins:   mixins,
		manifest: m,
		staging:  staging,
		ledger:   env.Ledger,
	}, nil
}

// mergeVariants folds the variant results into mergeDir in declaration
// order: ledgers and manifests first, then the staging trees, and finally the
// fused manifest.
func mergeVariants(env *runenv.Env, mergeDir string, privileged types.VariantName, variants []VariantResult) error {
	if err := workspace.EnsureDir(mergeDir); err != nil {
		return err
	}

	fuser := manifest.NewFuser(privileged)
	var mixins []string
	for _, v := range variants {
		env.Ledger.Merge(v.ledger)
		fuser.Add(v.manifest)
		if v.Name == privileged {
			mixins = v.Mixins
		}
	}

	for _, v := range variants {
		mover := &workspace.Mover{
			OnMove: func(src, dest string) {
				env.Record(relocation.Entry{Action: relocation.ActionMove, Variant: v.Name.String(), Path: src, Target: dest})
			},
			OnOverwrite: func(dest string, identical bool) {
				if !identical {
					env.Logger.Debug("Variant file replaced during merge", "variant", v.Name, "file", dest)
				}
				env.Record(relocation.Entry{Action: relocation.ActionOverwrite, Variant: v.Name.String(), Path: dest, Identical: identical})
			},
		}
		if err := mover.MoveTree(v.staging, mergeDir); err != nil {
			return fmt.Errorf("failed to merge %s: %w", v.Name, err)
		}
	}

	fused := fuser.Finish(mixins)
	if err := fused.WriteFile(filepath.Join(mergeDir, filepath.FromSlash(manifest.RelPath))); err != nil {
		return fmt.Errorf("failed to write fused manifest: %w", err)
	}
	return nil
}
