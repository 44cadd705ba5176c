// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/invowk/fusioner/internal/config"
	"github.com/invowk/fusioner/internal/fusion"
	"github.com/invowk/fusioner/internal/issue"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/pkg/types"
)

// fuseFlags override the configuration for one run.
type fuseFlags struct {
	output       string
	group        string
	report       string
	skipIfExists bool
	sequential   bool
	keepWorkDir  bool
}

func newFuseCommand(app *App, root *rootFlags) *cobra.Command {
	flags := &fuseFlags{}

	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse the configured variant jars into one jar",
		Long: `Fuse the configured variant jars into one jar.

Every variant with an input archive is relocated under "<variant>.<group>",
its resources are re-linked to the relocated names, and the trees are merged
and packed into {output_dir}/{merged_name}-{version}.jar. Variants whose input
does not exist are skipped with a warning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuse(cmd, app, root, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "fused jar path (default is {output_dir}/{merged_name}-{version}.jar)")
	cmd.Flags().StringVar(&flags.group, "group", "", "package group, overriding package_group")
	cmd.Flags().StringVar(&flags.report, "report", "", "write a TOML run report to this path")
	cmd.Flags().BoolVar(&flags.skipIfExists, "skip-if-exists", false, "do nothing when the output already exists")
	cmd.Flags().BoolVar(&flags.sequential, "sequential", false, "process variants one at a time")
	cmd.Flags().BoolVar(&flags.keepWorkDir, "keep-work-dir", false, "keep the intermediate workspace")

	return cmd
}

func runFuse(cmd *cobra.Command, app *App, root *rootFlags, flags *fuseFlags) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx, root)
	if err != nil {
		return failCommand(cmd, app, err, classifyConfigError(err), types.ExitConfig, root.verbose)
	}
	verbose := isVerbose(root, cfg)

	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		ae := issue.WrapWithOperation(err, "validate configuration")
		return failCommand(cmd, app, ae, classifyConfigError(err), types.ExitConfig, verbose)
	}

	opts := buildFusionOptions(cfg, flags)
	env := runenv.New(app.stderr, verbose)

	res, err := app.Fusion.Run(ctx, env, opts)
	if err != nil {
		ae := describeFusionError(err, opts.Output)
		return failCommand(cmd, app, ae, ae.Issue, exitCodeFor(err), verbose)
	}

	if cfg.Report != "" {
		if err := fusion.WriteReport(cfg.Report, res); err != nil {
			ae := issue.WrapWithContext(err, "write run report", cfg.Report)
			if errors.Is(err, fs.ErrPermission) {
				ae.Issue = issue.PermissionDeniedId
			}
			return failCommand(cmd, app, ae, ae.Issue, types.ExitFailure, verbose)
		}
	}

	printResult(app, res, cfg.Report)
	return nil
}

// apply copies the flags that were set onto cfg.
func (f *fuseFlags) apply(cfg *config.Config) {
	if f.group != "" {
		cfg.PackageGroup = types.PackageName(f.group)
	}
	if f.report != "" {
		cfg.Report = f.report
	}
	if f.skipIfExists {
		cfg.SkipIfExists = true
	}
	if f.sequential {
		cfg.Parallel = false
	}
}

// buildFusionOptions turns a validated configuration into run options.
// Built-in variants come first in their fixed order, then custom ones in
// declaration order.
func buildFusionOptions(cfg *config.Config, flags *fuseFlags) fusion.Options {
	output := flags.output
	if output == "" {
		output = fusion.OutputPath(cfg.OutputDir, cfg.MergedName, cfg.Version)
	}

	opts := fusion.Options{
		Group:        cfg.PackageGroup,
		Privileged:   cfg.PrivilegedVariant,
		Duplicates:   cfg.DuplicatePackages,
		Output:       output,
		WorkDir:      cfg.WorkDir,
		SkipIfExists: cfg.SkipIfExists,
		Sequential:   !cfg.Parallel,
		KeepWorkDir:  flags.keepWorkDir,
		Classifier:   cfg.Classifier,
	}
	for _, name := range types.BuiltinVariants() {
		vc, _ := cfg.Variant(name)
		opts.Variants = append(opts.Variants, fusion.VariantSpec{
			Name:        name,
			Input:       vc.Input,
			Relocations: config.Rules(vc.Relocations),
			Mixins:      vc.Mixins,
		})
	}
	for _, cv := range cfg.Custom {
		opts.Variants = append(opts.Variants, fusion.VariantSpec{
			Name:        cv.Name,
			Input:       cv.Input,
			Relocations: config.Rules(cv.Relocations),
		})
	}
	return opts
}

func printResult(app *App, res *fusion.Result, report string) {
	if res.Skipped {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Skipped:"), KeyStyle.Render(res.Output)+SubtitleStyle.Render(" already exists"))
		return
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Fused:"), KeyStyle.Render(res.Output))
	for _, v := range res.Variants {
		fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render(v.Name.String()), SubtitleStyle.Render(v.Input))
	}
	fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("blake3:"), VerboseStyle.Render(res.Digest))
	fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("took:"), VerboseStyle.Render(res.Elapsed.Round(time.Millisecond).String()))
	if res.WorkDir != "" {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("workspace kept at:"), KeyStyle.Render(res.WorkDir))
	}
	if report != "" {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("report:"), KeyStyle.Render(report))
	}
}
