// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/internal/fusion"
	"github.com/invowk/fusioner/internal/issue"
	"github.com/invowk/fusioner/internal/relocate"
	"github.com/invowk/fusioner/internal/workspace"
	"github.com/invowk/fusioner/pkg/types"
)

type (
	inspectFlags struct {
		group      string
		classifier string
		privileged bool
	}

	// inspection is what inspect found in one archive.
	inspection struct {
		Archive  string
		Entries  int
		Marker   string
		Findings *classify.Findings
	}
)

func newInspectCommand(app *App, root *rootFlags) *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the resources fuse would re-link in an archive",
		Long: `Show the resources fuse would re-link in an archive.

The archive (or the jar picked from a build directory) is unpacked into a
scratch directory and classified: embedded libraries, platform services,
mixin configs, reference maps, access-wideners, text files and the injected
bootstrap package, if any.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, app, root, flags, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.group, "group", "", "package group services are matched against (default is package_group)")
	cmd.Flags().StringVar(&flags.classifier, "classifier", "", "resource classifier, heuristic or strict (default is classifier)")
	cmd.Flags().BoolVar(&flags.privileged, "privileged", false, "classify as the privileged variant (no refmaps or access-wideners)")

	return cmd
}

func runInspect(cmd *cobra.Command, app *App, root *rootFlags, flags *inspectFlags, path string) error {
	cfg, err := app.loadConfig(cmd.Context(), root)
	if err != nil {
		return failCommand(cmd, app, err, classifyConfigError(err), types.ExitConfig, root.verbose)
	}
	verbose := isVerbose(root, cfg)

	group := cfg.PackageGroup
	if flags.group != "" {
		group = types.PackageName(flags.group)
	}
	kind := cfg.Classifier
	if flags.classifier != "" {
		kind = classify.Kind(flags.classifier)
	}

	res, err := inspectArchive(path, group, kind, flags.privileged)
	if err != nil {
		ae := issue.NewErrorContext().
			WithOperation("inspect archive").
			WithResource(path).
			WithSuggestion("Pass a jar file, or a build directory that contains one").
			WithIssue(issue.ArchiveUnreadableId).
			Wrap(err).
			Build()
		return failCommand(cmd, app, ae, ae.Issue, types.ExitFailure, verbose)
	}

	printInspection(app.stdout, res, verbose)
	return nil
}

// inspectArchive unpacks path into a scratch workspace and classifies it.
func inspectArchive(path string, group types.PackageName, kind classify.Kind, privileged bool) (_ *inspection, err error) {
	rc, err := classify.ForKind(kind)
	if err != nil {
		return nil, err
	}

	resolved, err := archive.ResolveInput(path)
	if err != nil {
		return nil, err
	}
	ok, err := archive.IsZip(resolved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", resolved, fusion.ErrNotArchive)
	}
	names, err := archive.Entries(resolved)
	if err != nil {
		return nil, err
	}

	layout, err := workspace.Create("")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := layout.Remove(); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	codec := &archive.ZipCodec{}
	if err := codec.Unpack(resolved, layout.MergeDir()); err != nil {
		return nil, err
	}
	findings, err := classify.NewScanner(rc).Scan(layout.MergeDir(), group.String(), privileged)
	if err != nil {
		return nil, err
	}
	for _, list := range []*[]string{
		&findings.EmbeddedLibraries,
		&findings.Services,
		&findings.Mixins,
		&findings.Refmaps,
		&findings.AccessWideners,
		&findings.TextFiles,
	} {
		*list = entryNames(layout.MergeDir(), *list)
	}

	return &inspection{
		Archive:  resolved,
		Entries:  len(names),
		Marker:   relocate.DetectMarker(names),
		Findings: findings,
	}, nil
}

// entryNames turns extracted file paths back into archive entry names.
func entryNames(root string, paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		names[i] = filepath.ToSlash(rel)
	}
	return names
}

func printInspection(w io.Writer, in *inspection, verbose bool) {
	fmt.Fprintln(w, TitleStyle.Render("Archive"))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("path"), in.Archive)
	fmt.Fprintf(w, "%s: %d\n", KeyStyle.Render("entries"), in.Entries)
	marker := SubtitleStyle.Render("(none)")
	if in.Marker != "" {
		marker = in.Marker
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("injected bootstrap"), marker)

	f := in.Findings
	printList(w, "embedded libraries", f.EmbeddedLibraries)
	printList(w, "services", f.Services)
	printList(w, "mixin configs", f.Mixins)
	printList(w, "reference maps", f.Refmaps)
	printList(w, "access-wideners", f.AccessWideners)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %d\n", KeyStyle.Render("text files"), len(f.TextFiles))
	if verbose {
		for _, name := range f.TextFiles {
			fmt.Fprintf(w, "  %s\n", VerboseStyle.Render(name))
		}
	}
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render(title))
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", SuccessStyle.Render(item))
	}
}
