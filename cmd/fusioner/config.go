// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/fusioner/internal/config"
	"github.com/invowk/fusioner/internal/issue"
	"github.com/invowk/fusioner/pkg/types"
)

// placeholderGroup is written by config init when no --group is given.
const placeholderGroup types.PackageName = "com.example.mymod"

type configInitFlags struct {
	group  string
	stdout bool
	force  bool
}

// newConfigCommand creates the `fusioner config` command tree.
func newConfigCommand(app *App, root *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fusioner configuration",
		Long: `Manage fusioner configuration.

Configuration is read from the file given with --config, or from
./fusioner.cue. Every scalar key can be overridden from the environment
with a FUSIONER_ prefix, e.g. FUSIONER_PACKAGE_GROUP or FUSIONER_FORGE_INPUT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, root)
		},
	})

	initFlags := &configInitFlags{}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter fusioner.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, app, root, initFlags)
		},
	}
	initCmd.Flags().StringVar(&initFlags.group, "group", "", "package group of the mod")
	initCmd.Flags().BoolVar(&initFlags.stdout, "stdout", false, "print the starter configuration instead of writing it")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, root *rootFlags) error {
	cfg, err := app.loadConfig(cmd.Context(), root)
	if err != nil {
		return failCommand(cmd, app, err, classifyConfigError(err), types.ExitConfig, root.verbose)
	}

	source := "defaults and environment only"
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(app.stdout, "// %s\n", source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(app.stderr, "\n%s %s\n", WarningStyle.Render("Warning:"), err)
	}
	return nil
}

func initConfig(cmd *cobra.Command, app *App, root *rootFlags, flags *configInitFlags) error {
	group := placeholderGroup
	if flags.group != "" {
		group = types.PackageName(flags.group)
	}
	if err := group.Validate(); err != nil {
		return failCommand(cmd, app, err, issue.InvalidPackageGroupId, types.ExitConfig, root.verbose)
	}

	if flags.stdout {
		fmt.Fprint(app.stdout, config.GenerateCUE(config.Starter(group)))
		return nil
	}

	path := root.configPath
	if path == "" {
		path = config.ConfigFileName
	}
	if err := config.WriteDefault(path, group, flags.force); err != nil {
		ae := issue.WrapWithContext(err, "write configuration", path)
		if errors.Is(err, config.ErrConfigExists) {
			ae.Suggestions = []string{"Pass --force to overwrite it"}
		} else {
			ae.Issue = issue.PermissionDeniedId
		}
		return failCommand(cmd, app, ae, ae.Issue, types.ExitConfig, root.verbose)
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created"), KeyStyle.Render(path))
	if flags.group == "" {
		fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("Set package_group to your mod's root package before fusing."))
	}
	return nil
}
