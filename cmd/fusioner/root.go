// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/invowk/fusioner/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "fusioner",
		Short: "Fuse per-loader mod jars into one archive",
		Long: TitleStyle.Render("fusioner") + SubtitleStyle.Render(" - Fuse per-loader mod jars into one archive") + `

fusioner takes the jars a multi-loader mod project builds for Forge,
NeoForge, Fabric, Quilt and custom platforms, relocates each one under its
own package namespace, and packs them into a single jar that loads on
every platform.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'fusioner config init --group com.example.mymod'
  2. Point each variant's input at its build/libs directory
  3. Run 'fusioner fuse'

` + SubtitleStyle.Render("Examples:") + `
  fusioner fuse                       Fuse using ./fusioner.cue
  fusioner fuse -o out/MyMod.jar      Fuse into a specific file
  fusioner inspect forge.jar          Show what a jar carries
  fusioner config show                Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./fusioner.cue)")

	rootCmd.AddCommand(newFuseCommand(app, flags))
	rootCmd.AddCommand(newInspectCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run builds the production App, runs the command tree and returns the
// process exit code.
func Run() int {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return int(exitErr.Code)
		}
		return int(types.ExitFailure)
	}
	return int(types.ExitOK)
}

// Execute runs the CLI and exits the process. This is called by main.main().
func Execute() {
	os.Exit(Run())
}
