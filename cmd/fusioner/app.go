// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/invowk/fusioner/internal/config"
	"github.com/invowk/fusioner/internal/fusion"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and delegates through its service interfaces.
	App struct {
		Config ConfigProvider
		Fusion FusionService
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Fusion FusionService
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// FusionService runs one fusion.
	FusionService interface {
		Run(ctx context.Context, env *runenv.Env, opts fusion.Options) (*fusion.Result, error)
	}

	// rootFlags are the persistent flags shared by every subcommand.
	rootFlags struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Fusion == nil {
		deps.Fusion = fusion.New()
	}
	return &App{
		Config: deps.Config,
		Fusion: deps.Fusion,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig loads the configuration named by --config, or the one in the
// current directory. The result is not validated.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(flags.configPath),
	})
}

// isVerbose reports whether debug output is requested by flag or by config.
func isVerbose(flags *rootFlags, cfg *config.Config) bool {
	return flags.verbose || (cfg != nil && cfg.UI.Verbose)
}
