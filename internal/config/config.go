// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/invowk/fusioner/internal/issue"
	"github.com/invowk/fusioner/pkg/cueutil"
	"github.com/invowk/fusioner/pkg/types"
)

const (
	// AppName is the application name.
	AppName = "fusioner"
	// ConfigFileName is the name of the config file looked up in the current
	// directory.
	ConfigFileName = "fusioner.cue"
	// EnvPrefix prefixes every environment override, e.g. FUSIONER_PACKAGE_GROUP.
	EnvPrefix = "FUSIONER"
)

//go:embed config_schema.cue
var configSchema string

var (
	// ErrConfigNotFound is returned when an explicitly requested config file
	// does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrConfigExists is returned by WriteDefault when it would overwrite a file.
	ErrConfigExists = errors.New("config file already exists")
)

// loadWithOptions layers defaults, the CUE file, and the environment, then
// validates the result.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		path := opts.ConfigFilePath.String()
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'fusioner config init' to create a starter configuration").
				WithIssue(issue.FileNotFoundId).
				Wrap(fmt.Errorf("%w: %s", ErrConfigNotFound, path)).
				BuildError()
		}
		resolvedPath = path
	} else {
		local := filepath.Join(opts.BaseDir.String(), ConfigFileName)
		if fileExists(local) {
			resolvedPath = local
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'fusioner config init --stdout' to see a valid configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		ae := issue.WrapWithContext(err, "decode configuration", resolvedPath)
		ae.Issue = issue.ConfigLoadFailedId
		return nil, ae
	}
	cfg.Source = resolvedPath

	baseDir := opts.BaseDir.String()
	if resolvedPath != "" {
		baseDir = filepath.Dir(resolvedPath)
	}
	cfg.resolvePaths(baseDir)

	return &cfg, nil
}

// setDefaults registers every scalar key, so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("package_group", defaults.PackageGroup)
	v.SetDefault("merged_name", defaults.MergedName)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("skip_if_exists", defaults.SkipIfExists)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("privileged_variant", defaults.PrivilegedVariant)
	v.SetDefault("classifier", defaults.Classifier)
	v.SetDefault("report", defaults.Report)
	v.SetDefault("duplicate_packages", []string{})
	for _, name := range types.BuiltinVariants() {
		v.SetDefault(name.String()+".input", "")
	}
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper.
//
// The file decodes to map[string]any rather than a struct so Viper keeps
// ownership of layering, and validation uses Concrete(false) because every
// field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// resolvePaths makes every relative path absolute against baseDir.
func (c *Config) resolvePaths(baseDir string) {
	resolve := func(p *string) {
		*p = types.FilesystemPath(*p).ResolveAgainst(baseDir).String()
	}
	resolve(&c.OutputDir)
	resolve(&c.WorkDir)
	resolve(&c.Report)
	resolve(&c.Forge.Input)
	resolve(&c.NeoForge.Input)
	resolve(&c.Fabric.Input)
	resolve(&c.Quilt.Input)
	for i := range c.Custom {
		resolve(&c.Custom[i].Input)
	}
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteDefault writes a starter configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, group types.PackageName, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(Starter(group))), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Starter returns the configuration written by WriteDefault: the defaults
// plus the usual Forge and Fabric build directories.
func Starter(group types.PackageName) *Config {
	cfg := DefaultConfig()
	cfg.PackageGroup = group
	cfg.Forge.Input = "forge/build/libs"
	cfg.Fabric.Input = "fabric/build/libs"
	return cfg
}

// GenerateCUE renders cfg as a fusioner.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Fusioner configuration file\n\n")

	fmt.Fprintf(&sb, "package_group: %q\n", cfg.PackageGroup)
	fmt.Fprintf(&sb, "merged_name: %q\n", cfg.MergedName)
	fmt.Fprintf(&sb, "version: %q\n", cfg.Version)
	fmt.Fprintf(&sb, "output_dir: %q\n", cfg.OutputDir)
	if cfg.WorkDir != "" {
		fmt.Fprintf(&sb, "work_dir: %q\n", cfg.WorkDir)
	}
	fmt.Fprintf(&sb, "skip_if_exists: %v\n", cfg.SkipIfExists)
	fmt.Fprintf(&sb, "parallel: %v\n", cfg.Parallel)
	fmt.Fprintf(&sb, "privileged_variant: %q\n", cfg.PrivilegedVariant)
	fmt.Fprintf(&sb, "classifier: %q\n", cfg.Classifier)
	if cfg.Report != "" {
		fmt.Fprintf(&sb, "report: %q\n", cfg.Report)
	}
	if len(cfg.DuplicatePackages) > 0 {
		sb.WriteString("duplicate_packages: [\n")
		for _, p := range cfg.DuplicatePackages {
			fmt.Fprintf(&sb, "\t%q,\n", p)
		}
		sb.WriteString("]\n")
	}

	for _, name := range types.BuiltinVariants() {
		vc, _ := cfg.Variant(name)
		if vc.Input == "" && len(vc.Relocations) == 0 && len(vc.Mixins) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: {\n", name)
		writeVariantBody(&sb, vc.Input, vc.Relocations)
		if len(vc.Mixins) > 0 {
			sb.WriteString("\tmixins: [")
			for i, m := range vc.Mixins {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%q", m)
			}
			sb.WriteString("]\n")
		}
		sb.WriteString("}\n")
	}

	if len(cfg.Custom) > 0 {
		sb.WriteString("\ncustom: [\n")
		for _, cv := range cfg.Custom {
			sb.WriteString("\t{\n")
			fmt.Fprintf(&sb, "\t\tname: %q\n", cv.Name)
			var body strings.Builder
			writeVariantBody(&body, cv.Input, cv.Relocations)
			for _, line := range strings.SplitAfter(body.String(), "\n") {
				if line != "" {
					sb.WriteString("\t" + line)
				}
			}
			sb.WriteString("\t},\n")
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeVariantBody(sb *strings.Builder, input string, relocations []RelocationConfig) {
	if input != "" {
		fmt.Fprintf(sb, "\tinput: %q\n", input)
	}
	if len(relocations) > 0 {
		sb.WriteString("\trelocations: [\n")
		for _, r := range relocations {
			fmt.Fprintf(sb, "\t\t{from: %q, to: %q},\n", r.From, r.To)
		}
		sb.WriteString("\t]\n")
	}
}
