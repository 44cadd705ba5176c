// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/fusioner/internal/classify"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

const (
	// DefaultMergedName is the base name of the fused archive.
	DefaultMergedName = "MergedJar"
	// DefaultVersion is appended to the fused archive name.
	DefaultVersion = "1.0"
	// DefaultOutputDir is where the fused archive is written.
	DefaultOutputDir = "artifacts/fused"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrMissingPackageGroup is returned when no package group is configured.
	ErrMissingPackageGroup = errors.New("package_group is required")
	// ErrInvalidCustomVariant is returned for a custom variant that cannot be used.
	ErrInvalidCustomVariant = errors.New("invalid custom variant")
	// ErrInvalidRelocation is returned for a relocation with an empty side.
	ErrInvalidRelocation = errors.New("invalid relocation")
)

type (
	// RelocationConfig is one extra relocation rule of a variant.
	RelocationConfig struct {
		From string `json:"from" mapstructure:"from"`
		To   string `json:"to" mapstructure:"to"`
	}

	// VariantConfig configures one built-in variant.
	VariantConfig struct {
		// Input is the variant jar, or the directory it is built into.
		Input       string             `json:"input,omitempty" mapstructure:"input"`
		Relocations []RelocationConfig `json:"relocations,omitempty" mapstructure:"relocations"`
		// Mixins are extra mixin config names, used for the privileged variant only.
		Mixins []string `json:"mixins,omitempty" mapstructure:"mixins"`
	}

	// CustomVariantConfig configures a variant beyond the four built-in ones.
	CustomVariantConfig struct {
		Name        types.VariantName  `json:"name" mapstructure:"name"`
		Input       string             `json:"input,omitempty" mapstructure:"input"`
		Relocations []RelocationConfig `json:"relocations,omitempty" mapstructure:"relocations"`
	}

	// UIConfig configures console output.
	UIConfig struct {
		Verbose bool `json:"verbose,omitempty" mapstructure:"verbose"`
	}

	// Config is the fusioner configuration.
	Config struct {
		PackageGroup      types.PackageName   `json:"package_group,omitempty" mapstructure:"package_group"`
		MergedName        string              `json:"merged_name,omitempty" mapstructure:"merged_name"`
		Version           string              `json:"version,omitempty" mapstructure:"version"`
		OutputDir         string              `json:"output_dir,omitempty" mapstructure:"output_dir"`
		WorkDir           string              `json:"work_dir,omitempty" mapstructure:"work_dir"`
		SkipIfExists      bool                `json:"skip_if_exists,omitempty" mapstructure:"skip_if_exists"`
		Parallel          bool                `json:"parallel,omitempty" mapstructure:"parallel"`
		PrivilegedVariant types.VariantName   `json:"privileged_variant,omitempty" mapstructure:"privileged_variant"`
		Classifier        classify.Kind       `json:"classifier,omitempty" mapstructure:"classifier"`
		Report            string              `json:"report,omitempty" mapstructure:"report"`
		DuplicatePackages []types.PackageName `json:"duplicate_packages,omitempty" mapstructure:"duplicate_packages"`

		Forge    VariantConfig         `json:"forge,omitempty" mapstructure:"forge"`
		NeoForge VariantConfig         `json:"neoforge,omitempty" mapstructure:"neoforge"`
		Fabric   VariantConfig         `json:"fabric,omitempty" mapstructure:"fabric"`
		Quilt    VariantConfig         `json:"quilt,omitempty" mapstructure:"quilt"`
		Custom   []CustomVariantConfig `json:"custom,omitempty" mapstructure:"custom"`

		UI UIConfig `json:"ui,omitempty" mapstructure:"ui"`

		// Source is the configuration file the values came from, or "" when
		// only defaults and the environment were used.
		Source string `json:"-" mapstructure:"-"`
	}

	// InvalidConfigError collects every validation failure of a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		MergedName:        DefaultMergedName,
		Version:           DefaultVersion,
		OutputDir:         DefaultOutputDir,
		Parallel:          true,
		PrivilegedVariant: types.VariantForge,
		Classifier:        classify.KindHeuristic,
	}
}

// Variant returns the block of built-in variant v. ok is false for names
// that are not built in.
func (c *Config) Variant(v types.VariantName) (vc VariantConfig, ok bool) {
	switch v {
	case types.VariantForge:
		return c.Forge, true
	case types.VariantNeoForge:
		return c.NeoForge, true
	case types.VariantFabric:
		return c.Fabric, true
	case types.VariantQuilt:
		return c.Quilt, true
	default:
		return VariantConfig{}, false
	}
}

// Rules converts the configured relocations into rules, keeping their order.
func Rules(rcs []RelocationConfig) relocation.Rules {
	if len(rcs) == 0 {
		return nil
	}
	rules := make(relocation.Rules, len(rcs))
	for i, rc := range rcs {
		rules[i] = relocation.New(rc.From, rc.To)
	}
	return rules
}

// Validate checks the rules the CUE schema cannot express, plus everything
// that may have been overridden from the environment.
func (c *Config) Validate() error {
	var errs []error

	if c.PackageGroup == "" {
		errs = append(errs, ErrMissingPackageGroup)
	} else if err := c.PackageGroup.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("package_group: %w", err))
	}
	if err := c.PrivilegedVariant.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("privileged_variant: %w", err))
	}
	if _, err := classify.ForKind(c.Classifier); err != nil {
		errs = append(errs, fmt.Errorf("classifier: %w", err))
	}
	if strings.TrimSpace(c.MergedName) == "" {
		errs = append(errs, fmt.Errorf("merged_name must not be empty"))
	}
	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, fmt.Errorf("version must not be empty"))
	}
	for i, p := range c.DuplicatePackages {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("duplicate_packages[%d]: %w", i, err))
		}
	}

	for _, v := range types.BuiltinVariants() {
		vc, _ := c.Variant(v)
		errs = append(errs, validateRelocations(v.String(), vc.Relocations)...)
	}

	seen := make(map[types.VariantName]int)
	for i, cv := range c.Custom {
		field := fmt.Sprintf("custom[%d]", i)
		switch {
		case cv.Name.Validate() != nil:
			errs = append(errs, fmt.Errorf("%s: %w: %w", field, ErrInvalidCustomVariant, cv.Name.Validate()))
		case cv.Name.IsBuiltin():
			errs = append(errs, fmt.Errorf("%s: %w: %q shadows a built-in variant", field, ErrInvalidCustomVariant, cv.Name))
		default:
			if first, dup := seen[cv.Name]; dup {
				errs = append(errs, fmt.Errorf("%s: %w: %q already declared by custom[%d]", field, ErrInvalidCustomVariant, cv.Name, first))
			}
			seen[cv.Name] = i
		}
		errs = append(errs, validateRelocations(field, cv.Relocations)...)
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func validateRelocations(field string, rcs []RelocationConfig) []error {
	var errs []error
	for i, rc := range rcs {
		if strings.TrimSpace(rc.From) == "" || strings.TrimSpace(rc.To) == "" {
			errs = append(errs, fmt.Errorf("%s.relocations[%d]: %w: from and to must be set", field, i, ErrInvalidRelocation))
		}
	}
	return errs
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d errors: %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and every field error for errors.Is().
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
