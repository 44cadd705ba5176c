// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/fusioner/pkg/types"
)

// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath types.FilesystemPath
		// BaseDir is searched for fusioner.cue when ConfigFilePath is empty,
		// and anchors relative paths when no file is loaded. Empty means the
		// current directory.
		BaseDir types.FilesystemPath
	}

	// InvalidLoadOptionsError is returned when LoadOptions contains invalid
	// fields. It wraps ErrInvalidLoadOptions for errors.Is() compatibility.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source. The returned Config
// is not validated; callers apply flag overrides first and then call
// Validate.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return loadWithOptions(ctx, opts)
}

// Validate returns nil when every non-empty path field is usable. Empty
// fields mean "use the default".
func (o LoadOptions) Validate() error {
	var errs []error
	if o.ConfigFilePath != "" {
		if err := o.ConfigFilePath.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config file: %w", err))
		}
	}
	if o.BaseDir != "" {
		if err := o.BaseDir.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("base dir: %w", err))
		}
	}
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidLoadOptionsError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid load options: %v", e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid load options: %d field errors", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLoadOptions for errors.Is() compatibility.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }
