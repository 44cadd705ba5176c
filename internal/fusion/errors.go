// SPDX-License-Identifier: MPL-2.0

package fusion

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputs is returned when no declared variant has an input archive.
	ErrNoInputs = errors.New("no input archives")
	// ErrDuplicateVariant is returned when two variants share a name.
	ErrDuplicateVariant = errors.New("duplicate variant")
	// ErrNotArchive is returned when an input is not a zip archive.
	ErrNotArchive = errors.New("input is not a jar archive")
	// ErrOutputInWorkDir is returned when the output would be written inside
	// the workspace, which is wiped when the run starts and removed when it ends.
	ErrOutputInWorkDir = errors.New("output lies inside the work directory")
)

// ConfigurationError reports a run that cannot start with the given options.
// It is raised before any workspace directory is created.
type ConfigurationError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid fusion configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid fusion configuration: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Err }
