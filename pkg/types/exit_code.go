// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

const (
	// ExitOK signals a successful run, including a skipped run whose output already existed.
	ExitOK ExitCode = 0
	// ExitFailure signals a fatal fusion failure (I/O, archive, packing).
	ExitFailure ExitCode = 1
	// ExitConfig signals a configuration error detected before any workspace was created.
	ExitConfig ExitCode = 2
)

type (
	// ExitCode is the status fusioner exits with. POSIX limits it to 0-255.
	ExitCode int

	// InvalidExitCodeError reports an ExitCode outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d out of range 0-255", e.Value)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate rejects codes a process cannot exit with.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is ExitOK.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
