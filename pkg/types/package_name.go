// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPackageName is the sentinel error wrapped by InvalidPackageNameError.
	ErrInvalidPackageName = errors.New("invalid package name")

	packageNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
)

type (
	// PackageName is a dotted Java package name such as "com.example.mymod".
	PackageName string

	// InvalidPackageNameError is returned when a PackageName is not a dotted
	// sequence of Java identifiers.
	InvalidPackageNameError struct {
		Value PackageName
	}
)

// String returns the string representation of the PackageName.
func (p PackageName) String() string { return string(p) }

// Path returns the slash-separated form used for archive entry paths,
// e.g. "com/example/mymod".
func (p PackageName) Path() string { return strings.ReplaceAll(string(p), ".", "/") }

// Validate returns nil if the PackageName is a dotted sequence of identifiers.
func (p PackageName) Validate() error {
	if !packageNamePattern.MatchString(string(p)) {
		return &InvalidPackageNameError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidPackageNameError.
func (e *InvalidPackageNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: must be dot-separated Java identifiers (e.g., 'com.example.mymod')", string(e.Value))
}

// Unwrap returns ErrInvalidPackageName for errors.Is() compatibility.
func (e *InvalidPackageNameError) Unwrap() error { return ErrInvalidPackageName }
