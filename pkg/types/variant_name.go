// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// VariantForge is the Forge mod-loader variant.
	VariantForge VariantName = "forge"
	// VariantNeoForge is the NeoForge mod-loader variant.
	VariantNeoForge VariantName = "neoforge"
	// VariantFabric is the Fabric mod-loader variant.
	VariantFabric VariantName = "fabric"
	// VariantQuilt is the Quilt mod-loader variant.
	VariantQuilt VariantName = "quilt"
)

var (
	// ErrInvalidVariantName is the sentinel error wrapped by InvalidVariantNameError.
	ErrInvalidVariantName = errors.New("invalid variant name")

	// variantNamePattern keeps variant names usable as a leading Java package
	// segment, since every relocated class ends up under "<variant>.<group>".
	variantNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

type (
	// VariantName identifies one platform build being fused ("forge", "fabric",
	// or a custom name). It doubles as the namespace prefix for that build.
	VariantName string

	// InvalidVariantNameError is returned when a VariantName cannot be used as
	// a package segment.
	InvalidVariantNameError struct {
		Value VariantName
	}
)

// BuiltinVariants returns the built-in variants in processing order.
func BuiltinVariants() []VariantName {
	return []VariantName{VariantForge, VariantNeoForge, VariantFabric, VariantQuilt}
}

// String returns the string representation of the VariantName.
func (n VariantName) String() string { return string(n) }

// IsBuiltin reports whether the name is one of the four built-in variants.
func (n VariantName) IsBuiltin() bool {
	switch n {
	case VariantForge, VariantNeoForge, VariantFabric, VariantQuilt:
		return true
	default:
		return false
	}
}

// Validate returns nil if the name is a lowercase Java identifier.
func (n VariantName) Validate() error {
	if !variantNamePattern.MatchString(string(n)) {
		return &InvalidVariantNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidVariantNameError.
func (e *InvalidVariantNameError) Error() string {
	return fmt.Sprintf(
		"invalid variant name %q: must start with a lowercase letter or underscore and contain only lowercase letters, digits, or underscores",
		string(e.Value),
	)
}

// Unwrap returns ErrInvalidVariantName for errors.Is() compatibility.
func (e *InvalidVariantNameError) Unwrap() error { return ErrInvalidVariantName }
