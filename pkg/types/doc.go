// SPDX-License-Identifier: MPL-2.0

// Package types defines validated primitive types shared across fusioner
// packages. Each type follows the same shape: a named string or int, a
// Validate method, and a typed error that unwraps to a package sentinel so
// callers can use errors.Is for programmatic detection.
package types
