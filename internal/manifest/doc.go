// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and writes the main section of jar manifests and
// fuses the manifests of several variants into one.
package manifest
