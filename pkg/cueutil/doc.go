// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE helpers shared by configuration loading:
// size limits for user files and error formatting with JSON-path prefixes.
package cueutil
