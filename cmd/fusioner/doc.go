// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for fusioner.
//
// Handlers receive an *App and never touch process globals, so tests build
// the command tree with fake providers and in-memory writers.
package cmd
