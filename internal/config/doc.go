// SPDX-License-Identifier: MPL-2.0

// Package config handles fusioner configuration using Viper with CUE as the
// file format.
//
// Configuration is layered: built-in defaults, then the CUE file (the one
// passed with --config, or fusioner.cue in the current directory), then
// FUSIONER_* environment variables. The file is validated against an
// embedded CUE schema (config_schema.cue) before it reaches Viper, and the
// decoded Config is validated again for rules CUE cannot express.
package config
