// SPDX-License-Identifier: MPL-2.0

// Package relocation models the (source-prefix, destination-prefix) rewrite
// rules that drive every stage of a fusion run: bytecode relocation, resource
// re-linking, duplicate-package collapsing, and final packaging.
//
// Rule lists are values. Stages never mutate a list they were given; they
// return a new list and the orchestrator composes stages by concatenation.
// This keeps per-variant work free of shared mutable state.
//
// Text substitution applies the rules one after another over the whole text,
// in list order. Effects accumulate: a later rule may match text that an
// earlier rule introduced. Bytecode relocation differs: there the first
// matching rule wins for each name.
package relocation
