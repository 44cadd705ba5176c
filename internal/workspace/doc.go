// SPDX-License-Identifier: MPL-2.0

// Package workspace manages the disposable directory tree of one fusion run:
// a temporary root holding one staging directory per variant and a single
// merge directory. It also provides the tree-move primitive that merges
// variant trees together without collision checking; namespacing done by the
// relocation stages is what keeps those trees disjoint.
package workspace
