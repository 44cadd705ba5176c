// SPDX-License-Identifier: MPL-2.0

// Package relink keeps textual resources consistent with the relocated
// bytecode of a variant. It renames the resources that identify a variant
// (nested jars, service descriptors, mixin configs, reference maps and
// access-wideners), records each rename as a rule, and rewrites every text
// file of the staging tree with the resulting rule table.
package relink
