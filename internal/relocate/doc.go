// SPDX-License-Identifier: MPL-2.0

// Package relocate computes the per-variant namespace rules and drives the
// bytecode relocation engine that applies them.
//
// The Engine interface is the pluggable transform from (archive, rules) to a
// relocated archive. ZipEngine is the default: it renames entry paths on
// package boundaries and rewrites CONSTANT_Utf8 entries of class files, which
// is where the JVM keeps every class, descriptor and string reference.
package relocate
