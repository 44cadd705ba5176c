// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and the Markdown issue pages shown
// when a fusion run fails.
//
// An ActionableError says what was being attempted, on which resource, and
// what the user can try next. It may point at an Issue, a longer Markdown page
// rendered with glamour in verbose mode.
package issue
