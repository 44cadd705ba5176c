// SPDX-License-Identifier: MPL-2.0

// Package archive implements the zip-based archive codec: unpacking an input
// archive into a directory and packing a directory back into an archive while
// applying relocation rules to entry paths and class contents.
package archive
