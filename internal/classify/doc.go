// SPDX-License-Identifier: MPL-2.0

// Package classify decides which extracted files the re-linking stages touch.
//
// ContentClassifier answers the binary-or-text question; ResourceClassifier
// recognises mixin configs, reference maps and access-wideners. Both are
// interfaces so a stricter implementation can replace the default heuristics
// without changes elsewhere. Scanner combines them into the directory walks
// used by the pipeline and by the inspect command.
package classify
