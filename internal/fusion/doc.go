// SPDX-License-Identifier: MPL-2.0

// Package fusion orchestrates a fusion run. It is the only component that
// sees every variant at once.
//
// A run relocates, extracts and re-links each active variant as an
// independent unit of work, waits for all of them, and then sequentially
// fuses manifests, merges the staging trees, collapses shared packages and
// packs the result. Per-variant units share no mutable state: each returns
// its rules, manifest, mixin names and ledger, and the orchestrator combines
// them after the barrier.
package fusion
