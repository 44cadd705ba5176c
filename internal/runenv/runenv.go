// SPDX-License-Identifier: MPL-2.0

// Package runenv carries the per-run ambient state (logger, effect ledger and
// workspace root) that every fusion stage receives explicitly.
package runenv

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

const loggerPrefix = "fusioner"

// Env is the ambient context of one fusion run or one per-variant unit of it.
// An Env derived with ForVariant owns a fresh ledger, so variant units never
// share mutable state.
type Env struct {
	Logger  *log.Logger
	Ledger  *relocation.Ledger
	Variant types.VariantName
	// Root is the workspace root of the run, empty until the workspace exists.
	Root string
}

// New returns a run-level Env logging to w. verbose lowers the level to debug.
func New(w io.Writer, verbose bool) *Env {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: loggerPrefix,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return &Env{
		Logger: logger,
		Ledger: relocation.NewLedger(),
	}
}

// Default returns a run-level Env logging to stderr.
func Default(verbose bool) *Env {
	return New(os.Stderr, verbose)
}

// Discard returns an Env whose logger drops everything. Intended for tests.
func Discard() *Env {
	return New(io.Discard, false)
}

// ForVariant derives a unit-level Env for one variant: its logger is prefixed
// with the variant name and its ledger starts empty.
func (e *Env) ForVariant(v types.VariantName) *Env {
	return &Env{
		Logger:  e.Logger.WithPrefix(loggerPrefix + "/" + v.String()),
		Ledger:  relocation.NewLedger(),
		Variant: v,
		Root:    e.Root,
	}
}

// Record appends entry to the ledger, stamping the Env's variant when the
// entry does not name one.
func (e *Env) Record(entry relocation.Entry) {
	if entry.Variant == "" && e.Variant != "" {
		entry.Variant = e.Variant.String()
	}
	e.Ledger.Record(entry)
}
