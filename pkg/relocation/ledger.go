// SPDX-License-Identifier: MPL-2.0

package relocation

import "golang.org/x/exp/slices"

const (
	// ActionRelocate records an archive rewritten by the bytecode relocation engine.
	ActionRelocate Action = "relocate"
	// ActionRename records a resource file renamed inside a staging directory.
	ActionRename Action = "rename"
	// ActionRewrite records a text file whose contents were rewritten.
	ActionRewrite Action = "rewrite"
	// ActionMove records a directory tree moved between workspace directories.
	ActionMove Action = "move"
	// ActionOverwrite records a file replaced during a tree move.
	ActionOverwrite Action = "overwrite"
	// ActionPack records the final archive and the rule list it was packed with.
	ActionPack Action = "pack"
)

type (
	// Action classifies a ledger entry.
	Action string

	// Entry is one filesystem effect of a fusion run.
	Entry struct {
		Action  Action `toml:"action"`
		Variant string `toml:"variant,omitempty"`
		Path    string `toml:"path"`
		Target  string `toml:"target,omitempty"`
		Rules   Rules  `toml:"rules,omitempty"`
		// Identical is set on overwrite entries whose old and new contents matched.
		Identical bool `toml:"identical,omitempty"`
	}

	// Ledger is an append-only, in-memory record of what a run did to the
	// filesystem, so a failed run can be diagnosed without re-deriving state
	// from directory contents.
	//
	// A Ledger is not safe for concurrent use. Each per-variant unit of work
	// owns its own ledger; the orchestrator merges them after the barrier.
	Ledger struct {
		entries []Entry
	}
)

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends an entry. A nil ledger discards it.
func (l *Ledger) Record(e Entry) {
	if l == nil {
		return
	}
	l.entries = append(l.entries, e)
}

// Merge appends every entry of other, preserving order.
func (l *Ledger) Merge(other *Ledger) {
	if l == nil || other == nil {
		return
	}
	l.entries = append(l.entries, other.entries...)
}

// Entries returns a copy of all entries in record order.
func (l *Ledger) Entries() []Entry {
	if l == nil {
		return nil
	}
	return slices.Clone(l.entries)
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// ForPath returns the entries whose Path or Target equals path.
func (l *Ledger) ForPath(path string) []Entry {
	if l == nil {
		return nil
	}
	var out []Entry
	for _, e := range l.entries {
		if e.Path == path || e.Target == path {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries with the given action.
func (l *Ledger) Count(action Action) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, e := range l.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
