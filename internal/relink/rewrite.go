// SPDX-License-Identifier: MPL-2.0

package relink

import (
	"fmt"
	"os"
	"strings"

	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/pkg/relocation"
)

const trailingSpace = " \t\r\n"

// RewriteOptions tunes RewriteTextFiles.
type RewriteOptions struct {
	// FinalNewline terminates every rewritten file with exactly one "\n".
	// Manifests and service descriptors are only read correctly with a
	// trailing newline, so the merged-tree pass sets it.
	FinalNewline bool
}

// RewriteTextFiles applies rules in order to the content of every file in
// files as literal substitutions and trims trailing whitespace. Files whose
// content does not change are not written. It returns how many files were
// rewritten.
func RewriteTextFiles(env *runenv.Env, files []string, rules relocation.Rules, opts RewriteOptions) (int, error) {
	rewritten := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return rewritten, fmt.Errorf("failed to read %s: %w", path, err)
		}

		orig := string(data)
		text, hits := rules.Substitute(orig)
		text = strings.TrimRight(text, trailingSpace)
		if opts.FinalNewline {
			text += "\n"
		}
		if text == orig {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return rewritten, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
			return rewritten, fmt.Errorf("failed to write %s: %w", path, err)
		}
		rewritten++

		if applied := rules.Applied(hits); len(applied) > 0 {
			env.Logger.Debug("Rewrote resource", "file", path, "rules", len(applied))
			env.Record(relocation.Entry{
				Action: relocation.ActionRewrite,
				Path:   path,
				Rules:  applied,
			})
		}
	}
	return rewritten, nil
}
