// SPDX-License-Identifier: MPL-2.0

package fusion

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/fusioner/pkg/relocation"
)

type (
	// Report is the TOML run report written next to, or instead of, the
	// console summary.
	Report struct {
		Output    string             `toml:"output"`
		Skipped   bool               `toml:"skipped,omitempty"`
		Blake3    string             `toml:"blake3,omitempty"`
		Elapsed   string             `toml:"elapsed"`
		WorkDir   string             `toml:"work_dir,omitempty"`
		PackRules relocation.Rules   `toml:"pack_rules,omitempty"`
		Variants  []VariantReport    `toml:"variants,omitempty"`
		Entries   []relocation.Entry `toml:"entries,omitempty"`
	}

	// VariantReport summarises one variant of the run.
	VariantReport struct {
		Name   string           `toml:"name"`
		Input  string           `toml:"input"`
		Mixins []string         `toml:"mixins,omitempty"`
		Rules  relocation.Rules `toml:"rules,omitempty"`
	}
)

// NewReport builds the report of res.
func NewReport(res *Result) *Report {
	r := &Report{
		Output:    res.Output,
		Skipped:   res.Skipped,
		Blake3:    res.Digest,
		Elapsed:   res.Elapsed.String(),
		WorkDir:   res.WorkDir,
		PackRules: res.PackRules,
		Entries:   res.Ledger.Entries(),
	}
	for _, v := range res.Variants {
		r.Variants = append(r.Variants, VariantReport{
			Name:   v.Name.String(),
			Input:  v.Input,
			Mixins: v.Mixins,
			Rules:  v.Rules,
		})
	}
	return r
}

// WriteReport writes the TOML report of res to path.
func WriteReport(path string, res *Result) error {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(NewReport(res)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}
