// SPDX-License-Identifier: MPL-2.0

package relocation

import "strings"

// Substitute applies rs to s as literal substring substitutions, one rule at
// a time in list order. Each rule replaces every occurrence of its source in
// the output of the previous rule, so a later rule may match text an earlier
// rule introduced.
//
// hits[i] counts how many times rs[i] was applied; it is nil when nothing
// matched, in which case s is returned unchanged.
func (rs Rules) Substitute(s string) (out string, hits []int) {
	out = s
	for idx, r := range rs {
		if r.IsZero() {
			continue
		}
		n := strings.Count(out, r.From)
		if n == 0 {
			continue
		}
		if hits == nil {
			hits = make([]int, len(rs))
		}
		hits[idx] = n
		out = strings.ReplaceAll(out, r.From, r.To)
	}
	return out, hits
}

// Applied returns the rules whose hit count is non-zero.
func (rs Rules) Applied(hits []int) Rules {
	var out Rules
	for i, n := range hits {
		if n > 0 && i < len(rs) {
			out = append(out, rs[i])
		}
	}
	return out
}
