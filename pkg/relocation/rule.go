// SPDX-License-Identifier: MPL-2.0

package relocation

import (
	"strings"

	"golang.org/x/exp/slices"
)

type (
	// Rule rewrites names starting with From into names starting with To.
	// From and To are either dotted package names ("com.example"), slash
	// paths ("com/example"), or plain file names ("mixins.json").
	Rule struct {
		From string `toml:"from"`
		To   string `toml:"to"`
	}

	// Rules is an ordered rule list. Order is significant: earlier rules win
	// when several match at the same position.
	Rules []Rule
)

// New returns a rule rewriting from into to.
func New(from, to string) Rule {
	return Rule{From: from, To: to}
}

// String renders the rule as "from -> to".
func (r Rule) String() string {
	return r.From + " -> " + r.To
}

// PathForm returns the rule with dots replaced by slashes on both sides,
// turning a package rule into an archive path rule.
func (r Rule) PathForm() Rule {
	return Rule{From: DottedToPath(r.From), To: DottedToPath(r.To)}
}

// Reverse returns the inverse rule.
func (r Rule) Reverse() Rule {
	return Rule{From: r.To, To: r.From}
}

// IsZero reports whether the rule has an empty source, which never matches.
func (r Rule) IsZero() bool {
	return r.From == ""
}

// DottedToPath converts "com.example.foo" into "com/example/foo".
func DottedToPath(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// PathToDotted converts "com/example/foo" into "com.example.foo".
func PathToDotted(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

// Concat joins rule lists into a freshly allocated list.
func Concat(lists ...Rules) Rules {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make(Rules, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// With returns a new list holding rs followed by more. rs is not modified
// and the result never aliases its backing array.
func (rs Rules) With(more ...Rule) Rules {
	return Concat(rs, more)
}

// Clone returns a copy of the list.
func (rs Rules) Clone() Rules {
	return slices.Clone(rs)
}

// PathForm converts every rule to its slash-separated form.
func (rs Rules) PathForm() Rules {
	out := make(Rules, len(rs))
	for i, r := range rs {
		out[i] = r.PathForm()
	}
	return out
}

// Reverse inverts every rule, keeping list order.
func (rs Rules) Reverse() Rules {
	out := make(Rules, len(rs))
	for i, r := range rs {
		out[i] = r.Reverse()
	}
	return out
}

// Contains reports whether an identical rule is present.
func (rs Rules) Contains(r Rule) bool {
	return slices.Contains(rs, r)
}

// Strings renders each rule with Rule.String.
func (rs Rules) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}
