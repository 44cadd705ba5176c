// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"errors"
	"strings"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/pkg/relocation"
)

// descriptorLead holds the characters that may precede an object type
// descriptor's 'L' in method descriptors and generic signatures.
const descriptorLead = "([;)<>:+-*^"

// Remapper applies a rule list to archive entry names and class constants.
// It implements archive.Remapper.
type Remapper struct {
	paths relocation.Rules
	names relocation.Rules
}

var _ archive.Remapper = (*Remapper)(nil)

// NewRemapper builds a Remapper for rules. Each rule is matched both in its
// slash form (internal names, descriptors, paths) and in its dotted form
// (string constants, reflection names). Earlier rules win.
func NewRemapper(rules relocation.Rules) *Remapper {
	r := &Remapper{}
	for _, rule := range rules {
		if rule.IsZero() {
			continue
		}
		slash := rule.PathForm()
		dotted := relocation.New(relocation.PathToDotted(rule.From), relocation.PathToDotted(rule.To))
		r.paths = append(r.paths, slash)
		r.names = append(r.names, slash)
		if dotted != slash {
			r.names = append(r.names, dotted)
		}
	}
	return r
}

// Factory adapts NewRemapper to archive.ZipCodec.Remap.
func Factory(rules relocation.Rules) archive.Remapper {
	return NewRemapper(rules)
}

// RelocatePath rewrites an entry name that starts with a rule's source. The
// match is a plain prefix, as in the resource text pass, so com/example also
// moves com/examplemod. The first matching rule wins.
func (r *Remapper) RelocatePath(name string) string {
	for _, rule := range r.paths {
		if strings.HasPrefix(name, rule.From) {
			return rule.To + name[len(rule.From):]
		}
	}
	return name
}

// RewriteClass rewrites the CONSTANT_Utf8 entries of a class file. Data
// without the class magic is returned unchanged.
func (r *Remapper) RewriteClass(data []byte) ([]byte, error) {
	out, err := RewriteUtf8(data, r.RewriteName)
	if errors.Is(err, ErrNotClass) {
		return data, nil
	}
	return out, err
}

// RewriteName rewrites every occurrence of a rule source in s that starts a
// name. Like RelocatePath, the source is a plain prefix of the name. The scan
// is single-pass: replaced text is not rescanned.
func (r *Remapper) RewriteName(s string) string {
	var sb strings.Builder
	last := 0
	for i := 0; i < len(s); {
		rule, ok := r.matchAt(s, i)
		if !ok {
			i++
			continue
		}
		if sb.Len() == 0 && last == 0 {
			sb.Grow(len(s) + len(rule.To))
		}
		sb.WriteString(s[last:i])
		sb.WriteString(rule.To)
		i += len(rule.From)
		last = i
	}
	if last == 0 {
		return s
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func (r *Remapper) matchAt(s string, i int) (relocation.Rule, bool) {
	if !startsName(s, i) {
		return relocation.Rule{}, false
	}
	for _, rule := range r.names {
		if strings.HasPrefix(s[i:], rule.From) {
			return rule, true
		}
	}
	return relocation.Rule{}, false
}

// startsName reports whether a qualified name may begin at s[i].
func startsName(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	if !isNameChar(prev) {
		return true
	}
	// Object descriptor: 'L' at the start or after a descriptor delimiter.
	return prev == 'L' && (i == 1 || strings.IndexByte(descriptorLead, s[i-2]) >= 0)
}

func isWordChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isWordChar(c) || c == '$' || c == '/' || c == '.'
}
