// SPDX-License-Identifier: MPL-2.0

package classify

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/tidwall/jsonc"
)

const (
	// KindHeuristic selects the substring-sniffing resource classifier.
	KindHeuristic Kind = "heuristic"
	// KindStrict selects the JSONC-parsing resource classifier.
	KindStrict Kind = "strict"

	accessWidenerExt    = ".accesswidener"
	accessWidenerHeader = "accessWidener"
)

var (
	mixinPackageKey = []byte(`"package":`)
	refmapKeys      = [][]byte{[]byte(`"mappings":`), []byte(`"data":`)}

	packagePath  = jp.MustParseString("$.package")
	mappingsPath = jp.MustParseString("$.mappings")
	dataPath     = jp.MustParseString("$.data")
)

type (
	// Kind names a ResourceClassifier implementation.
	Kind string

	// ResourceClassifier recognises mixin-related resources from a file name
	// and its content.
	ResourceClassifier interface {
		IsMixinConfig(name string, data []byte) bool
		IsRefmap(name string, data []byte) bool
		IsAccessWidener(name string, data []byte) bool
	}

	// Heuristic classifies by marker substrings, matching what mod tooling
	// writes in practice.
	Heuristic struct{}

	// Strict parses JSON resources (comments and trailing commas tolerated)
	// and checks for the marker keys at the document root.
	Strict struct{}

	// InvalidKindError is returned for an unknown classifier name.
	InvalidKindError struct {
		Value Kind
	}
)

// Error implements error.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("unknown classifier %q (expected %q or %q)", e.Value, KindHeuristic, KindStrict)
}

// ForKind returns the ResourceClassifier named by k. An empty kind selects
// the heuristic classifier.
func ForKind(k Kind) (ResourceClassifier, error) {
	switch k {
	case "", KindHeuristic:
		return Heuristic{}, nil
	case KindStrict:
		return Strict{}, nil
	default:
		return nil, &InvalidKindError{Value: k}
	}
}

// IsMixinConfig implements ResourceClassifier.
func (Heuristic) IsMixinConfig(name string, data []byte) bool {
	return isJSON(name) && bytes.Contains(data, mixinPackageKey)
}

// IsRefmap implements ResourceClassifier.
func (Heuristic) IsRefmap(name string, data []byte) bool {
	if !isJSON(name) {
		return false
	}
	for _, key := range refmapKeys {
		if bytes.Contains(data, key) {
			return true
		}
	}
	return false
}

// IsAccessWidener implements ResourceClassifier.
func (Heuristic) IsAccessWidener(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), accessWidenerExt) {
		return true
	}
	return strings.HasPrefix(firstLine(data), accessWidenerHeader)
}

// IsMixinConfig implements ResourceClassifier.
func (Strict) IsMixinConfig(name string, data []byte) bool {
	doc, ok := parseJSONC(name, data)
	if !ok {
		return false
	}
	for _, v := range packagePath.Get(doc) {
		if _, isString := v.(string); isString {
			return true
		}
	}
	return false
}

// IsRefmap implements ResourceClassifier.
func (Strict) IsRefmap(name string, data []byte) bool {
	doc, ok := parseJSONC(name, data)
	if !ok {
		return false
	}
	for _, x := range []jp.Expr{mappingsPath, dataPath} {
		for _, v := range x.Get(doc) {
			if _, isObject := v.(map[string]any); isObject {
				return true
			}
		}
	}
	return false
}

// IsAccessWidener implements ResourceClassifier. The header line must carry
// the format name followed by a version and a namespace.
func (Strict) IsAccessWidener(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), accessWidenerExt) {
		return true
	}
	fields := strings.Fields(firstLine(data))
	return len(fields) >= 3 && fields[0] == accessWidenerHeader && strings.HasPrefix(fields[1], "v")
}

func isJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

func parseJSONC(name string, data []byte) (any, bool) {
	if !isJSON(name) {
		return nil, false
	}
	doc, err := oj.Parse(jsonc.ToJSON(data))
	if err != nil {
		return nil, false
	}
	_, isObject := doc.(map[string]any)
	return doc, isObject
}

func firstLine(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if sc.Scan() {
		return sc.Text()
	}
	return ""
}
