package choice

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var indexPattern = regexp.MustCompile(`\[(-?\d+)\]`)

// translatePath converts the grammar's `$.a.b[0].c` syntax into gjson's
// native dotted-path syntax (`a.b.0.c`). No genuine `$.`-prefixed JSONPath
// library has real source anywhere in the retrieval pack to ground a more
// faithful implementation against, so this translation layer is the
// documented adaptation: it supports the dotted-field-plus-integer-index
// subset of JSONPath this grammar actually uses, not the full JSONPath
// specification.
func translatePath(path string) (string, error) {
	if !strings.HasPrefix(path, "$") {
		return "", &InvalidOperatorError{Operator: path}
	}
	rest := strings.TrimPrefix(path, "$")
	rest = strings.TrimPrefix(rest, ".")
	rest = indexPattern.ReplaceAllString(rest, ".$1")
	rest = strings.TrimSuffix(rest, ".")
	return rest, nil
}

// queryPath evaluates a `$.`-style path against raw JSON, returning Absent
// (distinct from any JSON value, including nil) when the path has no match.
func queryPath(raw []byte, path string) (any, error) {
	gpath, err := translatePath(path)
	if err != nil {
		return nil, err
	}
	if gpath == "" {
		var v any
		if err := jsonUnmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	result := gjson.GetBytes(raw, gpath)
	if !result.Exists() {
		return Absent, nil
	}
	return result.Value(), nil
}
