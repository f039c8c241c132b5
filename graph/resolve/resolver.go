// Package resolve turns a node's templated input mapping into a concrete
// argument bundle by walking a data source built from prior node outputs,
// workflow variables, and caller-supplied overrides.
package resolve

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// exactRefPattern matches a string that is *only* a `{{ path }}` reference,
// with nothing else around it. A match here preserves the referenced value's
// original type instead of stringifying it.
var exactRefPattern = regexp.MustCompile(`^\{\{\s*([a-zA-Z0-9_]+(?:\.[a-zA-Z0-9_]+)*)\s*\}\}$`)

// anyRefPattern matches every `{{ ... }}` occurrence inside a larger string,
// used for the text-interpolation fallback.
var anyRefPattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// Source is the merged data a template path is navigated against: node
// outputs keyed by node id, workflow variables, and any per-call overrides
// (e.g. a loop's `item`/`index`). Overrides win over node outputs, which win
// over variables.
type Source struct {
	Variables   map[string]any
	NodeOutputs map[string]map[string]any
	Overrides   map[string]any
}

// flatten merges the three layers into one lookup table. Node output keys
// are looked up first against NodeOutputs; anything else falls through to
// Variables. Overrides are merged on top of both so a loop's "item"/"index"
// shadow any node or variable of the same name.
func (s Source) flatten() map[string]any {
	out := make(map[string]any, len(s.Variables)+len(s.NodeOutputs)+len(s.Overrides))
	for k, v := range s.Variables {
		out[k] = v
	}
	for k, v := range s.NodeOutputs {
		out[k] = v
	}
	for k, v := range s.Overrides {
		out[k] = v
	}
	return out
}

// Error reports a structural failure in the resolver, distinct from the
// "missing data" case which never raises.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolve: %s: %v", e.Message, e.Cause)
	}
	return "resolve: " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Resolve walks mapping recursively against src, producing a concrete
// argument bundle. String values that are an exact `{{ path }}` reference
// return the referenced value unchanged (preserving its type); any other
// string containing `{{ ... }}` is rendered as text, with unresolved
// identifiers rendering as empty text. Resolve never fails on missing data.
func Resolve(mapping map[string]any, src Source) (map[string]any, error) {
	if mapping == nil {
		return map[string]any{}, nil
	}
	data := src.flatten()
	resolved := make(map[string]any, len(mapping))
	for name, tmpl := range mapping {
		resolved[name] = resolveAny(tmpl, data)
	}
	return resolved, nil
}

func resolveAny(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		return resolveStringOrObject(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = resolveAny(inner, data)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = resolveAny(inner, data)
		}
		return out
	default:
		return value
	}
}

// resolveStringOrObject implements the core distinction between an object
// reference (exact-match template, type-preserving) and text interpolation
// (partial match, always a string).
func resolveStringOrObject(tmpl string, data map[string]any) any {
	if tmpl == "" {
		return tmpl
	}
	trimmed := strings.TrimSpace(tmpl)

	if m := exactRefPattern.FindStringSubmatch(trimmed); m != nil {
		if val, ok := lookupPath(data, m[1]); ok && val != nil {
			return val
		}
		// Navigation failed or resolved to nil: a literal-looking template
		// with no backing data falls through to text rendering, which will
		// render it as empty text rather than returning a Go nil.
	}

	if !anyRefPattern.MatchString(tmpl) {
		return tmpl
	}
	return anyRefPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		sub := anyRefPattern.FindStringSubmatch(match)
		path := sub[1]
		val, ok := lookupPath(data, path)
		if !ok || val == nil {
			return ""
		}
		return stringify(val)
	})
}

// lookupPath walks a dot-separated path (identifiers and integer indices)
// through data. It returns ok=false when any segment is absent or cannot be
// navigated, distinguishing "no such path" from "path resolves to a
// present nil" — both are treated as missing data by callers.
func lookupPath(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	head, ok := data[segments[0]]
	if !ok {
		return nil, false
	}
	current := head
	for _, seg := range segments[1:] {
		next, ok := navigate(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// navigate performs a single path step: mapping key, integer index on an
// ordered sequence, or attribute access on a struct via reflection-free
// map[string]any convention. Anything else is a failed step.
func navigate(current any, segment string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		val, ok := v[segment]
		return val, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
