// Package flatten provides dotted-path flattening for the nested documents
// vendor APIs return, plus safe nested lookup that never panics on a missing
// intermediate key.
package flatten

import (
	"strconv"
	"strings"
)

// Path is an ordered list of key segments addressing a value inside a nested
// document. A segment that parses as an integer indexes into a slice.
type Path []string

// ParsePath splits a dotted expression like "result.items.price" into a Path.
func ParsePath(expr string) Path {
	if expr == "" {
		return nil
	}
	return Path(strings.Split(expr, "."))
}

// String joins the path back into its dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Get walks the path through nested maps and slices. It returns nil as soon
// as a segment is missing or the current node cannot be descended into.
func (p Path) Get(doc interface{}) interface{} {
	cur := doc
	for _, seg := range p {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}

// SafeGet resolves a dotted expression against a nested document, returning
// nil rather than an error when any intermediate key is absent.
func SafeGet(doc interface{}, expr string) interface{} {
	return ParsePath(expr).Get(doc)
}

// Flatten reduces nested maps to a single-level map keyed by dotted paths.
// maxDepth bounds how many levels are merged into the key; values nested
// deeper than maxDepth are kept as-is under the deepest flattened key.
// maxDepth <= 0 flattens without bound. Slices are treated as leaf values.
func Flatten(doc map[string]interface{}, maxDepth int) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	flattenInto(out, "", doc, maxDepth, 1)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, doc map[string]interface{}, maxDepth, depth int) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		child, ok := v.(map[string]interface{})
		if ok && (maxDepth <= 0 || depth < maxDepth) && len(child) > 0 {
			flattenInto(out, key, child, maxDepth, depth+1)
			continue
		}
		out[key] = v
	}
}

// Set writes a value at a dotted path, creating intermediate maps as needed.
func Set(doc map[string]interface{}, expr string, value interface{}) {
	segs := strings.Split(expr, ".")
	cur := doc
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[seg] = next
		}
		cur = next
	}
}
