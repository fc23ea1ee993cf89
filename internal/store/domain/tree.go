package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Normalize converts value into the store's value model (maps, slices,
// strings, float64, bool) and prunes nil leaves and empty maps. It returns
// nil when nothing is left.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return prune(out), nil
}

func prune(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	for k, v := range m {
		v = prune(v)
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Clone deep-copies a normalized value.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}

// Lookup walks segments from root.
func Lookup(root any, segments []string) any {
	current := root
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return current
}

// Assign sets the node at segments below root, creating intermediate maps
// and replacing scalar ancestors. A nil value removes the node and any
// parents it leaves empty. root must be non-nil.
func Assign(root map[string]any, segments []string, value any) {
	if len(segments) == 0 {
		return
	}
	head, rest := segments[0], segments[1:]
	if len(rest) == 0 {
		if value == nil {
			delete(root, head)
			return
		}
		root[head] = value
		return
	}
	child, ok := root[head].(map[string]any)
	if !ok {
		if value == nil {
			return
		}
		child = map[string]any{}
		root[head] = child
	}
	Assign(child, rest, value)
	if len(child) == 0 {
		delete(root, head)
	}
}

// Flatten lists every leaf under value keyed by its full path below base.
// Slices are leaves.
func Flatten(base string, value any) map[string]any {
	out := map[string]any{}
	flatten(base, value, out)
	return out
}

func flatten(path string, value any, out map[string]any) {
	m, ok := value.(map[string]any)
	if !ok {
		if value != nil {
			out[path] = value
		}
		return
	}
	for k, child := range m {
		flatten(JoinPath(path, k), child, out)
	}
}

// Expand rebuilds the subtree at base from leaves keyed by full path.
func Expand(base string, leaves map[string]any) any {
	if v, ok := leaves[base]; ok && len(leaves) == 1 {
		return v
	}
	root := map[string]any{}
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	prefix := base + Separator
	if base == "" {
		prefix = ""
	}
	for _, p := range paths {
		if p == base {
			continue
		}
		rel := strings.TrimPrefix(p, prefix)
		Assign(root, strings.Split(rel, Separator), leaves[p])
	}
	if len(root) == 0 {
		return nil
	}
	return root
}

// Update is one normalized child assignment produced by a merge.
type Update struct {
	Path     string
	Segments []string
	Value    any
}

// MergeUpdates validates and normalizes merge fields below the node at
// segments. Field keys may themselves be relative paths. Updates are
// ordered by path.
func MergeUpdates(segments []string, fields map[string]any) ([]Update, error) {
	out := make([]Update, 0, len(fields))
	for k, v := range fields {
		rel, err := SplitPath(k)
		if err != nil {
			return nil, err
		}
		if len(rel) == 0 {
			return nil, fmt.Errorf("%w: empty merge key", ErrInvalidPath)
		}
		normalized, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		full := append(append(make([]string, 0, len(segments)+len(rel)), segments...), rel...)
		out = append(out, Update{Path: strings.Join(full, Separator), Segments: full, Value: normalized})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// LeafPlan is a mutation expressed for backends that persist one record per
// leaf. Every node in Clear loses its own leaf and its whole subtree, every
// path in Drop loses its own leaf only, then Put is written.
type LeafPlan struct {
	Clear []string
	Drop  []string
	Put   map[string]any
}

// PlanLeaves turns ordered updates into a LeafPlan. Scalar ancestors of an
// updated node are dropped so the node can become a map child.
func PlanLeaves(updates []Update) LeafPlan {
	plan := LeafPlan{Put: map[string]any{}}
	dropped := map[string]struct{}{}
	for _, u := range updates {
		plan.Clear = append(plan.Clear, u.Path)
		for _, ancestor := range Ancestors(u.Segments) {
			delete(plan.Put, ancestor)
			if _, ok := dropped[ancestor]; ok {
				continue
			}
			dropped[ancestor] = struct{}{}
			plan.Drop = append(plan.Drop, ancestor)
		}
		for leaf := range plan.Put {
			if leaf == u.Path || strings.HasPrefix(leaf, u.Path+Separator) {
				delete(plan.Put, leaf)
			}
		}
		for leaf, v := range Flatten(u.Path, u.Value) {
			plan.Put[leaf] = v
		}
	}
	return plan
}

// ChildKeys derives the sorted, distinct child keys of base from the full
// paths of its descendant leaves.
func ChildKeys(base string, leaves []string) []string {
	prefix := base + Separator
	if base == "" {
		prefix = ""
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, leaf := range leaves {
		if !strings.HasPrefix(leaf, prefix) || leaf == base {
			continue
		}
		rest := leaf[len(prefix):]
		if i := strings.Index(rest, Separator); i >= 0 {
			rest = rest[:i]
		}
		if _, ok := seen[rest]; ok || rest == "" {
			continue
		}
		seen[rest] = struct{}{}
		out = append(out, rest)
	}
	sort.Strings(out)
	return out
}
