package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Snapshot is an immutable view of one node read from a Store.
type Snapshot struct {
	path  string
	value any
}

func NewSnapshot(path string, value any) Snapshot {
	return Snapshot{path: path, value: value}
}

func (s Snapshot) Path() string { return s.path }

func (s Snapshot) Exists() bool { return s.value != nil }

func (s Snapshot) Value() any { return s.value }

// Key is the last path segment.
func (s Snapshot) Key() string {
	if i := strings.LastIndex(s.path, Separator); i >= 0 {
		return s.path[i+1:]
	}
	return s.path
}

// Child returns the descendant at a relative path.
func (s Snapshot) Child(rel string) Snapshot {
	segments, err := SplitPath(rel)
	if err != nil {
		return Snapshot{path: JoinPath(s.path, rel)}
	}
	return Snapshot{
		path:  JoinPath(s.path, strings.Join(segments, Separator)),
		value: Lookup(s.value, segments),
	}
}

// Keys lists the child keys in sorted order.
func (s Snapshot) Keys() []string {
	m, ok := s.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Children returns child snapshots ordered by key.
func (s Snapshot) Children() []Snapshot {
	keys := s.Keys()
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Child(k))
	}
	return out
}

// Decode unmarshals the node into dst through its JSON form.
func (s Snapshot) Decode(dst any) error {
	raw, err := json.Marshal(s.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// String returns a string leaf. Numbers are formatted without exponent.
func (s Snapshot) String() (string, bool) {
	switch v := s.value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Float returns a numeric leaf. Numeric strings are accepted; anything else,
// including NaN and infinities, is not a number.
func (s Snapshot) Float() (float64, bool) {
	var f float64
	switch v := s.value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool returns a boolean leaf; "true"/"false" strings are accepted.
func (s Snapshot) Bool() (bool, bool) {
	switch v := s.value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	default:
		return false, false
	}
}
