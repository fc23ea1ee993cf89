package domain

import (
	"fmt"
	"strings"
)

const Separator = "/"

// SplitPath cleans path and returns its segments. The root path yields no
// segments.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), Separator)
	if trimmed == "" {
		return nil, nil
	}
	segments := strings.Split(trimmed, Separator)
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// JoinPath joins segments, dropping empty ones.
func JoinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, Separator)
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, Separator)
}

// NodePath validates path for mutation and returns it in canonical form.
// The root itself cannot be mutated.
func NodePath(path string) (string, []string, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return "", nil, err
	}
	if len(segments) == 0 {
		return "", nil, fmt.Errorf("%w: root is read-only", ErrInvalidPath)
	}
	return strings.Join(segments, Separator), segments, nil
}

// Ancestors lists the proper ancestors of a canonical path, nearest last.
func Ancestors(segments []string) []string {
	out := make([]string, 0, len(segments))
	for i := 1; i < len(segments); i++ {
		out = append(out, strings.Join(segments[:i], Separator))
	}
	return out
}

// SubtreeUpperBound is the exclusive upper bound of every descendant path of
// path under byte-wise ordering ('0' follows '/').
func SubtreeUpperBound(path string) string {
	return path + "0"
}
