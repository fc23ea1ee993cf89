// Package domain defines the path-addressable hierarchical store that every
// billing component reads from and writes to.
package domain

import (
	"context"
	"errors"
)

var (
	ErrUnavailable  = errors.New("storage_unavailable")
	ErrInvalidPath  = errors.New("invalid_store_path")
	ErrInvalidValue = errors.New("invalid_store_value")
)

// Store is a point-in-time, path-addressable tree of JSON-like values.
//
// Paths are slash separated ("buildings/b1/rooms/101"). A nil or empty
// value is never stored: writing one removes the node, and parents left
// without children disappear with it.
type Store interface {
	// Read returns a snapshot of the subtree at path. A missing node yields
	// a snapshot whose Exists reports false.
	Read(ctx context.Context, path string) (Snapshot, error)
	// Write replaces the whole subtree at path.
	Write(ctx context.Context, path string, value any) error
	// Merge updates the named children of path without touching siblings.
	// A nil field value removes that child.
	Merge(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	// Shallow lists the child keys of path in sorted order without reading
	// their values.
	Shallow(ctx context.Context, path string) ([]string, error)
	// CreateIfAbsent writes value at path only when nothing exists there
	// yet. It reports whether the write happened.
	CreateIfAbsent(ctx context.Context, path string, value any) (bool, error)
	// ReplaceIf replaces the subtree at path with value only when allow
	// accepts the node currently stored there. The check and the write are
	// one atomic step. It reports whether the write happened.
	ReplaceIf(ctx context.Context, path string, value any, allow func(current Snapshot) bool) (bool, error)
}

// Absent accepts only a missing node; CreateIfAbsent is ReplaceIf with it.
func Absent(current Snapshot) bool {
	return !current.Exists()
}
