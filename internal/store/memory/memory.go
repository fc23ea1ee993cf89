// Package memory keeps the whole tree in process. It backs tests and the
// single-node development setup.
package memory

import (
	"context"
	"sync"

	"github.com/railzwaylabs/roomledger/internal/store/domain"
)

type Store struct {
	mu   sync.RWMutex
	root map[string]any
}

func New() *Store {
	return &Store{root: map[string]any{}}
}

// Seed builds a store from a nested literal. It panics on values that do not
// survive normalization.
func Seed(tree map[string]any) *Store {
	s := New()
	normalized, err := domain.Normalize(tree)
	if err != nil {
		panic(err)
	}
	if m, ok := normalized.(map[string]any); ok {
		s.root = m
	}
	return s
}

func (s *Store) Read(ctx context.Context, path string) (domain.Snapshot, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var value any = s.root
	if len(segments) > 0 {
		value = domain.Lookup(s.root, segments)
	} else if len(s.root) == 0 {
		value = nil
	}
	return domain.NewSnapshot(domain.JoinPath(segments...), domain.Clone(value)), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	_, segments, err := domain.NodePath(path)
	if err != nil {
		return err
	}
	normalized, err := domain.Normalize(value)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	domain.Assign(s.root, segments, normalized)
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	_, segments, err := domain.NodePath(path)
	if err != nil {
		return err
	}
	updates, err := domain.MergeUpdates(segments, fields)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		domain.Assign(s.root, u.Segments, u.Value)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return s.Write(ctx, path, nil)
}

func (s *Store) CreateIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	return s.ReplaceIf(ctx, path, value, domain.Absent)
}

func (s *Store) ReplaceIf(ctx context.Context, path string, value any, allow func(domain.Snapshot) bool) (bool, error) {
	p, segments, err := domain.NodePath(path)
	if err != nil {
		return false, err
	}
	normalized, err := domain.Normalize(value)
	if err != nil {
		return false, err
	}
	if normalized == nil {
		return false, domain.ErrInvalidValue
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := domain.NewSnapshot(p, domain.Clone(domain.Lookup(s.root, segments)))
	if !allow(current) {
		return false, nil
	}
	domain.Assign(s.root, segments, normalized)
	return true, nil
}

func (s *Store) Shallow(ctx context.Context, path string) ([]string, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var node any = s.root
	if len(segments) > 0 {
		node = domain.Lookup(s.root, segments)
	}
	return domain.NewSnapshot("", node).Keys(), nil
}
