// Package redisstore persists the tree in Redis as one hash field per leaf
// plus a lexicographic index used for subtree reads.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/railzwaylabs/roomledger/internal/store/domain"
	"github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 8

type Options struct {
	// Prefix namespaces both keys; "roomledger" when empty.
	Prefix     string
	Compress   bool
	MaxRetries int
}

type Store struct {
	client     *redis.Client
	leavesKey  string
	indexKey   string
	compress   bool
	maxRetries int
}

func New(client *redis.Client, opts Options) *Store {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "roomledger"
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &Store{
		client:     client,
		leavesKey:  prefix + ":leaves",
		indexKey:   prefix + ":index",
		compress:   opts.Compress,
		maxRetries: retries,
	}
}

func (s *Store) Read(ctx context.Context, path string) (domain.Snapshot, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := s.read(ctx, s.client, domain.JoinPath(segments...))
	if err != nil && !errors.Is(err, domain.ErrUnavailable) {
		return domain.Snapshot{}, unavailable(ctx, err)
	}
	return snap, err
}

// reader is satisfied by both the client and a WATCH transaction.
type reader interface {
	lexRanger
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

func (s *Store) read(ctx context.Context, c reader, p string) (domain.Snapshot, error) {
	if p != "" {
		raw, err := c.HGet(ctx, s.leavesKey, p).Result()
		switch {
		case err == nil:
			value, err := s.decode(raw)
			if err != nil {
				return domain.Snapshot{}, err
			}
			return domain.NewSnapshot(p, value), nil
		case !errors.Is(err, redis.Nil):
			return domain.Snapshot{}, err
		}
	}

	members, err := subtreeMembers(ctx, c, s.indexKey, p)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(members) == 0 {
		return domain.NewSnapshot(p, nil), nil
	}

	values, err := c.HMGet(ctx, s.leavesKey, members...).Result()
	if err != nil {
		return domain.Snapshot{}, err
	}
	leaves := make(map[string]any, len(members))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		value, err := s.decode(raw)
		if err != nil {
			return domain.Snapshot{}, err
		}
		leaves[members[i]] = value
	}
	return domain.NewSnapshot(p, domain.Expand(p, leaves)), nil
}

func (s *Store) Shallow(ctx context.Context, path string) ([]string, error) {
	segments, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}
	p := domain.JoinPath(segments...)
	members, err := subtreeMembers(ctx, s.client, s.indexKey, p)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	return domain.ChildKeys(p, members), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	p, segments, err := domain.NodePath(path)
	if err != nil {
		return err
	}
	normalized, err := domain.Normalize(value)
	if err != nil {
		return err
	}
	_, err = s.apply(ctx, []domain.Update{{Path: p, Segments: segments, Value: normalized}}, nil)
	return err
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
	if len(updates) == 0 {
		return nil
	}
	_, err = s.apply(ctx, updates, nil)
	return err
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
	return s.apply(ctx, []domain.Update{{Path: p, Segments: segments, Value: normalized}}, &condition{path: p, allow: allow})
}

// condition gates a write on the node stored at path when the transaction
// runs.
type condition struct {
	path  string
	allow func(domain.Snapshot) bool
}

// apply runs the updates in one optimistic transaction. When cond is set
// nothing is written unless cond accepts the node read inside the
// transaction.
func (s *Store) apply(ctx context.Context, updates []domain.Update, cond *condition) (bool, error) {
	plan := domain.PlanLeaves(updates)
	put := make(map[string]any, len(plan.Put))
	for leaf, v := range plan.Put {
		encoded, err := s.encode(v)
		if err != nil {
			return false, err
		}
		put[leaf] = encoded
	}

	written := false
	txf := func(tx *redis.Tx) error {
		written = false
		if cond != nil {
			current, err := s.read(ctx, tx, cond.path)
			if err != nil {
				return err
			}
			if !cond.allow(current) {
				return nil
			}
		}

		var del []string
		for _, node := range plan.Clear {
			members, err := subtreeMembers(ctx, tx, s.indexKey, node)
			if err != nil {
				return err
			}
			del = append(del, node)
			del = append(del, members...)
		}
		del = append(del, plan.Drop...)

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(del) > 0 {
				pipe.HDel(ctx, s.leavesKey, del...)
				pipe.ZRem(ctx, s.indexKey, toAny(del)...)
			}
			if len(put) > 0 {
				members := make([]redis.Z, 0, len(put))
				for leaf := range put {
					members = append(members, redis.Z{Member: leaf})
				}
				pipe.HSet(ctx, s.leavesKey, put)
				pipe.ZAdd(ctx, s.indexKey, members...)
			}
			return nil
		})
		if err == nil {
			written = true
		}
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, s.leavesKey, s.indexKey)
		if err == nil {
			return written, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, unavailable(ctx, err)
	}
	return false, fmt.Errorf("%w: write contention on %s", domain.ErrUnavailable, updates[0].Path)
}

type lexRanger interface {
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZRangeByLex(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
}

func subtreeMembers(ctx context.Context, c lexRanger, indexKey, path string) ([]string, error) {
	if path == "" {
		return c.ZRange(ctx, indexKey, 0, -1).Result()
	}
	return c.ZRangeByLex(ctx, indexKey, &redis.ZRangeBy{
		Min: "[" + path + domain.Separator,
		Max: "(" + domain.SubtreeUpperBound(path),
	}).Result()
}

func (s *Store) encode(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
	}
	if s.compress {
		raw = snappy.Encode(nil, raw)
	}
	return string(raw), nil
}

func (s *Store) decode(raw string) (any, error) {
	data := []byte(raw)
	if s.compress {
		if decoded, err := snappy.Decode(nil, data); err == nil {
			data = decoded
		}
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: corrupt leaf: %v", domain.ErrUnavailable, err)
	}
	return value, nil
}

func unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
