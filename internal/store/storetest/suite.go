// Package storetest is a behavioural suite every Store implementation must
// pass.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/railzwaylabs/roomledger/internal/store/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore; each subtest gets a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) domain.Store) {
	t.Run("read missing", func(t *testing.T) {
		snap, err := newStore(t).Read(context.Background(), "buildings/b1")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
		assert.Equal(t, "buildings/b1", snap.Path())
	})

	t.Run("write and read subtree", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "buildings/b1/rooms/101", map[string]any{
			"status": "occupied",
			"history": map[string]any{
				"2024-01-31": map[string]any{"electric": 100, "water": 5.5},
			},
		}))

		room, err := s.Read(ctx, "buildings/b1/rooms/101")
		require.NoError(t, err)
		status, ok := room.Child("status").String()
		assert.True(t, ok)
		assert.Equal(t, "occupied", status)
		v, ok := room.Child("history/2024-01-31/water").Float()
		assert.True(t, ok)
		assert.Equal(t, 5.5, v)

		leaf, err := s.Read(ctx, "/buildings/b1/rooms/101/history/2024-01-31/electric/")
		require.NoError(t, err)
		f, _ := leaf.Float()
		assert.Equal(t, 100.0, f)
	})

	t.Run("write replaces whole subtree", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "a/b", map[string]any{"x": 1, "y": 2}))
		require.NoError(t, s.Write(ctx, "a/b", map[string]any{"z": 3}))

		snap, err := s.Read(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []string{"z"}, snap.Keys())
	})

	t.Run("write over scalar ancestor", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "a/b", "scalar"))
		require.NoError(t, s.Write(ctx, "a/b/c", 1))

		snap, err := s.Read(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"c": 1.0}, snap.Value())
	})

	t.Run("merge keeps siblings and nil removes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "buildings/b1", map[string]any{
			"price_electric":   3000,
			"price_water":      15000,
			"price_updated_at": 1700000000000,
		}))
		require.NoError(t, s.Merge(ctx, "buildings/b1", map[string]any{
			"price_electric":   3300,
			"price_updated_at": nil,
			"rooms/101/phone":  "0900000001",
		}))

		snap, err := s.Read(ctx, "buildings/b1")
		require.NoError(t, err)
		assert.Equal(t, []string{"price_electric", "price_water", "rooms"}, snap.Keys())
		e, _ := snap.Child("price_electric").Float()
		assert.Equal(t, 3300.0, e)
		phone, _ := snap.Child("rooms/101/phone").String()
		assert.Equal(t, "0900000001", phone)
	})

	t.Run("remove prunes empty parents", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "a/b/c", 1))
		require.NoError(t, s.Write(ctx, "a/d", 2))
		require.NoError(t, s.Remove(ctx, "a/b/c"))

		snap, err := s.Read(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, snap.Keys())

		require.NoError(t, s.Remove(ctx, "a/d"))
		snap, err = s.Read(ctx, "a")
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})

	t.Run("sibling prefixes stay separate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "rooms/1", map[string]any{"v": 1}))
		require.NoError(t, s.Write(ctx, "rooms/10", map[string]any{"v": 10}))
		require.NoError(t, s.Write(ctx, "rooms/1-a", map[string]any{"v": 2}))

		snap, err := s.Read(ctx, "rooms/1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"v": 1.0}, snap.Value())

		require.NoError(t, s.Remove(ctx, "rooms/1"))
		keys, err := s.Shallow(ctx, "rooms")
		require.NoError(t, err)
		assert.Equal(t, []string{"1-a", "10"}, keys)
	})

	t.Run("shallow lists children", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "buildings/b1/rooms", map[string]any{
			"102": map[string]any{"status": "vacant"},
			"101": map[string]any{"history": map[string]any{"2024-01-01": map[string]any{"water": 1}}},
		}))

		keys, err := s.Shallow(ctx, "buildings/b1/rooms")
		require.NoError(t, err)
		assert.Equal(t, []string{"101", "102"}, keys)

		none, err := s.Shallow(ctx, "buildings/missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("create if absent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		path := "buildings/b1/rooms/101/payments/2024-02"

		created, err := s.CreateIfAbsent(ctx, path, map[string]any{"amount": 100, "method": "cash"})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.CreateIfAbsent(ctx, path, map[string]any{"amount": 999, "method": "transfer"})
		require.NoError(t, err)
		assert.False(t, created)

		snap, err := s.Read(ctx, path)
		require.NoError(t, err)
		amount, _ := snap.Child("amount").Float()
		method, _ := snap.Child("method").String()
		assert.Equal(t, 100.0, amount)
		assert.Equal(t, "cash", method)
	})

	t.Run("create if absent under concurrency", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		path := "buildings/b1/rooms/101/payments/2024-03"

		const callers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				created, err := s.CreateIfAbsent(ctx, path, map[string]any{"amount": i + 1, "status": "PAID"})
				if err != nil {
					return
				}
				if created {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})

	t.Run("replace if", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		path := "buildings/b1/rooms/103/payments/2024-04"
		require.NoError(t, s.Write(ctx, path, map[string]any{"status": "PENDING", "note": "promised friday"}))

		replaced, err := s.ReplaceIf(ctx, path, map[string]any{"status": "PAID", "method": "cash"}, unsettled)
		require.NoError(t, err)
		assert.True(t, replaced)

		snap, err := s.Read(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []string{"method", "status"}, snap.Keys())

		replaced, err = s.ReplaceIf(ctx, path, map[string]any{"status": "PAID", "method": "transfer"}, unsettled)
		require.NoError(t, err)
		assert.False(t, replaced)

		snap, err = s.Read(ctx, path)
		require.NoError(t, err)
		method, _ := snap.Child("method").String()
		assert.Equal(t, "cash", method)

		_, err = s.ReplaceIf(ctx, path, nil, unsettled)
		assert.ErrorIs(t, err, domain.ErrInvalidValue)
	})

	t.Run("replace if under concurrency", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		path := "buildings/b1/rooms/103/payments/2024-04"
		require.NoError(t, s.Write(ctx, path, map[string]any{"status": "PENDING"}))

		const callers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				replaced, err := s.ReplaceIf(ctx, path, map[string]any{"amount": i + 1, "status": "PAID"}, unsettled)
				if err != nil || !replaced {
					return
				}
				mu.Lock()
				winners = append(winners, i+1)
				mu.Unlock()
			}(i)
		}
		wg.Wait()
		require.Len(t, winners, 1)

		snap, err := s.Read(ctx, path)
		require.NoError(t, err)
		amount, _ := snap.Child("amount").Float()
		assert.Equal(t, float64(winners[0]), amount)
	})

	t.Run("rejects invalid paths", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		assert.ErrorIs(t, s.Write(ctx, "", 1), domain.ErrInvalidPath)
		assert.ErrorIs(t, s.Write(ctx, "a//b", 1), domain.ErrInvalidPath)
		_, err := s.Read(ctx, "a/../b")
		assert.ErrorIs(t, err, domain.ErrInvalidPath)
	})
}

func unsettled(current domain.Snapshot) bool {
	status, _ := current.Child("status").String()
	return status != "PAID"
}
