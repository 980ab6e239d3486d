package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vericred/internal/ratelimit"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	t.Run("absent key returns nil bucket", func(t *testing.T) {
		b, err := m.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("round trip", func(t *testing.T) {
		in := &ratelimit.Bucket{Tokens: 3.5, LastRefill: time.Now(), Violations: 2}
		require.NoError(t, m.Set(ctx, "k", in, time.Minute))

		out, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, *in, *out)
	})

	t.Run("returned bucket is a copy", func(t *testing.T) {
		out, err := m.Get(ctx, "k")
		require.NoError(t, err)
		out.Tokens = 0

		again, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.InDelta(t, 3.5, again.Tokens, 1e-9)
	})
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", &ratelimit.Bucket{Tokens: 1}, time.Second))
	require.NoError(t, m.Set(ctx, "long", &ratelimit.Bucket{Tokens: 1}, time.Hour))

	now = now.Add(2 * time.Second)

	t.Run("expired bucket reads as absent", func(t *testing.T) {
		b, err := m.Get(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("size evicts expired entries", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "short2", &ratelimit.Bucket{Tokens: 1}, time.Second))
		now = now.Add(2 * time.Second)

		n, err := m.Size(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestMemory_DeleteClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", &ratelimit.Bucket{}, time.Minute))
	require.NoError(t, m.Set(ctx, "b", &ratelimit.Bucket{}, time.Minute))

	require.NoError(t, m.Delete(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "a")) // idempotent

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, m.Clear(ctx))
	n, err = m.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
