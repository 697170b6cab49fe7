package cacher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacher_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches on miss and caches the result", func(t *testing.T) {
		c := NewMemoryCacher[string](time.Minute, time.Minute)
		var calls atomic.Int32

		fetch := func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "value", nil
		}

		got, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", got)

		got, err = c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("propagates fetch errors without caching", func(t *testing.T) {
		c := NewMemoryCacher[int](time.Minute, time.Minute)
		var calls atomic.Int32

		fetch := func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, errors.New("backend down")
		}

		_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.Error(t, err)

		_, err = c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.Error(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("concurrent misses collapse into one fetch", func(t *testing.T) {
		c := NewMemoryCacher[string](time.Minute, time.Minute)
		var calls atomic.Int32

		fetch := func(ctx context.Context) (string, error) {
			calls.Add(1)
			time.Sleep(20 * time.Millisecond)
			return "shared", nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
				assert.NoError(t, err)
				assert.Equal(t, "shared", got)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestMemoryCacher_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[string](time.Minute, time.Minute)
	var calls atomic.Int32

	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "k"))

	_, err = c.GetOrFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoryCacher_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[int](time.Minute, time.Minute)

	for _, key := range []string{"history:alice:10", "history:bob:10", "other:x"} {
		_, err := c.GetOrFetch(ctx, key, time.Minute, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		require.NoError(t, err)
	}

	deleted, err := c.DeleteByPrefix(ctx, "history:")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// The untouched key is still served from cache.
	var calls atomic.Int32
	_, err = c.GetOrFetch(ctx, "other:x", time.Minute, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestMemoryCacher_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[int](time.Minute, time.Minute)

	_, err := c.GetOrFetch(ctx, "k", time.Minute, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Clear(ctx))

	var calls atomic.Int32
	_, err = c.GetOrFetch(ctx, "k", time.Minute, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoryCacher_ContextCancelled(t *testing.T) {
	c := NewMemoryCacher[int](time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.Delete(ctx, "k"))
	_, err := c.DeleteByPrefix(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Clear(ctx))
}
