package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache[string]()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache[int]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, -time.Second))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheGetWithFetch(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	fetches := 0
	fetch := func(ctx context.Context, key string) (string, error) {
		fetches++
		return "fetched", nil
	}

	value, err := c.GetWithFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)

	// Second call is served from cache.
	value, err = c.GetWithFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fetched", value)
	assert.Equal(t, 1, fetches)
}

func TestMemoryCacheGetWithFetchError(t *testing.T) {
	c := NewMemoryCache[string]()
	fetchErr := errors.New("backend down")

	_, err := c.GetWithFetch(context.Background(), "k", time.Minute,
		func(ctx context.Context, key string) (string, error) {
			return "", fetchErr
		})
	assert.ErrorIs(t, err, fetchErr)

	// A failed fetch is not cached.
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheStructValues(t *testing.T) {
	type session struct {
		Token    string
		Username string
	}

	c := NewMemoryCache[session]()
	ctx := context.Background()

	want := session{Token: "tok-1", Username: "sclaus"}
	require.NoError(t, c.Set(ctx, "tok-1", want, time.Minute))

	got, err := c.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
