package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test"), mr
}

func TestRemember_LoadsOnceUntilExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	loads := 0
	load := func(context.Context) ([]payload, error) {
		loads++
		return []payload{{Name: "acme", Count: loads}}, nil
	}

	first, err := Remember(ctx, c, "companies", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(ctx, c, "companies", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("test:companies"))

	mr.FastForward(2 * time.Minute)
	third, err := Remember(ctx, c, "companies", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
	assert.Equal(t, 2, third[0].Count)
}

func TestRemember_LoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	boom := errors.New("upstream down")

	_, err := Remember(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("test:k"))
}

func TestRemember_NilCacheAndRedisDown(t *testing.T) {
	ctx := context.Background()
	v, err := Remember(ctx, nil, "k", time.Minute, func(context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	c, mr := newCache(t)
	mr.Close()
	v, err = Remember(ctx, c, "k", time.Minute, func(context.Context) (string, error) { return "fallback", nil })
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestRefreshAndDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, Refresh(ctx, c, "k", time.Minute, func(context.Context) (payload, error) {
		return payload{Name: "x"}, nil
	}))
	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "x", got.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
