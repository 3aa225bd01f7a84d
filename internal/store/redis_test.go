package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisConnect(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	assert.False(t, r.IsOpen())
	require.NoError(t, r.Connect(ctx))
	assert.True(t, r.IsOpen())
	assert.True(t, r.Healthy(ctx))
}

func TestRedisGetSetDel(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "profile:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetEx(ctx, "profile:u1", `{"full_name":"Ada"}`, 5*time.Minute))
	val, ok, err := r.Get(ctx, "profile:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"full_name":"Ada"}`, val)
	assert.Equal(t, 5*time.Minute, mr.TTL("profile:u1"))

	require.NoError(t, r.Del(ctx, "profile:u1"))
	require.NoError(t, r.Del(ctx, "profile:u1"))
	assert.False(t, mr.Exists("profile:u1"))
}

func TestRedisExpiry(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetEx(ctx, "k", "1", time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisServerDown(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))

	mr.Close()

	_, _, err := r.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, r.IsOpen())
	assert.Error(t, r.Connect(ctx))
	assert.False(t, r.Healthy(ctx))
}
