package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authkit/internal/cache"
)

func TestMemory_SetGetDelete(t *testing.T) {
	c := cache.NewMemory("test")
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.True(t, cache.IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.True(t, cache.IsNotFound(err))
}

func TestMemory_TTLExpiry(t *testing.T) {
	c := cache.NewMemory("")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "fugaz", "x", 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := c.Get(ctx, "fugaz")
	assert.True(t, cache.IsNotFound(err))
}

func TestRedis_RoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := cache.NewRedis(cache.Config{Kind: "redis", Addr: srv.Addr(), Prefix: "authkit"})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	// El prefijo se aplica en el backend.
	assert.True(t, srv.Exists("authkit:k"))

	srv.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.True(t, cache.IsNotFound(err))
}

func TestNew_SelectsBackend(t *testing.T) {
	c, err := cache.New(cache.Config{Kind: "memory"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
}
