package rate_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authkit/internal/rate"
)

func TestMemoryLimiter_BlocksOverMax(t *testing.T) {
	l := rate.NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "intento %d dentro del límite", i+1)
	}

	res, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := rate.NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "login:a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "login:b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "login:a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	srv := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: srv.Addr()})
	defer client.Close()

	l := rate.NewRedisLimiter(client, "rl:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "forgot:x@y.z")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "forgot:x@y.z")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Pasada la ventana, el contador arranca de cero.
	srv.FastForward(2 * time.Minute)
	res, err = l.Allow(ctx, "forgot:x@y.z")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
