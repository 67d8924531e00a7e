package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
)

func setupRedisAdapter(t *testing.T) (*miniredis.Miniredis, providers.CacheProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisAdapterFromCmdable(client)
}

func TestRedisAdapter_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedisAdapter(t)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))
	assert.True(t, mr.Exists("dashboard:k"), "keys are namespaced")

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "k"))
	exists, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisAdapter_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedisAdapter(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30))
	assert.Equal(t, 30*time.Second, mr.TTL("dashboard:k"))

	mr.FastForward(31 * time.Second)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_ErrorsWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedisAdapter(t)
	mr.Close()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.Error(t, c.Set(ctx, "k", []byte("v"), 60))
}
