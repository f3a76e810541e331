package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redisclient "github.com/zatekoja/hbnb/internal/infrastructure/clients/redis"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisAdapter) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisclient.NewClientFromAddr(srv.Addr())
	t.Cleanup(func() { client.Close() })
	return srv, NewRedisAdapter(client).(*RedisAdapter)
}

func TestRedisAdapter_SetGetDelete(t *testing.T) {
	srv, adapter := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "stats", []byte(`{"states":1}`), 30))

	value, err := adapter.Get(ctx, "stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"states":1}`, string(value))

	exists, err := adapter.Exists(ctx, "stats")
	require.NoError(t, err)
	assert.True(t, exists)

	srv.FastForward(31 * time.Second)
	_, err = adapter.Get(ctx, "stats")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "stats", []byte("x"), 30))
	require.NoError(t, adapter.Delete(ctx, "stats"))
	exists, err = adapter.Exists(ctx, "stats")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	srv, adapter := setupRedis(t)
	ctx := context.Background()

	for _, key := range []string{"hbnb:stats", "hbnb:list:states", "hbnb:list:cities", "other"} {
		require.NoError(t, adapter.Set(ctx, key, []byte("1"), 60))
	}

	require.NoError(t, adapter.DeletePattern(ctx, "hbnb:*"))

	assert.False(t, srv.Exists("hbnb:stats"))
	assert.False(t, srv.Exists("hbnb:list:states"))
	assert.True(t, srv.Exists("other"))
}
