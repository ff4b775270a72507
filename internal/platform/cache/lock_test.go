package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/keelworks/vaultward/internal/platform/cache"
	_ "github.com/keelworks/vaultward/testing"
)

func TestMutex(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mutex := cache.NewMutex(client, "retention:sweep:lock", time.Hour)

	ok, err := mutex.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = mutex.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok, "second acquire must be refused while held")

	mutex.Release(context.Background())
	ok, err = mutex.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMutexExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mutex := cache.NewMutex(client, "retention:sweep:lock", time.Minute)

	ok, err := mutex.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = mutex.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "lock must expire with its TTL after a crashed holder")
}
