package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), Options{Addr: mr.Addr(), DB: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	assert.Equal(t, 10, rdb.Options().PoolSize)
	assert.NoError(t, Ping(rdb)(context.Background()))

	mr.Close()
	assert.Error(t, Ping(rdb)(context.Background()))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), Options{Addr: addr})
	assert.ErrorContains(t, err, "ping redis")
}
