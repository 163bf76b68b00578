package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options describes the Redis instance holding slot locks.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	// PoolSize defaults to 10.
	PoolSize int
}

// NewRedisClient dials Redis and fails fast when it is unreachable at startup.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := Ping(rdb)(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// Ping adapts a client to the readiness check signature.
func Ping(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
		}
		return nil
	}
}
