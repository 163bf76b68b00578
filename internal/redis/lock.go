package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("slot lock not acquired")

	// ErrLockBackend means Redis itself failed; fn was not run.
	ErrLockBackend = errors.New("slot lock backend unavailable")
)

// Locker is used by the booking service to serialize admission per therapist slot and per user slot.
type Locker interface {
	WithSlotLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// SlotKey names the lock guarding one party's 30 minute slot.
func SlotKey(party string, id uuid.UUID, start time.Time) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", party, id.String(), start.Format("20060102T1504"))
}

// NopLocker runs fn without locking. For processes that never admit bookings.
type NopLocker struct{}

func (NopLocker) WithSlotLock(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker that uses one Redis key per slot.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

// WithSlotLock acquires every key or none, runs fn, then releases what it holds.
// The lock does not wait: a held key fails fast with ErrLockNotAcquired.
func (l *redisSlotLocker) WithSlotLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	defer func() {
		for _, key := range held {
			_ = l.release(context.WithoutCancel(ctx), key, token)
		}
	}()

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire slot lock: %w: %w", ErrLockBackend, err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
