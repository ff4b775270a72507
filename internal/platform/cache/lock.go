package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mutex is a best-effort cross-process lock backed by redis SET NX. The TTL
// bounds how long a crashed holder can block the next acquirer.
type Mutex struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewMutex constructs a Mutex for the given key.
func NewMutex(client *redis.Client, key string, ttl time.Duration) *Mutex {
	return &Mutex{client: client, key: key, ttl: ttl}
}

// Acquire attempts to take the lock without blocking. It returns false when
// another holder has it.
func (m *Mutex) Acquire(ctx context.Context) (bool, error) {
	return m.client.SetNX(ctx, m.key, "1", m.ttl).Result()
}

// Release drops the lock. Errors are ignored; the TTL is the backstop.
func (m *Mutex) Release(ctx context.Context) {
	_ = m.client.Del(ctx, m.key).Err()
}
