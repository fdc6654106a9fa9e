package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked is returned by TryWithLock when another holder owns the key.
	ErrLocked = errors.New("lock: already held")
	// ErrNotConfigured is returned when the locker has no Redis client.
	ErrNotConfigured = errors.New("lock: redis client not configured")
)

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 30 * time.Second

// release deletes the key only while it still carries our token, so a holder
// whose lock expired cannot free a successor's lock.
var release = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

// Locker guards submissions with a Redis key per logical operation. It only
// ever tries once: a concurrent duplicate of a sale or payment must fail fast
// rather than queue behind the original.
type Locker struct {
	R *redis.Client
	// Prefix namespaces the keys, "lock:" when empty.
	Prefix string
}

// TryWithLock runs fn only if key is free right now, releasing it when fn
// returns. A held key yields ErrLocked without calling fn.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key = l.key(key)
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		// the request context may already be cancelled
		_ = release.Run(context.WithoutCancel(ctx), l.R, []string{key}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) key(key string) string {
	if l.Prefix == "" {
		return "lock:" + key
	}
	return l.Prefix + key
}
