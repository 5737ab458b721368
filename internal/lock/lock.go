// Package lock serializes publish/unpublish per assistant. Two concurrent
// publishes for the same assistant must not create divergent external
// groups, so the lifecycle manager takes a lock keyed by assistant id before
// touching the bridge.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("lock: not acquired")

// Locker grants exclusive ownership of a key until release or TTL expiry.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// release func is safe to call once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const retryInterval = 50 * time.Millisecond

/* ------------------------------ Redis lock ----------------------------- */

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release, so a node can only release a lock it still owns.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker { return &RedisLocker{rdb: rdb} }

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, "lock:"+key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.rdb, []string{"lock:" + key}, token).Err()
		})
	}
	return release, nil
}

/* ----------------------------- memory lock ----------------------------- */

// MemoryLocker is the single-node fallback when no Redis is configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]struct{}{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.held[key] = struct{}{}
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}
	return release, nil
}
