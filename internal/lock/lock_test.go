package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamb-project/lamb-lti/internal/lock"
)

func exerciseMutualExclusion(t *testing.T, l lock.Locker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const workers = 8
	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "assistant:7", 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside, "at most one holder at a time")
}

func TestMemoryLockerMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, lock.NewMemoryLocker())
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	exerciseMutualExclusion(t, lock.NewRedisLocker(rdb))
}

func TestRedisLockerReleaseIsOwnerOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := lock.NewRedisLocker(rdb)
	ctx := context.Background()

	release1, err := l.Acquire(ctx, "assistant:7", time.Minute)
	require.NoError(t, err)
	release1()

	release2, err := l.Acquire(ctx, "assistant:7", time.Minute)
	require.NoError(t, err)

	// A stale release from the first holder must not free the second's lock.
	release1()
	held, err := rdb.Exists(ctx, "lock:assistant:7").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	release2()
}

func TestAcquireHonorsContext(t *testing.T) {
	l := lock.NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
