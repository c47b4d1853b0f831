package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, opts LockOptions) (*RedisLocker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, "lock:", opts), mr
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	locker, mr := newTestRedisLocker(t, DefaultLockOptions())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "activity:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:activity:1"))

	unlock()
	assert.False(t, mr.Exists("lock:activity:1"))
}

func TestRedisLocker_Timeout(t *testing.T) {
	locker, _ := newTestRedisLocker(t, LockOptions{
		TTL:      time.Minute,
		Wait:     100 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	})
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)
	defer unlock()

	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_UnlockKeepsForeignToken(t *testing.T) {
	locker, mr := newTestRedisLocker(t, DefaultLockOptions())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	// 锁过期后被其他持有者获取
	require.NoError(t, mr.Set("lock:k", "someone-else"))
	unlock()

	val, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestMemoryLocker_Exclusive(t *testing.T) {
	locker := NewMemoryLocker(2 * time.Second)
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "same")
			if err != nil {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestMemoryLocker_TimeoutAndContext(t *testing.T) {
	locker := NewMemoryLocker(50 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "k")
	assert.Error(t, err)

	unlock()
	unlock()

	unlock2, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}
