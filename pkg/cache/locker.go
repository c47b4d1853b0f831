package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout 等待锁超时
var ErrLockTimeout = errors.New("操作繁忙，请稍后重试")

// Locker 互斥锁
// 返回的 unlock 必须调用，且只释放自己持有的锁
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockOptions 锁参数
type LockOptions struct {
	TTL      time.Duration // 锁自动过期时间
	Wait     time.Duration // 最长等待时间
	Interval time.Duration // 重试间隔
}

// DefaultLockOptions 默认参数
func DefaultLockOptions() LockOptions {
	return LockOptions{
		TTL:      10 * time.Second,
		Wait:     3 * time.Second,
		Interval: 50 * time.Millisecond,
	}
}

// ==================== Redis 实现 ====================

// 只删除自己持有的 token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX 的分布式锁
type RedisLocker struct {
	client *redis.Client
	prefix string
	opts   LockOptions
}

// NewRedisLocker 创建 Redis 锁
func NewRedisLocker(client *redis.Client, prefix string, opts LockOptions) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, opts: opts}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.opts.Wait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.opts.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 使用独立 context，请求取消后仍能释放
				_ = unlockScript.Run(context.Background(), l.client, []string{fullKey}, token).Err()
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.Interval):
		}
	}
}

// ==================== 进程内实现 ====================

// MemoryLocker 单实例部署时使用的进程内锁
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewMemoryLocker 创建进程内锁
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (l *MemoryLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrLockTimeout
	}
}
