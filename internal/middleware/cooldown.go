package middleware

import (
	"strconv"
	"sync"
	"time"
)

// ==================== 动作冷却 ====================

// ActionType 需要冷却的用户动作
type ActionType string

const (
	ActionCheckout    ActionType = "checkout"
	ActionPayment     ActionType = "payment"
	ActionReservation ActionType = "reservation"
)

// DefaultIntervals 各动作默认冷却时间
var DefaultIntervals = map[ActionType]time.Duration{
	ActionCheckout:    3 * time.Second,
	ActionPayment:     2 * time.Second,
	ActionReservation: 2 * time.Second,
}

// GetInterval 未登记的动作冷却 1 秒
func GetInterval(action ActionType) time.Duration {
	if d, ok := DefaultIntervals[action]; ok {
		return d
	}
	return time.Second
}

// UserActionKey 形如 user:12:checkout
func UserActionKey(userID int64, action ActionType) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":" + string(action)
}

// CheckResult 冷却判定结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// CooldownLimiter 记录每个 key 最近一次放行时间，间隔内的重复请求被拒绝
type CooldownLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	now      func() time.Time
	maxIdle  time.Duration
	lastScan time.Time
}

var globalLimiter = NewCooldownLimiter()

// GetLimiter 中间件共用的实例
func GetLimiter() *CooldownLimiter {
	return globalLimiter
}

func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{
		last:    make(map[string]time.Time),
		now:     time.Now,
		maxIdle: 10 * time.Minute,
	}
}

func (r *CooldownLimiter) remaining(key string, interval time.Duration, now time.Time) time.Duration {
	at, ok := r.last[key]
	if !ok {
		return 0
	}
	if left := interval - now.Sub(at); left > 0 {
		return left
	}
	return 0
}

// Check 放行时记录本次时间
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if left := r.remaining(key, interval, now); left > 0 {
		return CheckResult{RetryAfter: left}
	}
	r.last[key] = now
	r.prune(now)
	return CheckResult{Allowed: true}
}

// CheckOnly 只查询，不占用冷却
func (r *CooldownLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if left := r.remaining(key, interval, r.now()); left > 0 {
		return CheckResult{RetryAfter: left}
	}
	return CheckResult{Allowed: true}
}

// Reset 业务失败时调用，允许用户立即重试
func (r *CooldownLimiter) Reset(key string) {
	r.mu.Lock()
	delete(r.last, key)
	r.mu.Unlock()
}

// prune 每隔 maxIdle 扫描一次，删除早已过期的记录，调用方持锁
func (r *CooldownLimiter) prune(now time.Time) {
	if now.Sub(r.lastScan) < r.maxIdle {
		return
	}
	r.lastScan = now
	for k, at := range r.last {
		if now.Sub(at) > r.maxIdle {
			delete(r.last, k)
		}
	}
}

func (r *CooldownLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.last)
}
