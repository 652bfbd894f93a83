// Package cache 提供显式构造、可注入的 TTL 内存缓存，替代进程级全局 map。
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value  V
	expire time.Time
}

// TTL 是带过期时间与容量上限的并发安全缓存。
// 读取时惰性清理过期项；容量满时淘汰最早过期的一项。
type TTL[V any] struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	items map[string]entry[V]
}

// Option 调整缓存行为。
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 注入时钟，便于测试。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New 创建缓存；ttl<=0 表示永不过期，maxEntries<=0 表示不限容量。
func New[V any](ttl time.Duration, maxEntries int, opts ...Option) *TTL[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &TTL[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        o.now,
		items:      make(map[string]entry[V]),
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	hit, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.expired(hit, c.now()) {
		delete(c.items, key)
		return zero, false
	}
	return hit.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL 写入并指定单独的过期时间。
func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	now := c.now()
	var expire time.Time
	if ttl > 0 {
		expire = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[key] = entry[V]{value: value, expire: expire}
}

// GetOrSet 返回已有值并把过期时间顺延一个 ttl；不存在时用 build 生成并写入。
// 整个过程持锁完成，同一 key 并发调用只会 build 一次，build 不应阻塞。
func (c *TTL[V]) GetOrSet(key string, build func() V) V {
	if c == nil {
		return build()
	}
	now := c.now()
	var expire time.Time
	if c.ttl > 0 {
		expire = now.Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit, ok := c.items[key]; ok && !c.expired(hit, now) {
		hit.expire = expire
		c.items[key] = hit
		return hit.value
	}
	v := build()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[key] = entry[V]{value: v, expire: expire}
	return v
}

func (c *TTL[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len 返回当前条目数（含尚未清理的过期项）。
func (c *TTL[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[V]) expired(e entry[V], now time.Time) bool {
	return !e.expire.IsZero() && now.After(e.expire)
}

func (c *TTL[V]) evictLocked(now time.Time) {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, k)
			continue
		}
		if e.expire.IsZero() {
			continue
		}
		if !found || e.expire.Before(oldest) {
			victim, oldest, found = k, e.expire, true
		}
	}
	if len(c.items) < c.maxEntries {
		return
	}
	if !found {
		for k := range c.items {
			victim = k
			break
		}
	}
	delete(c.items, victim)
}
