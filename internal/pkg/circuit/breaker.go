// Package circuit 提供按数据源隔离的熔断器：连续失败达到阈值后短路上游请求，冷却后放行一次试探。
package circuit

import (
	"errors"
	"sync"
	"time"

	"chartlab/internal/logger"
)

// ErrOpen 表示熔断器处于打开状态，调用被短路。
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker 是单个上游的熔断器。threshold<=0 时永不打开。
type Breaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	probing     bool
	now         func() time.Time
	onChange    func(name string, from, to State)
}

// Option 定制 Breaker。
type Option func(*Breaker)

// WithClock 注入时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateChange 注册状态变化回调，回调在持锁外同步执行。
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

func New(name string, threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State 返回当前状态。
func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow 报告本次调用是否放行。冷却结束后只放行一个试探请求。
func (b *Breaker) Allow() bool {
	if b == nil || b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	var changed func()
	allowed := true
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			allowed = false
			break
		}
		changed = b.transitionLocked(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			allowed = false
			break
		}
		b.probing = true
	}
	b.mu.Unlock()
	if changed != nil {
		changed()
	}
	return allowed
}

// Success 记录一次成功调用。
func (b *Breaker) Success() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	var changed func()
	b.failures = 0
	b.probing = false
	if b.state != StateClosed {
		changed = b.transitionLocked(StateClosed)
	}
	b.mu.Unlock()
	if changed != nil {
		changed()
	}
}

// Abort 放弃一次已放行但未得出结果的调用（例如 ctx 取消），不计成功也不计失败。
func (b *Breaker) Abort() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// Failure 记录一次失败调用。
func (b *Breaker) Failure() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	var changed func()
	b.failures++
	b.lastFailure = b.now()
	b.probing = false
	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			changed = b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		changed = b.transitionLocked(StateOpen)
	}
	b.mu.Unlock()
	if changed != nil {
		changed()
	}
}

// transitionLocked 切换状态，返回需要在解锁后执行的通知。
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	b.state = to
	name, failures, fn := b.name, b.failures, b.onChange
	return func() {
		if fn != nil {
			fn(name, from, to)
			return
		}
		logger.Warnf("[circuit] %s state change: %s -> %s (failures=%d/%d, cooldown=%s)",
			name, from, to, failures, b.threshold, b.cooldown)
	}
}
