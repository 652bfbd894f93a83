package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Candles 把 TTL 缓存适配为 market.CandleCache。
type Candles struct {
	ttl *TTL[[]market.Candle]
}

func NewCandles(ttl time.Duration, maxEntries int, opts ...Option) *Candles {
	return &Candles{ttl: New[[]market.Candle](ttl, maxEntries, opts...)}
}

func (c *Candles) Get(_ context.Context, key string) ([]market.Candle, bool) {
	v, ok := c.ttl.Get(key)
	if !ok {
		return nil, false
	}
	return append([]market.Candle(nil), v...), true
}

func (c *Candles) Set(_ context.Context, key string, candles []market.Candle) {
	c.ttl.Set(key, append([]market.Candle(nil), candles...))
}

// Len 返回当前缓存条目数。
func (c *Candles) Len() int { return c.ttl.Len() }

// RedisCandles 把 K 线以 JSON 存进 Redis，适合多实例共享缓存。
// Redis 不可用时按未命中处理，不影响主流程。
type RedisCandles struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// RedisConfig 描述 Redis 连接。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisCandles(cfg RedisConfig, ttl time.Duration) *RedisCandles {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chartlab:candles:"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	return &RedisCandles{client: client, ttl: ttl, prefix: prefix}
}

// Ping 检查连接。
func (r *RedisCandles) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCandles) Close() error {
	return r.client.Close()
}

func (r *RedisCandles) Get(ctx context.Context, key string) ([]market.Candle, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnf("[cache] redis get %s: %v", key, err)
		}
		return nil, false
	}
	candles, err := decodeCandles(raw)
	if err != nil {
		logger.Warnf("[cache] redis decode %s: %v", key, err)
		return nil, false
	}
	return candles, true
}

func (r *RedisCandles) Set(ctx context.Context, key string, candles []market.Candle) {
	raw, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		logger.Warnf("[cache] redis set %s: %v", key, err)
	}
}

func decodeCandles(raw []byte) ([]market.Candle, error) {
	var out []market.Candle
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ market.CandleCache = (*Candles)(nil)
	_ market.CandleCache = (*RedisCandles)(nil)
)
