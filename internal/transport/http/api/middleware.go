package apihttp

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"chartlab/internal/cache"
	"chartlab/internal/logger"

	"github.com/gin-gonic/gin"
)

// 每次请求都会顺延客户端桶的过期时间，只有空闲超过 clientIdleTTL 的桶才被回收。
// 令牌桶一分钟即可回满，空闲两分钟后重建不会放宽限额。
const (
	clientIdleTTL    = 2 * time.Minute
	maxTrackedClient = 4096
)

// clientLimiter 按客户端 IP 维护令牌桶，桶放在 TTL 缓存中。
type clientLimiter struct {
	perMin  int
	buckets *cache.TTL[*rate.Limiter]
}

func newClientLimiter(perMin int, opts ...cache.Option) *clientLimiter {
	return &clientLimiter{
		perMin:  perMin,
		buckets: cache.New[*rate.Limiter](clientIdleTTL, maxTrackedClient, opts...),
	}
}

func (l *clientLimiter) allow(client string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	lim := l.buckets.GetOrSet(client, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin)
	})
	return lim.Allow()
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter.allow(c.ClientIP()) {
			c.Next()
			return
		}
		s.metrics.IncRateLimited()
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	}
}

func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.metrics.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start).Seconds())
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path += "?" + query
		}
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			logger.Warnf("[http] %s %s status=%d ip=%s dur=%s", c.Request.Method, path, status, c.ClientIP(), time.Since(start))
			return
		}
		logger.Debugf("[http] %s %s status=%d ip=%s dur=%s", c.Request.Method, path, status, c.ClientIP(), time.Since(start))
	}
}
