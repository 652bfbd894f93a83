package apihttp

import (
	"net/http"
	"strconv"
	"strings"

	"chartlab/internal/indicator"
	"chartlab/internal/market"

	"github.com/gin-gonic/gin"
)

const (
	defaultSymbolLimit = 50
	maxSymbolLimit     = 500
)

func (s *Server) handleCandles(c *gin.Context) {
	var q seriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mq := q.market(s.defaults.Interval)
	series, err := s.candles.Candles(c.Request.Context(), mq)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   strings.ToUpper(strings.TrimSpace(mq.Symbol)),
		"interval": mq.Interval,
		"count":    len(series),
		"candles":  series,
	})
}

// handleIndicators 返回与 K 线对齐的指标序列，每个点为 [time, value|null]。
func (s *Server) handleIndicators(c *gin.Context) {
	var q indicatorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(q.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name 必填", "available": indicator.Names()})
		return
	}
	if _, err := indicator.Defaults(q.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "available": indicator.Names()})
		return
	}
	mq := q.market(s.defaults.Interval)
	series, err := s.candles.Candles(c.Request.Context(), mq)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	out, err := indicator.Compute(q.Name, series, q.params())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	times := series.Times()
	lines := make(map[string][][2]any, len(out.Lines))
	for _, line := range out.Lines {
		lines[line.Key] = toPoints(times, line.Values)
	}
	c.JSON(http.StatusOK, gin.H{
		"name":     out.Name,
		"params":   out.Params,
		"symbol":   strings.ToUpper(strings.TrimSpace(mq.Symbol)),
		"interval": mq.Interval,
		"lines":    lines,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	var q seriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mq := q.market(s.defaults.Interval)
	series, err := s.candles.Candles(c.Request.Context(), mq)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	report, err := indicator.Summarize(series, indicator.Settings{
		Symbol:   strings.ToUpper(strings.TrimSpace(mq.Symbol)),
		Interval: mq.Interval,
		EMA:      indicator.EMASettings{Fast: s.defaults.Params.FastLen, Slow: s.defaults.Params.SlowLen},
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (s *Server) handleSymbols(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "交易对目录未启用"})
		return
	}
	limit := defaultSymbolLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
			return
		}
		limit = min(n, maxSymbolLimit)
	}
	list, err := s.catalog.Symbols(c.Request.Context(), c.Query("source"), c.Query("q"), limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": list})
}

func (s *Server) handleMeta(c *gin.Context) {
	defaults := make(map[string]indicator.Params)
	for _, name := range indicator.Names() {
		p, _ := indicator.Defaults(name)
		defaults[name] = p
	}
	c.JSON(http.StatusOK, gin.H{
		"intervals":  market.SupportedIntervals(),
		"indicators": defaults,
		"backtest": gin.H{
			"params": s.defaults.Params,
			"costs":  s.defaults.Costs,
		},
	})
}

// toPoints 把序列转成 [time, value] 对，未定义的值编码为 null。
func toPoints(times []int64, values indicator.Series) [][2]any {
	out := make([][2]any, len(times))
	for i, t := range times {
		out[i] = [2]any{t, values.At(i)}
	}
	return out
}
