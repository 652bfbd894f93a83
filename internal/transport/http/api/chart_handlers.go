package apihttp

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"chartlab/internal/backtest"
	"chartlab/internal/chart"
	"chartlab/internal/indicator"
	"chartlab/internal/logger"
	"chartlab/internal/preset"

	"github.com/gin-gonic/gin"
)

// 叠加在价格图上的指标，其余画在副图。
var overlayIndicators = map[string]bool{"sma": true, "ema": true, "boll": true}

func (s *Server) handleChart(c *gin.Context) {
	in, ok := s.chartInput(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, in); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleChartPNG(c *gin.Context) {
	in, ok := s.chartInput(c)
	if !ok {
		return
	}
	png, err := s.renderPNG(c.Request.Context(), in)
	if err != nil {
		logger.Warnf("[http] 渲染 PNG 失败 %s %s: %v", in.Symbol, in.Interval, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// chartInput 执行一次回测，并按 indicators=boll,rsi 附加指标线。
func (s *Server) chartInput(c *gin.Context) (chart.Input, bool) {
	var req backtestRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return chart.Input{}, false
	}
	names := splitList(c.Query("indicators"))
	for _, name := range names {
		if _, err := indicator.Defaults(name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "available": indicator.Names()})
			return chart.Input{}, false
		}
	}
	plan, series, res, ok := s.runBacktest(c, req)
	if !ok {
		return chart.Input{}, false
	}
	closes := series.Closes()
	in := chart.Input{
		Symbol:   strings.ToUpper(strings.TrimSpace(plan.Query.Symbol)),
		Interval: plan.Query.Interval,
		Candles:  series,
		Overlays: []chart.Line{
			{Name: fmt.Sprintf("%s%d", strings.ToUpper(string(plan.Params.Kind)), plan.Params.FastLen), Values: backtest.Signal(plan.Params.Kind, closes, plan.Params.FastLen)},
			{Name: fmt.Sprintf("%s%d", strings.ToUpper(string(plan.Params.Kind)), plan.Params.SlowLen), Values: backtest.Signal(plan.Params.Kind, closes, plan.Params.SlowLen)},
		},
		Markers: res.Markers,
		Equity:  res.EquityCurve,
		Subtitle: fmt.Sprintf("%s 交易 %d 胜率 %.1f%% 收益 %.2f%% 回撤 %.2f%%",
			plan.Params, res.Stats.NTrades, res.Stats.WinRate*100, res.Stats.TotalReturn*100, res.Stats.MaxDrawdown*100),
	}
	for _, name := range names {
		out, err := indicator.Compute(name, series, indicator.Params{})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return chart.Input{}, false
		}
		for _, line := range out.Lines {
			l := chart.Line{Name: strings.ToUpper(out.Name) + "." + line.Key, Values: line.Values}
			if overlayIndicators[out.Name] {
				in.Overlays = append(in.Overlays, l)
			} else {
				in.Panels = append(in.Panels, l)
			}
		}
	}
	return in, true
}

func (s *Server) handlePresets(c *gin.Context) {
	list := []preset.Preset{}
	if s.presets != nil {
		list = s.presets.List()
	}
	c.JSON(http.StatusOK, gin.H{"presets": list})
}

func splitList(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
