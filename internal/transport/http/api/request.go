package apihttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chartlab/internal/backtest"
	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

var errUnknownPreset = errors.New("unknown preset")

// seriesQuery 是行情类接口共用的参数。
type seriesQuery struct {
	Source   string `json:"source" form:"source"`
	Symbol   string `json:"symbol" form:"symbol"`
	Interval string `json:"interval" form:"interval"`
	Bars     int    `json:"bars" form:"bars"`
}

func (q seriesQuery) market(defInterval string) market.Query {
	interval := strings.TrimSpace(q.Interval)
	if interval == "" {
		interval = defInterval
	}
	if iv, err := market.ParseInterval(interval); err == nil {
		interval = iv.Key
	}
	return market.Query{Source: q.Source, Symbol: q.Symbol, Interval: interval, Bars: q.Bars}
}

// indicatorQuery 对应 /api/indicators 的参数，零值表示使用指标默认值。
type indicatorQuery struct {
	seriesQuery
	Name   string  `form:"name"`
	Len    int     `form:"len"`
	Fast   int     `form:"fast"`
	Slow   int     `form:"slow"`
	Signal int     `form:"signal"`
	K      int     `form:"k"`
	D      int     `form:"d"`
	Mult   float64 `form:"mult"`
}

func (q indicatorQuery) params() indicator.Params {
	return indicator.Params{Len: q.Len, Fast: q.Fast, Slow: q.Slow, Signal: q.Signal, K: q.K, D: q.D, Mult: q.Mult}
}

// backtestRequest 同时用于 JSON body 与导出/图表的 query string。
// 参数优先级：请求显式值 > 预设 > 服务默认值。
type backtestRequest struct {
	seriesQuery
	Preset      string   `json:"preset" form:"preset"`
	FastLen     int      `json:"fast_len" form:"fast_len"`
	SlowLen     int      `json:"slow_len" form:"slow_len"`
	Kind        string   `json:"kind" form:"ma_kind"`
	FeeBps      *float64 `json:"fee_bps" form:"fee_bps"`
	SlippageBps *float64 `json:"slippage_bps" form:"slippage_bps"`
}

// sweepRequest 在 backtestRequest 基础上给出快慢周期候选。
type sweepRequest struct {
	backtestRequest
	FastLens []int `json:"fast_lens"`
	SlowLens []int `json:"slow_lens"`
	Top      int   `json:"top"`
}

// runPlan 是解析完成、可以直接执行的回测。
type runPlan struct {
	Query  market.Query
	Params backtest.Params
	Costs  backtest.Costs
	Preset string
}

func (s *Server) plan(req backtestRequest) (runPlan, error) {
	out := runPlan{Params: s.defaults.Params, Costs: s.defaults.Costs}
	interval := strings.TrimSpace(req.Interval)
	if name := strings.TrimSpace(req.Preset); name != "" {
		if s.presets == nil {
			return out, fmt.Errorf("%w: %s", errUnknownPreset, name)
		}
		p, ok := s.presets.Get(name)
		if !ok {
			return out, fmt.Errorf("%w: %s", errUnknownPreset, name)
		}
		out.Preset = p.Name
		out.Params = p.Params()
		out.Costs = p.Costs(out.Costs)
		if interval == "" {
			interval = p.Interval
		}
	}
	if req.FastLen != 0 {
		out.Params.FastLen = req.FastLen
	}
	if req.SlowLen != 0 {
		out.Params.SlowLen = req.SlowLen
	}
	if strings.TrimSpace(req.Kind) != "" {
		kind, err := backtest.ParseMAKind(req.Kind)
		if err != nil {
			return out, err
		}
		out.Params.Kind = kind
	}
	if req.FeeBps != nil {
		out.Costs.FeeBps = *req.FeeBps
	}
	if req.SlippageBps != nil {
		out.Costs.SlippageBps = *req.SlippageBps
	}
	if out.Costs.FeeBps < 0 || out.Costs.SlippageBps < 0 {
		return out, fmt.Errorf("fee_bps/slippage_bps must be >= 0")
	}
	if err := out.Params.Validate(); err != nil {
		return out, err
	}
	q := req.seriesQuery
	q.Interval = interval
	out.Query = q.market(s.defaults.Interval)
	return out, nil
}

// planStatus 参数解析失败一律是客户端错误，只有预设不存在返回 404。
func planStatus(err error) int {
	if errors.Is(err, errUnknownPreset) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidQuery),
		errors.Is(err, market.ErrUnknownSource),
		errors.Is(err, indicator.ErrUnknownIndicator),
		errors.Is(err, backtest.ErrUnknownMAKind):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownPreset), errors.Is(err, market.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
