package apihttp

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"chartlab/internal/backtest"
	"chartlab/internal/export"
	"chartlab/internal/logger"
	"chartlab/internal/market"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// backtestResponse 展开 Result 的字段，并附带本次实际使用的参数。
type backtestResponse struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Bars     int             `json:"bars"`
	Preset   string          `json:"preset,omitempty"`
	Params   backtest.Params `json:"params"`
	Costs    backtest.Costs  `json:"costs"`
	backtest.Result
}

type sweepResponse struct {
	ID       string                 `json:"id"`
	Symbol   string                 `json:"symbol"`
	Interval string                 `json:"interval"`
	Bars     int                    `json:"bars"`
	Costs    backtest.Costs         `json:"costs"`
	Combos   int                    `json:"combos"`
	Results  []backtest.SweepResult `json:"results"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, series, res, ok := s.runBacktest(c, req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, backtestResponse{
		ID:       uuid.NewString(),
		Symbol:   strings.ToUpper(strings.TrimSpace(plan.Query.Symbol)),
		Interval: plan.Query.Interval,
		Bars:     len(series),
		Preset:   plan.Preset,
		Params:   plan.Params,
		Costs:    plan.Costs,
		Result:   res,
	})
}

func (s *Server) handleSweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := s.plan(req.backtestRequest)
	if err != nil {
		c.JSON(planStatus(err), gin.H{"error": err.Error()})
		return
	}
	fasts := req.FastLens
	if len(fasts) == 0 {
		fasts = []int{plan.Params.FastLen}
	}
	slows := req.SlowLens
	if len(slows) == 0 {
		slows = []int{plan.Params.SlowLen}
	}
	if err := sweepSizeOK(len(fasts), len(slows), s.defaults.MaxSweepCombos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := positiveLens(fasts, slows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	grid := backtest.Grid(fasts, slows, plan.Params.Kind)
	if len(grid) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数组合为空，需要 fast_len < slow_len"})
		return
	}
	series, err := s.candles.Candles(c.Request.Context(), plan.Query)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	results, err := backtest.Sweep(c.Request.Context(), series, grid, plan.Costs, s.defaults.SweepConcurrency)
	if err != nil {
		logger.Warnf("[http] sweep %s %s 中断: %v", plan.Query.Symbol, plan.Query.Interval, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.metrics.ObserveSweep(len(grid))
	ranked := backtest.Rank(results)
	if req.Top > 0 && req.Top < len(ranked) {
		ranked = ranked[:req.Top]
	}
	c.JSON(http.StatusOK, sweepResponse{
		ID:       uuid.NewString(),
		Symbol:   strings.ToUpper(strings.TrimSpace(plan.Query.Symbol)),
		Interval: plan.Query.Interval,
		Bars:     len(series),
		Costs:    plan.Costs,
		Combos:   len(grid),
		Results:  ranked,
	})
}

// handleExport 重新执行一次回测并以 CSV 下载交易明细或权益曲线。
func (s *Server) handleExport(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := export.ParseKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	precision := s.defaults.PricePrecision
	if kind == export.KindEquity {
		precision = s.defaults.EquityPrecision
	}
	if raw := c.Query("precision"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "precision 非法"})
			return
		}
		precision = n
	}
	plan, _, res, ok := s.runBacktest(c, req)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, kind, res, precision); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := export.FileName(plan.Query.Symbol, plan.Query.Interval, kind)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// runBacktest 解析参数、取数并执行回测；失败时已写出响应，ok 为 false。
func (s *Server) runBacktest(c *gin.Context, req backtestRequest) (runPlan, market.Series, backtest.Result, bool) {
	plan, err := s.plan(req)
	if err != nil {
		c.JSON(planStatus(err), gin.H{"error": err.Error()})
		return plan, nil, backtest.Result{}, false
	}
	series, err := s.candles.Candles(c.Request.Context(), plan.Query)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return plan, nil, backtest.Result{}, false
	}
	res := backtest.DualMA(series, plan.Params, plan.Costs)
	s.metrics.ObserveBacktest(len(res.Trades))
	logger.Debugf("[http] backtest %s %s %s trades=%d return=%.4f", plan.Query.Symbol, plan.Query.Interval, plan.Params, res.Stats.NTrades, res.Stats.TotalReturn)
	return plan, series, res, true
}

func positiveLens(groups ...[]int) error {
	for _, lens := range groups {
		for _, n := range lens {
			if n <= 0 {
				return fmt.Errorf("周期必须为正数，得到 %d", n)
			}
		}
	}
	return nil
}

// sweepSizeOK 在展开网格前按 fast×slow 的上界拦截，用除法比较避免乘法溢出。
func sweepSizeOK(nFast, nSlow, limit int) error {
	if nFast > limit || nSlow > limit || (nFast > 0 && nSlow > limit/nFast) {
		return fmt.Errorf("参数组合过多: %d×%d > %d", nFast, nSlow, limit)
	}
	return nil
}
