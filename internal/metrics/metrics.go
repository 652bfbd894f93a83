// Package metrics 暴露 chartlab 的 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chartlab/internal/pkg/circuit"
)

const namespace = "chartlab"

// Metrics 持有全部指标，使用独立 Registry，便于测试中多实例共存。
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	BreakerState  *prometheus.GaugeVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	BacktestRuns   *prometheus.CounterVec
	BacktestTrades prometheus.Histogram
	SweepCombos    prometheus.Counter
}

// New 创建并注册所有指标。withRuntime 为 true 时附带 Go 运行时与进程指标。
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_fetch_total",
			Help:      "Candle requests by source and outcome (hit, ok, fallback, error)",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "market_fetch_duration_seconds",
			Help:      "Candle request latency including cache and fallback",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_breaker_state",
			Help:      "Per-source circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client limiter",
		}),
		BacktestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_runs_total",
			Help:      "Backtest simulations by mode (single, sweep)",
		}, []string{"mode"}),
		BacktestTrades: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_trades",
			Help:      "Closed trades per single backtest run",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		SweepCombos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_sweep_combos_total",
			Help:      "Parameter combinations evaluated by sweeps",
		}),
	}
	m.registry.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.BreakerState,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimited,
		m.BacktestRuns,
		m.BacktestTrades,
		m.SweepCombos,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry 返回底层 Registry。
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 返回 /metrics 的 http.Handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFetch 实现 market.FetchObserver。
func (m *Metrics) ObserveFetch(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(source, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(seconds)
}

// SetBreakerState 记录数据源熔断器的当前状态。
func (m *Metrics) SetBreakerState(source string, state circuit.State) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(source).Set(float64(state))
}

func (m *Metrics) ObserveRequest(route, method string, code int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// ObserveBacktest 记录一次单参数回测。
func (m *Metrics) ObserveBacktest(trades int) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues("single").Inc()
	m.BacktestTrades.Observe(float64(trades))
}

// ObserveSweep 记录一次参数扫描及其组合数。
func (m *Metrics) ObserveSweep(combos int) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues("sweep").Inc()
	m.SweepCombos.Add(float64(combos))
}
