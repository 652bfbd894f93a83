package backtest

import (
	"math"
	"time"
)

// Side 表示持仓方向，仅支持做多。
type Side string

const (
	SideFlat Side = "FLAT"
	SideLong Side = "LONG"
)

// Costs 以基点描述单边手续费和滑点，开平仓各计一次。
type Costs struct {
	FeeBps      float64 `json:"fee_bps" mapstructure:"fee_bps" yaml:"fee_bps"`
	SlippageBps float64 `json:"slippage_bps" mapstructure:"slippage_bps" yaml:"slippage_bps"`
}

// DefaultCosts 返回 6bps 手续费 + 5bps 滑点。
func DefaultCosts() Costs {
	return Costs{FeeBps: 6, SlippageBps: 5}
}

// rates converts bps to fractions; negative or non-finite inputs count as zero.
func (c Costs) rates() (fee, slip float64) {
	return bpsRate(c.FeeBps), bpsRate(c.SlippageBps)
}

func bpsRate(bps float64) float64 {
	if math.IsNaN(bps) || math.IsInf(bps, 0) || bps < 0 {
		return 0
	}
	return bps / 10000
}

// Trade 是一笔已平仓的完整交易，PnLPct 为扣费后的收益比例（0.012 = 1.2%）。
type Trade struct {
	EntryTime  int64   `json:"entry_time"`
	ExitTime   int64   `json:"exit_time"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Side       Side    `json:"side"`
	PnLPct     float64 `json:"pnl_pct"`
	Forced     bool    `json:"forced,omitempty"`
}

// Holding 返回持仓时长。
func (t Trade) Holding() time.Duration {
	return time.Duration(t.ExitTime-t.EntryTime) * time.Second
}

// EquityPoint 是权益曲线上的一个点，初始权益为 1。
type EquityPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Stats 汇总一次回测的表现。
type Stats struct {
	NTrades     int     `json:"n_trades"`
	WinRate     float64 `json:"win_rate"`
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	CAGR        float64 `json:"cagr"`
}

// MarkerKind 区分买卖标记。
type MarkerKind string

const (
	MarkerBuy  MarkerKind = "buy"
	MarkerSell MarkerKind = "sell"
)

// Marker 是图表上的买卖点标注。
type Marker struct {
	Time  int64      `json:"time"`
	Kind  MarkerKind `json:"kind"`
	Price float64    `json:"price"`
	Text  string     `json:"text"`
}

// Result 为一次回测的完整输出。
type Result struct {
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Stats       Stats         `json:"stats"`
	Markers     []Marker      `json:"markers"`
}

// FinalEquity 返回曲线最后一个点，空曲线时为 1。
func (r Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return 1
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Value
}
