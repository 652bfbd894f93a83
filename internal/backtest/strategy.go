package backtest

import (
	"errors"
	"fmt"
	"strings"

	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

// MAKind 选择信号线使用的均线类型。
type MAKind string

const (
	MAKindEMA MAKind = "ema"
	MAKindSMA MAKind = "sma"
)

var ErrUnknownMAKind = errors.New("unknown moving average kind")

// ParseMAKind 解析均线类型，空字符串视为 ema。
func ParseMAKind(s string) (MAKind, error) {
	switch MAKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", MAKindEMA:
		return MAKindEMA, nil
	case MAKindSMA:
		return MAKindSMA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMAKind, s)
	}
}

// Params 是双均线策略的参数。
type Params struct {
	FastLen int    `json:"fast_len" mapstructure:"fast_len" yaml:"fast_len"`
	SlowLen int    `json:"slow_len" mapstructure:"slow_len" yaml:"slow_len"`
	Kind    MAKind `json:"kind" mapstructure:"kind" yaml:"kind"`
}

// Validate 只在边界（HTTP、预设文件）上调用；Run 本身对非法参数静默降级。
func (p Params) Validate() error {
	if p.FastLen <= 0 || p.SlowLen <= 0 {
		return fmt.Errorf("fast_len/slow_len must be positive, got %d/%d", p.FastLen, p.SlowLen)
	}
	if _, err := ParseMAKind(string(p.Kind)); err != nil {
		return err
	}
	return nil
}

func (p Params) String() string {
	kind := p.Kind
	if kind == "" {
		kind = MAKindEMA
	}
	return fmt.Sprintf("%s(%d,%d)", kind, p.FastLen, p.SlowLen)
}

// Signal 用同一个例程计算快线和慢线，避免两条线的种子策略不一致。
// 未知类型返回全部未定义的序列。
func Signal(kind MAKind, closes []float64, n int) indicator.Series {
	switch kind {
	case "", MAKindEMA:
		return indicator.EMAOf(closes, n)
	case MAKindSMA:
		return indicator.SMAOf(closes, n)
	default:
		return make(indicator.Series, len(closes))
	}
}

// DualMA 计算双均线信号并执行回测。
func DualMA(candles []market.Candle, p Params, costs Costs) Result {
	closes := market.Series(candles).Closes()
	fast := Signal(p.Kind, closes, p.FastLen)
	slow := Signal(p.Kind, closes, p.SlowLen)
	return Run(candles, fast, slow, costs)
}
