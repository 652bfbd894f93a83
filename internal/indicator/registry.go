package indicator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"chartlab/internal/market"
)

var ErrUnknownIndicator = errors.New("unknown indicator")

// Params 汇总所有指标可能用到的参数，零值表示使用该指标的默认值。
// 显式给出的非法值（如负数周期）不会被替换，结果按约定全部未定义。
type Params struct {
	Len    int     `json:"len,omitempty" mapstructure:"len"`
	Fast   int     `json:"fast,omitempty" mapstructure:"fast"`
	Slow   int     `json:"slow,omitempty" mapstructure:"slow"`
	Signal int     `json:"signal,omitempty" mapstructure:"signal"`
	K      int     `json:"k,omitempty" mapstructure:"k"`
	D      int     `json:"d,omitempty" mapstructure:"d"`
	Mult   float64 `json:"mult,omitempty" mapstructure:"mult"`
}

// Line 是输出中的一条具名序列。
type Line struct {
	Key    string `json:"key"`
	Values Series `json:"values"`
}

// Output 是一次指标计算的结果，Lines 的顺序固定。
type Output struct {
	Name   string `json:"name"`
	Params Params `json:"params"`
	Lines  []Line `json:"lines"`
}

// Line 按 key 查找序列。
func (o Output) Line(key string) (Series, bool) {
	for _, l := range o.Lines {
		if l.Key == key {
			return l.Values, true
		}
	}
	return nil, false
}

type definition struct {
	defaults Params
	compute  func(candles market.Series, p Params) []Line
}

var registry = map[string]definition{
	"sma": {
		defaults: Params{Len: 20},
		compute: func(c market.Series, p Params) []Line {
			return []Line{{Key: "sma", Values: SMAOf(c.Closes(), p.Len)}}
		},
	},
	"ema": {
		defaults: Params{Len: 20},
		compute: func(c market.Series, p Params) []Line {
			return []Line{{Key: "ema", Values: EMAOf(c.Closes(), p.Len)}}
		},
	},
	"macd": {
		defaults: Params{Fast: 12, Slow: 26, Signal: 9},
		compute: func(c market.Series, p Params) []Line {
			r := MACD(c.Closes(), p.Fast, p.Slow, p.Signal)
			return []Line{{Key: "macd", Values: r.MACD}, {Key: "signal", Values: r.Signal}, {Key: "hist", Values: r.Hist}}
		},
	},
	"rsi": {
		defaults: Params{Len: 14},
		compute: func(c market.Series, p Params) []Line {
			return []Line{{Key: "rsi", Values: RSI(c.Closes(), p.Len)}}
		},
	},
	"kdj": {
		defaults: Params{Len: 9, K: 3, D: 3},
		compute: func(c market.Series, p Params) []Line {
			r := KDJ(c, p.Len, p.K, p.D)
			return []Line{{Key: "k", Values: r.K}, {Key: "d", Values: r.D}, {Key: "j", Values: r.J}}
		},
	},
	"boll": {
		defaults: Params{Len: 20, Mult: 2},
		compute: func(c market.Series, p Params) []Line {
			r := BOLL(c.Closes(), p.Len, p.Mult)
			return []Line{{Key: "mid", Values: r.Mid}, {Key: "upper", Values: r.Upper}, {Key: "lower", Values: r.Lower}}
		},
	},
}

// Names 返回已注册的指标名（字典序）。
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Defaults 返回指定指标的默认参数。
func Defaults(name string) (Params, error) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
	}
	return s.defaults, nil
}

// Compute 按名称计算指标。
func Compute(name string, candles []market.Candle, p Params) (Output, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	s, ok := registry[key]
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
	}
	p = p.withDefaults(s.defaults)
	return Output{Name: key, Params: p, Lines: s.compute(market.Series(candles), p)}, nil
}

func (p Params) withDefaults(d Params) Params {
	if p.Len == 0 {
		p.Len = d.Len
	}
	if p.Fast == 0 {
		p.Fast = d.Fast
	}
	if p.Slow == 0 {
		p.Slow = d.Slow
	}
	if p.Signal == 0 {
		p.Signal = d.Signal
	}
	if p.K == 0 {
		p.K = d.K
	}
	if p.D == 0 {
		p.D = d.D
	}
	if p.Mult == 0 {
		p.Mult = d.Mult
	}
	return p
}
