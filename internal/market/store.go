package market

import "context"

// CandleCache 是拉取结果的短期缓存，未命中时返回 false。
type CandleCache interface {
	Get(ctx context.Context, key string) ([]Candle, bool)
	Set(ctx context.Context, key string, candles []Candle)
}

// Instrument 描述一个可交易标的。
type Instrument struct {
	Source string            `json:"source"`
	Symbol string            `json:"symbol"`
	Name   string            `json:"name,omitempty"`
	Status string            `json:"status,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// InstrumentLister 由支持列出交易对的数据源实现。
type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]Instrument, error)
}

// FetchObserver 接收每次取数的结果（hit/ok/fallback/error）。
type FetchObserver interface {
	ObserveFetch(source, outcome string, seconds float64)
}
