package market

import "context"

// Source 统一不同行情接口的历史 K 线拉取。
// 返回结果不要求有序，Provider 会统一 Normalize。
type Source interface {
	Name() string
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// CandleStore 是 K 线的本地持久化（用于数据源失败时回退）。
type CandleStore interface {
	Insert(ctx context.Context, symbol, interval string, candles []Candle) (int, error)
	Latest(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
