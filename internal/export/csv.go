package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chartlab/internal/backtest"
)

// 时间格式与浏览器 toISOString 一致（毫秒 + Z）。
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	tradeHeader  = []string{"entryTime", "exitTime", "entryPrice", "exitPrice", "side", "pnlPct"}
	equityHeader = []string{"time", "value"}
)

// Kind 区分导出的表。
type Kind string

const (
	KindTrades Kind = "trades"
	KindEquity Kind = "equity"
)

// ParseKind 解析导出类型，空值视为 trades。
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindTrades:
		return KindTrades, nil
	case KindEquity:
		return KindEquity, nil
	default:
		return "", fmt.Errorf("unknown export kind %q", s)
	}
}

// FileName 生成下载文件名，例如 BTCUSDT_1H_dualEMA_trades.csv。
func FileName(symbol, interval string, kind Kind) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if kind == KindEquity {
		return fmt.Sprintf("%s_%s_equity_curve.csv", symbol, interval)
	}
	return fmt.Sprintf("%s_%s_dualEMA_trades.csv", symbol, interval)
}

// WriteTrades 写出交易明细；价格保留 precision 位小数，pnlPct 以百分比保留 4 位。
func WriteTrades(w io.Writer, trades []backtest.Trade, precision int) error {
	prec := clampPrecision(precision)
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	hundred := decimal.NewFromInt(100)
	for _, t := range trades {
		row := []string{
			formatTime(t.EntryTime),
			formatTime(t.ExitTime),
			decimal.NewFromFloat(t.EntryPrice).StringFixed(prec),
			decimal.NewFromFloat(t.ExitPrice).StringFixed(prec),
			string(t.Side),
			decimal.NewFromFloat(t.PnLPct).Mul(hundred).StringFixed(4) + "%",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquity 写出权益曲线，value 保留 precision 位小数。
func WriteEquity(w io.Writer, curve []backtest.EquityPoint, precision int) error {
	prec := clampPrecision(precision)
	cw := csv.NewWriter(w)
	if err := cw.Write(equityHeader); err != nil {
		return err
	}
	for _, p := range curve {
		if err := cw.Write([]string{formatTime(p.Time), decimal.NewFromFloat(p.Value).StringFixed(prec)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write 按 kind 写出对应的表。
func Write(w io.Writer, kind Kind, res backtest.Result, precision int) error {
	if kind == KindEquity {
		return WriteEquity(w, res.EquityCurve, precision)
	}
	return WriteTrades(w, res.Trades, precision)
}

func formatTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(timeLayout)
}

// clampPrecision 把小数位限制在 [0,16]，StringFixed 需要 int32。
func clampPrecision(p int) int32 {
	if p < 0 {
		return 0
	}
	if p > 16 {
		return 16
	}
	return int32(p)
}
