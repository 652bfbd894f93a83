package bitget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Name 是注册到 Provider 的数据源名称。
const Name = "bitget"

const maxHistoryLimit = 1000

// 内部周期 key -> Bitget granularity（秒）。
var granularity = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1H":  3600,
	"4H":  14400,
	"6H":  21600,
	"12H": 43200,
	"1D":  86400,
	"3D":  86400 * 3,
	"1W":  604800,
	"1M":  2592000,
}

// Config 配置 Bitget USDT 永续 REST 数据源。
type Config struct {
	RESTBaseURL string
	ProductType string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	c.RESTBaseURL = strings.TrimRight(strings.TrimSpace(c.RESTBaseURL), "/")
	if c.RESTBaseURL == "" {
		c.RESTBaseURL = "https://api.bitget.com"
	}
	c.ProductType = strings.ToUpper(strings.TrimSpace(c.ProductType))
	if c.ProductType == "" {
		c.ProductType = "UMCBL"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Source 用 /api/mix/v1/market/candles 拉取最近 N 根（不传 start/end）。
type Source struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	return &Source{
		cfg:    final,
		client: &http.Client{Timeout: final.HTTPTimeout},
	}
}

func (s *Source) Name() string { return Name }

// ContractSymbol 补全产品后缀，例如 BTCUSDT -> BTCUSDT_UMCBL。
func (s *Source) ContractSymbol(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.Contains(sym, "_") {
		return sym
	}
	return sym + "_" + s.cfg.ProductType
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	gran, ok := granularity[interval]
	if !ok {
		return nil, fmt.Errorf("bitget: unsupported interval %q", interval)
	}
	sym := s.ContractSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = market.DefaultMaxBars
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	q := url.Values{}
	q.Set("symbol", sym)
	q.Set("granularity", strconv.FormatInt(gran, 10))
	q.Set("limit", strconv.Itoa(limit))
	body, err := s.get(ctx, "/api/mix/v1/market/candles", q)
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("bitget: unexpected response: %s", snippet(body))
	}
	out := make([]market.Candle, 0, len(root.Array()))
	root.ForEach(func(_, row gjson.Result) bool {
		if c, ok := parseRow(row); ok {
			out = append(out, c)
		}
		return true
	})
	logger.Debugf("[bitget] %s granularity=%d 返回 %d 根", sym, gran, len(out))
	return out, nil
}

// ListInstruments 先走 v2 合约列表，失败再用 v1；只保留 normal/listed。
func (s *Source) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	type endpoint struct {
		path        string
		productType string
	}
	endpoints := []endpoint{
		{path: "/api/v2/mix/market/contracts", productType: "usdt-futures"},
		{path: "/api/mix/v1/market/contracts", productType: strings.ToLower(s.cfg.ProductType)},
	}
	var lastErr error
	for _, ep := range endpoints {
		body, err := s.get(ctx, ep.path, url.Values{"productType": {ep.productType}})
		if err != nil {
			lastErr = err
			continue
		}
		list := parseContracts(body)
		if len(list) > 0 {
			return list, nil
		}
		lastErr = fmt.Errorf("bitget: empty contract list from %s", ep.path)
	}
	return nil, lastErr
}

func (s *Source) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := s.cfg.RESTBaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bitget %d: %s", resp.StatusCode, snippet(body))
	}
	return body, nil
}

// 行格式: ["ts(ms)","open","high","low","close","volume","turnover"]
func parseRow(row gjson.Result) (market.Candle, bool) {
	ts, ok1 := number(row.Get("0"))
	o, ok2 := number(row.Get("1"))
	h, ok3 := number(row.Get("2"))
	l, ok4 := number(row.Get("3"))
	c, ok5 := number(row.Get("4"))
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return market.Candle{}, false
	}
	out := market.Candle{Time: int64(ts) / 1000, Open: o, High: h, Low: l, Close: c}
	if v, ok := number(row.Get("5")); ok {
		out.Volume = v
	}
	return out, true
}

func parseContracts(body []byte) []market.Instrument {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil
	}
	seen := make(map[string]struct{})
	var out []market.Instrument
	data.ForEach(func(_, it gjson.Result) bool {
		status := it.Get("symbolStatus").String()
		if status == "" {
			status = it.Get("status").String()
		}
		status = strings.ToLower(status)
		if status != "normal" && status != "listed" {
			return true
		}
		sym := contractName(it)
		if sym == "" {
			return true
		}
		if _, dup := seen[sym]; dup {
			return true
		}
		seen[sym] = struct{}{}
		out = append(out, market.Instrument{
			Source: Name,
			Symbol: sym,
			Name:   it.Get("baseCoin").String() + "/" + it.Get("quoteCoin").String(),
			Status: status,
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// v2 的 symbol 是 BTCUSDT；v1 的 symbol 带 _UMCBL 后缀，优先用 symbolName。
func contractName(it gjson.Result) string {
	for _, key := range []string{"symbolName", "symbol"} {
		if v := it.Get(key); v.Type == gjson.String && v.Str != "" {
			name := strings.ToUpper(v.Str)
			if i := strings.IndexByte(name, '_'); i > 0 {
				name = name[:i]
			}
			return name
		}
	}
	base, quote := it.Get("baseCoin").String(), it.Get("quoteCoin").String()
	if base != "" && quote != "" {
		return strings.ToUpper(base + quote)
	}
	return ""
}

func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
