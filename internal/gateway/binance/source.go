package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Name 是注册到 Provider 的数据源名称。
const Name = "binance"

const maxHistoryLimit = 1500

// 内部周期 key -> Binance interval 参数。
var intervalMap = map[string]string{
	"1m":  "1m",
	"3m":  "3m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1H":  "1h",
	"4H":  "4h",
	"6H":  "6h",
	"12H": "12h",
	"1D":  "1d",
	"3D":  "3d",
	"1W":  "1w",
	"1M":  "1M",
}

// Source 基于 go-binance SDK 实现 market.Source 与 market.InstrumentLister。
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) Name() string { return Name }

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = market.DefaultMaxBars
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	clean := CleanSymbol(symbol)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	iv, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("binance: unsupported interval %q", interval)
	}
	kls, err := s.client.NewKlinesService().Symbol(clean).Interval(iv).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", clean, iv, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			Time:   kl.OpenTime / 1000,
			Open:   parseFloat(kl.Open),
			High:   parseFloat(kl.High),
			Low:    parseFloat(kl.Low),
			Close:  parseFloat(kl.Close),
			Volume: parseFloat(kl.Volume),
		})
	}
	logger.Debugf("[binance] %s %s 返回 %d 根", clean, iv, len(out))
	return out, nil
}

// ListInstruments 返回状态为 TRADING 的永续合约。
func (s *Source) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}
	out := make([]market.Instrument, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if !strings.EqualFold(sym.Status, "TRADING") {
			continue
		}
		if ct := string(sym.ContractType); ct != "" && !strings.EqualFold(ct, "PERPETUAL") {
			continue
		}
		out = append(out, market.Instrument{
			Source: Name,
			Symbol: strings.ToUpper(sym.Symbol),
			Name:   sym.BaseAsset + "/" + sym.QuoteAsset,
			Status: strings.ToLower(sym.Status),
			Meta: map[string]string{
				"base":  sym.BaseAsset,
				"quote": sym.QuoteAsset,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// CleanSymbol 去掉 "BTC/USDT"、"BTC-USDT" 等写法中的分隔符。
func CleanSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.NewReplacer("/", "", "-", "", "_", "", ":", "").Replace(s)
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
