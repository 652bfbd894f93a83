package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Name 是注册到 Provider 的数据源名称。
const Name = "gate"

const (
	gateSettle          = "usdt"
	gateMaxHistoryLimit = 2000
)

// Gate 不支持 3m/6H/12H/3D。
var intervalMap = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1H":  "1h",
	"4H":  "4h",
	"1D":  "1d",
	"1W":  "7d",
	"1M":  "30d",
}

// Source 基于 gateapi-go 实现 market.Source 与 market.InstrumentLister。
type Source struct {
	cfg  Config
	rest *gateapi.APIClient
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	restClient, err := newRESTClient(final)
	if err != nil {
		return nil, err
	}
	return &Source{cfg: final, rest: restClient}, nil
}

func newRESTClient(cfg Config) (*gateapi.APIClient, error) {
	conf := gateapi.NewConfiguration()
	conf.BasePath = cfg.RESTBaseURL
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid gate REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	conf.HTTPClient = httpClient
	return gateapi.NewAPIClient(conf), nil
}

func (s *Source) Name() string { return Name }

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = market.DefaultMaxBars
	}
	if limit > gateMaxHistoryLimit {
		limit = gateMaxHistoryLimit
	}
	contract := ContractName(symbol)
	if contract == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	gateInterval, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("gate: unsupported interval %q", interval)
	}

	opts := &gateapi.ListFuturesCandlesticksOpts{
		Limit:    optional.NewInt32(int32(limit)),
		Interval: optional.NewString(gateInterval),
	}
	kls, _, err := s.rest.FuturesApi.ListFuturesCandlesticks(ctx, gateSettle, contract, opts)
	if err != nil {
		logger.Errorf("[gate] fetch kline failed %s %s limit=%d: %v", contract, interval, limit, err)
		return nil, err
	}

	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		out = append(out, market.Candle{
			Time:   int64(kl.T),
			Open:   parseFloat(kl.O),
			High:   parseFloat(kl.H),
			Low:    parseFloat(kl.L),
			Close:  parseFloat(kl.C),
			Volume: parseFloat(kl.Sum),
		})
	}
	return out, nil
}

// ListInstruments 列出仍在交易的 USDT 永续合约，Symbol 去掉下划线（BTC_USDT -> BTCUSDT）。
func (s *Source) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	contracts, _, err := s.rest.FuturesApi.ListFuturesContracts(ctx, gateSettle, nil)
	if err != nil {
		return nil, fmt.Errorf("gate contracts: %w", err)
	}
	out := make([]market.Instrument, 0, len(contracts))
	for _, c := range contracts {
		if c.InDelisting || c.Name == "" {
			continue
		}
		name := strings.ToUpper(c.Name)
		out = append(out, market.Instrument{
			Source: Name,
			Symbol: strings.ReplaceAll(name, "_", ""),
			Name:   strings.ReplaceAll(name, "_", "/"),
			Status: "listed",
			Meta:   map[string]string{"contract": name},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// ContractName 把 BTCUSDT / btc-usdt / BTC/USDT 转成 Gate 合约名 BTC_USDT。
func ContractName(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("/", "_", "-", "_", ":", "_").Replace(s)
	if s == "" || strings.Contains(s, "_") {
		return s
	}
	for _, quote := range []string{"USDT", "USD"} {
		if base := strings.TrimSuffix(s, quote); base != s && base != "" {
			return base + "_" + quote
		}
	}
	return s
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
