package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Name 是注册到 Provider 的数据源名称。
const Name = "eastmoney"

const maxHistoryLimit = 1000

// 内部周期 key -> 东方财富 klt。
var kltMap = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1H":  60,
	"1D":  101,
	"1W":  102,
	"1M":  103,
}

// 行情时间按北京时间解析；固定时区，不依赖系统 tzdata。
var beijing = time.FixedZone("CST", 8*3600)

var (
	secidPattern = regexp.MustCompile(`^[01]\.\d{6}$`)
	codePattern  = regexp.MustCompile(`^(sh|sz)?(\d{6})$`)
)

// Config 配置东方财富 A 股 K 线接口。
type Config struct {
	RESTBaseURL string
	Referer     string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	c.RESTBaseURL = strings.TrimRight(strings.TrimSpace(c.RESTBaseURL), "/")
	if c.RESTBaseURL == "" {
		c.RESTBaseURL = "https://push2his.eastmoney.com"
	}
	if strings.TrimSpace(c.Referer) == "" {
		c.Referer = "https://quote.eastmoney.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Source 实现 A 股日线/分钟线拉取（前复权）。
type Source struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	return &Source{cfg: final, client: &http.Client{Timeout: final.HTTPTimeout}}
}

func (s *Source) Name() string { return Name }

// Secid 把 600519 / SH600519 / sz000001 / 1.600519 转成东方财富 secid。
// 无交易所前缀时 6 开头视为上海，其余视为深圳。
func Secid(symbol string) (string, bool) {
	raw := strings.ToLower(strings.TrimSpace(symbol))
	if secidPattern.MatchString(raw) {
		return raw, true
	}
	m := codePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	code := m[2]
	switch m[1] {
	case "sh":
		return "1." + code, true
	case "sz":
		return "0." + code, true
	}
	if strings.HasPrefix(code, "6") {
		return "1." + code, true
	}
	return "0." + code, true
}

// DisplaySymbol 返回 SH600519 / SZ000001 形式。
func DisplaySymbol(secid string) string {
	if len(secid) < 3 {
		return strings.ToUpper(secid)
	}
	if strings.HasPrefix(secid, "1.") {
		return "SH" + secid[2:]
	}
	return "SZ" + secid[2:]
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	klt, ok := kltMap[interval]
	if !ok {
		return nil, fmt.Errorf("eastmoney: unsupported interval %q", interval)
	}
	secid, ok := Secid(symbol)
	if !ok {
		return nil, fmt.Errorf("eastmoney: cannot resolve secid for %q", symbol)
	}
	if limit <= 0 {
		limit = market.DefaultMaxBars
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	q := url.Values{}
	q.Set("secid", secid)
	q.Set("fields1", "f1,f2,f3,f4")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	q.Set("klt", strconv.Itoa(klt))
	q.Set("fqt", "1")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.RESTBaseURL+"/api/qt/stock/kline/get?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", s.cfg.Referer)
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
		return nil, fmt.Errorf("eastmoney %d: %s", resp.StatusCode, truncate(body))
	}
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.IsArray() || len(klines.Array()) == 0 {
		return nil, fmt.Errorf("eastmoney: empty klines for %s", secid)
	}
	out := make([]market.Candle, 0, len(klines.Array()))
	klines.ForEach(func(_, row gjson.Result) bool {
		if c, ok := parseRow(row.String()); ok {
			out = append(out, c)
		}
		return true
	})
	logger.Debugf("[eastmoney] %s klt=%d 返回 %d 根", secid, klt, len(out))
	return out, nil
}

// ListInstruments 返回内置的常用 A 股列表。
func (s *Source) ListInstruments(context.Context) ([]market.Instrument, error) {
	out := make([]market.Instrument, len(popular))
	for i, p := range popular {
		out[i] = market.Instrument{
			Source: Name,
			Symbol: DisplaySymbol(p.secid),
			Name:   p.name,
			Status: "listed",
			Meta:   map[string]string{"secid": p.secid},
		}
	}
	return out, nil
}

var popular = []struct{ secid, name string }{
	{"1.600519", "贵州茅台"},
	{"1.601318", "中国平安"},
	{"1.600036", "招商银行"},
	{"1.601398", "工商银行"},
	{"0.000001", "平安银行"},
	{"0.000333", "美的集团"},
	{"0.000858", "五粮液"},
	{"0.300750", "宁德时代"},
	{"0.002594", "比亚迪"},
	{"1.601988", "中国银行"},
}

// 行格式: "2024-08-01[ 14:55],open,close,high,low,volume,amount"。
// 只有日期的行按当日 15:00 收盘计。
func parseRow(row string) (market.Candle, bool) {
	parts := strings.Split(row, ",")
	if len(parts) < 5 {
		return market.Candle{}, false
	}
	ts, err := parseTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return market.Candle{}, false
	}
	var vals [5]float64
	for i := 1; i <= 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return market.Candle{}, false
		}
		vals[i] = v
	}
	c := market.Candle{
		Time:  ts.Unix(),
		Open:  vals[1],
		Close: vals[2],
		High:  vals[3],
		Low:   vals[4],
	}
	if len(parts) > 5 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64); err == nil {
			c.Volume = v
		}
	}
	return c, true
}

func parseTime(s string) (time.Time, error) {
	if len(s) > 10 {
		return time.ParseInLocation("2006-01-02 15:04", s, beijing)
	}
	return time.ParseInLocation("2006-01-02 15:04", s+" 15:00", beijing)
}

func truncate(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
