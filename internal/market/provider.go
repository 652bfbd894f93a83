package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"chartlab/internal/logger"
	"chartlab/internal/pkg/circuit"
)

var (
	ErrUnknownSource = errors.New("unknown market source")
	ErrNoData        = errors.New("no candles available")
	ErrInvalidQuery  = errors.New("invalid candle query")
)

// Query 描述一次 K 线请求。空 Source 使用默认数据源，Bars<=0 使用上限。
type Query struct {
	Source   string `json:"source" form:"source"`
	Symbol   string `json:"symbol" form:"symbol"`
	Interval string `json:"interval" form:"interval"`
	Bars     int    `json:"bars" form:"bars"`
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", q.Source, q.Symbol, q.Interval, q.Bars)
}

// ProviderConfig 配置 Provider。
type ProviderConfig struct {
	DefaultSource   string
	MaxBars         int
	RateLimitPerMin int
	// BreakerThreshold 为连续失败多少次后熔断该数据源，0 表示关闭熔断。
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Provider 负责选源、限流、缓存与本地回退，保证返回有序、去重、截断后的序列。
type Provider struct {
	sources       map[string]Source
	defaultSource string
	maxBars       int
	limiter       *rate.Limiter
	cache         CandleCache
	store         CandleStore
	observer      FetchObserver
	breakers      map[string]*circuit.Breaker
	onBreaker     BreakerListener
}

// ProviderOption 用于注入可选依赖。
type ProviderOption func(*Provider)

// WithCache 注入短期缓存。
func WithCache(c CandleCache) ProviderOption {
	return func(p *Provider) { p.cache = c }
}

// WithStore 注入本地 K 线库，用于回退和写穿。
func WithStore(s CandleStore) ProviderOption {
	return func(p *Provider) { p.store = s }
}

// BreakerListener 接收数据源熔断状态变化。
type BreakerListener func(source string, from, to circuit.State)

// WithBreakerListener 注册熔断状态回调（告警、指标），替代默认的日志输出。
func WithBreakerListener(fn BreakerListener) ProviderOption {
	return func(p *Provider) { p.onBreaker = fn }
}

// WithObserver 注入取数观察者（指标）。
func WithObserver(o FetchObserver) ProviderOption {
	return func(p *Provider) { p.observer = o }
}

func NewProvider(cfg ProviderConfig, sources []Source, opts ...ProviderOption) (*Provider, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("至少需要一个数据源")
	}
	p := &Provider{
		sources:       make(map[string]Source, len(sources)),
		defaultSource: strings.ToLower(strings.TrimSpace(cfg.DefaultSource)),
		maxBars:       cfg.MaxBars,
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		p.sources[strings.ToLower(src.Name())] = src
	}
	if p.maxBars <= 0 {
		p.maxBars = DefaultMaxBars
	}
	if cfg.RateLimitPerMin > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60.0), 1)
	}
	if p.defaultSource == "" {
		p.defaultSource = strings.ToLower(sources[0].Name())
	}
	if _, ok := p.sources[p.defaultSource]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, p.defaultSource)
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.BreakerThreshold > 0 {
		p.initBreakers(cfg.BreakerThreshold, cfg.BreakerCooldown)
	}
	return p, nil
}

func (p *Provider) initBreakers(threshold int, cooldown time.Duration) {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	p.breakers = make(map[string]*circuit.Breaker, len(p.sources))
	for name := range p.sources {
		var opts []circuit.Option
		if p.onBreaker != nil {
			source, listener := name, p.onBreaker
			opts = append(opts, circuit.WithStateChange(func(_ string, from, to circuit.State) {
				listener(source, from, to)
			}))
		}
		p.breakers[name] = circuit.New("market."+name, threshold, cooldown, opts...)
	}
}

// Sources 返回已注册的数据源名称。
func (p *Provider) Sources() []string {
	out := make([]string, 0, len(p.sources))
	for name := range p.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultSource 返回未指定 source 时使用的数据源。
func (p *Provider) DefaultSource() string { return p.defaultSource }

// MaxBars 返回单次请求的根数上限。
func (p *Provider) MaxBars() int { return p.maxBars }

// Resolve 补全默认值并校验查询参数。
func (p *Provider) Resolve(q Query) (Query, error) {
	q.Source = strings.ToLower(strings.TrimSpace(q.Source))
	if q.Source == "" {
		q.Source = p.defaultSource
	}
	if _, ok := p.sources[q.Source]; !ok {
		return q, fmt.Errorf("%w: %s", ErrUnknownSource, q.Source)
	}
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		return q, fmt.Errorf("%w: symbol is required", ErrInvalidQuery)
	}
	iv, err := ParseInterval(q.Interval)
	if err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	q.Interval = iv.Key
	if q.Bars <= 0 || q.Bars > p.maxBars {
		q.Bars = p.maxBars
	}
	return q, nil
}

// Candles 返回按时间升序、去重且最多 Bars 根的 K 线。
// 上游失败时回退到本地库；本地也没有数据时返回错误。
func (p *Provider) Candles(ctx context.Context, q Query) (Series, error) {
	q, err := p.Resolve(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	key := q.cacheKey()
	if p.cache != nil {
		if hit, ok := p.cache.Get(ctx, key); ok {
			p.observe(q.Source, "hit", start)
			return append(Series(nil), hit...), nil
		}
	}
	rows, err := p.fetch(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if fallback, ok := p.fromStore(ctx, q); ok {
			logger.Warnf("[market] %s %s %s 拉取失败，使用本地数据 (%d 根): %v", q.Source, q.Symbol, q.Interval, len(fallback), err)
			p.observe(q.Source, "fallback", start)
			return fallback, nil
		}
		p.observe(q.Source, "error", start)
		return nil, fmt.Errorf("fetch %s %s %s: %w", q.Source, q.Symbol, q.Interval, err)
	}
	series := Normalize(rows, q.Bars)
	if err := Validate(series); err != nil {
		p.observe(q.Source, "error", start)
		return nil, err
	}
	if len(series) == 0 {
		p.observe(q.Source, "error", start)
		return nil, fmt.Errorf("%w: %s %s %s", ErrNoData, q.Source, q.Symbol, q.Interval)
	}
	if p.store != nil {
		if _, err := p.store.Insert(ctx, storeSymbol(q), q.Interval, series); err != nil {
			logger.Warnf("[market] 写入本地 K 线失败 %s %s: %v", q.Symbol, q.Interval, err)
		}
	}
	if p.cache != nil {
		p.cache.Set(ctx, key, append([]Candle(nil), series...))
	}
	p.observe(q.Source, "ok", start)
	logger.Debugf("[market] %s %s", q.Source, series.Summary(q.Interval))
	return series, nil
}

// Instruments 列出指定数据源的交易对。
func (p *Provider) Instruments(ctx context.Context, source string) ([]Instrument, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = p.defaultSource
	}
	src, ok := p.sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	lister, ok := src.(InstrumentLister)
	if !ok {
		return nil, fmt.Errorf("source %s cannot list instruments", source)
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return lister.ListInstruments(ctx)
}

// fetch 经过熔断与限流后请求上游。熔断打开时直接失败，由调用方走本地回退。
func (p *Provider) fetch(ctx context.Context, q Query) ([]Candle, error) {
	cb := p.breakers[q.Source]
	if !cb.Allow() {
		return nil, circuit.ErrOpen
	}
	if err := p.wait(ctx); err != nil {
		cb.Abort()
		return nil, err
	}
	rows, err := p.sources[q.Source].FetchHistory(ctx, q.Symbol, q.Interval, q.Bars)
	if err != nil {
		if ctx.Err() != nil {
			cb.Abort()
		} else {
			cb.Failure()
		}
		return nil, err
	}
	cb.Success()
	return rows, nil
}

// BreakerState 返回数据源熔断器状态，未启用熔断时恒为 CLOSED。
func (p *Provider) BreakerState(source string) circuit.State {
	return p.breakers[strings.ToLower(source)].State()
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Provider) fromStore(ctx context.Context, q Query) (Series, bool) {
	if p.store == nil {
		return nil, false
	}
	rows, err := p.store.Latest(ctx, storeSymbol(q), q.Interval, q.Bars)
	if err != nil || len(rows) == 0 {
		return nil, false
	}
	series := Normalize(rows, q.Bars)
	if len(series) == 0 {
		return nil, false
	}
	return series, true
}

func (p *Provider) observe(source, outcome string, start time.Time) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveFetch(source, outcome, time.Since(start).Seconds())
}

// storeSymbol 按数据源区分本地库，避免不同市场的同名代码互相覆盖。
func storeSymbol(q Query) string {
	return q.Source + "_" + q.Symbol
}
