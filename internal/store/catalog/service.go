package catalog

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Lister 是目录的上游，market.Provider 满足该接口。
type Lister interface {
	DefaultSource() string
	Instruments(ctx context.Context, source string) ([]market.Instrument, error)
}

// Service 在 TTL 内直接读库，过期后向上游刷新；刷新失败时退回旧目录。
type Service struct {
	store  *Store
	lister Lister
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
}

func NewService(store *Store, lister Lister, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Service{store: store, lister: lister, ttl: ttl, now: time.Now}
}

// Symbols 返回某数据源的交易对，query 非空时按代码/名称过滤。
func (s *Service) Symbols(ctx context.Context, source, query string, limit int) ([]market.Instrument, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = s.lister.DefaultSource()
	}
	last, ok, err := s.store.LastSync(ctx, source)
	if err != nil {
		return nil, err
	}
	if !ok || s.now().Sub(last) >= s.ttl {
		if _, err := s.Refresh(ctx, source); err != nil {
			if !ok {
				return nil, err
			}
			logger.Warnf("[catalog] 刷新 %s 失败，使用 %s 的旧目录: %v", source, last.Format(time.RFC3339), err)
		}
	}
	return s.store.Search(ctx, source, query, limit)
}

// Refresh 从上游拉取并覆盖目录，并发调用会合并为一次。
func (s *Service) Refresh(ctx context.Context, source string) (int, error) {
	v, err, _ := s.group.Do(source, func() (any, error) {
		list, err := s.lister.Instruments(ctx, source)
		if err != nil {
			return 0, err
		}
		n, err := s.store.Replace(ctx, source, list, s.now())
		if err != nil {
			return 0, err
		}
		logger.Infof("[catalog] %s 目录已刷新，共 %d 个交易对", source, n)
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
