package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/scheduler"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyQuotes 上游返回了空行情列表或全部无效。
var ErrEmptyQuotes = errors.New("no valid quotes")

// PriceSource 是行情报价的网络来源。
type PriceSource interface {
	Quotes(ctx context.Context, ids []string) ([]Quote, error)
	SpotPrice(ctx context.Context, id string) (float64, error)
}

const (
	TierLive     = "live"
	TierFallback = "fallback"
)

// PriceStatus describes the last resolution of GetSpotPrices.
type PriceStatus struct {
	Tier      string    `json:"tier"`
	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}

// PriceOptions 控制缓存与后台刷新。
type PriceOptions struct {
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	Now             func() time.Time
}

// PriceService 对外提供永不失败的行情列表：上游失败时返回静态快照。
type PriceService struct {
	source  PriceSource
	tables  TablesProvider
	opts    PriceOptions
	flights singleflight.Group

	mu       sync.RWMutex
	cached   []Quote
	cachedAt time.Time
	status   PriceStatus
}

func NewPriceService(source PriceSource, tables TablesProvider, opts PriceOptions) *PriceService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if tables == nil {
		tables = StaticTables(DefaultTables())
	}
	return &PriceService{source: source, tables: tables, opts: opts}
}

// GetSpotPrices returns the live quotes or, on any failure, the static
// snapshot. The result type is the same either way.
func (s *PriceService) GetSpotPrices(ctx context.Context) []Quote {
	if quotes, ok := s.fromCache(); ok {
		return quotes
	}
	return s.resolve(ctx)
}

// Refresh bypasses the cache. Concurrent callers still share one request.
func (s *PriceService) Refresh(ctx context.Context) []Quote {
	return s.resolve(ctx)
}

func (s *PriceService) Status() PriceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start 周期性刷新缓存，阻塞直到 ctx 结束；RefreshInterval<=0 时直接返回。
func (s *PriceService) Start(ctx context.Context) {
	if s.opts.RefreshInterval <= 0 {
		logger.Infof("[market] price refresher disabled")
		<-ctx.Done()
		return
	}
	r := scheduler.NewRepeater("price-refresh", s.opts.RefreshInterval)
	r.RunImmediately = true
	r.Start(ctx, func(ctx context.Context) {
		quotes := s.Refresh(ctx)
		logger.Debugf("[market] price refresh done tier=%s quotes=%d", s.Status().Tier, len(quotes))
	})
}

// SpotPrice 查询单个交易对的现价，作为 K 线的第二级锚定价。
func (s *PriceService) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	if s.source == nil {
		return 0, fmt.Errorf("spot price: no price source")
	}
	inst := s.tables.Tables().InstrumentFor(symbol)
	price, err := s.source.SpotPrice(ctx, inst.ID)
	if err != nil {
		return 0, err
	}
	if !(Quote{ID: inst.ID, Price: price}).Valid() {
		return 0, fmt.Errorf("spot price for %s invalid: %v", inst.ID, price)
	}
	return price, nil
}

func (s *PriceService) fromCache() ([]Quote, bool) {
	if s.opts.CacheTTL <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cached) == 0 || s.opts.Now().Sub(s.cachedAt) >= s.opts.CacheTTL {
		return nil, false
	}
	return append([]Quote(nil), s.cached...), true
}

func (s *PriceService) resolve(ctx context.Context) []Quote {
	tables := s.tables.Tables()
	// 共享请求不跟随单个调用方的取消。
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.flights.Do("quotes", func() (any, error) {
		quotes, err := s.fetchLive(shared, tables.IDs())
		now := s.opts.Now()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			logger.Warnf("[market] prices tier=%s: %v", TierFallback, err)
			s.status = PriceStatus{Tier: TierFallback, UpdatedAt: now, LastError: err.Error()}
			return tables.SnapshotQuotes(), nil
		}
		s.cached = quotes
		s.cachedAt = now
		s.status = PriceStatus{Tier: TierLive, UpdatedAt: now}
		return quotes, nil
	})
	return append([]Quote(nil), v.([]Quote)...)
}

func (s *PriceService) fetchLive(ctx context.Context, ids []string) ([]Quote, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no price source configured")
	}
	quotes, err := s.source.Quotes(ctx, ids)
	if err != nil {
		return nil, err
	}
	valid := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if !q.Valid() {
			return nil, fmt.Errorf("quote %q has invalid price %v", q.ID, q.Price)
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, ErrEmptyQuotes
	}
	return valid, nil
}
