package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
)

// memStore 内存版共享存储，记录每个 key 的写入次数，可注入失败
type memStore struct {
	mu      sync.Mutex
	values  map[string]string
	writes  map[string]int
	failure error
}

func newMemStore() *memStore {
	return &memStore{
		values: make(map[string]string),
		writes: make(map[string]int),
	}
}

func (s *memStore) SetMany(_ context.Context, values map[string]string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	for key, value := range values {
		s.values[key] = value
		s.writes[key]++
	}
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memStore) MGet(_ context.Context, keys ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(keys))
	for i, key := range keys {
		result[i] = s.values[key]
	}
	return result, nil
}

func (s *memStore) writeCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

func (s *memStore) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// fakeOrderRepo 按 (symbol, side) 返回预置档位
type fakeOrderRepo struct {
	mu     sync.Mutex
	rows   map[string]map[domain.Side][]domain.PriceLevel
	failed map[string]error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		rows:   make(map[string]map[domain.Side][]domain.PriceLevel),
		failed: make(map[string]error),
	}
}

func (r *fakeOrderRepo) setRows(symbol string, side domain.Side, rows []domain.PriceLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[symbol] == nil {
		r.rows[symbol] = make(map[domain.Side][]domain.PriceLevel)
	}
	r.rows[symbol][side] = rows
}

func (r *fakeOrderRepo) ActiveLevels(_ context.Context, market *domain.Market, side domain.Side, limit int) ([]domain.PriceLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed[market.Symbol]; err != nil {
		return nil, err
	}
	rows := r.rows[market.Symbol][side]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// fakeMarketRepo 内存市场表
type fakeMarketRepo struct {
	markets []*domain.Market
	failure error
}

func (r *fakeMarketRepo) ListTradable(_ context.Context) ([]*domain.Market, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	return r.markets, nil
}

func (r *fakeMarketRepo) BySymbol(_ context.Context, symbol string) (*domain.Market, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	for _, m := range r.markets {
		if m.Symbol == symbol {
			return m, nil
		}
	}
	return nil, nil
}

// fakeTradeRepo 固定最新成交价
type fakeTradeRepo struct {
	price decimal.Decimal
	ok    bool
}

func (r *fakeTradeRepo) LastPrice(_ context.Context, _ string) (decimal.Decimal, bool, error) {
	return r.price, r.ok, nil
}

// fakeProducer 记录发出的深度事件
type fakeProducer struct {
	mu     sync.Mutex
	events []DepthEvent
}

func (p *fakeProducer) SendMessage(_ context.Context, _ string, _ string, value interface{}) error {
	event, ok := value.(DepthEvent)
	if !ok {
		return errors.New("unexpected event type")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func testMarket(symbol string) *domain.Market {
	return &domain.Market{
		Symbol:          symbol,
		BaseCurrency:    "BTC",
		QuoteCurrency:   "USDT",
		IsTradable:      true,
		PricePrecision:  2,
		AmountPrecision: 8,
	}
}

func level(price, amount string, count int64) domain.PriceLevel {
	return domain.PriceLevel{
		Price:  decimal.RequireFromString(price),
		Amount: decimal.RequireFromString(amount),
		Count:  count,
	}
}
