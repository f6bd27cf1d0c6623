package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
)

// OrderBookDTO 深度端点的响应体。对外契约固定：asks=卖侧、bids=买侧
type OrderBookDTO struct {
	Status         string      `json:"status"`
	LastUpdate     *int64      `json:"lastUpdate"`
	LastTradePrice string      `json:"lastTradePrice"`
	Asks           [][2]string `json:"asks"`
	Bids           [][2]string `json:"bids"`
}

// DepthQueryService 读侧查询服务：只读共享存储，从不触发聚合
type DepthQueryService struct {
	store   domain.SnapshotStore
	markets domain.MarketRepository
	// defaultDepth level=2 时的默认档数
	defaultDepth int
}

// NewDepthQueryService 创建读侧查询服务
func NewDepthQueryService(store domain.SnapshotStore, markets domain.MarketRepository, defaultDepth int) *DepthQueryService {
	if defaultDepth <= 0 {
		defaultDepth = 32
	}
	return &DepthQueryService{
		store:        store,
		markets:      markets,
		defaultDepth: defaultDepth,
	}
}

// GetOrderBook 返回单个市场的深度快照，市场不存在时返回 nil
func (s *DepthQueryService) GetOrderBook(ctx context.Context, symbol string, opts DepthOptions) (*OrderBookDTO, error) {
	market, err := s.markets.BySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, nil
	}
	return s.buildEntry(ctx, market.Symbol, opts)
}

// GetAllOrderBooks 返回全部可交易市场的深度快照
func (s *DepthQueryService) GetAllOrderBooks(ctx context.Context, opts DepthOptions) (map[string]*OrderBookDTO, error) {
	markets, err := s.markets.ListTradable(ctx)
	if err != nil {
		return nil, err
	}
	books := make(map[string]*OrderBookDTO, len(markets))
	for _, market := range markets {
		entry, err := s.buildEntry(ctx, market.Symbol, opts)
		if err != nil {
			return nil, err
		}
		books[market.Symbol] = entry
	}
	return books, nil
}

// buildEntry 从共享存储组装单个市场的响应。缺失的 key 表现为空簿，
// 这是正常可表示状态而不是错误。
func (s *DepthQueryService) buildEntry(ctx context.Context, symbol string, opts DepthOptions) (*OrderBookDTO, error) {
	values, err := s.store.MGet(ctx,
		domain.KeyAsks(symbol),
		domain.KeyBids(symbol),
		domain.KeyLastTradePrice(symbol),
		domain.KeyUpdateTime(symbol),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", symbol, err)
	}

	rows := opts.Rows(s.defaultDepth)
	asks, err := parseView(values[0], rows)
	if err != nil {
		return nil, fmt.Errorf("corrupt asks snapshot for %s: %w", symbol, err)
	}
	bids, err := parseView(values[1], rows)
	if err != nil {
		return nil, fmt.Errorf("corrupt bids snapshot for %s: %w", symbol, err)
	}

	dto := &OrderBookDTO{
		Status:         "ok",
		LastTradePrice: values[2],
		Asks:           asks,
		Bids:           bids,
	}
	if values[3] != "" {
		if ts, err := strconv.ParseInt(values[3], 10, 64); err == nil {
			dto.LastUpdate = &ts
		}
	}
	return dto, nil
}

// parseView 反序列化公开视图并截断到请求的档数
func parseView(raw string, rows int) ([][2]string, error) {
	if raw == "" {
		return [][2]string{}, nil
	}
	var view [][2]string
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, err
	}
	if rows > 0 && rows < len(view) {
		view = view[:rows]
	}
	return view, nil
}
