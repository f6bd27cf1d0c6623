// Package mysql 基于 GORM 的订单/市场/成交只读仓储实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

// levelRow GROUP BY price 的扫描载体
type levelRow struct {
	Price  decimal.Decimal `gorm:"column:price"`
	Amount decimal.Decimal `gorm:"column:amount"`
	Count  int64           `gorm:"column:count"`
}

// ActiveLevels 聚合单侧可见挂单。只有 ACTIVE 且非市价执行类型的订单可见；
// 未触发的止损单停留在 INACTIVE，由外部激活器翻转，本查询天然不包含。
// 按价格（竞争力）排序后截断，保证只丢簿尾。
func (r *orderRepository) ActiveLevels(ctx context.Context, market *domain.Market, side domain.Side, limit int) ([]domain.PriceLevel, error) {
	ordering := "price ASC"
	if side == domain.SideBuy {
		ordering = "price DESC"
	}

	var rows []levelRow
	err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("price, SUM(amount - matched_amount) AS amount, COUNT(*) AS count").
		Where("symbol = ? AND side = ? AND status = ?", market.Symbol, side, domain.OrderStatusActive).
		Where("execution_type NOT IN ?", domain.MarketExecutionTypes).
		Group("price").
		Having("SUM(amount - matched_amount) > 0").
		Order(ordering).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active levels for %s %s: %w", market.Symbol, side, err)
	}

	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, domain.PriceLevel{Price: row.Price, Amount: row.Amount, Count: row.Count})
	}
	return levels, nil
}

type marketRepository struct {
	db *gorm.DB
}

// NewMarketRepository 创建市场仓储实例
func NewMarketRepository(db *gorm.DB) domain.MarketRepository {
	return &marketRepository{db: db}
}

// ListTradable 返回全部可交易市场
func (r *marketRepository) ListTradable(ctx context.Context) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.WithContext(ctx).
		Where("is_tradable = ?", true).
		Order("symbol").
		Find(&markets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tradable markets: %w", err)
	}
	return markets, nil
}

// BySymbol 按符号查找市场，不存在时返回 nil
func (r *marketRepository) BySymbol(ctx context.Context, symbol string) (*domain.Market, error) {
	var market domain.Market
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", symbol, err)
	}
	return &market, nil
}

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建成交仓储实例
func NewTradeRepository(db *gorm.DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// LastPrice 返回市场最新成交价
func (r *tradeRepository) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	var trade domain.Trade
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id DESC").
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("failed to get last trade price for %s: %w", symbol, err)
	}
	return trade.Price, true, nil
}
