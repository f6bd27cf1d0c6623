// Package domain 订单簿聚合引擎的领域模型：价格档、订单簿、跳过撮合解析器与仓储接口
package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Side 订单方向
type Side string

const (
	// SideSell 卖方向（ask）
	SideSell Side = "sell"
	// SideBuy 买方向（bid）
	SideBuy Side = "buy"
)

// Opposite 返回对手方向
func (s Side) Opposite() Side {
	if s == SideSell {
		return SideBuy
	}
	return SideSell
}

// OrderStatus 订单生命周期状态
type OrderStatus string

const (
	// OrderStatusNew 已创建，尚未进入订单簿
	OrderStatusNew OrderStatus = "NEW"
	// OrderStatusActive 挂单中，对订单簿可见
	OrderStatusActive OrderStatus = "ACTIVE"
	// OrderStatusInactive 止损单未触发，外部激活器触发后转为 ACTIVE
	OrderStatusInactive OrderStatus = "INACTIVE"
	// OrderStatusDone 已完全成交
	OrderStatusDone OrderStatus = "DONE"
	// OrderStatusCanceled 已撤销
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// ExecutionType 执行类型
type ExecutionType string

const (
	ExecutionTypeLimit      ExecutionType = "LIMIT"
	ExecutionTypeMarket     ExecutionType = "MARKET"
	ExecutionTypeStopLimit  ExecutionType = "STOP_LIMIT"
	ExecutionTypeStopMarket ExecutionType = "STOP_MARKET"
)

// MarketExecutionTypes 无限价的执行类型，聚合时排除（市价单没有可聚合的价格档）
var MarketExecutionTypes = []ExecutionType{ExecutionTypeMarket, ExecutionTypeStopMarket}

// Order 挂单实体，本引擎只读。止损触发价由外部激活器判定，
// 未触发的止损单保持 INACTIVE，对本引擎不可见。
type Order struct {
	gorm.Model
	// Symbol 交易对符号（如 BTCUSDT）
	Symbol string `gorm:"column:symbol;type:varchar(20);index:idx_book,priority:1;not null"`
	// Side 买卖方向
	Side Side `gorm:"column:side;type:varchar(10);index:idx_book,priority:2;not null"`
	// Price 限价（市价单为零值，不参与聚合）
	Price decimal.Decimal `gorm:"column:price;type:decimal(32,18)"`
	// Amount 委托总量
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null"`
	// MatchedAmount 已成交量，剩余量 = Amount - MatchedAmount ≥ 0
	MatchedAmount decimal.Decimal `gorm:"column:matched_amount;type:decimal(32,18);not null"`
	// Status 生命周期状态
	Status OrderStatus `gorm:"column:status;type:varchar(10);index:idx_book,priority:3;not null"`
	// ExecutionType 执行类型
	ExecutionType ExecutionType `gorm:"column:execution_type;type:varchar(15);not null"`
	// StopPrice 止损触发价（仅止损类型有意义）
	StopPrice decimal.Decimal `gorm:"column:stop_price;type:decimal(32,18)"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// RemainingAmount 获取剩余未成交量
func (o *Order) RemainingAmount() decimal.Decimal {
	return o.Amount.Sub(o.MatchedAmount)
}

// IsVisible 订单当前是否对订单簿可见
func (o *Order) IsVisible() bool {
	if o.Status != OrderStatusActive {
		return false
	}
	for _, tp := range MarketExecutionTypes {
		if o.ExecutionType == tp {
			return false
		}
	}
	return true
}
