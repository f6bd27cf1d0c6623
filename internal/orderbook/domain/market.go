package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Market 交易对实体，本引擎只读
type Market struct {
	gorm.Model
	// Symbol 交易对符号（如 BTCUSDT）
	Symbol string `gorm:"column:symbol;type:varchar(20);uniqueIndex;not null"`
	// BaseCurrency 基础币种
	BaseCurrency string `gorm:"column:base_currency;type:varchar(10);not null"`
	// QuoteCurrency 计价币种
	QuoteCurrency string `gorm:"column:quote_currency;type:varchar(10);not null"`
	// IsTradable 是否可交易
	IsTradable bool `gorm:"column:is_tradable;not null;default:true"`
	// PricePrecision 价格小数位数，聚合时价格按该精度归一化后折叠
	PricePrecision int32 `gorm:"column:price_precision;not null;default:2"`
	// AmountPrecision 数量小数位数，仅用于展示，聚合中的数量不做舍入
	AmountPrecision int32 `gorm:"column:amount_precision;not null;default:8"`
}

// TableName 指定表名
func (Market) TableName() string {
	return "markets"
}

// Trade 成交记录实体，由外部撮合组件写入，本引擎只读取最新成交价
type Trade struct {
	gorm.Model
	// Symbol 交易对符号
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null"`
	// Price 成交价格
	Price decimal.Decimal `gorm:"column:price;type:decimal(32,18);not null"`
	// Amount 成交数量
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,18);not null"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}
