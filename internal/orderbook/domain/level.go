package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceLevel 价格档（值对象）：同一价格上所有可见订单的剩余量合计与笔数。
// 每轮聚合都重新生成，没有持久化身份；跨轮的 (price, amount, count)
// 相等性即是快照发布器判断“未变化”的依据。
type PriceLevel struct {
	// Price 档位价格
	Price decimal.Decimal
	// Amount 该价格上剩余量的精确十进制合计
	Amount decimal.Decimal
	// Count 该价格上的订单笔数
	Count int64
}

// BuildLevels 将按价格排序的原始档位折叠为价格档序列。
// 价格先按市场精度归一化，相邻的相同价格合并，数量做精确十进制加法，
// 不做任何舍入。输入顺序即输出顺序（卖侧升序、买侧降序由数据源保证）。
func BuildLevels(rows []PriceLevel, pricePrecision int32) []PriceLevel {
	levels := make([]PriceLevel, 0, len(rows))
	for _, row := range rows {
		price := row.Price.Round(pricePrecision)
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(price) {
			levels[n-1].Amount = levels[n-1].Amount.Add(row.Amount)
			levels[n-1].Count += row.Count
			continue
		}
		levels = append(levels, PriceLevel{Price: price, Amount: row.Amount, Count: row.Count})
	}
	return levels
}

// NormalizeNumber 以十进制精确格式序列化数值，去掉小数部分的尾随零。
// 快照里的价格与数量一律用该格式，避免二进制浮点误差。
func NormalizeNumber(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
