package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderBook 单个市场单侧的订单簿快照。
// levels 为聚合产出的原始档位，构造后不再变化；active 是解析器做跳过撮合
// 时消耗的工作副本。索引 0 恒为该侧最优价（卖侧最低、买侧最高）。
// 实例每轮聚合重建，发布后即丢弃，至多被一次解析器遍历修改。
type OrderBook struct {
	side   Side
	symbol string

	levels []PriceLevel
	active []PriceLevel

	skips    int
	hasMatch bool
}

// NewOrderBook 构造订单簿并校验排序不变量：卖侧价格严格递增、买侧严格递减、
// 数量全部为正。违例视为上游聚合的逻辑错误，直接拒绝构造。
func NewOrderBook(side Side, symbol string, levels []PriceLevel) (*OrderBook, error) {
	for i, level := range levels {
		if !level.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: %s level %s amount %s",
				ErrNonPositiveLevel, side, level.Price, level.Amount)
		}
		if i == 0 {
			continue
		}
		prev := levels[i-1].Price
		if side == SideSell && level.Price.LessThanOrEqual(prev) ||
			side == SideBuy && level.Price.GreaterThanOrEqual(prev) {
			return nil, fmt.Errorf("%w: %s side %s after %s",
				ErrUnsortedLevels, side, level.Price, prev)
		}
	}

	active := make([]PriceLevel, len(levels))
	copy(active, levels)

	return &OrderBook{
		side:   side,
		symbol: symbol,
		levels: levels,
		active: active,
	}, nil
}

// Side 返回订单簿方向
func (b *OrderBook) Side() Side { return b.side }

// Symbol 返回市场符号
func (b *OrderBook) Symbol() string { return b.symbol }

// Len 返回原始档位数
func (b *OrderBook) Len() int { return len(b.levels) }

// ActiveLen 返回净额后仍存活的档位数
func (b *OrderBook) ActiveLen() int { return len(b.active) }

// HasMatch 解析器是否在本簿上净掉过数量
func (b *OrderBook) HasMatch() bool { return b.hasMatch }

// Skips 被整档净掉（跳过）的档位数
func (b *OrderBook) Skips() int { return b.skips }

// BestPrice 净额前的最优价，空簿时 ok 为 false
func (b *OrderBook) BestPrice() (decimal.Decimal, bool) {
	if len(b.levels) == 0 {
		return decimal.Decimal{}, false
	}
	return b.levels[0].Price, true
}

// BestActivePrice 净额后的最优价，仅在解析器运行后有意义
func (b *OrderBook) BestActivePrice() (decimal.Decimal, bool) {
	if len(b.active) == 0 {
		return decimal.Decimal{}, false
	}
	return b.active[0].Price, true
}

// Top 返回当前最优存活档
func (b *OrderBook) Top() (PriceLevel, bool) {
	if len(b.active) == 0 {
		return PriceLevel{}, false
	}
	return b.active[0], true
}

// ReduceLevel 从指定价格的最优档扣减 delta。结果为零时整档移除，下一档
// 成为新的索引 0。扣减永不产生负数量：delta 超过档位剩余量属于不变量违例。
// 仅供跳过撮合解析器使用。
func (b *OrderBook) ReduceLevel(price, delta decimal.Decimal) error {
	if len(b.active) == 0 || !b.active[0].Price.Equal(price) {
		return fmt.Errorf("%w: %s side price %s", ErrLevelMismatch, b.side, price)
	}
	top := &b.active[0]
	if delta.GreaterThan(top.Amount) {
		return fmt.Errorf("%w: %s side price %s amount %s delta %s",
			ErrNegativeReduce, b.side, top.Price, top.Amount, delta)
	}
	top.Amount = top.Amount.Sub(delta)
	if top.Amount.IsZero() {
		b.active = b.active[1:]
		b.skips++
	}
	return nil
}

// PublicView 返回前 maxLevels 档的公开视图，格式为 [price, amount] 的
// 十进制字符串对。maxLevels ≤ 0 或超过可用档数时返回全部存活档。
func (b *OrderBook) PublicView(maxLevels int) [][2]string {
	n := len(b.active)
	if maxLevels > 0 && maxLevels < n {
		n = maxLevels
	}
	view := make([][2]string, 0, n)
	for _, level := range b.active[:n] {
		view = append(view, [2]string{NormalizeNumber(level.Price), NormalizeNumber(level.Amount)})
	}
	return view
}

// LastActivePrice 市场深度边界价：沿存活档累计订单笔数，达到 maxActiveOrders
// 时停在该档。累计笔数不足 smallMarketSize 的小市场不发布该值。
func (b *OrderBook) LastActivePrice(maxActiveOrders, smallMarketSize int) (decimal.Decimal, bool) {
	var total int64
	var last PriceLevel
	for _, level := range b.active {
		last = level
		total += level.Count
		if total >= int64(maxActiveOrders) {
			break
		}
	}
	if total >= int64(smallMarketSize) {
		return last.Price, true
	}
	return decimal.Decimal{}, false
}

// LastSkippedPrice 解析器最后处理（整档跳过）的价格，未发生净额时无意义
func (b *OrderBook) LastSkippedPrice() (decimal.Decimal, bool) {
	if !b.hasMatch {
		return decimal.Decimal{}, false
	}
	i := b.skips - 1
	if i < 0 {
		i = 0
	}
	return b.levels[i].Price, true
}

// TotalAmount 净额前全簿剩余量合计
func (b *OrderBook) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, level := range b.levels {
		total = total.Add(level.Amount)
	}
	return total
}

// ActiveTotalAmount 净额后全簿剩余量合计
func (b *OrderBook) ActiveTotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, level := range b.active {
		total = total.Add(level.Amount)
	}
	return total
}
