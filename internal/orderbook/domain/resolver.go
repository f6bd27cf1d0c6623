package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SkipMatchResolver 跳过撮合解析器：把两侧订单簿里已经互相可成交的数量
// 从即将发布的内存副本中净掉，保证公开快照永远不出现交叉盘口。
// 这不是成交执行——不触碰任何持久化订单状态，结算由外部撮合组件完成。
type SkipMatchResolver struct{}

// NewSkipMatchResolver 创建解析器
func NewSkipMatchResolver() *SkipMatchResolver {
	return &SkipMatchResolver{}
}

// Resolve 双指针遍历：卖簿自最低价、买簿自最高价向内推进，
// 只要卖方最优价 ≤ 买方最优价就净掉 min(两侧档位数量)。
// 清零的档位整档移除并推进游标，剩余为正的档位留在索引 0 成为新的
// best_active_price。算法对称，结果只取决于两个输入序列。
func (r *SkipMatchResolver) Resolve(sell, buy *OrderBook) error {
	if sell.side != SideSell || buy.side != SideBuy {
		return fmt.Errorf("resolver: books passed with wrong sides (%s, %s)", sell.side, buy.side)
	}

	for sell.ActiveLen() > 0 && buy.ActiveLen() > 0 {
		sellTop, _ := sell.Top()
		buyTop, _ := buy.Top()
		if sellTop.Price.GreaterThan(buyTop.Price) {
			break
		}

		netted := decimal.Min(sellTop.Amount, buyTop.Amount)
		if err := sell.ReduceLevel(sellTop.Price, netted); err != nil {
			return err
		}
		if err := buy.ReduceLevel(buyTop.Price, netted); err != nil {
			return err
		}

		sell.hasMatch = true
		buy.hasMatch = true
	}

	return nil
}
