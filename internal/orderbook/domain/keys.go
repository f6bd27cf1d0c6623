package domain

import "fmt"

// 共享存储的字段命名契约。历史系统里 _bids 存的是卖侧、_asks 存的是买侧，
// 读侧再换回来；这里改为不倒置的命名（asks=卖侧、bids=买侧），对外 HTTP
// 字段语义不变。直接按 key 读共享存储的进程需要适配这一约定。
const (
	keyAsks           = "orderbook_%s_asks"
	keyBids           = "orderbook_%s_bids"
	keyBestSell       = "orderbook_%s_best_sell"
	keyBestBuy        = "orderbook_%s_best_buy"
	keyBestActiveSell = "orderbook_%s_best_active_sell"
	keyBestActiveBuy  = "orderbook_%s_best_active_buy"
	keyLastActiveSell = "orderbook_%s_last_active_sell"
	keyLastActiveBuy  = "orderbook_%s_last_active_buy"
	keyLastTradePrice = "orderbook_%s_last_trade_price"
	keyUpdateTime     = "orderbook_%s_update_time"
	keySkips          = "orderbook_%s_skips"
)

// KeyAsks 卖侧公开视图（价格升序的 [price, amount] 序列）
func KeyAsks(symbol string) string { return fmt.Sprintf(keyAsks, symbol) }

// KeyBids 买侧公开视图（价格降序的 [price, amount] 序列）
func KeyBids(symbol string) string { return fmt.Sprintf(keyBids, symbol) }

// KeyBestPrice 净额前的最优价
func KeyBestPrice(symbol string, side Side) string {
	if side == SideSell {
		return fmt.Sprintf(keyBestSell, symbol)
	}
	return fmt.Sprintf(keyBestBuy, symbol)
}

// KeyBestActivePrice 净额后的最优价
func KeyBestActivePrice(symbol string, side Side) string {
	if side == SideSell {
		return fmt.Sprintf(keyBestActiveSell, symbol)
	}
	return fmt.Sprintf(keyBestActiveBuy, symbol)
}

// KeyLastActivePrice 市场深度边界价
func KeyLastActivePrice(symbol string, side Side) string {
	if side == SideSell {
		return fmt.Sprintf(keyLastActiveSell, symbol)
	}
	return fmt.Sprintf(keyLastActiveBuy, symbol)
}

// KeyLastTradePrice 最新成交价
func KeyLastTradePrice(symbol string) string { return fmt.Sprintf(keyLastTradePrice, symbol) }

// KeyUpdateTime 最近发布时间戳（毫秒）
func KeyUpdateTime(symbol string) string { return fmt.Sprintf(keyUpdateTime, symbol) }

// KeySkips 最近一轮被净掉的价格档数，非零表示存在可成交量
func KeySkips(symbol string) string { return fmt.Sprintf(keySkips, symbol) }
