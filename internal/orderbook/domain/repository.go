package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRepository 订单数据源（只读）。
type OrderRepository interface {
	// ActiveLevels 返回一个市场单侧可见订单按价格分组后的原始档位，
	// 卖侧按价格升序、买侧降序，至多 limit 个分组。排序保证截断只会
	// 丢掉竞争力最差的簿尾，永远不丢簿头。
	ActiveLevels(ctx context.Context, market *Market, side Side, limit int) ([]PriceLevel, error)
}

// MarketRepository 市场数据源（只读）。
type MarketRepository interface {
	// ListTradable 返回全部可交易市场
	ListTradable(ctx context.Context) ([]*Market, error)
	// BySymbol 按符号查找市场，不存在时返回 nil
	BySymbol(ctx context.Context, symbol string) (*Market, error)
}

// TradeRepository 成交数据源（只读）。
type TradeRepository interface {
	// LastPrice 返回市场最新成交价，无成交时 ok 为 false
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
}

// SnapshotStore 进程外共享快照存储。每个 key 的值作为整体原子写入，
// 读取方可能观察到至多一轮间隔的陈旧快照，但不会观察到写了一半的值。
type SnapshotStore interface {
	// SetMany 在一次批量操作中写入多个 key，共用同一过期时间
	SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error
	// Get 读取单个 key，不存在时返回空串
	Get(ctx context.Context, key string) (string, error)
	// MGet 批量读取，缺失的 key 对应空串
	MGet(ctx context.Context, keys ...string) ([]string, error)
}
