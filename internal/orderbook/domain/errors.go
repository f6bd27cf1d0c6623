package domain

import "errors"

// 不变量违例属于程序逻辑错误而非数据错误：当轮该市场的发布必须中止，
// 不允许静默修正，否则可能掩盖上游订单台账的真实记账问题。
var (
	// ErrUnsortedLevels 档位价格未按方向严格单调
	ErrUnsortedLevels = errors.New("orderbook: price levels out of sorted order")
	// ErrNonPositiveLevel 档位数量非正
	ErrNonPositiveLevel = errors.New("orderbook: price level with non-positive amount")
	// ErrNegativeReduce 扣减量超过档位剩余量，会产生负数量
	ErrNegativeReduce = errors.New("orderbook: reduce exceeds level amount")
	// ErrLevelMismatch 扣减的价格不是当前最优档
	ErrLevelMismatch = errors.New("orderbook: reduce price does not match top level")

	// ErrInvalidDepth 请求的档数不在允许集合内（读侧配置错误，不进入引擎内部状态）
	ErrInvalidDepth = errors.New("orderbook: invalid depth requested")
	// ErrInvalidLevel 请求的细节级别不在允许集合内
	ErrInvalidLevel = errors.New("orderbook: invalid level requested")
)
