package application

import (
	"context"
	"time"

	"github.com/wyfcoding/depthfeed/pkg/logger"
)

// Runner 周期驱动器：每个 tick 跑一整轮，等整轮结束再进入下一轮，
// 因此同一市场的两轮计算天然串行，不会交错写同一组 key。
type Runner struct {
	generator *BookGenerator
	interval  time.Duration
}

// NewRunner 创建周期驱动器
func NewRunner(generator *BookGenerator, interval time.Duration) *Runner {
	return &Runner{
		generator: generator,
		interval:  interval,
	}
}

// Start 阻塞运行直到 ctx 取消
func (r *Runner) Start(ctx context.Context) error {
	logger.Info(ctx, "orderbook runner starting", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// 启动后立刻跑一轮，不等第一个 tick
	if err := r.generator.RunRound(ctx); err != nil {
		logger.Error(ctx, "orderbook round failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "orderbook runner stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.generator.RunRound(ctx); err != nil {
				logger.Error(ctx, "orderbook round failed", "error", err)
			}
		}
	}
}
