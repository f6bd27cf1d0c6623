package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
)

func TestRunner_Start(t *testing.T) {
	orders := newFakeOrderRepo()
	orders.setRows("BTCUSDT", domain.SideSell, []domain.PriceLevel{
		{Price: decimal.RequireFromString("100"), Amount: decimal.RequireFromString("1"), Count: 1},
	})
	store := newMemStore()
	generator := newTestGenerator(orders,
		&fakeMarketRepo{markets: []*domain.Market{testMarket("BTCUSDT")}},
		&fakeTradeRepo{}, store, nil)

	runner := NewRunner(generator, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := runner.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 启动立即跑一轮，标量字段每轮都写
	assert.GreaterOrEqual(t, store.writeCount(domain.KeyUpdateTime("BTCUSDT")), 2)
	// 内容未变的簿只写一次
	assert.Equal(t, 1, store.writeCount(domain.KeyAsks("BTCUSDT")))
}
