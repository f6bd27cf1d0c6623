package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
	"github.com/wyfcoding/depthfeed/pkg/logger"
	"github.com/wyfcoding/depthfeed/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// GeneratorConfig 聚合流水线配置
type GeneratorConfig struct {
	// MaxActiveOrders 单侧参与聚合的最大档数（数据源按 2 倍取数，
	// 归一化折叠后仍能填满）
	MaxActiveOrders int
	// MaxBookItems 公开快照的最大价格档数
	MaxBookItems int
	// SmallMarketSize 小市场阈值
	SmallMarketSize int
	// PassTimeout 单市场单轮的超时
	PassTimeout time.Duration
	// Parallelism 同时计算的市场数上限
	Parallelism int
	// DepthTopic 深度更新事件主题，空串表示不发事件
	DepthTopic string
}

// EventProducer 深度更新事件出口（Kafka 生产者实现）
type EventProducer interface {
	SendMessage(ctx context.Context, topic string, key string, value interface{}) error
}

// DepthEvent 快照变化时对外广播的深度更新事件
type DepthEvent struct {
	Symbol         string      `json:"symbol"`
	LastUpdate     int64       `json:"lastUpdate"`
	LastTradePrice string      `json:"lastTradePrice"`
	Asks           [][2]string `json:"asks"`
	Bids           [][2]string `json:"bids"`
}

// PassResult 单市场单轮的统计
type PassResult struct {
	Orders int
	Skips  int
}

// BookGenerator 每市场聚合流水线：查询两侧可见挂单 → 构建订单簿 →
// 跳过撮合净额 → 发布快照。一个市场的一轮严格串行，不同市场互不共享
// 可变状态（发布器状态表除外）。
type BookGenerator struct {
	orders    domain.OrderRepository
	markets   domain.MarketRepository
	trades    domain.TradeRepository
	publisher *SnapshotPublisher
	resolver  *domain.SkipMatchResolver
	producer  EventProducer
	metrics   *metrics.Metrics
	cfg       GeneratorConfig
}

// NewBookGenerator 创建聚合流水线
func NewBookGenerator(
	orders domain.OrderRepository,
	markets domain.MarketRepository,
	trades domain.TradeRepository,
	publisher *SnapshotPublisher,
	producer EventProducer,
	m *metrics.Metrics,
	cfg GeneratorConfig,
) *BookGenerator {
	if cfg.MaxActiveOrders <= 0 {
		cfg.MaxActiveOrders = 75
	}
	if cfg.MaxBookItems <= 0 {
		cfg.MaxBookItems = 32
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &BookGenerator{
		orders:    orders,
		markets:   markets,
		trades:    trades,
		publisher: publisher,
		resolver:  domain.NewSkipMatchResolver(),
		producer:  producer,
		metrics:   m,
		cfg:       cfg,
	}
}

// buildBook 聚合单侧并构建订单簿
func (g *BookGenerator) buildBook(ctx context.Context, market *domain.Market, side domain.Side) (*domain.OrderBook, error) {
	rows, err := g.orders.ActiveLevels(ctx, market, side, g.cfg.MaxActiveOrders*2)
	if err != nil {
		return nil, fmt.Errorf("source unavailable for %s %s: %w", market.Symbol, side, err)
	}
	levels := domain.BuildLevels(rows, market.PricePrecision)
	return domain.NewOrderBook(side, market.Symbol, levels)
}

// RunPass 执行一个市场的完整一轮。数据源失败时整轮放弃、不发布任何字段，
// 读取方继续看到上一份一致的快照；不变量违例记录错误并中止该市场的发布。
func (g *BookGenerator) RunPass(ctx context.Context, market *domain.Market) (PassResult, error) {
	if g.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.PassTimeout)
		defer cancel()
	}

	queryStart := time.Now()
	sellBook, err := g.buildBook(ctx, market, domain.SideSell)
	if err != nil {
		return PassResult{}, err
	}
	buyBook, err := g.buildBook(ctx, market, domain.SideBuy)
	if err != nil {
		return PassResult{}, err
	}
	g.observe("query", market.Symbol, time.Since(queryStart))

	createStart := time.Now()
	if err := g.resolver.Resolve(sellBook, buyBook); err != nil {
		return PassResult{}, fmt.Errorf("skip-match resolution failed for %s: %w", market.Symbol, err)
	}

	lastTradePrice := ""
	if price, ok, err := g.trades.LastPrice(ctx, market.Symbol); err != nil {
		return PassResult{}, fmt.Errorf("source unavailable for %s trades: %w", market.Symbol, err)
	} else if ok {
		lastTradePrice = domain.NormalizeNumber(price)
	}
	g.observe("create", market.Symbol, time.Since(createStart))

	publishStart := time.Now()
	updateTime := time.Now().UnixMilli()
	batch, err := g.stageSnapshot(sellBook, buyBook, lastTradePrice, updateTime)
	if err != nil {
		return PassResult{}, err
	}

	booksChanged := batch.Changed(domain.KeyAsks(market.Symbol)) ||
		batch.Changed(domain.KeyBids(market.Symbol)) ||
		batch.Changed(domain.KeyLastTradePrice(market.Symbol))

	if err := batch.Flush(ctx); err != nil {
		return PassResult{}, fmt.Errorf("snapshot publish failed for %s: %w", market.Symbol, err)
	}
	g.observe("publish", market.Symbol, time.Since(publishStart))

	if booksChanged {
		g.emitDepthEvent(ctx, sellBook, buyBook, lastTradePrice, updateTime)
	}

	skips := sellBook.Skips() + buyBook.Skips()
	if g.metrics != nil {
		g.metrics.SkipsTotal.Add(float64(skips))
	}

	return PassResult{
		Orders: sellBook.Len() + buyBook.Len(),
		Skips:  skips,
	}, nil
}

// stageSnapshot 把两侧订单簿与标量字段装入发布批次
func (g *BookGenerator) stageSnapshot(sellBook, buyBook *domain.OrderBook, lastTradePrice string, updateTime int64) (*SnapshotBatch, error) {
	symbol := sellBook.Symbol()
	batch := g.publisher.NewBatch()

	asks, err := json.Marshal(sellBook.PublicView(g.cfg.MaxBookItems))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize asks for %s: %w", symbol, err)
	}
	bids, err := json.Marshal(buyBook.PublicView(g.cfg.MaxBookItems))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bids for %s: %w", symbol, err)
	}

	batch.SetIfObsolete(domain.KeyAsks(symbol), string(asks))
	batch.SetIfObsolete(domain.KeyBids(symbol), string(bids))
	batch.SetIfObsolete(domain.KeyLastTradePrice(symbol), lastTradePrice)

	for _, book := range []*domain.OrderBook{sellBook, buyBook} {
		batch.Set(domain.KeyBestPrice(symbol, book.Side()), priceOrEmpty(book.BestPrice()))
		batch.Set(domain.KeyBestActivePrice(symbol, book.Side()), priceOrEmpty(book.BestActivePrice()))
		batch.Set(domain.KeyLastActivePrice(symbol, book.Side()),
			priceOrEmpty(book.LastActivePrice(g.cfg.MaxActiveOrders, g.cfg.SmallMarketSize)))
	}
	batch.Set(domain.KeySkips(symbol), strconv.Itoa(sellBook.Skips()+buyBook.Skips()))
	batch.Set(domain.KeyUpdateTime(symbol), strconv.FormatInt(updateTime, 10))

	return batch, nil
}

// emitDepthEvent 快照变化时广播深度更新事件，发送失败只记日志不影响本轮
func (g *BookGenerator) emitDepthEvent(ctx context.Context, sellBook, buyBook *domain.OrderBook, lastTradePrice string, updateTime int64) {
	if g.producer == nil || g.cfg.DepthTopic == "" {
		return
	}
	event := DepthEvent{
		Symbol:         sellBook.Symbol(),
		LastUpdate:     updateTime,
		LastTradePrice: lastTradePrice,
		Asks:           sellBook.PublicView(g.cfg.MaxBookItems),
		Bids:           buyBook.PublicView(g.cfg.MaxBookItems),
	}
	if err := g.producer.SendMessage(ctx, g.cfg.DepthTopic, event.Symbol, event); err != nil {
		logger.Warn(ctx, "failed to emit depth event", "symbol", event.Symbol, "error", err)
	}
}

// RunRound 对全部可交易市场跑一轮，受 Parallelism 限制并行。
// 单个市场失败不影响其他市场。
func (g *BookGenerator) RunRound(ctx context.Context) error {
	markets, err := g.markets.ListTradable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tradable markets: %w", err)
	}
	if g.metrics != nil {
		g.metrics.MarketsActive.Set(float64(len(markets)))
	}

	var group errgroup.Group
	group.SetLimit(g.cfg.Parallelism)

	results := make([]PassResult, len(markets))
	for i, market := range markets {
		group.Go(func() error {
			result, err := g.RunPass(ctx, market)
			if err != nil {
				logger.Error(ctx, "orderbook pass failed",
					"symbol", market.Symbol, "error", err)
				if g.metrics != nil {
					g.metrics.PassFailures.WithLabelValues(market.Symbol, failureReason(err)).Inc()
				}
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = group.Wait()

	var totalOrders, totalSkips int
	for _, result := range results {
		totalOrders += result.Orders
		totalSkips += result.Skips
	}
	if g.metrics != nil {
		g.metrics.RoundsTotal.Inc()
	}
	logger.Debug(ctx, "orderbook round finished",
		"markets", len(markets), "orders", totalOrders, "skips", totalSkips)
	return nil
}

// observe 记录阶段耗时
func (g *BookGenerator) observe(stage, symbol string, d time.Duration) {
	if g.metrics != nil {
		g.metrics.PassDuration.WithLabelValues(stage, symbol).Observe(d.Seconds())
	}
}

// failureReason 失败原因标签
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsortedLevels),
		errors.Is(err, domain.ErrNonPositiveLevel),
		errors.Is(err, domain.ErrNegativeReduce),
		errors.Is(err, domain.ErrLevelMismatch):
		return "invariant"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "source"
	}
}

// priceOrEmpty 可选价格的序列化，缺失时为空串
func priceOrEmpty(price decimal.Decimal, ok bool) string {
	if !ok {
		return ""
	}
	return domain.NormalizeNumber(price)
}
