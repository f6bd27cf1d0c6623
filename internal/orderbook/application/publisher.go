// Package application 订单簿聚合引擎的应用层：每市场聚合流水线、快照发布与读侧查询
package application

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
	"github.com/wyfcoding/depthfeed/pkg/metrics"
)

// expirySlack 心跳提前量：在共享存储 TTL 到期前留出的重写余量
const expirySlack = 10 * time.Second

// cacheEntry 单个 (market, field) key 的本地发布状态
type cacheEntry struct {
	value     string
	writtenAt time.Time
}

// SnapshotPublisher 快照发布器：按字段做内容脏检查与心跳超时，
// 决定哪些 key 需要真正写入共享存储，抑制未变化快照的写放大。
// 状态表由发布器实例显式持有（每进程一个），不依赖环境全局变量，
// 测试可以为每个市场构造隔离实例。
type SnapshotPublisher struct {
	store domain.SnapshotStore
	// cacheTimeout 心跳超时：超过后即使内容未变也重写，防止共享存储 TTL 把 key 过期掉
	cacheTimeout time.Duration
	// storeTTL 共享存储里 key 的过期时间
	storeTTL time.Duration
	metrics  *metrics.Metrics

	// mu 保护状态表：不同市场的计算可以并行，但共享同一张表
	mu    sync.Mutex
	state map[string]cacheEntry

	// now 可注入的时钟，供测试使用
	now func() time.Time
}

// NewSnapshotPublisher 创建快照发布器
func NewSnapshotPublisher(store domain.SnapshotStore, cacheTimeout time.Duration, m *metrics.Metrics) *SnapshotPublisher {
	return &SnapshotPublisher{
		store:        store,
		cacheTimeout: cacheTimeout,
		storeTTL:     cacheTimeout,
		metrics:      m,
		state:        make(map[string]cacheEntry),
		now:          time.Now,
	}
}

// NewBatch 开始一个市场的发布批次
func (p *SnapshotPublisher) NewBatch() *SnapshotBatch {
	return &SnapshotBatch{
		publisher: p,
		values:    make(map[string]string),
		changed:   make(map[string]bool),
	}
}

// isObsolete 判断 key 是否需要重写：内容变化，或距上次成功写入已接近存储 TTL
func (p *SnapshotPublisher) isObsolete(key, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.state[key]
	if !ok || entry.value != value {
		return true
	}
	if p.cacheTimeout <= 0 {
		return false
	}
	return p.now().Sub(entry.writtenAt) > p.cacheTimeout-expirySlack
}

// commit 批次写入成功后更新本地状态。失败的批次不会走到这里，
// 对应字段保持旧状态，下一轮无条件重试。
func (p *SnapshotPublisher) commit(values map[string]string) {
	writtenAt := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, value := range values {
		p.state[key] = cacheEntry{value: value, writtenAt: writtenAt}
	}
}

// SnapshotBatch 单轮单市场待写字段的收集器，Flush 时一次性批量写入
type SnapshotBatch struct {
	publisher *SnapshotPublisher
	values    map[string]string
	changed   map[string]bool
}

// Set 无条件写入字段（轻量标量每轮都写）
func (b *SnapshotBatch) Set(key, value string) {
	b.values[key] = value
}

// SetIfObsolete 带脏检查的写入：内容未变且未到心跳超时的字段被抑制
func (b *SnapshotBatch) SetIfObsolete(key, value string) {
	if !b.publisher.isObsolete(key, value) {
		if b.publisher.metrics != nil {
			b.publisher.metrics.CacheSuppressedTotal.Inc()
		}
		return
	}
	b.values[key] = value
	b.changed[key] = true
}

// Changed 该 key 在本批次中是否判定为需要写入
func (b *SnapshotBatch) Changed(key string) bool {
	return b.changed[key]
}

// Len 批次中待写字段数
func (b *SnapshotBatch) Len() int {
	return len(b.values)
}

// Flush 把批次一次性写入共享存储。写入失败时不更新本地状态，
// 全部字段在下一轮视为过期重试，不会留下半更新。
func (b *SnapshotBatch) Flush(ctx context.Context) error {
	if len(b.values) == 0 {
		return nil
	}
	if err := b.publisher.store.SetMany(ctx, b.values, b.publisher.storeTTL); err != nil {
		return err
	}
	b.publisher.commit(b.values)
	if b.publisher.metrics != nil {
		b.publisher.metrics.CacheWritesTotal.Add(float64(len(b.values)))
	}
	return nil
}
