// Package redis 共享快照存储的 Redis 实现
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
)

type snapshotStore struct {
	client redis.UniversalClient
}

// NewSnapshotStore 创建基于 Redis 的共享快照存储。
// 每个字段是一个独立的 key，SET 整体原子写入；跨字段不保证同一时刻一致，
// 读取方需容忍 bids/asks 之间极小的时间偏差。
func NewSnapshotStore(client redis.UniversalClient) domain.SnapshotStore {
	return &snapshotStore{client: client}
}

// SetMany 在一个 pipeline 中写入多个字段，共用同一 TTL
func (s *snapshotStore) SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, key, value, ttl)
		}
		return nil
	})
	return err
}

// Get 读取单个字段，不存在时返回空串
func (s *snapshotStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// MGet 批量读取，缺失的 key 对应空串
func (s *snapshotStore) MGet(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[i] = str
		}
	}
	return out, nil
}
