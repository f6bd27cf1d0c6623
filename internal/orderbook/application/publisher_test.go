package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(store *memStore, cacheTimeout time.Duration) (*SnapshotPublisher, *time.Time) {
	publisher := NewSnapshotPublisher(store, cacheTimeout, nil)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return clock }
	return publisher, &clock
}

func TestSnapshotBatch_SetIfObsolete(t *testing.T) {
	ctx := context.Background()

	t.Run("first write always goes through", func(t *testing.T) {
		store := newMemStore()
		publisher, _ := newTestPublisher(store, 15*time.Minute)

		batch := publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.True(t, batch.Changed("k"))
		require.NoError(t, batch.Flush(ctx))
		assert.Equal(t, 1, store.writeCount("k"))
		assert.Equal(t, "v1", store.value("k"))
	})

	t.Run("unchanged value suppressed within timeout", func(t *testing.T) {
		store := newMemStore()
		publisher, _ := newTestPublisher(store, 15*time.Minute)

		batch := publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		require.NoError(t, batch.Flush(ctx))

		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.False(t, batch.Changed("k"))
		assert.Equal(t, 0, batch.Len())
		require.NoError(t, batch.Flush(ctx))
		assert.Equal(t, 1, store.writeCount("k"))
	})

	t.Run("changed value rewritten", func(t *testing.T) {
		store := newMemStore()
		publisher, _ := newTestPublisher(store, 15*time.Minute)

		batch := publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		require.NoError(t, batch.Flush(ctx))

		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v2")
		assert.True(t, batch.Changed("k"))
		require.NoError(t, batch.Flush(ctx))
		assert.Equal(t, 2, store.writeCount("k"))
		assert.Equal(t, "v2", store.value("k"))
	})

	t.Run("heartbeat rewrite before ttl expiry", func(t *testing.T) {
		store := newMemStore()
		publisher, clock := newTestPublisher(store, 15*time.Minute)

		batch := publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		require.NoError(t, batch.Flush(ctx))

		// 未到心跳窗口：继续抑制
		*clock = clock.Add(14 * time.Minute)
		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.Equal(t, 0, batch.Len())

		// 距成功写入超过 cacheTimeout - 10s：即使内容未变也重写
		*clock = clock.Add(51 * time.Second)
		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.Equal(t, 1, batch.Len())
		require.NoError(t, batch.Flush(ctx))
		assert.Equal(t, 2, store.writeCount("k"))

		// 心跳重写后窗口重新计时
		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.Equal(t, 0, batch.Len())
	})

	t.Run("failed flush leaves state untouched", func(t *testing.T) {
		store := newMemStore()
		publisher, _ := newTestPublisher(store, 15*time.Minute)

		store.failure = errors.New("store down")
		batch := publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		require.Error(t, batch.Flush(ctx))
		assert.Equal(t, 0, store.writeCount("k"))

		// 恢复后同一内容仍视为过期，无条件重试
		store.failure = nil
		batch = publisher.NewBatch()
		batch.SetIfObsolete("k", "v1")
		assert.Equal(t, 1, batch.Len())
		require.NoError(t, batch.Flush(ctx))
		assert.Equal(t, 1, store.writeCount("k"))
	})
}

func TestSnapshotBatch_Set(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	publisher, _ := newTestPublisher(store, 15*time.Minute)

	// 无条件字段每轮都写，不参与脏检查
	for i := 0; i < 3; i++ {
		batch := publisher.NewBatch()
		batch.Set("scalar", "same")
		require.NoError(t, batch.Flush(ctx))
	}
	assert.Equal(t, 3, store.writeCount("scalar"))
}

func TestSnapshotBatch_EmptyFlush(t *testing.T) {
	store := newMemStore()
	store.failure = errors.New("store down")
	publisher, _ := newTestPublisher(store, 15*time.Minute)

	// 空批次不触碰存储
	batch := publisher.NewBatch()
	require.NoError(t, batch.Flush(context.Background()))
}

func TestSnapshotPublisher_PerFieldSuppression(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	publisher, _ := newTestPublisher(store, 15*time.Minute)

	batch := publisher.NewBatch()
	batch.SetIfObsolete("a", "1")
	batch.SetIfObsolete("b", "1")
	require.NoError(t, batch.Flush(ctx))

	// 只有变化的字段被重写
	batch = publisher.NewBatch()
	batch.SetIfObsolete("a", "2")
	batch.SetIfObsolete("b", "1")
	assert.True(t, batch.Changed("a"))
	assert.False(t, batch.Changed("b"))
	require.NoError(t, batch.Flush(ctx))
	assert.Equal(t, 2, store.writeCount("a"))
	assert.Equal(t, 1, store.writeCount("b"))
}
