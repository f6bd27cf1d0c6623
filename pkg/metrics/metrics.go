// Package metrics 提供 Prometheus helper，包含订单簿聚合相关的 counter/gauge/histogram
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/depthfeed/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// 聚合轮次计数
	RoundsTotal prometheus.Counter
	// 单市场计算耗时，按阶段（query/create/publish）与市场区分
	PassDuration *prometheus.HistogramVec
	// 单市场计算失败计数
	PassFailures *prometheus.CounterVec
	// 跳过（互相可成交）的价格档计数
	SkipsTotal prometheus.Counter
	// 快照字段实际写入计数
	CacheWritesTotal prometheus.Counter
	// 因内容未变被抑制的写入计数
	CacheSuppressedTotal prometheus.Counter
	// 当前跟踪的市场数量
	MarketsActive prometheus.Gauge

	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		RoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_rounds_total",
			Help:      "Total orderbook aggregation rounds",
		}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_pass_duration_seconds",
			Help:      "Per-market orderbook pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "symbol"}),
		PassFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_pass_failures_total",
			Help:      "Per-market orderbook pass failures",
		}, []string{"symbol", "reason"}),
		SkipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_skips_total",
			Help:      "Total price levels netted out as mutually matchable",
		}),
		CacheWritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_cache_writes_total",
			Help:      "Total snapshot fields written to the shared store",
		}),
		CacheSuppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_cache_suppressed_total",
			Help:      "Total snapshot writes suppressed by the dirty check",
		}),
		MarketsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "orderbook_markets_active",
			Help:      "Number of tradable markets tracked",
		}),
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.RoundsTotal,
		m.PassDuration,
		m.PassFailures,
		m.SkipsTotal,
		m.CacheWritesTotal,
		m.CacheSuppressedTotal,
		m.MarketsActive,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	}

	for _, collector := range collectors {
		if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
