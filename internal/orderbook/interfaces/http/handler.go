// Package http 深度行情的 HTTP 接口
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/depthfeed/internal/orderbook/application"
	"github.com/wyfcoding/depthfeed/pkg/metrics"
)

// MetricsMiddleware 记录 HTTP 请求数与耗时
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.HTTPRequestsTotal.Inc()
		m.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	}
}

// OrderBookHandler 深度端点处理器
type OrderBookHandler struct {
	query *application.DepthQueryService
}

// NewOrderBookHandler 创建深度端点处理器
func NewOrderBookHandler(query *application.DepthQueryService) *OrderBookHandler {
	return &OrderBookHandler{query: query}
}

// RegisterRoutes 注册路由
func (h *OrderBookHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/v1")
	{
		v1.GET("/orderbook/:symbol", h.GetOrderBook)
	}
}

// GetOrderBook GET /api/v1/orderbook/:symbol?depth=&level=
// symbol 为 all 时返回全部市场。depth ∈ {0,5,10,20,50,100,500}，level ∈ {1,2,3}。
func (h *OrderBookHandler) GetOrderBook(c *gin.Context) {
	opts, err := application.ParseDepthOptions(c.Query("depth"), c.Query("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "error": err.Error()})
		return
	}

	symbol := c.Param("symbol")
	if symbol == "all" {
		books, err := h.query.GetAllOrderBooks(c.Request.Context(), opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "orderbooks": books})
		return
	}

	dto, err := h.query.GetOrderBook(c.Request.Context(), symbol, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "failed", "error": err.Error()})
		return
	}
	if dto == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "failed", "error": "market not found"})
		return
	}
	c.JSON(http.StatusOK, dto)
}
