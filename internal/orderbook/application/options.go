package application

import (
	"fmt"
	"strconv"

	"github.com/wyfcoding/depthfeed/internal/orderbook/domain"
)

// validDepths 读侧允许请求的档数，0 表示使用服务端默认
var validDepths = map[int]bool{0: true, 5: true, 10: true, 20: true, 50: true, 100: true, 500: true}

// DepthOptions 读侧深度请求参数（带校验的受限集合，不接受自由取值）
type DepthOptions struct {
	// Depth 请求的价格档数，0 为默认
	Depth int
	// Level 细节级别：1 只取盘口一档，2 默认深度，3 全量缓存视图
	Level int
}

// ParseDepthOptions 解析并校验 depth/level 查询参数。
// 非法取值同步拒绝，不进入引擎内部状态。
func ParseDepthOptions(depthStr, levelStr string) (DepthOptions, error) {
	opts := DepthOptions{Depth: 0, Level: 2}

	if depthStr != "" {
		depth, err := strconv.Atoi(depthStr)
		if err != nil || !validDepths[depth] {
			return DepthOptions{}, fmt.Errorf("%w: %q", domain.ErrInvalidDepth, depthStr)
		}
		opts.Depth = depth
	}

	if levelStr != "" {
		level, err := strconv.Atoi(levelStr)
		if err != nil || level < 1 || level > 3 {
			return DepthOptions{}, fmt.Errorf("%w: %q", domain.ErrInvalidLevel, levelStr)
		}
		opts.Level = level
	}

	return opts, nil
}

// Rows 根据 level 与 depth 计算实际返回的价格档数，0 表示不截断
func (o DepthOptions) Rows(defaultDepth int) int {
	switch o.Level {
	case 1:
		return 1
	case 3:
		return 0
	}
	if o.Depth > 0 {
		return o.Depth
	}
	return defaultDepth
}
