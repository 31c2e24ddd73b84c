package channel

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 事件循环配置
	loopCount int

	// 通道配置
	maxFragmentSize uint64

	// 消息池配置
	pool struct {
		dataMessageSize  int
		dataMessageCount int
	}

	// 指标配置
	metrics struct {
		enable          bool
		closedCacheSize int
		registry        prometheus.Registerer
	}

	// 日志配置
	logLevel *slog.Level
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	o := &options{}
	o.metrics.enable = true
	return o
}

// apply 依次应用选项
func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件循环选项
// ════════════════════════════════════════════════════════════════════════════

// WithLoopCount 设置事件循环组内的循环数
//
// 0 表示取 CPU 核数。
func WithLoopCount(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("loop count must be >= 0, got %d", n)
		}
		o.loopCount = n
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              通道选项
// ════════════════════════════════════════════════════════════════════════════

// WithMaxFragmentSize 设置每条通道的最大分片大小（字节）
//
// 池化消息的容量不会超过该值。
func WithMaxFragmentSize(n uint64) Option {
	return func(o *options) error {
		if n == 0 {
			return fmt.Errorf("max fragment size must be > 0")
		}
		o.maxFragmentSize = n
		return nil
	}
}

// WithMessagePool 设置消息池的数据消息缓冲区大小与预热数量
func WithMessagePool(dataMessageSize, dataMessageCount int) Option {
	return func(o *options) error {
		if dataMessageSize <= 0 {
			return fmt.Errorf("data message size must be > 0, got %d", dataMessageSize)
		}
		if dataMessageCount < 0 {
			return fmt.Errorf("data message count must be >= 0, got %d", dataMessageCount)
		}
		o.pool.dataMessageSize = dataMessageSize
		o.pool.dataMessageCount = dataMessageCount
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              指标选项
// ════════════════════════════════════════════════════════════════════════════

// WithMetrics 启用或禁用统计收集
//
// 默认启用。
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics.enable = enable
		return nil
	}
}

// WithClosedStatsCacheSize 设置已关闭通道统计快照的缓存容量
func WithClosedStatsCacheSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("closed stats cache size must be > 0, got %d", n)
		}
		o.metrics.closedCacheSize = n
		return nil
	}
}

// WithPrometheusRegistry 把统计导出器注册到给定注册表
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return fmt.Errorf("prometheus registry must not be nil")
		}
		o.metrics.registry = reg
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              日志选项
// ════════════════════════════════════════════════════════════════════════════

// WithLogLevel 设置全局日志级别
func WithLogLevel(level slog.Level) Option {
	return func(o *options) error {
		o.logLevel = &level
		return nil
	}
}
