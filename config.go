package channel

import "log/slog"

// UserConfig 用户配置结构
//
// 这是面向用户的简化配置结构，可以从 JSON 文件加载。
// 内部会转换为选项列表。
//
// 注意：配置文件的读取和环境变量的处理应由应用层负责，
// 库本身不负责 I/O 操作。示例用法：
//
//	data, _ := os.ReadFile("config.json")
//	var cfg channel.UserConfig
//	json.Unmarshal(data, &cfg)
//	eng, _ := channel.New(cfg.ToOptions()...)
type UserConfig struct {
	// LoopCount 事件循环数，0 表示取 CPU 核数
	LoopCount int `json:"loop_count,omitempty"`

	// MaxFragmentSize 每条通道的最大分片大小（字节）
	MaxFragmentSize uint64 `json:"max_fragment_size,omitempty"`

	// Pool 消息池配置
	Pool *PoolUserConfig `json:"pool,omitempty"`

	// Metrics 指标配置
	Metrics *MetricsUserConfig `json:"metrics,omitempty"`

	// LogLevel 日志级别
	// 可选值: debug, info, warn, error
	LogLevel string `json:"log_level,omitempty"`
}

// PoolUserConfig 消息池配置
type PoolUserConfig struct {
	// DataMessageSize 数据消息缓冲区大小（字节）
	DataMessageSize int `json:"data_message_size,omitempty"`

	// DataMessageCount 数据消息空闲链预热数量
	DataMessageCount int `json:"data_message_count,omitempty"`
}

// MetricsUserConfig 指标配置
type MetricsUserConfig struct {
	// Enable 启用统计收集
	Enable *bool `json:"enable,omitempty"`

	// ClosedCacheSize 已关闭通道统计快照缓存容量
	ClosedCacheSize int `json:"closed_cache_size,omitempty"`
}

// ToOptions 将用户配置转换为选项列表
func (c *UserConfig) ToOptions() []Option {
	var opts []Option

	// 事件循环
	if c.LoopCount > 0 {
		opts = append(opts, WithLoopCount(c.LoopCount))
	}

	// 通道
	if c.MaxFragmentSize > 0 {
		opts = append(opts, WithMaxFragmentSize(c.MaxFragmentSize))
	}

	// 消息池
	if c.Pool != nil && c.Pool.DataMessageSize > 0 {
		opts = append(opts, WithMessagePool(c.Pool.DataMessageSize, c.Pool.DataMessageCount))
	}

	// 指标
	if c.Metrics != nil {
		if c.Metrics.Enable != nil {
			opts = append(opts, WithMetrics(*c.Metrics.Enable))
		}
		if c.Metrics.ClosedCacheSize > 0 {
			opts = append(opts, WithClosedStatsCacheSize(c.Metrics.ClosedCacheSize))
		}
	}

	// 日志
	if c.LogLevel != "" {
		if level, ok := parseLogLevel(c.LogLevel); ok {
			opts = append(opts, WithLogLevel(level))
		}
	}

	return opts
}

// parseLogLevel 解析日志级别名称
func parseLogLevel(name string) (slog.Level, bool) {
	switch name {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
