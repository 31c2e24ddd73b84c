package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool
	// ClosedCacheSize 已关闭通道快照缓存容量
	ClosedCacheSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		ClosedCacheSize: DefaultClosedCacheSize,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Cfg *Config `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Counter  *StatsCounter
	Reporter *Reporter
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCounter),
		fx.Provide(provideSink),
		fx.Invoke(registerCollector),
	)
}

// ProvideCounter 提供统计计数器与导出器
func ProvideCounter(p Params) Result {
	cfg := DefaultConfig()
	if p.Cfg != nil {
		cfg = *p.Cfg
	}
	if !cfg.Enabled {
		return Result{}
	}
	counter := NewStatsCounter(WithClosedCacheSize(cfg.ClosedCacheSize))
	return Result{
		Counter:  counter,
		Reporter: NewReporter(counter),
	}
}

// provideSink 把计数器作为统计出口暴露给通道核心
//
// 指标关闭时返回 nil 接口而不是带 nil 指针的接口值。
func provideSink(counter *StatsCounter) pkgif.StatsSink {
	if counter == nil {
		return nil
	}
	return counter
}

// collectorInput 注册输入参数
type collectorInput struct {
	fx.In

	Reporter *Reporter             `optional:"true"`
	Registry prometheus.Registerer `optional:"true"`
}

// registerCollector 把导出器注册到注入的注册表
func registerCollector(input collectorInput) error {
	if input.Reporter == nil || input.Registry == nil {
		return nil
	}
	return input.Reporter.Register(input.Registry)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "metrics"
	// Description 模块描述
	Description = "通道统计模块，提供原子计数器与 Prometheus 导出"
)
