package eventloop

import (
	"context"
	"runtime"

	"go.uber.org/fx"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Config 事件循环组配置
type Config struct {
	// LoopCount 组内循环数，0 表示取 CPU 核数
	LoopCount int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{LoopCount: runtime.NumCPU()}
}

// Params 依赖参数
type Params struct {
	fx.In

	Cfg *Config `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Group *Group
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventloop",
		fx.Provide(ProvideGroup),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideGroup 提供事件循环组
func ProvideGroup(p Params) Result {
	n := DefaultConfig().LoopCount
	if p.Cfg != nil && p.Cfg.LoopCount > 0 {
		n = p.Cfg.LoopCount
	}
	return Result{
		Group: NewGroup(n),
	}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC    fx.Lifecycle
	Group *Group
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// 循环在 NewGroup 时已启动
			return nil
		},
		OnStop: func(_ context.Context) error {
			return input.Group.Close()
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventloop"
	// Description 模块描述
	Description = "事件循环模块，提供单线程任务执行与定时调度"
)
