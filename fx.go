package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-channel/internal/core/bootstrap"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	"github.com/dep2p/go-channel/internal/core/metrics"
	"github.com/dep2p/go-channel/internal/core/msgpool"
)

// buildFxApp 构建 Fx 应用
//
// 组装内部模块并把结果填充进引擎：
//  1. eventloop: 事件循环组
//  2. metrics: 统计计数器与导出器（可禁用）
//  3. bootstrap: 客户端拨号器与服务端监听器
func buildFxApp(o *options, eng *Engine) *fx.App {
	loopCfg := &eventloop.Config{LoopCount: o.loopCount}

	bootCfg := &bootstrap.Config{MaxFragmentSize: o.maxFragmentSize}
	if o.pool.dataMessageSize > 0 {
		pc := msgpool.DefaultConfig()
		pc.DataMessageSize = o.pool.dataMessageSize
		pc.DataMessageCount = o.pool.dataMessageCount
		bootCfg.PoolConfig = &pc
	}

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = o.metrics.enable
	if o.metrics.closedCacheSize > 0 {
		metricsCfg.ClosedCacheSize = o.metrics.closedCacheSize
	}

	modules := []fx.Option{
		// 配置注入
		fx.Supply(loopCfg),
		fx.Supply(bootCfg),
		fx.Supply(&metricsCfg),

		// 内部模块
		eventloop.Module(),
		metrics.Module(),
		bootstrap.Module(),
	}

	if o.metrics.registry != nil {
		modules = append(modules, fx.Supply(
			fx.Annotate(o.metrics.registry, fx.As(new(prometheus.Registerer))),
		))
	}

	modules = append(modules,
		fx.Populate(&eng.group, &eng.client, &eng.server, &eng.counter),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}
