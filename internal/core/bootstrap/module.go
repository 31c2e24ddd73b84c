package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	"github.com/dep2p/go-channel/internal/core/msgpool"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Config 装配器配置
type Config struct {
	// MaxFragmentSize 每条通道的最大分片大小，0 表示默认值
	MaxFragmentSize uint64
	// PoolConfig 消息池配置，nil 表示默认值
	PoolConfig *msgpool.Config
}

// Params Bootstrap 依赖参数
type Params struct {
	fx.In

	Group *eventloop.Group
	Cfg   *Config         `optional:"true"`
	Sink  pkgif.StatsSink `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Client *ClientBootstrap
	Server *ServerBootstrap
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(ProvideBootstraps),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideBootstraps 提供客户端与服务端装配器
func ProvideBootstraps(p Params) Result {
	var opts []channel.Option
	if p.Cfg != nil {
		if p.Cfg.MaxFragmentSize > 0 {
			opts = append(opts, channel.WithMaxFragmentSize(p.Cfg.MaxFragmentSize))
		}
		if p.Cfg.PoolConfig != nil {
			opts = append(opts, channel.WithPoolConfig(*p.Cfg.PoolConfig))
		}
	}
	if p.Sink != nil {
		opts = append(opts, channel.WithStatsSink(p.Sink))
	}
	return Result{
		Client: NewClient(p.Group, opts...),
		Server: NewServer(p.Group, opts...),
	}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Client *ClientBootstrap
	Server *ServerBootstrap
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Client.Close()
			return input.Server.Close()
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
	Name = "bootstrap"
	// Description 模块描述
	Description = "通道装配模块，提供套接字通道的客户端拨号与服务端监听"
)
