package channel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-channel/internal/core/bootstrap"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	"github.com/dep2p/go-channel/internal/core/metrics"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("channel/engine")

// Stats 通道统计快照
type Stats = metrics.Stats

// ============================================================================
// Engine
// ============================================================================

// engineState 引擎生命周期状态
type engineState int

const (
	stateCreated engineState = iota
	stateStarted
	stateStopped
)

// Engine 通道引擎
//
// 持有事件循环组、统计计数器与双端装配器，是本库的顶层入口。
// 一个进程可以创建多个引擎，各自拥有独立的循环组与统计。
type Engine struct {
	app *fx.App

	group   *eventloop.Group
	client  *bootstrap.ClientBootstrap
	server  *bootstrap.ServerBootstrap
	counter *metrics.StatsCounter

	mu    sync.Mutex
	state engineState
}

// New 创建引擎
//
// 引擎创建后处于未启动状态，Dial 与 Listen 在 Start 之前不可用。
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}
	if o.logLevel != nil {
		log.SetLevel(*o.logLevel)
	}

	eng := &Engine{}
	eng.app = buildFxApp(o, eng)
	if err := eng.app.Err(); err != nil {
		return nil, fmt.Errorf("assemble engine: %w", err)
	}
	return eng, nil
}

// Start 启动引擎
//
// 重复启动返回 ErrAlreadyStarted，停止后的引擎不可再启动。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateStarted:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}

	if err := e.app.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	e.state = stateStarted
	logger.Info("engine started", "loops", e.group.Len(), "version", Version)
	return nil
}

// Stop 停止引擎
//
// 关闭全部装配器并停掉事件循环组。幂等。
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateCreated:
		return ErrNotStarted
	case stateStopped:
		return nil
	}

	e.state = stateStopped
	if err := e.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}
	logger.Info("engine stopped")
	return nil
}

// ============================================================================
// 通道装配
// ============================================================================

// Dial 拨号并围绕连接装配通道
//
// 阻塞直到拨号成功、失败或 ctx 取消。返回的通道仍在装配中，
// 就绪与否经 cbs.OnSetupCompleted 通知。
func (e *Engine) Dial(ctx context.Context, network, addr string, cbs pkgif.CreationCallbacks) (pkgif.Channel, error) {
	if err := e.requireStarted(); err != nil {
		return nil, err
	}
	return e.client.NewSocketChannel(ctx, network, addr, cbs)
}

// Listen 开始监听并为每条被接受的连接装配通道
//
// cbs 作用于每条被接受连接的通道。
func (e *Engine) Listen(network, addr string, cbs pkgif.CreationCallbacks) (pkgif.Listener, error) {
	if err := e.requireStarted(); err != nil {
		return nil, err
	}
	return e.server.NewSocketListener(network, addr, cbs)
}

// requireStarted 校验引擎处于已启动状态
func (e *Engine) requireStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateCreated:
		return ErrNotStarted
	case stateStopped:
		return ErrStopped
	}
	return nil
}

// ============================================================================
// 统计查询
// ============================================================================

// Stats 返回全局统计快照
//
// 统计禁用时返回零值与 false。
func (e *Engine) Stats() (Stats, bool) {
	if e.counter == nil {
		return Stats{}, false
	}
	return e.counter.TotalStats(), true
}

// ChannelStats 返回单条通道的统计快照
//
// 通道不存在或统计禁用时返回零值与 false。
func (e *Engine) ChannelStats(id types.ChannelID) (Stats, bool) {
	if e.counter == nil {
		return Stats{}, false
	}
	return e.counter.StatsForChannel(id)
}

// LoopCount 返回事件循环组内的循环数
func (e *Engine) LoopCount() int {
	return e.group.Len()
}
