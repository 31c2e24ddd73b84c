package eventloop

import (
	"sync/atomic"

	"go.uber.org/multierr"
)

// ============================================================================
// Group 实现
// ============================================================================

// Group 一组事件循环与轮转分配
//
// 通道建立时从组里取下一个循环绑定；组内循环数通常等于 CPU 核数。
type Group struct {
	loops []*Loop
	next  atomic.Uint64
}

// NewGroup 创建含 n 个循环的组
//
// n 小于等于 0 时取 1。
func NewGroup(n int, opts ...Option) *Group {
	if n <= 0 {
		n = 1
	}
	g := &Group{loops: make([]*Loop, n)}
	for i := range g.loops {
		g.loops[i] = New(opts...)
	}
	logger.Debug("event loop group created", "loops", n)
	return g
}

// NextLoop 轮转返回下一个循环
func (g *Group) NextLoop() *Loop {
	idx := g.next.Add(1) - 1
	return g.loops[idx%uint64(len(g.loops))]
}

// Len 返回组内循环数
func (g *Group) Len() int {
	return len(g.loops)
}

// Close 停止组内全部循环并等待退出
func (g *Group) Close() error {
	var err error
	for _, l := range g.loops {
		err = multierr.Append(err, l.Close())
	}
	logger.Debug("event loop group closed", "loops", len(g.loops))
	return err
}
