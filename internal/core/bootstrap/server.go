package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// ServerBootstrap
// ============================================================================

// ServerBootstrap 服务端通道装配器
//
// 每个监听器一条接受协程；每条被接受的连接得到自己的通道，
// 循环从事件循环组轮转分配。
type ServerBootstrap struct {
	group *eventloop.Group
	opts  []channel.Option

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool

	eg errgroup.Group
}

// NewServer 创建服务端装配器
func NewServer(group *eventloop.Group, opts ...channel.Option) *ServerBootstrap {
	return &ServerBootstrap{
		group:     group,
		opts:      opts,
		listeners: make(map[*Listener]struct{}),
	}
}

// NewSocketListener 开始监听并为每条连接装配通道
//
// cbs 作用于每条被接受连接的通道。
func (b *ServerBootstrap) NewSocketListener(network, addr string, cbs pkgif.CreationCallbacks) (*Listener, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, types.ErrBootstrapClosed
	}
	b.mu.Unlock()

	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s/%s: %w", network, addr, err)
	}

	l := &Listener{ln: ln, b: b}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ln.Close()
		return nil, types.ErrBootstrapClosed
	}
	b.listeners[l] = struct{}{}
	b.mu.Unlock()

	logger.Info("listening", "addr", ln.Addr().String())
	b.eg.Go(func() error { return l.acceptLoop(cbs) })
	return l, nil
}

// Close 关闭全部监听器并等待接受协程退出
func (b *ServerBootstrap) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	listeners := make([]*Listener, 0, len(b.listeners))
	for l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	return multierr.Append(err, b.eg.Wait())
}

// ============================================================================
// Listener
// ============================================================================

// Listener 服务端的一个监听端点
type Listener struct {
	ln     net.Listener
	b      *ServerBootstrap
	closed atomic.Bool
}

var _ pkgif.Listener = (*Listener)(nil)

// Addr 返回监听地址
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close 停止监听
//
// 已接受连接的通道不受影响。
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.b.mu.Lock()
	delete(l.b.listeners, l)
	l.b.mu.Unlock()
	return l.ln.Close()
}

// acceptLoop 逐连接创建通道，监听器关闭时退出
func (l *Listener) acceptLoop(cbs pkgif.CreationCallbacks) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("accept failed", "addr", l.ln.Addr().String(), "err", err)
			return err
		}
		logger.Debug("accepted", "remote", conn.RemoteAddr().String())
		newSocketChannel(l.b.group.NextLoop(), conn, cbs, l.b.opts...)
	}
}
