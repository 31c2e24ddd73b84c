package bootstrap

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// ClientBootstrap
// ============================================================================

// ClientBootstrap 客户端通道装配器
//
// 每次拨号从事件循环组轮转取循环，各通道互不影响。
type ClientBootstrap struct {
	group  *eventloop.Group
	opts   []channel.Option
	closed atomic.Bool
}

// NewClient 创建客户端装配器
//
// opts 透传给每个新建通道。
func NewClient(group *eventloop.Group, opts ...channel.Option) *ClientBootstrap {
	return &ClientBootstrap{group: group, opts: opts}
}

// NewSocketChannel 拨号并围绕连接创建通道
//
// 拨号阻塞直到成功、失败或 ctx 取消。返回的通道仍在装配中，
// 就绪与否经 cbs.OnSetupCompleted 通知。
func (b *ClientBootstrap) NewSocketChannel(ctx context.Context, network, addr string, cbs pkgif.CreationCallbacks) (*channel.Channel, error) {
	if b.closed.Load() {
		return nil, types.ErrBootstrapClosed
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s/%s: %w", network, addr, err)
	}
	logger.Debug("dialed", "remote", conn.RemoteAddr().String())

	return newSocketChannel(b.group.NextLoop(), conn, cbs, b.opts...), nil
}

// Close 拒绝后续拨号
//
// 已建立的通道不受影响，由各自的 Shutdown 负责拆除。
func (b *ClientBootstrap) Close() {
	b.closed.Store(true)
}
