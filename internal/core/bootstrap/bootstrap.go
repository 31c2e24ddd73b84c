package bootstrap

import (
	"net"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/socket"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/bootstrap")

// newSocketChannel 为一条连接创建通道并在装配完成时装入套接字处理器
//
// 用户的 OnSetupCompleted 在套接字处理器就位之后、同一循环线程上
// 收到通道；装配失败时连接被关闭，用户回调收到相同的错误码。
func newSocketChannel(loop pkgif.EventLoop, conn net.Conn, cbs pkgif.CreationCallbacks, opts ...channel.Option) *channel.Channel {
	wrapped := pkgif.CreationCallbacks{
		OnShutdownCompleted: cbs.OnShutdownCompleted,
		OnSetupCompleted: func(ch pkgif.Channel, errCode int) {
			if errCode != 0 {
				conn.Close()
				if cbs.OnSetupCompleted != nil {
					cbs.OnSetupCompleted(ch, errCode)
				}
				return
			}
			if err := installSocketHandler(ch, conn); err != nil {
				logger.Warn("socket handler installation failed",
					"channel", ch.ID().ShortString(), "err", err)
				ch.Shutdown(types.ErrCodeSocketClosed)
				if cbs.OnSetupCompleted != nil {
					cbs.OnSetupCompleted(ch, types.ErrCodeSocketClosed)
				}
				return
			}
			if cbs.OnSetupCompleted != nil {
				cbs.OnSetupCompleted(ch, 0)
			}
		},
	}
	return channel.New(loop, wrapped, opts...)
}

// installSocketHandler 把套接字处理器装入链头槽位并启动读写
func installSocketHandler(ch pkgif.Channel, conn net.Conn) error {
	h := socket.New(conn)
	s := ch.NewSlot()
	if err := ch.InsertEnd(s); err != nil {
		return err
	}
	if err := s.SetHandler(h); err != nil {
		return err
	}
	return h.Start(s)
}
