package socket

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/socket")

// DefaultReadSize 读泵单次读取的默认上限
const DefaultReadSize = 16 * 1024

// halfCloser 支持半关闭写方向的连接（如 *net.TCPConn）
type halfCloser interface {
	CloseWrite() error
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 套接字处理器配置选项
type Option func(*Handler)

// WithReadSize 设置读泵单次读取上限
func WithReadSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readSize = n
		}
	}
}

// ============================================================================
// Handler 实现
// ============================================================================

// Handler 管线最左端的套接字处理器
//
// slot、pumping、readDone、writeDone 仅在通道的循环线程上访问；
// 写队列由 wmu 保护，在循环线程与刷写协程之间共享。
type Handler struct {
	conn     net.Conn
	readSize int

	slot      pkgif.Slot
	pumping   bool
	readDone  bool
	writeDone bool

	closeOnce sync.Once
	stopOnce  sync.Once

	wmu        sync.Mutex
	wq         []*types.Message
	wflush     bool
	wErrCode   int
	wsig       chan struct{}
	wstop      chan struct{}
}

// New 创建套接字处理器
//
// 处理器挂载到链头槽位后须在循环线程上调用 Start 启动读泵与
// 刷写协程。
func New(conn net.Conn, opts ...Option) *Handler {
	h := &Handler{
		conn:     conn,
		readSize: DefaultReadSize,
		wsig:     make(chan struct{}, 1),
		wstop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start 绑定槽位并启动读泵与刷写协程
//
// 仅限通道的循环线程调用，且必须在 SetHandler 之后。
func (h *Handler) Start(slot pkgif.Slot) error {
	if !slot.Channel().ThreadIsCallersThread() {
		return types.ErrNotOnChannelThread
	}
	h.slot = slot
	go h.writerLoop()
	h.armRead()
	return nil
}

// ============================================================================
// 读泵
// ============================================================================

// armRead 在窗口允许时发起下一次读取
func (h *Handler) armRead() {
	if h.pumping || h.readDone || h.slot == nil {
		return
	}
	window := h.slot.DownstreamReadWindow()
	if window == 0 {
		// 窗口耗尽，等 IncrementReadWindow 恢复
		return
	}

	size := h.readSize
	if uint64(size) > window {
		size = int(window)
	}
	msg, err := h.slot.Channel().AcquireMessageFromPool(types.MessageApplicationDataRead, size)
	if err != nil {
		logger.Warn("read buffer acquisition failed",
			"channel", h.slot.Channel().ID().ShortString(), "err", err)
		h.slot.Channel().Shutdown(types.ErrCodeSocketClosed)
		return
	}
	if msg.Cap() < size {
		size = msg.Cap()
	}
	msg.Data = msg.Data[:size]

	h.pumping = true
	go h.readOnce(msg)
}

// readOnce 阻塞读取一次并把结果递回循环线程
func (h *Handler) readOnce(msg *types.Message) {
	n, err := h.conn.Read(msg.Data)

	task := &types.ChannelTask{}
	types.InitChannelTask(task, func(_ *types.ChannelTask, _ any, status types.TaskStatus) {
		h.onReadComplete(msg, n, err, status)
	}, nil, "socket_read")
	h.slot.Channel().ScheduleTaskNow(task)
}

// onReadComplete 在循环线程上递交读取结果
func (h *Handler) onReadComplete(msg *types.Message, n int, readErr error, status types.TaskStatus) {
	h.pumping = false
	if status == types.TaskCanceled || h.readDone {
		msg.Release()
		return
	}

	if n > 0 {
		msg.Data = msg.Data[:n]
		if err := h.slot.SendMessage(msg, types.DirRead); err != nil {
			msg.Release()
			logger.Warn("inbound delivery failed",
				"channel", h.slot.Channel().ID().ShortString(), "err", err)
			h.slot.Channel().Shutdown(types.ErrCodeSocketClosed)
			return
		}
	} else {
		msg.Release()
	}

	if readErr != nil {
		if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, net.ErrClosed) &&
			!errors.Is(readErr, os.ErrDeadlineExceeded) {
			logger.Warn("socket read failed",
				"channel", h.slot.Channel().ID().ShortString(), "err", readErr)
		}
		h.slot.Channel().Shutdown(types.ErrCodeSocketClosed)
		return
	}
	h.armRead()
}

// ============================================================================
// 写路径
// ============================================================================

// ProcessWriteMessage 把写方向消息排入刷写队列
func (h *Handler) ProcessWriteMessage(_ pkgif.Slot, msg *types.Message) error {
	if h.writeDone {
		return types.ErrChannelShutDown
	}
	h.wmu.Lock()
	h.wq = append(h.wq, msg)
	h.wmu.Unlock()
	h.signalWriter()
	return nil
}

// writerLoop 刷写协程：按序落盘队列中的消息
func (h *Handler) writerLoop() {
	for {
		select {
		case <-h.wstop:
			return
		case <-h.wsig:
		}

		for {
			h.wmu.Lock()
			if len(h.wq) == 0 {
				flush := h.wflush
				errCode := h.wErrCode
				h.wflush = false
				h.wmu.Unlock()
				if flush {
					h.completeWriteShutdown(errCode)
				}
				break
			}
			msg := h.wq[0]
			h.wq = h.wq[1:]
			h.wmu.Unlock()

			_, err := h.conn.Write(msg.Data)
			if err != nil {
				h.scheduleWriteComplete(msg, types.ErrCodeSocketClosed)
				logger.Warn("socket write failed", "err", err)
				h.slot.Channel().Shutdown(types.ErrCodeSocketClosed)
				continue
			}
			h.scheduleWriteComplete(msg, types.ErrCodeSuccess)
		}
	}
}

// scheduleWriteComplete 把完成回调递回循环线程触发
func (h *Handler) scheduleWriteComplete(msg *types.Message, errCode int) {
	task := &types.ChannelTask{}
	types.InitChannelTask(task, func(_ *types.ChannelTask, _ any, status types.TaskStatus) {
		if status == types.TaskCanceled {
			errCode = types.ErrCodeEventLoopShutdown
		}
		msg.InvokeCompletion(errCode)
		msg.Release()
	}, nil, "socket_write_complete")
	h.slot.Channel().ScheduleTaskNow(task)
}

// completeWriteShutdown 队列刷空后半关闭并宣告写方向完成
func (h *Handler) completeWriteShutdown(errCode int) {
	if hc, ok := h.conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("half-close failed", "err", err)
		}
	} else {
		h.closeConn()
	}

	task := &types.ChannelTask{}
	types.InitChannelTask(task, func(_ *types.ChannelTask, _ any, status types.TaskStatus) {
		if status == types.TaskCanceled {
			return
		}
		if err := h.slot.OnHandlerShutdownComplete(types.DirWrite, errCode, false); err != nil {
			logger.Warn("write shutdown completion failed", "err", err)
		}
	}, nil, "socket_shutdown_write")
	h.slot.Channel().ScheduleTaskNow(task)
}

// ============================================================================
// Handler 接口其余部分
// ============================================================================

// ProcessReadMessage 链头没有左邻，不应收到读方向消息
func (h *Handler) ProcessReadMessage(_ pkgif.Slot, msg *types.Message) error {
	msg.Release()
	return types.ErrNoAdjacentSlot
}

// IncrementReadWindow 下游窗口增长，恢复挂起的读泵
func (h *Handler) IncrementReadWindow(slot pkgif.Slot, _ uint64) error {
	if h.slot == nil {
		h.slot = slot
	}
	h.armRead()
	return nil
}

// Shutdown 开始该方向的关闭
//
// 读方向同步完成并解除阻塞中的读取；写方向先刷空队列再经循环
// 任务异步完成。freeScarceResources 为 true 时立即关闭连接。
func (h *Handler) Shutdown(slot pkgif.Slot, dir types.Direction, errCode int, freeScarceResources bool) error {
	if dir == types.DirRead {
		h.readDone = true
		// 让阻塞中的 Read 立即返回
		_ = h.conn.SetReadDeadline(time.Now())
		if freeScarceResources {
			h.closeConn()
		}
		return slot.OnHandlerShutdownComplete(dir, errCode, freeScarceResources)
	}

	h.writeDone = true
	if freeScarceResources {
		h.closeConn()
		h.failPendingWrites(errCode)
		return slot.OnHandlerShutdownComplete(dir, errCode, true)
	}

	h.wmu.Lock()
	h.wflush = true
	h.wErrCode = errCode
	h.wmu.Unlock()
	h.signalWriter()
	return nil
}

// failPendingWrites 丢弃排队中的写消息并以 errCode 触发完成回调
func (h *Handler) failPendingWrites(errCode int) {
	h.wmu.Lock()
	pending := h.wq
	h.wq = nil
	h.wmu.Unlock()

	for _, msg := range pending {
		msg.InvokeCompletion(errCode)
		msg.Release()
	}
}

// InitialWindowSize 链头不接收读方向消息，窗口为零
func (h *Handler) InitialWindowSize() uint64 { return 0 }

// MessageOverhead 套接字不附加字节
func (h *Handler) MessageOverhead() uint64 { return 0 }

// Destroy 停止刷写协程并关闭连接
func (h *Handler) Destroy() {
	h.stopOnce.Do(func() { close(h.wstop) })
	h.closeConn()
	h.failPendingWrites(types.ErrCodeSocketClosed)
}

func (h *Handler) signalWriter() {
	select {
	case h.wsig <- struct{}{}:
	default:
	}
}

func (h *Handler) closeConn() {
	h.closeOnce.Do(func() {
		if err := h.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("socket close failed", "err", err)
		}
	})
}

// 接口契约
var _ pkgif.Handler = (*Handler)(nil)
