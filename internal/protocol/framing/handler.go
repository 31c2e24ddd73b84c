package framing

import (
	"github.com/multiformats/go-varint"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("protocol/framing")

// DefaultMaxFrameSize 默认单帧上限
const DefaultMaxFrameSize = 1 << 20

// DefaultInitialWindow 默认初始读窗口
const DefaultInitialWindow = 256 * 1024

// ============================================================================
// 配置选项
// ============================================================================

// Option 分帧处理器配置选项
type Option func(*Handler)

// WithMaxFrameSize 设置单帧上限
func WithMaxFrameSize(n uint64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxFrameSize = n
		}
	}
}

// WithInitialWindow 设置初始读窗口
func WithInitialWindow(n uint64) Option {
	return func(h *Handler) {
		h.initialWindow = n
	}
}

// ============================================================================
// Handler 实现
// ============================================================================

// Handler 变长前缀分帧处理器
//
// buf 是读方向的重组缓冲，仅在通道的循环线程上访问。
type Handler struct {
	maxFrameSize  uint64
	initialWindow uint64

	buf []byte
}

// New 创建分帧处理器
func New(opts ...Option) *Handler {
	h := &Handler{
		maxFrameSize:  DefaultMaxFrameSize,
		initialWindow: DefaultInitialWindow,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessReadMessage 重组读方向字节流并递交完整帧
//
// 不完整的帧留在缓冲里等后续消息；每递交一帧，为前缀字节向上游
// 补回窗口信用。
func (h *Handler) ProcessReadMessage(slot pkgif.Slot, msg *types.Message) error {
	h.buf = append(h.buf, msg.Data...)
	msg.Release()

	var recredit uint64
	for {
		frameLen, prefixLen, err := varint.FromUvarint(h.buf)
		if err == varint.ErrUnderflow {
			break
		}
		if err != nil {
			logger.Warn("corrupt frame prefix", "channel", slot.Channel().ID().ShortString(), "err", err)
			h.buf = nil
			slot.Channel().Shutdown(types.ErrCodeProtocolError)
			return types.ErrCorruptFrame
		}
		if frameLen > h.maxFrameSize {
			logger.Warn("frame exceeds limit",
				"channel", slot.Channel().ID().ShortString(), "len", frameLen, "limit", h.maxFrameSize)
			h.buf = nil
			slot.Channel().Shutdown(types.ErrCodeProtocolError)
			return types.ErrFrameTooLarge
		}
		if uint64(len(h.buf)) < uint64(prefixLen)+frameLen {
			break
		}

		frame, err := slot.Channel().AcquireMessageFromPool(types.MessageApplicationDataRead, int(frameLen))
		if err != nil {
			return err
		}
		frame.Data = append(frame.Data, h.buf[prefixLen:uint64(prefixLen)+frameLen]...)
		h.buf = append(h.buf[:0], h.buf[uint64(prefixLen)+frameLen:]...)

		if err := slot.SendMessage(frame, types.DirRead); err != nil {
			frame.Release()
			return err
		}
		recredit += uint64(prefixLen)
	}

	if recredit > 0 {
		return slot.IncrementReadWindow(recredit)
	}
	return nil
}

// ProcessWriteMessage 为写方向载荷加上长度前缀后左传
func (h *Handler) ProcessWriteMessage(slot pkgif.Slot, msg *types.Message) error {
	prefix := varint.ToUvarint(uint64(msg.Len()))

	out, err := slot.Channel().AcquireMessageFromPool(msg.Kind, len(prefix)+msg.Len())
	if err != nil {
		msg.Release()
		return err
	}
	out.Data = append(out.Data, prefix...)
	out.Data = append(out.Data, msg.Data...)
	out.OnCompletion = msg.OnCompletion
	out.UserData = msg.UserData

	// 完成回调已移交到出帧消息
	msg.OnCompletion = nil
	msg.Release()

	if err := slot.SendMessage(out, types.DirWrite); err != nil {
		out.Release()
		return err
	}
	return nil
}

// IncrementReadWindow 向上游透传窗口增量
func (h *Handler) IncrementReadWindow(slot pkgif.Slot, size uint64) error {
	return slot.IncrementReadWindow(size)
}

// Shutdown 同步完成该方向的关闭
//
// 读方向丢弃重组缓冲中未完成的帧。
func (h *Handler) Shutdown(slot pkgif.Slot, dir types.Direction, errCode int, freeScarceResources bool) error {
	if dir == types.DirRead {
		h.buf = nil
	}
	return slot.OnHandlerShutdownComplete(dir, errCode, freeScarceResources)
}

// InitialWindowSize 返回初始读窗口
func (h *Handler) InitialWindowSize() uint64 {
	return h.initialWindow
}

// MessageOverhead 返回最大前缀长度
func (h *Handler) MessageOverhead() uint64 {
	return varint.MaxLenUvarint63
}

// Destroy 释放重组缓冲
func (h *Handler) Destroy() {
	h.buf = nil
}

// 接口契约
var _ pkgif.Handler = (*Handler)(nil)
