package compress

import (
	"github.com/klauspost/compress/s2"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("protocol/compress")

// DefaultInitialWindow 默认初始读窗口
const DefaultInitialWindow = 256 * 1024

// blockOverhead s2 块头在不可压缩数据上的近似增量
const blockOverhead = 8

// ============================================================================
// 配置选项
// ============================================================================

// Option 压缩处理器配置选项
type Option func(*Handler)

// WithInitialWindow 设置初始读窗口
func WithInitialWindow(n uint64) Option {
	return func(h *Handler) {
		h.initialWindow = n
	}
}

// ============================================================================
// Handler 实现
// ============================================================================

// Handler s2 块压缩处理器
type Handler struct {
	initialWindow uint64
}

// New 创建压缩处理器
func New(opts ...Option) *Handler {
	h := &Handler{initialWindow: DefaultInitialWindow}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessReadMessage 解压读方向载荷后右传
//
// 解压失败视为流损坏，通道以协议错误码关闭。
func (h *Handler) ProcessReadMessage(slot pkgif.Slot, msg *types.Message) error {
	decoded, err := s2.Decode(nil, msg.Data)
	if err != nil {
		msg.Release()
		logger.Warn("block decode failed", "channel", slot.Channel().ID().ShortString(), "err", err)
		slot.Channel().Shutdown(types.ErrCodeProtocolError)
		return types.ErrCorruptFrame
	}

	out, err := slot.Channel().AcquireMessageFromPool(types.MessageApplicationDataRead, len(decoded))
	if err != nil {
		msg.Release()
		return err
	}
	out.Data = append(out.Data, decoded...)
	msg.Release()

	if err := slot.SendMessage(out, types.DirRead); err != nil {
		out.Release()
		return err
	}
	return nil
}

// ProcessWriteMessage 压缩写方向载荷后左传
func (h *Handler) ProcessWriteMessage(slot pkgif.Slot, msg *types.Message) error {
	encoded := s2.Encode(nil, msg.Data)

	out, err := slot.Channel().AcquireMessageFromPool(msg.Kind, len(encoded))
	if err != nil {
		msg.Release()
		return err
	}
	out.Data = append(out.Data, encoded...)
	out.OnCompletion = msg.OnCompletion
	out.UserData = msg.UserData

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
func (h *Handler) Shutdown(slot pkgif.Slot, dir types.Direction, errCode int, freeScarceResources bool) error {
	return slot.OnHandlerShutdownComplete(dir, errCode, freeScarceResources)
}

// InitialWindowSize 返回初始读窗口
func (h *Handler) InitialWindowSize() uint64 {
	return h.initialWindow
}

// MessageOverhead 返回不可压缩数据上的块头增量
func (h *Handler) MessageOverhead() uint64 {
	return blockOverhead
}

// Destroy 释放处理器资源
func (h *Handler) Destroy() {}

// 接口契约
var _ pkgif.Handler = (*Handler)(nil)
