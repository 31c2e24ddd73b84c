package checksum

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("protocol/checksum")

// DefaultInitialWindow 默认初始读窗口
const DefaultInitialWindow = 256 * 1024

// trailerSize 尾部校验和长度
const trailerSize = 4

// ============================================================================
// 配置选项
// ============================================================================

// Option 校验处理器配置选项
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

// Handler murmur3 尾部校验处理器
type Handler struct {
	initialWindow uint64
}

// New 创建校验处理器
func New(opts ...Option) *Handler {
	h := &Handler{initialWindow: DefaultInitialWindow}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessReadMessage 校验并剥除尾部校验和后右传
//
// 剥除的 4 字节向上游补回窗口信用。
func (h *Handler) ProcessReadMessage(slot pkgif.Slot, msg *types.Message) error {
	if msg.Len() < trailerSize {
		msg.Release()
		logger.Warn("message shorter than checksum trailer",
			"channel", slot.Channel().ID().ShortString(), "len", msg.Len())
		slot.Channel().Shutdown(types.ErrCodeProtocolError)
		return types.ErrCorruptFrame
	}

	payload := msg.Data[:msg.Len()-trailerSize]
	want := binary.BigEndian.Uint32(msg.Data[msg.Len()-trailerSize:])
	if got := murmur3.Sum32(payload); got != want {
		msg.Release()
		logger.Warn("checksum mismatch",
			"channel", slot.Channel().ID().ShortString(), "want", want, "got", got)
		slot.Channel().Shutdown(types.ErrCodeProtocolError)
		return types.ErrChecksumMismatch
	}

	msg.Data = payload
	if err := slot.SendMessage(msg, types.DirRead); err != nil {
		msg.Release()
		return err
	}
	return slot.IncrementReadWindow(trailerSize)
}

// ProcessWriteMessage 在写方向载荷末尾追加校验和后左传
func (h *Handler) ProcessWriteMessage(slot pkgif.Slot, msg *types.Message) error {
	var trailer [trailerSize]byte
	binary.BigEndian.PutUint32(trailer[:], murmur3.Sum32(msg.Data))
	msg.Data = append(msg.Data, trailer[:]...)

	if err := slot.SendMessage(msg, types.DirWrite); err != nil {
		msg.Release()
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

// MessageOverhead 返回尾部校验和长度
func (h *Handler) MessageOverhead() uint64 {
	return trailerSize
}

// Destroy 释放处理器资源
func (h *Handler) Destroy() {}

// 接口契约
var _ pkgif.Handler = (*Handler)(nil)
