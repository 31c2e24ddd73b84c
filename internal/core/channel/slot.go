package channel

import (
	"math"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// slot 实现
// ============================================================================

// slot 处理器链中的一个节点
//
// 槽位由通道独占持有，左右邻居是非持有引用。window 是本槽位向
// 上游通告的剩余读信用；upstreamOverhead 是左侧全部处理器的消息
// 开销之和，链变更时由通道重算。所有字段仅限循环线程访问。
type slot struct {
	ch    *Channel
	left  *slot
	right *slot

	handler pkgif.Handler

	window           uint64
	upstreamOverhead uint64

	readDone         bool
	writeDone        bool
	handlerDestroyed bool
}

// Channel 返回槽位所属通道
func (s *slot) Channel() pkgif.Channel {
	return s.ch
}

// Handler 返回槽位挂载的处理器（可能为 nil）
func (s *slot) Handler() pkgif.Handler {
	return s.handler
}

// SetHandler 为空槽位挂载处理器
//
// 以处理器的初始窗口初始化槽位窗口，重算链上开销，并向左邻的
// 处理器发出窗口更新；没有左邻时传播为空操作。
func (s *slot) SetHandler(handler pkgif.Handler) error {
	if s.handler != nil {
		return types.ErrHandlerAlreadySet
	}
	s.handler = handler
	s.window = handler.InitialWindowSize()
	s.ch.recomputeOverhead()

	if s.left != nil && s.left.handler != nil {
		return s.left.handler.IncrementReadWindow(s.left, s.window)
	}
	return nil
}

// ============================================================================
// 链变更
// ============================================================================

// InsertRight 将 toAdd 插到本槽位右侧
func (s *slot) InsertRight(toAdd pkgif.Slot) error {
	n, err := s.sibling(toAdd)
	if err != nil {
		return err
	}
	n.left = s
	n.right = s.right
	if s.right != nil {
		s.right.left = n
	}
	s.right = n
	s.ch.recomputeOverhead()
	return nil
}

// InsertLeft 将 toAdd 插到本槽位左侧
func (s *slot) InsertLeft(toAdd pkgif.Slot) error {
	n, err := s.sibling(toAdd)
	if err != nil {
		return err
	}
	n.right = s
	n.left = s.left
	if s.left != nil {
		s.left.right = n
	} else {
		s.ch.first = n
	}
	s.left = n
	s.ch.recomputeOverhead()
	return nil
}

// Remove 将槽位摘出链并销毁其处理器
//
// 关闭状态机进行中不允许摘除，只在 ACTIVE 状态下可用。
func (s *slot) Remove() error {
	if s.ch.State() != types.StateActive {
		return types.ErrInvalidState
	}
	s.unlink()
	s.destroyHandler()
	s.ch.recomputeOverhead()
	return nil
}

// Replace 用 newSlot 原子替换本槽位，并销毁本槽位的处理器
func (s *slot) Replace(newSlot pkgif.Slot) error {
	if s.ch.State() != types.StateActive {
		return types.ErrInvalidState
	}
	n, err := s.sibling(newSlot)
	if err != nil {
		return err
	}

	n.left = s.left
	n.right = s.right
	if s.left != nil {
		s.left.right = n
	} else {
		s.ch.first = n
	}
	if s.right != nil {
		s.right.left = n
	}
	s.left, s.right = nil, nil

	s.destroyHandler()
	s.ch.recomputeOverhead()
	return nil
}

// sibling 校验另一个槽位属于同一通道
func (s *slot) sibling(other pkgif.Slot) (*slot, error) {
	n, ok := other.(*slot)
	if !ok || n.ch != s.ch {
		return nil, types.ErrInvalidState
	}
	return n, nil
}

func (s *slot) unlink() {
	if s.left != nil {
		s.left.right = s.right
	} else if s.ch.first == s {
		s.ch.first = s.right
	}
	if s.right != nil {
		s.right.left = s.left
	}
	s.left, s.right = nil, nil
}

func (s *slot) destroyHandler() {
	if s.handler != nil && !s.handlerDestroyed {
		s.handlerDestroyed = true
		s.handler.Destroy()
	}
}

// ============================================================================
// 消息流动与窗口
// ============================================================================

// SendMessage 将消息递交给 dir 方向的相邻槽位
//
// 读方向先做窗口检查：msg.Len() 超过右邻窗口时拒绝并保留调用方
// 的所有权；接受时先扣减右邻窗口再调用其处理器。写方向不做窗口
// 检查。成功即表示邻居的处理器已接管消息。
func (s *slot) SendMessage(msg *types.Message, dir types.Direction) error {
	switch dir {
	case types.DirRead:
		right := s.right
		if right == nil || right.handler == nil {
			return types.ErrNoAdjacentSlot
		}
		n := uint64(msg.Len())
		if n > right.window {
			if s.ch.stats != nil {
				s.ch.stats.OnWindowRejection(s.ch.id)
			}
			return types.ErrReadWouldExceedWindow
		}
		right.window -= n
		if s.ch.stats != nil {
			s.ch.stats.OnMessageSent(s.ch.id, dir, msg.Len())
		}
		return right.handler.ProcessReadMessage(right, msg)

	case types.DirWrite:
		left := s.left
		if left == nil || left.handler == nil {
			return types.ErrNoAdjacentSlot
		}
		if s.ch.stats != nil {
			s.ch.stats.OnMessageSent(s.ch.id, dir, msg.Len())
		}
		return left.handler.ProcessWriteMessage(left, msg)
	}
	return types.ErrInvalidState
}

// IncrementReadWindow 增加本槽位窗口并向上游发出窗口更新
//
// 窗口在 uint64 最大值处饱和；没有左邻时传播为空操作。
func (s *slot) IncrementReadWindow(size uint64) error {
	if s.window > math.MaxUint64-size {
		s.window = math.MaxUint64
	} else {
		s.window += size
	}

	if s.left != nil && s.left.handler != nil {
		return s.left.handler.IncrementReadWindow(s.left, size)
	}
	return nil
}

// DownstreamReadWindow 返回右邻的当前窗口（无右邻时为 0）
func (s *slot) DownstreamReadWindow() uint64 {
	if s.right == nil {
		return 0
	}
	return s.right.window
}

// UpstreamMessageOverhead 返回左侧所有处理器的开销之和
func (s *slot) UpstreamMessageOverhead() uint64 {
	return s.upstreamOverhead
}

// WindowSize 返回本槽位当前向上游通告的读窗口
func (s *slot) WindowSize() uint64 {
	return s.window
}

// ============================================================================
// 关闭推进
// ============================================================================

// Shutdown 要求本槽位的处理器开始该方向的关闭
//
// 处理器返回错误不会使状态机停摆：错误被记录后按已完成推进。
// 没有处理器的槽位直接视为完成。
func (s *slot) Shutdown(dir types.Direction, errCode int, freeScarceResources bool) error {
	if s.handler == nil {
		return s.OnHandlerShutdownComplete(dir, errCode, freeScarceResources)
	}
	if err := s.handler.Shutdown(s, dir, errCode, freeScarceResources); err != nil {
		logger.Warn("handler shutdown failed",
			"channel", s.ch.id.ShortString(), "dir", dir.String(), "err", err)
		return s.OnHandlerShutdownComplete(dir, errCode, freeScarceResources)
	}
	return nil
}

// OnHandlerShutdownComplete 处理器宣告该方向关闭完成
//
// 每个方向只推进一次，重复宣告是空操作。
func (s *slot) OnHandlerShutdownComplete(dir types.Direction, errCode int, freeScarceResources bool) error {
	switch dir {
	case types.DirRead:
		if s.readDone {
			return nil
		}
		s.readDone = true
	case types.DirWrite:
		if s.writeDone {
			return nil
		}
		s.writeDone = true
	}

	s.ch.onSlotShutdownComplete(s, dir, errCode, freeScarceResources)
	return nil
}

// 接口契约
var _ pkgif.Slot = (*slot)(nil)
