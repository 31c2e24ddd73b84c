package channel

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-channel/internal/core/msgpool"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/channel")

// DefaultMaxFragmentSize 默认最大分片大小
//
// 从池取消息时的容量上限，进程初始化后只读。
const DefaultMaxFragmentSize = 16 * 1024

// ============================================================================
// 配置选项
// ============================================================================

// Option 通道配置选项
type Option func(*Channel)

// WithMaxFragmentSize 设置最大分片大小
func WithMaxFragmentSize(n uint64) Option {
	return func(ch *Channel) {
		if n > 0 {
			ch.maxFragmentSize = n
		}
	}
}

// WithStatsSink 设置统计出口（nil 等价于丢弃统计）
func WithStatsSink(sink pkgif.StatsSink) Option {
	return func(ch *Channel) {
		ch.stats = sink
	}
}

// WithPoolConfig 设置消息池规格
//
// 池挂在事件循环上，同循环的首个通道决定实际规格。
func WithPoolConfig(cfg msgpool.Config) Option {
	return func(ch *Channel) {
		ch.poolCfg = cfg
	}
}

// ============================================================================
// Channel 实现
// ============================================================================

// Channel 通道管线
//
// first、pool 与槽位链仅在事件循环线程上访问。引用计数、关闭
// 标志与就绪前任务队列是仅有的跨线程可变状态。
type Channel struct {
	id    types.ChannelID
	loop  pkgif.EventLoop
	cbs   pkgif.CreationCallbacks
	stats pkgif.StatsSink

	maxFragmentSize uint64
	poolCfg         msgpool.Config

	state atomic.Int32

	// refs 含一个自引用，Destroy 时释放
	refs      atomic.Int64
	destroyed atomic.Bool
	released  atomic.Bool

	shutdownStarted atomic.Bool
	shutdownErr     atomic.Int64

	mu          sync.Mutex
	pending     []*types.ChannelTask
	outstanding map[*types.ChannelTask]struct{}

	// 仅循环线程访问
	first *slot
	pool  pkgif.MessagePool
}

// New 创建通道并在事件循环上调度装配任务
//
// 通道以 INITIALIZING 状态返回；装配任务在循环线程上标记 ACTIVE、
// 排空就绪前排队的任务并触发 OnSetupCompleted。任意线程可调用。
func New(loop pkgif.EventLoop, cbs pkgif.CreationCallbacks, opts ...Option) *Channel {
	ch := &Channel{
		id:              types.NewChannelID(),
		loop:            loop,
		cbs:             cbs,
		maxFragmentSize: DefaultMaxFragmentSize,
		poolCfg:         msgpool.DefaultConfig(),
		outstanding:     make(map[*types.ChannelTask]struct{}),
	}
	ch.state.Store(int32(types.StateInitializing))
	ch.refs.Store(1)

	for _, opt := range opts {
		opt(ch)
	}

	if ch.stats != nil {
		ch.stats.OnChannelCreated(ch.id)
	}

	// 装配任务运行期间额外持有一次引用
	ch.AcquireHold()
	loop.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "channel_setup",
		Fn:      ch.setup,
	})

	logger.Debug("channel created", "channel", ch.id.ShortString(), "loop", loop.ID().ShortString())
	return ch
}

// ID 返回通道标识
func (ch *Channel) ID() types.ChannelID {
	return ch.id
}

// State 返回当前生命周期状态
func (ch *Channel) State() types.ChannelState {
	return types.ChannelState(ch.state.Load())
}

// setup 装配任务，在循环线程上执行
func (ch *Channel) setup(status types.TaskStatus) {
	defer ch.ReleaseHold()

	if status == types.TaskCanceled {
		ch.state.Store(int32(types.StateShutDown))
		ch.cancelPending()
		if ch.cbs.OnSetupCompleted != nil {
			ch.cbs.OnSetupCompleted(ch, types.ErrCodeEventLoopShutdown)
		}
		return
	}

	pool, err := msgpool.FindOrCreate(ch.loop, ch.poolCfg)
	if err != nil {
		ch.state.Store(int32(types.StateShutDown))
		ch.cancelPending()
		if ch.cbs.OnSetupCompleted != nil {
			ch.cbs.OnSetupCompleted(ch, types.ErrCodeEventLoopShutdown)
		}
		return
	}
	ch.pool = pool

	ch.mu.Lock()
	ch.state.Store(int32(types.StateActive))
	pending := ch.pending
	ch.pending = nil
	ch.mu.Unlock()

	errCode := types.ErrCodeSuccess
	if ch.shutdownStarted.Load() {
		errCode = int(ch.shutdownErr.Load())
	}
	if ch.cbs.OnSetupCompleted != nil {
		ch.cbs.OnSetupCompleted(ch, errCode)
	}

	for _, task := range pending {
		ch.dispatch(task)
	}

	logger.Debug("channel active", "channel", ch.id.ShortString())
}

// cancelPending 以 TaskCanceled 排空就绪前排队的任务
func (ch *Channel) cancelPending() {
	ch.mu.Lock()
	pending := ch.pending
	ch.pending = nil
	ch.mu.Unlock()

	for _, task := range pending {
		task.Fn(task, task.Arg, types.TaskCanceled)
	}
}

// ============================================================================
// 引用计数与销毁
// ============================================================================

// AcquireHold 增加引用计数，阻止内存回收
func (ch *Channel) AcquireHold() {
	ch.refs.Add(1)
}

// ReleaseHold 释放一次引用计数
//
// 计数归零时执行最终回收；回收可能发生在最后一次减计数的任意
// 线程上，此时关闭已经静默了处理器活动。
func (ch *Channel) ReleaseHold() {
	if ch.refs.Add(-1) == 0 {
		ch.finalRelease()
	}
}

// Destroy 标记通道销毁并释放自引用
//
// 须在关闭完成回调之后调用；幂等。
func (ch *Channel) Destroy() {
	if ch.destroyed.CompareAndSwap(false, true) {
		ch.ReleaseHold()
	}
}

// finalRelease 最终回收
func (ch *Channel) finalRelease() {
	if !ch.released.CompareAndSwap(false, true) {
		return
	}
	// 通道未经历完整关闭时兜底销毁处理器
	ch.destroySlots()
	logger.Debug("channel released", "channel", ch.id.ShortString())
}

// ============================================================================
// 任务调度
// ============================================================================

// ScheduleTaskNow 调度通道任务尽快执行。任意线程
func (ch *Channel) ScheduleTaskNow(task *types.ChannelTask) {
	task.Wrapper.RunAtNanos = 0
	ch.scheduleTask(task)
}

// ScheduleTaskFuture 调度通道任务在 runAtNanos 执行。任意线程
func (ch *Channel) ScheduleTaskFuture(task *types.ChannelTask, runAtNanos uint64) {
	task.Wrapper.RunAtNanos = runAtNanos
	ch.scheduleTask(task)
}

func (ch *Channel) scheduleTask(task *types.ChannelTask) {
	ch.mu.Lock()
	st := types.ChannelState(ch.state.Load())
	if st == types.StateInitializing {
		ch.pending = append(ch.pending, task)
		ch.mu.Unlock()
		return
	}
	ch.mu.Unlock()

	if st == types.StateShutDown {
		// 已关闭，任务仍在循环线程上执行一次，状态为 TaskCanceled
		ch.loop.ScheduleTaskNow(&types.LoopTask{
			TypeTag: task.TypeTag,
			Fn: func(types.TaskStatus) {
				task.Fn(task, task.Arg, types.TaskCanceled)
			},
		})
		return
	}

	ch.dispatch(task)
}

// dispatch 包装通道任务交给事件循环，并登记在途
//
// 包装层先把任务摘出在途表再调用用户函数，关闭完成时的批量
// 取消据此保证每个任务只执行一次。
func (ch *Channel) dispatch(task *types.ChannelTask) {
	task.Wrapper.TypeTag = task.TypeTag
	task.Wrapper.Fn = func(status types.TaskStatus) {
		ch.mu.Lock()
		delete(ch.outstanding, task)
		ch.mu.Unlock()
		task.Fn(task, task.Arg, status)
	}

	ch.mu.Lock()
	ch.outstanding[task] = struct{}{}
	ch.mu.Unlock()

	if task.Wrapper.RunAtNanos > 0 {
		ch.loop.ScheduleTaskFuture(&task.Wrapper, task.Wrapper.RunAtNanos)
	} else {
		ch.loop.ScheduleTaskNow(&task.Wrapper)
	}
}

// cancelOutstanding 取消全部在途任务，仅限循环线程
func (ch *Channel) cancelOutstanding() {
	ch.mu.Lock()
	tasks := make([]*types.ChannelTask, 0, len(ch.outstanding))
	for task := range ch.outstanding {
		tasks = append(tasks, task)
	}
	ch.outstanding = make(map[*types.ChannelTask]struct{})
	ch.mu.Unlock()

	for _, task := range tasks {
		ch.loop.CancelTask(&task.Wrapper)
	}
}

// ============================================================================
// 事件循环透传
// ============================================================================

// CurrentClockTime 返回事件循环单调时钟的当前纳秒值
func (ch *Channel) CurrentClockTime() uint64 {
	return ch.loop.CurrentClockNanos()
}

// ThreadIsCallersThread 当前调用者是否在事件循环线程上
func (ch *Channel) ThreadIsCallersThread() bool {
	return ch.loop.IsOnThisThread()
}

// FetchLocalObject 从事件循环本地存储取对象
func (ch *Channel) FetchLocalObject(key any) (*types.LocalObject, bool) {
	return ch.loop.FetchLocalObject(key)
}

// PutLocalObject 向事件循环本地存储放对象
func (ch *Channel) PutLocalObject(obj *types.LocalObject) error {
	return ch.loop.PutLocalObject(obj)
}

// RemoveLocalObject 从事件循环本地存储移除对象
func (ch *Channel) RemoveLocalObject(key any) (*types.LocalObject, bool) {
	return ch.loop.RemoveLocalObject(key)
}

// AcquireMessageFromPool 从事件循环的消息池取消息
//
// 容量被收紧到 min(sizeHint, maxFragmentSize - 链头上游开销)，
// 使消息在典型处理器开销下不会在管线中分片。
func (ch *Channel) AcquireMessageFromPool(kind types.MessageKind, sizeHint int) (*types.Message, error) {
	if !ch.loop.IsOnThisThread() {
		return nil, types.ErrNotOnChannelThread
	}
	if ch.pool == nil {
		return nil, types.ErrInvalidState
	}

	limit := ch.maxFragmentSize
	if ch.first != nil && ch.first.upstreamOverhead < limit {
		limit -= ch.first.upstreamOverhead
	}
	hint := uint64(sizeHint)
	if sizeHint < 0 {
		hint = 0
	}
	if hint > limit {
		hint = limit
	}
	return ch.pool.AcquireMessage(kind, int(hint))
}

// ============================================================================
// 槽位链管理
// ============================================================================

// NewSlot 分配新槽位
//
// 通道还没有链头时，新槽位自动成为链头。仅限循环线程。
func (ch *Channel) NewSlot() pkgif.Slot {
	s := &slot{ch: ch}
	if ch.first == nil {
		ch.first = s
	}
	return s
}

// InsertEnd 将槽位接到链尾
func (ch *Channel) InsertEnd(toAdd pkgif.Slot) error {
	s, ok := toAdd.(*slot)
	if !ok || s.ch != ch {
		return types.ErrInvalidState
	}
	if ch.first == s {
		return nil
	}
	if ch.first == nil {
		ch.first = s
		return nil
	}
	return ch.lastSlot().InsertRight(s)
}

// FirstSlot 返回链头槽位（可能为 nil）
func (ch *Channel) FirstSlot() pkgif.Slot {
	if ch.first == nil {
		return nil
	}
	return ch.first
}

func (ch *Channel) lastSlot() *slot {
	s := ch.first
	if s == nil {
		return nil
	}
	for s.right != nil {
		s = s.right
	}
	return s
}

// recomputeOverhead 链变更后重算每个槽位的上游消息开销
func (ch *Channel) recomputeOverhead() {
	var acc uint64
	for s := ch.first; s != nil; s = s.right {
		s.upstreamOverhead = acc
		if s.handler != nil {
			acc += s.handler.MessageOverhead()
		}
	}
}

// destroySlots 销毁全部处理器并拆链
func (ch *Channel) destroySlots() {
	for s := ch.first; s != nil; {
		next := s.right
		s.destroyHandler()
		s.left, s.right = nil, nil
		s = next
	}
	ch.first = nil
}

// ============================================================================
// 关闭状态机
// ============================================================================

// Shutdown 发起通道拆除
//
// 任意线程；幂等，第一个错误码生效。实际推进经由循环线程上的
// 任务执行。
func (ch *Channel) Shutdown(errCode int) error {
	if !ch.shutdownStarted.CompareAndSwap(false, true) {
		return nil
	}
	ch.shutdownErr.Store(int64(errCode))

	ch.loop.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "channel_shutdown",
		Fn:      ch.runShutdown,
	})
	return nil
}

// runShutdown 在循环线程上把状态机推进到读方向关闭
func (ch *Channel) runShutdown(status types.TaskStatus) {
	if ch.State() >= types.StateShuttingDownRead {
		return
	}
	errCode := int(ch.shutdownErr.Load())

	if status == types.TaskCanceled {
		// 事件循环先于通道停止
		ch.completeShutdown(errCode)
		return
	}

	ch.state.Store(int32(types.StateShuttingDownRead))
	logger.Debug("channel shutting down", "channel", ch.id.ShortString(), "err", errCode)

	if ch.first == nil {
		// 空通道直达 SHUT_DOWN
		ch.completeShutdown(errCode)
		return
	}
	ch.first.Shutdown(types.DirRead, errCode, false)
}

// onSlotShutdownComplete 槽位宣告某方向关闭完成后推进状态机
//
// 读方向左到右逐槽推进；走到链尾后经由一个新调度的任务折返写
// 方向，避免在处理器回调栈内直接回折。写方向右到左推进，链头
// 完成即整体完成。
func (ch *Channel) onSlotShutdownComplete(s *slot, dir types.Direction, errCode int, freeScarce bool) {
	if dir == types.DirRead {
		if s.right != nil {
			s.right.Shutdown(types.DirRead, errCode, freeScarce)
			return
		}
		ch.loop.ScheduleTaskNow(&types.LoopTask{
			TypeTag: "channel_shutdown_write",
			Fn: func(status types.TaskStatus) {
				if status == types.TaskCanceled {
					ch.completeShutdown(errCode)
					return
				}
				ch.state.Store(int32(types.StateShuttingDownWrite))
				last := ch.lastSlot()
				if last == nil {
					ch.completeShutdown(errCode)
					return
				}
				last.Shutdown(types.DirWrite, errCode, freeScarce)
			},
		})
		return
	}

	if s.left != nil {
		s.left.Shutdown(types.DirWrite, errCode, freeScarce)
		return
	}
	ch.completeShutdown(errCode)
}

// completeShutdown 关闭完成，仅限循环线程
//
// 先取消在途任务，再触发关闭回调，最后销毁处理器并拆链。
func (ch *Channel) completeShutdown(errCode int) {
	if ch.State() == types.StateShutDown {
		return
	}
	ch.state.Store(int32(types.StateShutDown))

	ch.cancelOutstanding()

	if ch.stats != nil {
		ch.stats.OnChannelShutdown(ch.id, errCode)
	}
	if ch.cbs.OnShutdownCompleted != nil {
		ch.cbs.OnShutdownCompleted(ch, errCode)
	}

	ch.destroySlots()
	logger.Debug("channel shut down", "channel", ch.id.ShortString(), "err", errCode)
}

// 接口契约
var _ pkgif.Channel = (*Channel)(nil)
