package eventloop

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/eventloop")

// ============================================================================
// Loop 实现
// ============================================================================

// Loop 单线程事件循环
//
// 所有任务在 run goroutine 上串行执行。跨线程提交只触碰 mu 保护的
// 就绪队列；其余状态（本地存储、定时器表）仅在循环线程上访问。
type Loop struct {
	id  types.LoopID
	clk clock.Clock

	mu     sync.Mutex
	ready  []*types.LoopTask
	closed bool

	wake chan struct{}
	done chan struct{}
	exit chan struct{}

	closeOnce sync.Once

	// 仅循环线程访问
	timers map[*types.LoopTask]*clock.Timer
	locals map[any]*types.LocalObject

	gid atomic.Uint64
}

// Option Loop 配置选项
type Option func(*Loop)

// WithClock 注入时钟（测试中使用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(l *Loop) {
		l.clk = clk
	}
}

// New 创建并启动事件循环
func New(opts ...Option) *Loop {
	l := &Loop{
		id:     types.NewLoopID(),
		clk:    clock.New(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exit:   make(chan struct{}),
		timers: make(map[*types.LoopTask]*clock.Timer),
		locals: make(map[any]*types.LocalObject),
	}

	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

// ID 返回事件循环标识
func (l *Loop) ID() types.LoopID {
	return l.id
}

// run 循环主体
func (l *Loop) run() {
	l.gid.Store(goroutineID())
	logger.Debug("event loop started", "loop", l.id.ShortString())

	defer close(l.exit)

	for {
		select {
		case <-l.wake:
			l.drainReady(types.TaskRunReady)
		case <-l.done:
			l.tearDown()
			return
		}
	}
}

// drainReady 执行当前就绪队列中的全部任务
func (l *Loop) drainReady(status types.TaskStatus) {
	for {
		l.mu.Lock()
		if len(l.ready) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.ready[0]
		l.ready = l.ready[1:]
		l.mu.Unlock()

		task.Fn(status)
	}
}

// tearDown 循环停止时的清理
//
// 未执行的任务以 TaskCanceled 执行一次；本地存储逐项移除并触发
// OnRemoved 回调。
func (l *Loop) tearDown() {
	for task, timer := range l.timers {
		timer.Stop()
		delete(l.timers, task)
		task.Fn(types.TaskCanceled)
	}

	l.mu.Lock()
	l.closed = true
	pending := l.ready
	l.ready = nil
	l.mu.Unlock()

	for _, task := range pending {
		task.Fn(types.TaskCanceled)
	}

	for key, obj := range l.locals {
		delete(l.locals, key)
		if obj.OnRemoved != nil {
			obj.OnRemoved(obj)
		}
	}

	logger.Debug("event loop stopped", "loop", l.id.ShortString())
}

// Close 停止事件循环并等待其退出
//
// 未执行的任务以 TaskCanceled 状态执行，本地存储被清理。
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	<-l.exit
	return nil
}

// ============================================================================
// 任务调度
// ============================================================================

// ScheduleTaskNow 调度任务尽快执行
//
// 任意线程可调用。循环已停止时任务以 TaskCanceled 同步执行。
func (l *Loop) ScheduleTaskNow(task *types.LoopTask) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		task.Fn(types.TaskCanceled)
		return
	}
	l.ready = append(l.ready, task)
	l.mu.Unlock()

	l.signal()
}

// ScheduleTaskFuture 调度任务在 runAtNanos（单调时钟纳秒）执行
//
// 任意线程可调用。已过期的时间点等价于 ScheduleTaskNow。
func (l *Loop) ScheduleTaskFuture(task *types.LoopTask, runAtNanos uint64) {
	task.RunAtNanos = runAtNanos

	now := l.CurrentClockNanos()
	if runAtNanos <= now {
		l.ScheduleTaskNow(task)
		return
	}
	delay := time.Duration(runAtNanos - now)

	if l.IsOnThisThread() {
		l.armTimer(task, delay)
		return
	}

	// 定时器表仅限循环线程；经由一个立即任务落到循环线程上再挂表
	arm := &types.LoopTask{
		TypeTag: "arm_future_task",
		Fn: func(status types.TaskStatus) {
			if status == types.TaskCanceled {
				task.Fn(types.TaskCanceled)
				return
			}
			l.armTimer(task, delay)
		},
	}
	l.ScheduleTaskNow(arm)
}

// armTimer 在循环线程上登记定时任务
func (l *Loop) armTimer(task *types.LoopTask, delay time.Duration) {
	l.timers[task] = l.clk.AfterFunc(delay, func() {
		l.fireTimer(task)
	})
}

// fireTimer 定时器到期，将任务移入就绪队列
//
// AfterFunc 的回调不在循环线程上；这里只触碰 mu 保护的队列，
// 摘表动作经由任务执行前的 disarm 完成。
func (l *Loop) fireTimer(task *types.LoopTask) {
	fired := &types.LoopTask{
		TypeTag: task.TypeTag,
		Fn: func(status types.TaskStatus) {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				// tearDown 已经以 TaskCanceled 取消了定时器表中的任务
				return
			}
			if _, ok := l.timers[task]; !ok {
				return
			}
			delete(l.timers, task)
			task.Fn(status)
		},
	}
	l.ScheduleTaskNow(fired)
}

// CancelTask 取消尚未执行的任务
//
// 仅限循环线程。任务函数以 TaskCanceled 执行一次；未登记的任务
// 是空操作。
func (l *Loop) CancelTask(task *types.LoopTask) {
	if timer, ok := l.timers[task]; ok {
		timer.Stop()
		delete(l.timers, task)
		task.Fn(types.TaskCanceled)
		return
	}

	l.mu.Lock()
	found := false
	for i, t := range l.ready {
		if t == task {
			l.ready = append(l.ready[:i], l.ready[i+1:]...)
			found = true
			break
		}
	}
	l.mu.Unlock()

	if found {
		task.Fn(types.TaskCanceled)
	}
}

// signal 唤醒循环（非阻塞）
func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// ============================================================================
// 时钟与线程归属
// ============================================================================

// CurrentClockNanos 返回单调时钟的当前纳秒值
func (l *Loop) CurrentClockNanos() uint64 {
	return uint64(l.clk.Now().UnixNano())
}

// IsOnThisThread 当前调用者是否在循环 goroutine 上
func (l *Loop) IsOnThisThread() bool {
	return goroutineID() == l.gid.Load()
}

// 接口契约
var _ pkgif.EventLoop = (*Loop)(nil)
