// Package interfaces 定义 go-channel 的公共接口
//
// 本文件定义 EventLoop 接口，即通道绑定的单线程任务执行器。
package interfaces

import "github.com/dep2p/go-channel/pkg/types"

// EventLoop 单线程事件循环
//
// 事件循环保证其所有任务在同一个 goroutine 上串行执行。
// 除 ScheduleTaskNow / ScheduleTaskFuture / CurrentClockNanos /
// IsOnThisThread 外，其余方法仅限循环线程调用。
type EventLoop interface {
	// ID 返回事件循环标识
	ID() types.LoopID

	// ScheduleTaskNow 调度任务尽快执行。任意线程
	ScheduleTaskNow(task *types.LoopTask)

	// ScheduleTaskFuture 调度任务在 runAtNanos 执行。任意线程
	ScheduleTaskFuture(task *types.LoopTask, runAtNanos uint64)

	// CancelTask 取消尚未执行的任务；任务函数以 TaskCanceled 执行一次。
	// 仅限循环线程
	CancelTask(task *types.LoopTask)

	// CurrentClockNanos 返回单调时钟的当前纳秒值。任意线程
	CurrentClockNanos() uint64

	// IsOnThisThread 当前调用者是否在循环线程上。任意线程
	IsOnThisThread() bool

	// FetchLocalObject 从本地存储取对象
	FetchLocalObject(key any) (*types.LocalObject, bool)

	// PutLocalObject 向本地存储放对象
	PutLocalObject(obj *types.LocalObject) error

	// RemoveLocalObject 从本地存储移除对象；不触发 OnRemoved 回调
	RemoveLocalObject(key any) (*types.LocalObject, bool)
}

// MessagePool 消息池
//
// 池由事件循环独占持有（通过本地存储），仅限循环线程访问。
type MessagePool interface {
	types.MessageReleaser

	// AcquireMessage 取一条容量不小于 min(sizeHint, 池上限) 的消息
	AcquireMessage(kind types.MessageKind, sizeHint int) (*types.Message, error)
}
