// Package interfaces 定义 go-channel 的公共接口
//
// 本文件定义 Channel 与 Slot 接口，即通道管线核心的公共操作面。
package interfaces

import "github.com/dep2p/go-channel/pkg/types"

// ChannelCallbackFn 通道生命周期回调
//
// errCode 为 0 表示成功。回调在通道的事件循环线程上执行。
type ChannelCallbackFn func(ch Channel, errCode int)

// CreationCallbacks 通道创建回调集
type CreationCallbacks struct {
	// OnSetupCompleted 通道装配完成（每个通道恰好触发一次）
	OnSetupCompleted ChannelCallbackFn

	// OnShutdownCompleted 通道关闭完成（装配成功的通道恰好触发一次）
	OnShutdownCompleted ChannelCallbackFn
}

// Channel 通道管线
//
// 除标注「任意线程」的方法外，所有操作都必须在通道的事件循环
// 线程上调用。
type Channel interface {
	// ID 返回通道标识
	ID() types.ChannelID

	// State 返回当前生命周期状态（仅限事件循环线程）
	State() types.ChannelState

	// Shutdown 发起通道拆除。任意线程；幂等，第一个错误码生效
	Shutdown(errCode int) error

	// Destroy 标记通道销毁。任意线程，但须在关闭完成后调用
	Destroy()

	// AcquireHold 增加引用计数，阻止内存回收。任意线程
	AcquireHold()

	// ReleaseHold 释放一次引用计数。任意线程
	ReleaseHold()

	// ScheduleTaskNow 调度任务尽快执行。任意线程
	ScheduleTaskNow(task *types.ChannelTask)

	// ScheduleTaskFuture 调度任务在指定时间执行。任意线程
	ScheduleTaskFuture(task *types.ChannelTask, runAtNanos uint64)

	// CurrentClockTime 返回事件循环单调时钟的当前纳秒值
	CurrentClockTime() uint64

	// FetchLocalObject 从事件循环本地存储取对象
	FetchLocalObject(key any) (*types.LocalObject, bool)

	// PutLocalObject 向事件循环本地存储放对象
	PutLocalObject(obj *types.LocalObject) error

	// RemoveLocalObject 从事件循环本地存储移除对象
	RemoveLocalObject(key any) (*types.LocalObject, bool)

	// AcquireMessageFromPool 从事件循环的消息池取消息
	//
	// 返回消息的容量被收紧到
	// min(sizeHint, maxFragmentSize - firstSlot.upstreamMessageOverhead)，
	// 使消息在典型处理器开销下不会在管线中分片。
	AcquireMessageFromPool(kind types.MessageKind, sizeHint int) (*types.Message, error)

	// ThreadIsCallersThread 当前调用者是否在事件循环线程上。任意线程
	ThreadIsCallersThread() bool

	// NewSlot 分配新槽位；通道的第一个槽位自动成为链头
	NewSlot() Slot

	// InsertEnd 将槽位接到链尾
	InsertEnd(slot Slot) error

	// FirstSlot 返回链头槽位（可能为 nil）
	FirstSlot() Slot
}

// Slot 通道处理器链中的一个节点
//
// 槽位终生属于同一个通道。所有方法仅限事件循环线程。
type Slot interface {
	// Channel 返回槽位所属通道
	Channel() Channel

	// Handler 返回槽位挂载的处理器（可能为 nil）
	Handler() Handler

	// SetHandler 为空槽位挂载处理器
	//
	// 以 handler.InitialWindowSize() 初始化槽位窗口，重算链上的
	// 消息开销，并向上游传播窗口更新。槽位已有处理器时返回错误。
	SetHandler(handler Handler) error

	// InsertRight 将 toAdd 插到本槽位右侧
	InsertRight(toAdd Slot) error

	// InsertLeft 将 toAdd 插到本槽位左侧
	InsertLeft(toAdd Slot) error

	// Remove 将槽位摘出链并销毁其处理器
	Remove() error

	// Replace 用 newSlot 原子替换本槽位，并销毁本槽位及其处理器
	Replace(newSlot Slot) error

	// SendMessage 将消息递交给 dir 方向的相邻槽位
	//
	// 读方向做窗口检查：msg.Len() 超过右邻窗口时拒绝；接受时先按
	// msg.Len() 扣减右邻窗口再调用其处理器。写方向不做窗口检查。
	// 返回错误时消息所有权仍在调用方；成功即表示邻居已接管消息。
	SendMessage(msg *types.Message, dir types.Direction) error

	// IncrementReadWindow 增加本槽位窗口并向上游发出窗口更新
	//
	// 窗口在无符号最大值处饱和；没有左邻时传播为空操作。
	IncrementReadWindow(size uint64) error

	// DownstreamReadWindow 返回右邻的当前窗口（无右邻时为 0）
	DownstreamReadWindow() uint64

	// UpstreamMessageOverhead 返回左侧所有处理器的开销之和
	UpstreamMessageOverhead() uint64

	// WindowSize 返回本槽位当前向上游通告的读窗口
	WindowSize() uint64

	// OnHandlerShutdownComplete 处理器宣告该方向关闭完成
	//
	// 槽位据此推进关闭状态机的下一步。
	OnHandlerShutdownComplete(dir types.Direction, errCode int, freeScarceResources bool) error

	// Shutdown 要求本槽位的处理器开始该方向的关闭
	Shutdown(dir types.Direction, errCode int, freeScarceResources bool) error
}
