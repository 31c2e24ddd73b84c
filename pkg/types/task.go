package types

// ============================================================================
//                              LoopTask - 事件循环任务
// ============================================================================

// LoopTaskFn 事件循环任务函数
type LoopTaskFn func(status TaskStatus)

// LoopTask 提交给事件循环的可调度工作单元
//
// 结构由调用方分配；一旦提交，在任务函数执行前不得修改或复用。
type LoopTask struct {
	// Fn 任务函数
	Fn LoopTaskFn

	// TypeTag 诊断用类型标签
	TypeTag string

	// RunAtNanos 期望的执行时间（事件循环单调时钟，纳秒）。
	// 0 表示尽快执行。由调度方填写。
	RunAtNanos uint64
}

// ============================================================================
//                              ChannelTask - 通道任务
// ============================================================================

// ChannelTaskFn 通道任务函数
//
// status 为 TaskRunReady 表示正常执行；TaskCanceled 表示通道在任务
// 执行前已被拆除，用户代码应在此释放自己的状态。
type ChannelTaskFn func(task *ChannelTask, arg any, status TaskStatus)

// ChannelTask 通道上的可调度工作单元
//
// 包装一个用户函数与类型标签，由通道路由到其事件循环线程执行。
// 结构由调用方分配；一旦调度，在任务函数执行前不得修改或释放。
// Wrapper 由通道内部使用，调用方不应触碰。
type ChannelTask struct {
	// Wrapper 投递给事件循环的底层任务（通道内部使用）
	Wrapper LoopTask

	// Fn 用户任务函数
	Fn ChannelTaskFn

	// Arg 随任务函数传递的用户参数
	Arg any

	// TypeTag 诊断用类型标签
	TypeTag string
}

// InitChannelTask 初始化通道任务
//
// 对应在调度前必须完成的初始化；重复初始化会重置任务。
func InitChannelTask(task *ChannelTask, fn ChannelTaskFn, arg any, typeTag string) {
	*task = ChannelTask{
		Fn:      fn,
		Arg:     arg,
		TypeTag: typeTag,
	}
}

// ============================================================================
//                              LocalObject - 事件循环本地对象
// ============================================================================

// LocalObject 事件循环本地存储中的一项
type LocalObject struct {
	// Key 存储键
	Key any

	// Value 存储值
	Value any

	// OnRemoved 对象被移除（或事件循环清理本地存储）时的回调
	OnRemoved func(obj *LocalObject)
}
