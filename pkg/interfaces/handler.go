// Package interfaces 定义 go-channel 的公共接口
//
// 本文件定义 Handler 接口，即管线中可插拔的协议级。
package interfaces

import "github.com/dep2p/go-channel/pkg/types"

// Handler 协议处理器
//
// 处理器由其槽位独占持有，所有回调都在通道的事件循环线程上执行。
type Handler interface {
	// ProcessReadMessage 处理来自左邻的读方向消息
	//
	// 调用发生时槽位窗口已按 msg.Len() 扣减。处理器取得 msg 的
	// 所有权，必须最终 Release；通常变换后经
	// slot.SendMessage(msg, DirRead) 继续右传。
	ProcessReadMessage(slot Slot, msg *types.Message) error

	// ProcessWriteMessage 处理来自右邻的写方向消息
	//
	// 处理器取得 msg 的所有权，通常变换后继续左传。
	ProcessWriteMessage(slot Slot, msg *types.Message) error

	// IncrementReadWindow 处理来自下游的窗口增量
	//
	// 更新内部状态后，通常以（可能不同的）增量调用
	// slot.IncrementReadWindow 继续向上游传播。
	IncrementReadWindow(slot Slot, size uint64) error

	// Shutdown 开始该方向的关闭
	//
	// 可以同步完成，也可以通过随后调度的任务异步完成；无论哪种，
	// 最终都必须调用 slot.OnHandlerShutdownComplete。若
	// freeScarceResources 为 true，文件描述符、套接字等稀缺 OS
	// 资源必须在返回前释放，即使整体清理仍未完成。
	Shutdown(slot Slot, dir types.Direction, errCode int, freeScarceResources bool) error

	// InitialWindowSize 返回挂载时希望上游观察到的读窗口
	InitialWindowSize() uint64

	// MessageOverhead 返回本处理器转发每条消息时附加的字节数
	//
	// 下游用它避免消息分片。
	MessageOverhead() uint64

	// Destroy 释放处理器资源
	//
	// 两个方向的关闭全部完成后恰好调用一次。
	Destroy()
}
