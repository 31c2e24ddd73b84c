// Package types 定义 go-channel 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              回调错误码
// ============================================================================

// 生命周期回调携带整数错误码，0 表示成功。非零码大多由发起关闭
// 的一方选定，以下是核心自身使用的保留码。
const (
	// ErrCodeSuccess 成功
	ErrCodeSuccess = 0

	// ErrCodeEventLoopShutdown 事件循环在通道装配或关闭前停止
	ErrCodeEventLoopShutdown = 1

	// ErrCodeProtocolError 协议处理器检测到无法恢复的流错误
	ErrCodeProtocolError = 2

	// ErrCodeSocketClosed 套接字被对端或本端关闭
	ErrCodeSocketClosed = 3
)

// ============================================================================
//                              容量相关错误
// ============================================================================

var (
	// ErrReadWouldExceedWindow 读方向消息超过下游窗口
	ErrReadWouldExceedWindow = errors.New("read message would exceed downstream window")

	// ErrMessageTooLarge 消息超过池的最大容量
	ErrMessageTooLarge = errors.New("message exceeds pool capacity")
)

// ============================================================================
//                              状态相关错误
// ============================================================================

var (
	// ErrInvalidState 当前生命周期状态下不允许该操作
	ErrInvalidState = errors.New("operation not permitted in current channel state")

	// ErrHandlerAlreadySet 槽位已经挂载了处理器
	ErrHandlerAlreadySet = errors.New("slot already has a handler")

	// ErrNoAdjacentSlot 目标方向上没有相邻槽位
	ErrNoAdjacentSlot = errors.New("no adjacent slot in requested direction")

	// ErrNotOnChannelThread 调用者不在通道的事件循环线程上
	ErrNotOnChannelThread = errors.New("caller is not on the channel's event-loop thread")

	// ErrChannelShutDown 通道已关闭
	ErrChannelShutDown = errors.New("channel is shut down")
)

// ============================================================================
//                              资源相关错误
// ============================================================================

var (
	// ErrLoopClosed 事件循环已停止
	ErrLoopClosed = errors.New("event loop closed")

	// ErrPoolExhausted 消息池耗尽且无法直接分配
	ErrPoolExhausted = errors.New("message pool exhausted")
)

// ============================================================================
//                              协议相关错误
// ============================================================================

var (
	// ErrChecksumMismatch 校验和不匹配
	ErrChecksumMismatch = errors.New("message checksum mismatch")

	// ErrFrameTooLarge 帧长度超过上限
	ErrFrameTooLarge = errors.New("frame length exceeds limit")

	// ErrCorruptFrame 帧头无法解析
	ErrCorruptFrame = errors.New("corrupt frame header")
)

// ============================================================================
//                              装配相关错误
// ============================================================================

var (
	// ErrBootstrapClosed 引导器已关闭
	ErrBootstrapClosed = errors.New("bootstrap closed")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("listener closed")
)
