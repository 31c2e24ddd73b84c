package channel

import "errors"

// ════════════════════════════════════════════════════════════════════════════
//                              引擎错误
// ════════════════════════════════════════════════════════════════════════════

var (
	// ErrAlreadyStarted 引擎已经启动
	ErrAlreadyStarted = errors.New("channel: engine already started")

	// ErrNotStarted 引擎尚未启动
	ErrNotStarted = errors.New("channel: engine not started")

	// ErrStopped 引擎已经停止
	ErrStopped = errors.New("channel: engine stopped")
)
