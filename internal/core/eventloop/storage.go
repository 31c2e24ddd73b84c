package eventloop

import (
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// 循环本地存储
// ============================================================================
//
// 本地存储仅限循环线程访问；消息池等每循环单例挂在这里。
// 键由调用方定义，通常是包级私有哨兵值。

// FetchLocalObject 从本地存储取对象
func (l *Loop) FetchLocalObject(key any) (*types.LocalObject, bool) {
	obj, ok := l.locals[key]
	return obj, ok
}

// PutLocalObject 向本地存储放对象
//
// 同键覆盖旧对象，不触发旧对象的 OnRemoved 回调。
func (l *Loop) PutLocalObject(obj *types.LocalObject) error {
	l.locals[obj.Key] = obj
	return nil
}

// RemoveLocalObject 从本地存储移除对象
//
// 不触发 OnRemoved 回调；回调只在循环停止清理时触发。
func (l *Loop) RemoveLocalObject(key any) (*types.LocalObject, bool) {
	obj, ok := l.locals[key]
	if ok {
		delete(l.locals, key)
	}
	return obj, ok
}
