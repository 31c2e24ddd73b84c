// Package msgpool 实现每循环消息池
//
// 池挂在事件循环的本地存储上，同一循环上的全部通道共享一个池，
// 因此池本身无需加锁。数据消息与小块消息分别维护空闲链，耗尽时
// 退化为一次性分配。
package msgpool
