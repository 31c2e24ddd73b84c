// Package eventloop 实现单线程事件循环
//
// 每个 Loop 拥有一个 goroutine，串行执行提交给它的全部任务；
// 通道的处理器回调、槽位变更与通道任务都经由它执行，因此同一
// 通道上的操作永远不会并发。
//
// 核心能力：
//   - 立即任务与定时任务（时钟可注入，测试用 mock）
//   - 任务取消（任务函数以 TaskCanceled 执行一次）
//   - 循环本地存储（消息池等每循环单例挂在这里）
//   - Group：一组循环与轮转分配
package eventloop
