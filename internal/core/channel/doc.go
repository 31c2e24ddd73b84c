// Package channel 实现通道管线核心
//
// 一条通道拥有一串槽位组成的双向链，每个槽位独占挂载一个协议
// 处理器。读方向消息从链头（套接字侧）右传到链尾（应用侧），
// 写方向反向；窗口信用沿读方向的上游（左向）流动，约束在途的
// 读字节数。
//
// 通道终生绑定一个事件循环：处理器回调、槽位变更与通道任务都
// 在该循环的线程上串行执行。关闭是两阶段状态机：读方向从左到
// 右逐槽排空，再写方向从右到左，完成后触发一次关闭回调。通道
// 的引用计数独立于生命周期状态，外部持有（hold）只保证内存不
// 被回收，不阻止逻辑拆除。
package channel
