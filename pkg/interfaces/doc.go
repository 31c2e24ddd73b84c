// Package interfaces 定义 go-channel 的公共接口
//
// 接口按能力划分：
//
//   - Handler：协议处理器（管线中的一级）
//   - Channel / Slot：通道管线核心的公共操作面
//   - EventLoop：单线程任务执行器（通道绑定的外部协作者）
//   - MessagePool：事件循环持有的消息池
//   - StatsSink：通道统计的窄出口
//   - Listener：服务端监听端点
//
// 实现位于 internal/core 下的各模块；本包不包含任何实现。
package interfaces
