// Package channel 提供基于槽位链与信用窗口的通道管线。
//
// 一条通道由若干槽位串成处理链，消息沿读写两个方向流经链上的
// 处理器；读方向的流量由信用窗口约束，写方向由处理器自行推进。
// 通道的全部状态变更都在其绑定的事件循环线程上执行，任意线程
// 通过任务投递与通道交互。
//
// 顶层入口是 Engine：
//
//	eng, err := channel.New(channel.WithLoopCount(4))
//	if err != nil { ... }
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop(ctx)
//
//	listener, err := eng.Listen("tcp", ":9000", cbs)
//	ch, err := eng.Dial(ctx, "tcp", "127.0.0.1:9000", cbs)
//
// 装配回调中向通道追加处理器（分帧、压缩、校验和或业务处理器），
// 之后消息即可双向流动。
package channel
