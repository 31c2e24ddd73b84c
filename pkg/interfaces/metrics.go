// Package interfaces 定义 go-channel 的公共接口
//
// 本文件定义 StatsSink 接口，通道核心经由它上报统计，
// 保持核心对具体指标实现无感知。
package interfaces

import "github.com/dep2p/go-channel/pkg/types"

// StatsSink 通道统计出口
//
// 所有方法都可能在通道的事件循环线程上被高频调用，实现必须
// 廉价且并发安全。nil sink 等价于丢弃全部统计。
type StatsSink interface {
	// OnChannelCreated 通道创建
	OnChannelCreated(id types.ChannelID)

	// OnMessageSent 一条消息在 dir 方向被相邻槽位接受
	OnMessageSent(id types.ChannelID, dir types.Direction, bytes int)

	// OnWindowRejection 一条读方向消息因超过下游窗口被拒绝
	OnWindowRejection(id types.ChannelID)

	// OnChannelShutdown 通道关闭完成
	OnChannelShutdown(id types.ChannelID, errCode int)
}
