// Package interfaces 定义 go-channel 的公共接口
//
// 本文件定义装配层的公共操作面。
package interfaces

import "net"

// Listener 服务端监听端点
//
// 关闭监听器只停止接受新连接，已装配通道不受影响。
type Listener interface {
	// Addr 返回监听地址
	Addr() net.Addr

	// Close 停止监听。幂等
	Close() error
}
