// Package checksum 实现 murmur3 尾部校验处理器
//
// 写方向在载荷末尾追加 4 字节校验和，读方向校验并剥除；校验
// 不匹配视为流损坏，通道以协议错误码关闭。
package checksum
