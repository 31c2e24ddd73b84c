// Package compress 实现 s2 块压缩处理器
//
// 写方向整块压缩载荷，读方向解压；通常夹在分帧处理器与应用
// 处理器之间，保证每条消息恰好是一个压缩块。
package compress
