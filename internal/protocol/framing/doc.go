// Package framing 实现变长前缀分帧处理器
//
// 写方向在载荷前加 uvarint 长度前缀；读方向跨消息边界重组，
// 只向右递交完整帧，并为被消耗的前缀字节向上游补回窗口信用。
package framing
