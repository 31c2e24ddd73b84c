// Package socket 实现把 net.Conn 接入管线最左端的处理器
//
// 读泵遵守槽位窗口：每次最多读取下游窗口允许的字节数，窗口耗尽时
// 挂起，收到窗口增量后恢复。写路径经独立的刷写协程落盘，完成回调
// 回到通道的循环线程触发。
package socket
