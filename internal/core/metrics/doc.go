// Package metrics 实现通道统计收集与导出
//
// StatsCounter 用原子计数器跟踪全局与逐通道的消息、字节、窗口拒绝
// 与关闭统计，实现通道核心上报用的 StatsSink 接口。已关闭通道的
// 快照保留在有界 LRU 缓存里供事后检查。Reporter 把计数器导出为
// Prometheus 指标。
package metrics
