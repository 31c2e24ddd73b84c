// Package types 定义 go-channel 的基础类型
//
// 这是整个模块的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型（或纯数据结构），用于在各模块间传递数据：
//
//   - 枚举：Direction、TaskStatus、ChannelState、MessageKind
//   - 标识：ChannelID、LoopID
//   - 数据：Message、ChannelTask、LoopTask、LocalObject
//   - 错误：公共 sentinel 错误
package types
