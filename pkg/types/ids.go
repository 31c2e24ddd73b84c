package types

import "github.com/google/uuid"

// ============================================================================
//                              ChannelID - 通道标识
// ============================================================================

// ChannelID 通道唯一标识符
//
// 仅用于日志与指标中区分通道实例，不参与任何协议语义。
type ChannelID string

// NewChannelID 生成新的通道 ID
func NewChannelID() ChannelID {
	return ChannelID(uuid.NewString())
}

// String 返回 ChannelID 的字符串表示
func (id ChannelID) String() string {
	return string(id)
}

// ShortString 返回 ChannelID 的短字符串表示
//
// 格式：前 8 个字符，用于日志中的简短标识。
func (id ChannelID) ShortString() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// ============================================================================
//                              LoopID - 事件循环标识
// ============================================================================

// LoopID 事件循环唯一标识符
type LoopID string

// NewLoopID 生成新的事件循环 ID
func NewLoopID() LoopID {
	return LoopID(uuid.NewString())
}

// String 返回 LoopID 的字符串表示
func (id LoopID) String() string {
	return string(id)
}

// ShortString 返回 LoopID 的短字符串表示
func (id LoopID) ShortString() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
