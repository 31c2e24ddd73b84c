package types

// ============================================================================
//                              Message - 管线消息
// ============================================================================

// MessageCompletionFn 消息处理完毕后的回调
//
// errCode 为 0 表示消息被正常消费，非 0 表示消息在送达前被丢弃
// （例如通道关闭）。回调在通道的事件循环线程上执行。
type MessageCompletionFn func(msg *Message, errCode int)

// MessageReleaser 消息释放器
//
// 由消息池实现。消息的最终持有者通过 Message.Release 归还消息。
type MessageReleaser interface {
	// ReleaseMessage 归还消息
	ReleaseMessage(msg *Message)
}

// Message 管线中传递的 I/O 消息
//
// 所有权规则：SendMessage 成功后消息归接收方处理器所有，由其负责
// Release；SendMessage 返回错误时所有权仍在调用方。
type Message struct {
	// Releaser 消息所属的池；直接分配的消息可以为 nil
	Releaser MessageReleaser

	// Data 载荷。len(Data) 为消息长度，cap(Data) 为容量
	Data []byte

	// Kind 消息种类
	Kind MessageKind

	// OnCompletion 可选的完成回调
	OnCompletion MessageCompletionFn

	// UserData 随完成回调传递的用户数据
	UserData any

	// CopyMark 可选的拷贝标记偏移；处理器用它记录已消费的前缀长度
	CopyMark int
}

// Len 返回消息长度
func (m *Message) Len() int {
	return len(m.Data)
}

// Cap 返回消息容量
func (m *Message) Cap() int {
	return cap(m.Data)
}

// Release 归还消息
//
// 对每条被接受的消息必须恰好调用一次。无池消息（Releaser 为 nil）
// 的 Release 是空操作。
func (m *Message) Release() {
	if m.Releaser != nil {
		m.Releaser.ReleaseMessage(m)
	}
}

// InvokeCompletion 触发完成回调（若存在），之后回调被清除
func (m *Message) InvokeCompletion(errCode int) {
	if m.OnCompletion != nil {
		fn := m.OnCompletion
		m.OnCompletion = nil
		fn(m, errCode)
	}
}
