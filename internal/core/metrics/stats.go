package metrics

// Stats 通道统计快照
//
// Stats 表示某个时间点的通道指标快照。消息与字节按方向分别累计，
// ShutdownErrCode 仅对已关闭通道的快照有效。
type Stats struct {
	MessagesRead     int64 // 读方向消息数
	MessagesWritten  int64 // 写方向消息数
	BytesRead        int64 // 读方向字节数
	BytesWritten     int64 // 写方向字节数
	WindowRejections int64 // 窗口拒绝次数
	ShutdownErrCode  int   // 关闭错误码（0 表示正常关闭）
}
