package metrics

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/metrics")

// DefaultClosedCacheSize 已关闭通道快照缓存的默认容量
const DefaultClosedCacheSize = 128

// ============================================================================
// 配置选项
// ============================================================================

// Option 统计计数器配置选项
type Option func(*StatsCounter)

// WithClosedCacheSize 设置已关闭通道快照缓存容量
func WithClosedCacheSize(n int) Option {
	return func(c *StatsCounter) {
		if n > 0 {
			c.closedCacheSize = n
		}
	}
}

// ============================================================================
// StatsCounter
// ============================================================================

// channelCounters 单个在线通道的计数器
type channelCounters struct {
	messagesRead     atomic.Int64
	messagesWritten  atomic.Int64
	bytesRead        atomic.Int64
	bytesWritten     atomic.Int64
	windowRejections atomic.Int64
}

// snapshot 生成当前计数的快照
func (cc *channelCounters) snapshot() Stats {
	return Stats{
		MessagesRead:     cc.messagesRead.Load(),
		MessagesWritten:  cc.messagesWritten.Load(),
		BytesRead:        cc.bytesRead.Load(),
		BytesWritten:     cc.bytesWritten.Load(),
		WindowRejections: cc.windowRejections.Load(),
	}
}

// StatsCounter 通道统计计数器
//
// StatsCounter 跟踪全部通道的消息与字节流量。
// 使用原子操作实现并发安全的计数器。
type StatsCounter struct {
	// 全局计数器（使用 atomic）
	channelsTotal    atomic.Int64
	channelsActive   atomic.Int64
	messagesRead     atomic.Int64
	messagesWritten  atomic.Int64
	bytesRead        atomic.Int64
	bytesWritten     atomic.Int64
	windowRejections atomic.Int64
	shutdownsClean   atomic.Int64
	shutdownsError   atomic.Int64

	// 通道级计数器
	liveMu sync.RWMutex
	live   map[types.ChannelID]*channelCounters

	// 已关闭通道快照
	closedCacheSize int
	closed          *lru.Cache[types.ChannelID, Stats]
}

// NewStatsCounter 创建新的 StatsCounter
func NewStatsCounter(opts ...Option) *StatsCounter {
	c := &StatsCounter{
		live:            make(map[types.ChannelID]*channelCounters),
		closedCacheSize: DefaultClosedCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	// 容量经 Option 校验后恒为正，构造不会失败
	c.closed, _ = lru.New[types.ChannelID, Stats](c.closedCacheSize)
	return c
}

// ============================================================================
// StatsSink 实现
// ============================================================================

// OnChannelCreated 记录通道创建
func (c *StatsCounter) OnChannelCreated(id types.ChannelID) {
	c.channelsTotal.Add(1)
	c.channelsActive.Add(1)

	c.liveMu.Lock()
	c.live[id] = &channelCounters{}
	c.liveMu.Unlock()
}

// OnMessageSent 记录 dir 方向被接受的一条消息
func (c *StatsCounter) OnMessageSent(id types.ChannelID, dir types.Direction, size int) {
	n := int64(size)
	if dir == types.DirRead {
		c.messagesRead.Add(1)
		c.bytesRead.Add(n)
	} else {
		c.messagesWritten.Add(1)
		c.bytesWritten.Add(n)
	}

	c.liveMu.RLock()
	cc := c.live[id]
	c.liveMu.RUnlock()
	if cc == nil {
		return
	}
	if dir == types.DirRead {
		cc.messagesRead.Add(1)
		cc.bytesRead.Add(n)
	} else {
		cc.messagesWritten.Add(1)
		cc.bytesWritten.Add(n)
	}
}

// OnWindowRejection 记录一次窗口拒绝
func (c *StatsCounter) OnWindowRejection(id types.ChannelID) {
	c.windowRejections.Add(1)

	c.liveMu.RLock()
	cc := c.live[id]
	c.liveMu.RUnlock()
	if cc != nil {
		cc.windowRejections.Add(1)
	}
}

// OnChannelShutdown 记录通道关闭并归档快照
func (c *StatsCounter) OnChannelShutdown(id types.ChannelID, errCode int) {
	c.liveMu.Lock()
	cc := c.live[id]
	delete(c.live, id)
	c.liveMu.Unlock()
	if cc == nil {
		logger.Debug("shutdown for unknown channel", "channel", id.ShortString())
		return
	}

	c.channelsActive.Add(-1)
	if errCode == 0 {
		c.shutdownsClean.Add(1)
	} else {
		c.shutdownsError.Add(1)
	}

	snap := cc.snapshot()
	snap.ShutdownErrCode = errCode
	c.closed.Add(id, snap)
}

// ============================================================================
// 查询
// ============================================================================

// TotalStats 返回全局统计快照
func (c *StatsCounter) TotalStats() Stats {
	return Stats{
		MessagesRead:     c.messagesRead.Load(),
		MessagesWritten:  c.messagesWritten.Load(),
		BytesRead:        c.bytesRead.Load(),
		BytesWritten:     c.bytesWritten.Load(),
		WindowRejections: c.windowRejections.Load(),
	}
}

// StatsForChannel 返回指定通道的统计快照
//
// 先查在线通道，再查已关闭快照缓存；均未命中时返回 false。
func (c *StatsCounter) StatsForChannel(id types.ChannelID) (Stats, bool) {
	c.liveMu.RLock()
	cc := c.live[id]
	c.liveMu.RUnlock()
	if cc != nil {
		return cc.snapshot(), true
	}
	return c.closed.Get(id)
}

// ActiveChannels 返回当前在线通道数
func (c *StatsCounter) ActiveChannels() int64 {
	return c.channelsActive.Load()
}

// TotalChannels 返回累计创建的通道数
func (c *StatsCounter) TotalChannels() int64 {
	return c.channelsTotal.Load()
}

// ClosedChannelIDs 返回快照缓存中已关闭通道的 ID（LRU 序）
func (c *StatsCounter) ClosedChannelIDs() []types.ChannelID {
	return c.closed.Keys()
}

// Reset 清除所有统计
func (c *StatsCounter) Reset() {
	c.channelsTotal.Store(0)
	c.channelsActive.Store(0)
	c.messagesRead.Store(0)
	c.messagesWritten.Store(0)
	c.bytesRead.Store(0)
	c.bytesWritten.Store(0)
	c.windowRejections.Store(0)
	c.shutdownsClean.Store(0)
	c.shutdownsError.Store(0)

	c.liveMu.Lock()
	c.live = make(map[types.ChannelID]*channelCounters)
	c.liveMu.Unlock()

	c.closed.Purge()
}

// 接口契约
var _ pkgif.StatsSink = (*StatsCounter)(nil)
