package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// 计数
// ============================================================================

func TestStatsCounter_ChannelLifecycle(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()

	c.OnChannelCreated(id)
	assert.EqualValues(t, 1, c.TotalChannels())
	assert.EqualValues(t, 1, c.ActiveChannels())

	c.OnChannelShutdown(id, 0)
	assert.EqualValues(t, 1, c.TotalChannels())
	assert.EqualValues(t, 0, c.ActiveChannels())
}

func TestStatsCounter_PerDirectionAccounting(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()
	c.OnChannelCreated(id)

	c.OnMessageSent(id, types.DirRead, 100)
	c.OnMessageSent(id, types.DirRead, 24)
	c.OnMessageSent(id, types.DirWrite, 512)

	total := c.TotalStats()
	assert.EqualValues(t, 2, total.MessagesRead)
	assert.EqualValues(t, 124, total.BytesRead)
	assert.EqualValues(t, 1, total.MessagesWritten)
	assert.EqualValues(t, 512, total.BytesWritten)

	per, ok := c.StatsForChannel(id)
	require.True(t, ok)
	assert.EqualValues(t, 124, per.BytesRead)
	assert.EqualValues(t, 512, per.BytesWritten)
}

func TestStatsCounter_WindowRejections(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()
	c.OnChannelCreated(id)

	c.OnWindowRejection(id)
	c.OnWindowRejection(id)

	assert.EqualValues(t, 2, c.TotalStats().WindowRejections)
	per, ok := c.StatsForChannel(id)
	require.True(t, ok)
	assert.EqualValues(t, 2, per.WindowRejections)
}

func TestStatsCounter_UnknownChannelIsIgnored(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()

	// 未创建的通道只计入全局
	c.OnMessageSent(id, types.DirRead, 10)
	c.OnWindowRejection(id)
	c.OnChannelShutdown(id, 7)

	assert.EqualValues(t, 10, c.TotalStats().BytesRead)
	assert.EqualValues(t, 0, c.ActiveChannels())
	_, ok := c.StatsForChannel(id)
	assert.False(t, ok)
}

// ============================================================================
// 已关闭通道快照
// ============================================================================

func TestStatsCounter_ClosedSnapshotKeepsErrCode(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()
	c.OnChannelCreated(id)
	c.OnMessageSent(id, types.DirRead, 64)
	c.OnChannelShutdown(id, 7)

	snap, ok := c.StatsForChannel(id)
	require.True(t, ok)
	assert.EqualValues(t, 64, snap.BytesRead)
	assert.Equal(t, 7, snap.ShutdownErrCode)

	// 关闭后的消息不再计入该通道
	c.OnMessageSent(id, types.DirRead, 999)
	snap, _ = c.StatsForChannel(id)
	assert.EqualValues(t, 64, snap.BytesRead)
}

func TestStatsCounter_ClosedCacheEvictsOldest(t *testing.T) {
	c := NewStatsCounter(WithClosedCacheSize(2))

	first := types.NewChannelID()
	for _, id := range []types.ChannelID{first, types.NewChannelID(), types.NewChannelID()} {
		c.OnChannelCreated(id)
		c.OnChannelShutdown(id, 0)
	}

	assert.Len(t, c.ClosedChannelIDs(), 2)
	_, ok := c.StatsForChannel(first)
	assert.False(t, ok, "oldest snapshot should have been evicted")
}

func TestStatsCounter_Reset(t *testing.T) {
	c := NewStatsCounter()
	id := types.NewChannelID()
	c.OnChannelCreated(id)
	c.OnMessageSent(id, types.DirWrite, 128)
	c.OnChannelShutdown(id, 3)

	c.Reset()

	assert.EqualValues(t, 0, c.TotalChannels())
	assert.Equal(t, Stats{}, c.TotalStats())
	assert.Empty(t, c.ClosedChannelIDs())
}

// ============================================================================
// 并发
// ============================================================================

func TestStatsCounter_ConcurrentAccess(t *testing.T) {
	c := NewStatsCounter()
	ids := make([]types.ChannelID, 8)
	for i := range ids {
		ids[i] = types.NewChannelID()
		c.OnChannelCreated(ids[i])
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id types.ChannelID) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.OnMessageSent(id, types.DirRead, 1)
				c.OnMessageSent(id, types.DirWrite, 2)
			}
		}(ids[g])
	}
	wg.Wait()

	total := c.TotalStats()
	assert.EqualValues(t, 8000, total.MessagesRead)
	assert.EqualValues(t, 8000, total.BytesRead)
	assert.EqualValues(t, 16000, total.BytesWritten)
}

// ============================================================================
// 与通道核心的集成
// ============================================================================

func TestStatsCounter_ObservesChannelTraffic(t *testing.T) {
	counter := NewStatsCounter()
	loop := eventloop.New()
	t.Cleanup(func() { loop.Close() })

	setup := make(chan int, 1)
	down := make(chan int, 1)
	ch := channel.New(loop, pkgif.CreationCallbacks{
		OnSetupCompleted:    func(_ pkgif.Channel, errCode int) { setup <- errCode },
		OnShutdownCompleted: func(_ pkgif.Channel, errCode int) { down <- errCode },
	}, channel.WithStatsSink(counter))

	select {
	case code := <-setup:
		require.Zero(t, code)
	case <-time.After(5 * time.Second):
		t.Fatal("setup never completed")
	}

	assert.EqualValues(t, 1, counter.ActiveChannels())

	ch.Shutdown(7)
	select {
	case code := <-down:
		assert.Equal(t, 7, code)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never completed")
	}

	assert.EqualValues(t, 0, counter.ActiveChannels())
	snap, ok := counter.StatsForChannel(ch.ID())
	require.True(t, ok)
	assert.Equal(t, 7, snap.ShutdownErrCode)
}
