package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// Prometheus 导出测试
// ============================================================================

func TestReporter_CollectsAllMetrics(t *testing.T) {
	c := NewStatsCounter()
	r := NewReporter(c)

	// 2 个标量 + 2×2 方向 + 1 拒绝 + 2 结果 = 9 条指标
	assert.Equal(t, 9, testutil.CollectAndCount(r))
}

func TestReporter_ReportsCounterValues(t *testing.T) {
	c := NewStatsCounter()
	r := NewReporter(c)

	id := types.NewChannelID()
	c.OnChannelCreated(id)
	c.OnMessageSent(id, types.DirRead, 100)
	c.OnMessageSent(id, types.DirWrite, 40)
	c.OnWindowRejection(id)

	expected := `
# HELP dep2p_channel_bytes_total 按方向累计的字节数
# TYPE dep2p_channel_bytes_total counter
dep2p_channel_bytes_total{direction="read"} 100
dep2p_channel_bytes_total{direction="write"} 40
# HELP dep2p_channel_channels_active 当前在线通道数
# TYPE dep2p_channel_channels_active gauge
dep2p_channel_channels_active 1
# HELP dep2p_channel_window_rejections_total 因下游窗口不足被拒绝的读方向消息数
# TYPE dep2p_channel_window_rejections_total counter
dep2p_channel_window_rejections_total 1
`
	err := testutil.CollectAndCompare(r, strings.NewReader(expected),
		"dep2p_channel_bytes_total",
		"dep2p_channel_channels_active",
		"dep2p_channel_window_rejections_total",
	)
	require.NoError(t, err)
}

func TestReporter_ShutdownResults(t *testing.T) {
	c := NewStatsCounter()
	r := NewReporter(c)

	clean := types.NewChannelID()
	failed := types.NewChannelID()
	c.OnChannelCreated(clean)
	c.OnChannelCreated(failed)
	c.OnChannelShutdown(clean, 0)
	c.OnChannelShutdown(failed, 7)

	expected := `
# HELP dep2p_channel_shutdowns_total 按结果累计的通道关闭数
# TYPE dep2p_channel_shutdowns_total counter
dep2p_channel_shutdowns_total{result="clean"} 1
dep2p_channel_shutdowns_total{result="error"} 1
`
	err := testutil.CollectAndCompare(r, strings.NewReader(expected),
		"dep2p_channel_shutdowns_total")
	require.NoError(t, err)
}

func TestReporter_RegistersWithRegistry(t *testing.T) {
	c := NewStatsCounter()
	r := NewReporter(c)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, r.Register(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// 重复注册同一采集器应报错
	assert.Error(t, r.Register(reg))
}
