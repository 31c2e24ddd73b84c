package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// Prometheus 导出
// ============================================================================

// Reporter 把 StatsCounter 导出为 Prometheus 指标
//
// Reporter 实现 prometheus.Collector，采集时直接读取计数器的
// 原子值，不维护自己的状态。
type Reporter struct {
	counter *StatsCounter

	channelsTotal  *prometheus.Desc
	channelsActive *prometheus.Desc
	messagesTotal  *prometheus.Desc
	bytesTotal     *prometheus.Desc
	rejections     *prometheus.Desc
	shutdowns      *prometheus.Desc
}

// NewReporter 创建 Prometheus 导出器
func NewReporter(counter *StatsCounter) *Reporter {
	return &Reporter{
		counter: counter,
		channelsTotal: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "channels_total"),
			"累计创建的通道数", nil, nil,
		),
		channelsActive: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "channels_active"),
			"当前在线通道数", nil, nil,
		),
		messagesTotal: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "messages_total"),
			"按方向累计的消息数", []string{"direction"}, nil,
		),
		bytesTotal: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "bytes_total"),
			"按方向累计的字节数", []string{"direction"}, nil,
		),
		rejections: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "window_rejections_total"),
			"因下游窗口不足被拒绝的读方向消息数", nil, nil,
		),
		shutdowns: prometheus.NewDesc(
			prometheus.BuildFQName("dep2p", "channel", "shutdowns_total"),
			"按结果累计的通道关闭数", []string{"result"}, nil,
		),
	}
}

// Describe 实现 prometheus.Collector
func (r *Reporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.channelsTotal
	ch <- r.channelsActive
	ch <- r.messagesTotal
	ch <- r.bytesTotal
	ch <- r.rejections
	ch <- r.shutdowns
}

// Collect 实现 prometheus.Collector
func (r *Reporter) Collect(ch chan<- prometheus.Metric) {
	c := r.counter

	ch <- prometheus.MustNewConstMetric(r.channelsTotal, prometheus.CounterValue,
		float64(c.channelsTotal.Load()))
	ch <- prometheus.MustNewConstMetric(r.channelsActive, prometheus.GaugeValue,
		float64(c.channelsActive.Load()))

	ch <- prometheus.MustNewConstMetric(r.messagesTotal, prometheus.CounterValue,
		float64(c.messagesRead.Load()), "read")
	ch <- prometheus.MustNewConstMetric(r.messagesTotal, prometheus.CounterValue,
		float64(c.messagesWritten.Load()), "write")

	ch <- prometheus.MustNewConstMetric(r.bytesTotal, prometheus.CounterValue,
		float64(c.bytesRead.Load()), "read")
	ch <- prometheus.MustNewConstMetric(r.bytesTotal, prometheus.CounterValue,
		float64(c.bytesWritten.Load()), "write")

	ch <- prometheus.MustNewConstMetric(r.rejections, prometheus.CounterValue,
		float64(c.windowRejections.Load()))

	ch <- prometheus.MustNewConstMetric(r.shutdowns, prometheus.CounterValue,
		float64(c.shutdownsClean.Load()), "clean")
	ch <- prometheus.MustNewConstMetric(r.shutdowns, prometheus.CounterValue,
		float64(c.shutdownsError.Load()), "error")
}

// Register 向注册表注册导出器
func (r *Reporter) Register(reg prometheus.Registerer) error {
	return reg.Register(r)
}

// 接口契约
var _ prometheus.Collector = (*Reporter)(nil)
