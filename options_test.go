package channel

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// 选项校验
// ============================================================================

func TestOptions_Defaults(t *testing.T) {
	o := defaultOptions()
	if !o.metrics.enable {
		t.Error("metrics should be enabled by default")
	}
	if o.loopCount != 0 {
		t.Errorf("loopCount = %d, want 0", o.loopCount)
	}
}

func TestOptions_Apply(t *testing.T) {
	o := defaultOptions()
	err := o.apply(
		WithLoopCount(4),
		WithMaxFragmentSize(32*1024),
		WithMessagePool(8*1024, 2),
		WithMetrics(false),
		WithClosedStatsCacheSize(64),
		WithLogLevel(slog.LevelDebug),
	)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if o.loopCount != 4 {
		t.Errorf("loopCount = %d, want 4", o.loopCount)
	}
	if o.maxFragmentSize != 32*1024 {
		t.Errorf("maxFragmentSize = %d, want %d", o.maxFragmentSize, 32*1024)
	}
	if o.pool.dataMessageSize != 8*1024 || o.pool.dataMessageCount != 2 {
		t.Errorf("pool = %+v", o.pool)
	}
	if o.metrics.enable {
		t.Error("metrics.enable = true, want false")
	}
	if o.metrics.closedCacheSize != 64 {
		t.Errorf("closedCacheSize = %d, want 64", o.metrics.closedCacheSize)
	}
	if o.logLevel == nil || *o.logLevel != slog.LevelDebug {
		t.Errorf("logLevel = %v, want debug", o.logLevel)
	}
}

func TestOptions_Invalid(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
	}{
		{"negative loop count", WithLoopCount(-1)},
		{"zero fragment size", WithMaxFragmentSize(0)},
		{"zero pool size", WithMessagePool(0, 1)},
		{"negative pool count", WithMessagePool(1024, -1)},
		{"zero cache size", WithClosedStatsCacheSize(0)},
		{"nil registry", WithPrometheusRegistry(nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := defaultOptions().apply(tc.opt); err == nil {
				t.Error("apply succeeded, want error")
			}
		})
	}
}

func TestOptions_NilSkipped(t *testing.T) {
	if err := defaultOptions().apply(nil, WithLoopCount(1)); err != nil {
		t.Errorf("apply with nil option: %v", err)
	}
}

func TestNew_InvalidOption(t *testing.T) {
	if _, err := New(WithLoopCount(-1)); err == nil {
		t.Error("New with invalid option succeeded, want error")
	}
}

func TestOptions_Registry(t *testing.T) {
	o := defaultOptions()
	reg := prometheus.NewRegistry()
	if err := o.apply(WithPrometheusRegistry(reg)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if o.metrics.registry != prometheus.Registerer(reg) {
		t.Error("registry not stored")
	}
}
