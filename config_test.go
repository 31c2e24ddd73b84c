package channel

import (
	"encoding/json"
	"log/slog"
	"testing"
)

// ============================================================================
// 用户配置
// ============================================================================

func TestUserConfig_ToOptions(t *testing.T) {
	raw := `{
		"loop_count": 2,
		"max_fragment_size": 65536,
		"pool": {"data_message_size": 8192, "data_message_count": 4},
		"metrics": {"enable": true, "closed_cache_size": 32},
		"log_level": "warn"
	}`

	var cfg UserConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	o := defaultOptions()
	if err := o.apply(cfg.ToOptions()...); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if o.loopCount != 2 {
		t.Errorf("loopCount = %d, want 2", o.loopCount)
	}
	if o.maxFragmentSize != 65536 {
		t.Errorf("maxFragmentSize = %d, want 65536", o.maxFragmentSize)
	}
	if o.pool.dataMessageSize != 8192 || o.pool.dataMessageCount != 4 {
		t.Errorf("pool = %+v", o.pool)
	}
	if !o.metrics.enable {
		t.Error("metrics.enable = false, want true")
	}
	if o.metrics.closedCacheSize != 32 {
		t.Errorf("closedCacheSize = %d, want 32", o.metrics.closedCacheSize)
	}
	if o.logLevel == nil || *o.logLevel != slog.LevelWarn {
		t.Errorf("logLevel = %v, want warn", o.logLevel)
	}
}

func TestUserConfig_Empty(t *testing.T) {
	var cfg UserConfig
	if opts := cfg.ToOptions(); len(opts) != 0 {
		t.Errorf("empty config produced %d options", len(opts))
	}
}

func TestUserConfig_MetricsDisabled(t *testing.T) {
	disabled := false
	cfg := UserConfig{Metrics: &MetricsUserConfig{Enable: &disabled}}

	o := defaultOptions()
	if err := o.apply(cfg.ToOptions()...); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if o.metrics.enable {
		t.Error("metrics.enable = true, want false")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		name  string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", 0, false},
	}

	for _, tc := range cases {
		level, ok := parseLogLevel(tc.name)
		if ok != tc.ok || (ok && level != tc.level) {
			t.Errorf("parseLogLevel(%q) = %v, %v", tc.name, level, ok)
		}
	}
}
