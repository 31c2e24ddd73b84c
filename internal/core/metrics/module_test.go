package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块加载
func TestModule_Load(t *testing.T) {
	app := fxtest.New(t,
		Module(),
		fx.Invoke(func(counter *StatsCounter) {
			if counter == nil {
				t.Error("StatsCounter is nil")
			}
		}),
	)
	defer app.RequireStart().RequireStop()
}

// TestModule_Provides 测试模块提供的类型
func TestModule_Provides(t *testing.T) {
	var (
		counter  *StatsCounter
		reporter *Reporter
		sink     pkgif.StatsSink
	)

	app := fxtest.New(t,
		Module(),
		fx.Populate(&counter, &reporter, &sink),
	)
	defer app.RequireStart().RequireStop()

	if counter == nil || reporter == nil || sink == nil {
		t.Fatal("module outputs not populated")
	}

	// 测试基本功能
	id := types.NewChannelID()
	sink.OnChannelCreated(id)
	sink.OnMessageSent(id, types.DirRead, 100)

	stats := counter.TotalStats()
	if stats.BytesRead != 100 {
		t.Errorf("BytesRead = %d, want 100", stats.BytesRead)
	}
}

// TestModule_Disabled 测试禁用配置
func TestModule_Disabled(t *testing.T) {
	var sink pkgif.StatsSink

	app := fxtest.New(t,
		fx.Supply(&Config{Enabled: false}),
		Module(),
		fx.Populate(&sink),
	)
	defer app.RequireStart().RequireStop()

	if sink != nil {
		t.Error("sink should be nil when metrics disabled")
	}
}

// TestModule_RegistersCollector 测试注册表注入
func TestModule_RegistersCollector(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()

	app := fxtest.New(t,
		fx.Supply(fx.Annotate(reg, fx.As(new(prometheus.Registerer)))),
		Module(),
	)
	defer app.RequireStart().RequireStop()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}
