package msgpool

import (
	"testing"
	"time"

	"github.com/dep2p/go-channel/internal/core/eventloop"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// 接口契约测试
// ============================================================================

// TestPool_ImplementsInterface 验证 Pool 实现接口
func TestPool_ImplementsInterface(t *testing.T) {
	var _ pkgif.MessagePool = (*Pool)(nil)
}

// ============================================================================
// 取还测试
// ============================================================================

// TestPool_Acquire_SmallBlock 测试小请求走小块空闲链
func TestPool_Acquire_SmallBlock(t *testing.T) {
	p := New(DefaultConfig())

	msg, err := p.AcquireMessage(types.MessageApplicationData, 64)
	if err != nil {
		t.Fatalf("AcquireMessage failed: %v", err)
	}
	if msg.Cap() != 128 {
		t.Errorf("Cap() = %d, want 128", msg.Cap())
	}
	if msg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", msg.Len())
	}
	if msg.Kind != types.MessageApplicationData {
		t.Errorf("Kind = %v, want MessageApplicationData", msg.Kind)
	}
}

// TestPool_Acquire_DataMessage 测试中等请求走数据空闲链
func TestPool_Acquire_DataMessage(t *testing.T) {
	p := New(DefaultConfig())

	msg, err := p.AcquireMessage(types.MessageApplicationData, 4096)
	if err != nil {
		t.Fatalf("AcquireMessage failed: %v", err)
	}
	if msg.Cap() != 16*1024 {
		t.Errorf("Cap() = %d, want %d", msg.Cap(), 16*1024)
	}
}

// TestPool_Acquire_Oversize 测试超池请求一次性分配
func TestPool_Acquire_Oversize(t *testing.T) {
	p := New(DefaultConfig())

	msg, err := p.AcquireMessage(types.MessageApplicationData, 64*1024)
	if err != nil {
		t.Fatalf("AcquireMessage failed: %v", err)
	}
	if msg.Cap() != 64*1024 {
		t.Errorf("Cap() = %d, want %d", msg.Cap(), 64*1024)
	}

	// 超池消息归还后不进空闲链
	before := len(p.dataFree)
	p.ReleaseMessage(msg)
	if len(p.dataFree) != before {
		t.Error("oversize message entered the data free list")
	}
}

// TestPool_ReleaseReuse 测试归还后复用同一缓冲区
func TestPool_ReleaseReuse(t *testing.T) {
	cfg := Config{DataMessageSize: 1024, DataMessageCount: 1, SmallBlockSize: 128, SmallBlockCount: 1}
	p := New(cfg)

	msg, err := p.AcquireMessage(types.MessageApplicationData, 512)
	if err != nil {
		t.Fatalf("AcquireMessage failed: %v", err)
	}
	msg.Data = append(msg.Data, []byte("hello")...)
	msg.OnCompletion = func(*types.Message, int) {}
	msg.Release()

	again, err := p.AcquireMessage(types.MessageApplicationData, 512)
	if err != nil {
		t.Fatalf("second AcquireMessage failed: %v", err)
	}
	if again.Len() != 0 {
		t.Errorf("reused message Len() = %d, want 0", again.Len())
	}
	if again.OnCompletion != nil {
		t.Error("reused message kept stale completion callback")
	}
	if &again.Data[:1][0] != &msg.Data[:1][0] {
		t.Error("freelist did not hand back the same buffer")
	}
}

// TestPool_Exhausted_FallsBackToAlloc 测试空闲链耗尽时退化为分配
func TestPool_Exhausted_FallsBackToAlloc(t *testing.T) {
	cfg := Config{DataMessageSize: 1024, DataMessageCount: 1, SmallBlockSize: 128, SmallBlockCount: 1}
	p := New(cfg)

	first, _ := p.AcquireMessage(types.MessageApplicationData, 512)
	second, err := p.AcquireMessage(types.MessageApplicationData, 512)
	if err != nil {
		t.Fatalf("AcquireMessage after exhaustion failed: %v", err)
	}
	if first == second {
		t.Error("exhausted pool handed out the same message twice")
	}
	if second.Cap() != 1024 {
		t.Errorf("fallback Cap() = %d, want 1024", second.Cap())
	}
}

// TestPool_Destroyed 测试销毁后的取还
func TestPool_Destroyed(t *testing.T) {
	p := New(DefaultConfig())
	msg, _ := p.AcquireMessage(types.MessageApplicationData, 64)
	p.Destroy()

	if _, err := p.AcquireMessage(types.MessageApplicationData, 64); err != types.ErrPoolExhausted {
		t.Errorf("AcquireMessage after destroy = %v, want ErrPoolExhausted", err)
	}

	// 销毁后归还不恐慌
	p.ReleaseMessage(msg)
}

// ============================================================================
// 循环本地存储测试
// ============================================================================

// TestFindOrCreate_SharedPerLoop 测试同一循环上的池唯一
func TestFindOrCreate_SharedPerLoop(t *testing.T) {
	l := eventloop.New()
	defer l.Close()

	pools := make(chan *Pool, 2)
	done := make(chan struct{})
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_find_pool",
		Fn: func(types.TaskStatus) {
			defer close(done)
			p1, err := FindOrCreate(l, DefaultConfig())
			if err != nil {
				t.Errorf("first FindOrCreate failed: %v", err)
				return
			}
			p2, err := FindOrCreate(l, DefaultConfig())
			if err != nil {
				t.Errorf("second FindOrCreate failed: %v", err)
				return
			}
			pools <- p1
			pools <- p2
		},
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop task never ran")
	}

	if <-pools != <-pools {
		t.Error("FindOrCreate returned two distinct pools on one loop")
	}
}

// TestFindOrCreate_DestroyedOnLoopClose 测试循环停止时池被销毁
func TestFindOrCreate_DestroyedOnLoopClose(t *testing.T) {
	l := eventloop.New()

	got := make(chan *Pool, 1)
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_pool_destroy",
		Fn: func(types.TaskStatus) {
			p, err := FindOrCreate(l, DefaultConfig())
			if err != nil {
				t.Errorf("FindOrCreate failed: %v", err)
			}
			got <- p
		},
	})
	p := <-got

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !p.destroyed {
		t.Error("pool not destroyed after loop close")
	}
}
