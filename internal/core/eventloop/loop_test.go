package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// barrier 调度一个立即任务并等待其执行完毕
//
// 就绪队列 FIFO，barrier 返回时此前提交的全部立即任务已执行。
func barrier(t *testing.T, l *Loop) {
	t.Helper()
	done := make(chan struct{})
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_barrier",
		Fn:      func(types.TaskStatus) { close(done) },
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier task never ran")
	}
}

// ============================================================================
// 接口契约测试
// ============================================================================

// TestLoop_ImplementsInterface 验证 Loop 实现接口
func TestLoop_ImplementsInterface(t *testing.T) {
	var _ pkgif.EventLoop = (*Loop)(nil)
}

// ============================================================================
// 任务调度测试
// ============================================================================

// TestLoop_ScheduleTaskNow_FIFO 测试立即任务按提交顺序执行
func TestLoop_ScheduleTaskNow_FIFO(t *testing.T) {
	l := New()
	defer l.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		l.ScheduleTaskNow(&types.LoopTask{
			TypeTag: "test_fifo",
			Fn: func(status types.TaskStatus) {
				if status != types.TaskRunReady {
					t.Errorf("task %d status = %v, want TaskRunReady", i, status)
				}
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			},
		})
	}
	barrier(t, l)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

// TestLoop_ScheduleTaskNow_OnLoopThread 测试任务在循环线程上执行
func TestLoop_ScheduleTaskNow_OnLoopThread(t *testing.T) {
	l := New()
	defer l.Close()

	if l.IsOnThisThread() {
		t.Fatal("test goroutine reported as loop thread")
	}

	onThread := make(chan bool, 1)
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_thread",
		Fn: func(types.TaskStatus) {
			onThread <- l.IsOnThisThread()
		},
	})
	if !<-onThread {
		t.Error("task did not run on loop thread")
	}
}

// TestLoop_ScheduleTaskFuture 测试定时任务在时钟推进后执行
func TestLoop_ScheduleTaskFuture(t *testing.T) {
	mock := clock.NewMock()
	l := New(WithClock(mock))
	defer l.Close()

	ran := make(chan types.TaskStatus, 1)
	runAt := l.CurrentClockNanos() + uint64(time.Hour)
	l.ScheduleTaskFuture(&types.LoopTask{
		TypeTag: "test_future",
		Fn:      func(status types.TaskStatus) { ran <- status },
	}, runAt)

	// 等待挂表任务落到循环线程
	barrier(t, l)

	select {
	case <-ran:
		t.Fatal("future task ran before clock advanced")
	default:
	}

	mock.Add(time.Hour)

	select {
	case status := <-ran:
		if status != types.TaskRunReady {
			t.Errorf("status = %v, want TaskRunReady", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("future task never ran after clock advanced")
	}
}

// TestLoop_ScheduleTaskFuture_PastTime 测试已过期时间点等价于立即执行
func TestLoop_ScheduleTaskFuture_PastTime(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(time.Hour)
	l := New(WithClock(mock))
	defer l.Close()

	ran := make(chan types.TaskStatus, 1)
	l.ScheduleTaskFuture(&types.LoopTask{
		TypeTag: "test_past",
		Fn:      func(status types.TaskStatus) { ran <- status },
	}, 0)

	select {
	case status := <-ran:
		if status != types.TaskRunReady {
			t.Errorf("status = %v, want TaskRunReady", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("past-time task never ran")
	}
}

// TestLoop_CancelTask_Future 测试取消定时任务
func TestLoop_CancelTask_Future(t *testing.T) {
	mock := clock.NewMock()
	l := New(WithClock(mock))
	defer l.Close()

	var statuses []types.TaskStatus
	var mu sync.Mutex
	task := &types.LoopTask{
		TypeTag: "test_cancel",
		Fn: func(status types.TaskStatus) {
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
		},
	}
	l.ScheduleTaskFuture(task, l.CurrentClockNanos()+uint64(time.Hour))
	barrier(t, l)

	// CancelTask 仅限循环线程
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_do_cancel",
		Fn:      func(types.TaskStatus) { l.CancelTask(task) },
	})
	barrier(t, l)

	mock.Add(2 * time.Hour)
	barrier(t, l)

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 1 {
		t.Fatalf("task ran %d times, want 1", len(statuses))
	}
	if statuses[0] != types.TaskCanceled {
		t.Errorf("status = %v, want TaskCanceled", statuses[0])
	}
}

// ============================================================================
// 停止语义测试
// ============================================================================

// TestLoop_ScheduleAfterClose 测试循环停止后的提交以 TaskCanceled 同步执行
func TestLoop_ScheduleAfterClose(t *testing.T) {
	l := New()
	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	var got types.TaskStatus
	ran := false
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_after_close",
		Fn: func(status types.TaskStatus) {
			ran = true
			got = status
		},
	})

	if !ran {
		t.Fatal("task scheduled after close did not run synchronously")
	}
	if got != types.TaskCanceled {
		t.Errorf("status = %v, want TaskCanceled", got)
	}
}

// TestLoop_Close_CancelsPendingTimers 测试停止时未到期的定时任务以 TaskCanceled 执行
func TestLoop_Close_CancelsPendingTimers(t *testing.T) {
	mock := clock.NewMock()
	l := New(WithClock(mock))

	ran := make(chan types.TaskStatus, 1)
	l.ScheduleTaskFuture(&types.LoopTask{
		TypeTag: "test_pending_timer",
		Fn:      func(status types.TaskStatus) { ran <- status },
	}, l.CurrentClockNanos()+uint64(time.Hour))
	barrier(t, l)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	select {
	case status := <-ran:
		if status != types.TaskCanceled {
			t.Errorf("status = %v, want TaskCanceled", status)
		}
	default:
		t.Fatal("pending timer task was not canceled on close")
	}
}

// TestLoop_Close_Idempotent 测试重复 Close 安全
func TestLoop_Close_Idempotent(t *testing.T) {
	l := New()
	if err := l.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

// ============================================================================
// 本地存储测试
// ============================================================================

// TestLoop_LocalStorage 测试本地存储的存取与移除
func TestLoop_LocalStorage(t *testing.T) {
	l := New()
	defer l.Close()

	type keyType struct{}
	key := keyType{}

	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_local",
		Fn: func(types.TaskStatus) {
			if _, ok := l.FetchLocalObject(key); ok {
				t.Error("FetchLocalObject found object before Put")
			}

			if err := l.PutLocalObject(&types.LocalObject{Key: key, Value: 42}); err != nil {
				t.Errorf("PutLocalObject failed: %v", err)
			}

			obj, ok := l.FetchLocalObject(key)
			if !ok {
				t.Fatal("FetchLocalObject did not find stored object")
			}
			if obj.Value != 42 {
				t.Errorf("obj.Value = %v, want 42", obj.Value)
			}

			removed, ok := l.RemoveLocalObject(key)
			if !ok || removed.Value != 42 {
				t.Error("RemoveLocalObject did not return stored object")
			}
			if _, ok := l.FetchLocalObject(key); ok {
				t.Error("object still present after remove")
			}
		},
	})
	barrier(t, l)
}

// TestLoop_LocalStorage_OnRemovedAtClose 测试停止时触发 OnRemoved 回调
func TestLoop_LocalStorage_OnRemovedAtClose(t *testing.T) {
	l := New()

	type keyType struct{}
	removed := make(chan *types.LocalObject, 1)
	l.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "test_local_removed",
		Fn: func(types.TaskStatus) {
			l.PutLocalObject(&types.LocalObject{
				Key:       keyType{},
				Value:     "pool",
				OnRemoved: func(obj *types.LocalObject) { removed <- obj },
			})
		},
	})
	barrier(t, l)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	select {
	case obj := <-removed:
		if obj.Value != "pool" {
			t.Errorf("obj.Value = %v, want pool", obj.Value)
		}
	default:
		t.Fatal("OnRemoved was not called on close")
	}
}
