// Package pipetest 提供协议处理器测试用的管线脚手架
//
// 把被测处理器夹在两个记录端之间：左端捕获写方向输出，右端捕获
// 读方向输出。所有管线操作都落在通道的循环线程上执行。
package pipetest

import (
	"testing"
	"time"

	"github.com/dep2p/go-channel/internal/core/channel"
	"github.com/dep2p/go-channel/internal/core/eventloop"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// CaptureHandler
// ============================================================================

// CaptureHandler 记录收到的消息与窗口增量的哑处理器
type CaptureHandler struct {
	InitialWindow uint64

	Reads      []*types.Message
	Writes     []*types.Message
	Increments []uint64
}

func (h *CaptureHandler) ProcessReadMessage(_ pkgif.Slot, msg *types.Message) error {
	h.Reads = append(h.Reads, msg)
	return nil
}

func (h *CaptureHandler) ProcessWriteMessage(_ pkgif.Slot, msg *types.Message) error {
	h.Writes = append(h.Writes, msg)
	return nil
}

func (h *CaptureHandler) IncrementReadWindow(_ pkgif.Slot, size uint64) error {
	h.Increments = append(h.Increments, size)
	return nil
}

func (h *CaptureHandler) Shutdown(slot pkgif.Slot, dir types.Direction, errCode int, freeScarce bool) error {
	return slot.OnHandlerShutdownComplete(dir, errCode, freeScarce)
}

func (h *CaptureHandler) InitialWindowSize() uint64 { return h.InitialWindow }
func (h *CaptureHandler) MessageOverhead() uint64   { return 0 }
func (h *CaptureHandler) Destroy()                  {}

// TotalIncrement 返回观察到的窗口增量之和
func (h *CaptureHandler) TotalIncrement() uint64 {
	var total uint64
	for _, n := range h.Increments {
		total += n
	}
	return total
}

// ============================================================================
// Pipeline
// ============================================================================

// Pipeline 三级测试管线 {左端, 被测, 右端}
type Pipeline struct {
	Loop *eventloop.Loop
	Ch   *channel.Channel

	Left  *CaptureHandler
	Right *CaptureHandler

	LeftSlot  pkgif.Slot
	MidSlot   pkgif.Slot
	RightSlot pkgif.Slot

	shutdown chan int
}

// New 创建三级管线并等待通道就绪
func New(t *testing.T, mid pkgif.Handler) *Pipeline {
	t.Helper()

	p := &Pipeline{
		Loop:     eventloop.New(),
		Left:     &CaptureHandler{InitialWindow: 1 << 20},
		Right:    &CaptureHandler{InitialWindow: 1 << 20},
		shutdown: make(chan int, 1),
	}
	t.Cleanup(func() { p.Loop.Close() })

	setup := make(chan int, 1)
	p.Ch = channel.New(p.Loop, pkgif.CreationCallbacks{
		OnSetupCompleted:    func(_ pkgif.Channel, errCode int) { setup <- errCode },
		OnShutdownCompleted: func(_ pkgif.Channel, errCode int) { p.shutdown <- errCode },
	})
	select {
	case code := <-setup:
		if code != 0 {
			t.Fatalf("channel setup errCode = %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel setup never completed")
	}

	p.Run(t, func() {
		for _, h := range []pkgif.Handler{p.Left, mid, p.Right} {
			s := p.Ch.NewSlot()
			if err := p.Ch.InsertEnd(s); err != nil {
				t.Errorf("InsertEnd failed: %v", err)
				return
			}
			if err := s.SetHandler(h); err != nil {
				t.Errorf("SetHandler failed: %v", err)
				return
			}
			switch h {
			case pkgif.Handler(p.Left):
				p.LeftSlot = s
			case mid:
				p.MidSlot = s
			default:
				p.RightSlot = s
			}
		}
	})
	return p
}

// Run 在通道的循环线程上执行 fn 并等待完成
func (p *Pipeline) Run(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	p.Loop.ScheduleTaskNow(&types.LoopTask{
		TypeTag: "pipetest_run",
		Fn: func(types.TaskStatus) {
			defer close(done)
			fn()
		},
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline task never ran")
	}
}

// InjectRead 从左端向被测处理器递交一条读方向消息
func (p *Pipeline) InjectRead(t *testing.T, data []byte) error {
	t.Helper()
	var err error
	p.Run(t, func() {
		err = p.LeftSlot.SendMessage(&types.Message{Data: data, Kind: types.MessageApplicationDataRead}, types.DirRead)
	})
	return err
}

// InjectWrite 从右端向被测处理器递交一条写方向消息
func (p *Pipeline) InjectWrite(t *testing.T, msg *types.Message) error {
	t.Helper()
	var err error
	p.Run(t, func() {
		err = p.RightSlot.SendMessage(msg, types.DirWrite)
	})
	return err
}

// WaitShutdown 等待通道关闭完成并返回错误码
func (p *Pipeline) WaitShutdown(t *testing.T) int {
	t.Helper()
	select {
	case code := <-p.shutdown:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("channel shutdown never completed")
		return -1
	}
}
