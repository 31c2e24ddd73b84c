package msgpool

import (
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("core/msgpool")

// ============================================================================
// 配置
// ============================================================================

// Config 消息池配置
type Config struct {
	// DataMessageSize 数据消息缓冲区大小（字节）
	DataMessageSize int
	// DataMessageCount 数据消息空闲链预热数量
	DataMessageCount int
	// SmallBlockSize 小块消息缓冲区大小（字节）
	SmallBlockSize int
	// SmallBlockCount 小块消息空闲链预热数量
	SmallBlockCount int
}

// DefaultConfig 默认消息池配置
func DefaultConfig() Config {
	return Config{
		DataMessageSize:  16 * 1024,
		DataMessageCount: 4,
		SmallBlockSize:   128,
		SmallBlockCount:  4,
	}
}

// ============================================================================
// Pool 实现
// ============================================================================

// Pool 每循环消息池
//
// 仅限循环线程访问，无锁。sizeHint 不超过小块大小的请求走小块
// 空闲链，其余走数据空闲链；超过数据消息大小的请求一次性分配，
// 释放时不回链。
type Pool struct {
	cfg Config

	dataFree  []*types.Message
	smallFree []*types.Message

	destroyed bool
}

// New 创建消息池并预热空闲链
func New(cfg Config) *Pool {
	p := &Pool{cfg: cfg}
	for i := 0; i < cfg.DataMessageCount; i++ {
		p.dataFree = append(p.dataFree, p.newMessage(cfg.DataMessageSize))
	}
	for i := 0; i < cfg.SmallBlockCount; i++ {
		p.smallFree = append(p.smallFree, p.newMessage(cfg.SmallBlockSize))
	}
	return p
}

func (p *Pool) newMessage(capacity int) *types.Message {
	return &types.Message{
		Releaser: p,
		Data:     make([]byte, 0, capacity),
	}
}

// AcquireMessage 取一条容量不小于 min(sizeHint, 数据消息大小) 的消息
func (p *Pool) AcquireMessage(kind types.MessageKind, sizeHint int) (*types.Message, error) {
	if p.destroyed {
		return nil, types.ErrPoolExhausted
	}
	if sizeHint < 0 {
		sizeHint = 0
	}

	var msg *types.Message
	switch {
	case sizeHint <= p.cfg.SmallBlockSize:
		msg = pop(&p.smallFree)
		if msg == nil {
			msg = p.newMessage(p.cfg.SmallBlockSize)
		}
	case sizeHint <= p.cfg.DataMessageSize:
		msg = pop(&p.dataFree)
		if msg == nil {
			msg = p.newMessage(p.cfg.DataMessageSize)
		}
	default:
		// 超池请求一次性分配，释放时交给 GC
		msg = p.newMessage(sizeHint)
	}

	msg.Kind = kind
	return msg, nil
}

// ReleaseMessage 归还消息
//
// 缓冲区与池规格吻合且空闲链未满时回链，否则丢弃。回调与用户
// 数据在归还时清空。
func (p *Pool) ReleaseMessage(msg *types.Message) {
	msg.Data = msg.Data[:0]
	msg.OnCompletion = nil
	msg.UserData = nil
	msg.CopyMark = 0

	if p.destroyed {
		return
	}

	switch msg.Cap() {
	case p.cfg.SmallBlockSize:
		if len(p.smallFree) < p.cfg.SmallBlockCount {
			p.smallFree = append(p.smallFree, msg)
		}
	case p.cfg.DataMessageSize:
		if len(p.dataFree) < p.cfg.DataMessageCount {
			p.dataFree = append(p.dataFree, msg)
		}
	}
}

// Destroy 销毁池
//
// 之后的 AcquireMessage 返回 ErrPoolExhausted，归还被丢弃。
func (p *Pool) Destroy() {
	p.destroyed = true
	p.dataFree = nil
	p.smallFree = nil
}

func pop(free *[]*types.Message) *types.Message {
	n := len(*free)
	if n == 0 {
		return nil
	}
	msg := (*free)[n-1]
	*free = (*free)[:n-1]
	return msg
}

// ============================================================================
// 循环本地存储集成
// ============================================================================

type localKey struct{}

// FindOrCreate 返回循环上的消息池，不存在则创建并挂入本地存储
//
// 同一循环上的全部通道共享一个池。循环停止时经由 OnRemoved 回调
// 销毁池。仅限循环线程调用。
func FindOrCreate(loop pkgif.EventLoop, cfg Config) (*Pool, error) {
	if obj, ok := loop.FetchLocalObject(localKey{}); ok {
		if pool, ok := obj.Value.(*Pool); ok {
			return pool, nil
		}
	}

	pool := New(cfg)
	obj := &types.LocalObject{
		Key:   localKey{},
		Value: pool,
		OnRemoved: func(o *types.LocalObject) {
			o.Value.(*Pool).Destroy()
		},
	}
	if err := loop.PutLocalObject(obj); err != nil {
		return nil, err
	}
	logger.Debug("message pool created", "loop", loop.ID().ShortString())
	return pool, nil
}

// 接口契约
var _ pkgif.MessagePool = (*Pool)(nil)
