package compress

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/s2"

	"github.com/dep2p/go-channel/internal/protocol/pipetest"
	"github.com/dep2p/go-channel/pkg/types"
)

// ============================================================================
// 双向往返
// ============================================================================

func TestCompress_WriteEncodesBlock(t *testing.T) {
	p := pipetest.New(t, New())

	payload := bytes.Repeat([]byte("compressible payload "), 64)
	if err := p.InjectWrite(t, &types.Message{Data: append([]byte(nil), payload...), Kind: types.MessageApplicationData}); err != nil {
		t.Fatalf("InjectWrite: %v", err)
	}

	if len(p.Left.Writes) != 1 {
		t.Fatalf("left writes = %d, want 1", len(p.Left.Writes))
	}
	out := p.Left.Writes[0]
	if out.Len() >= len(payload) {
		t.Errorf("encoded length %d not smaller than payload %d", out.Len(), len(payload))
	}

	decoded, err := s2.Decode(nil, out.Data)
	if err != nil {
		t.Fatalf("decode written block: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("decoded payload differs from original")
	}
}

func TestCompress_ReadDecodesBlock(t *testing.T) {
	p := pipetest.New(t, New())

	payload := []byte("round trip data")
	if err := p.InjectRead(t, s2.Encode(nil, payload)); err != nil {
		t.Fatalf("InjectRead: %v", err)
	}

	if len(p.Right.Reads) != 1 {
		t.Fatalf("right reads = %d, want 1", len(p.Right.Reads))
	}
	if got := p.Right.Reads[0].Data; !bytes.Equal(got, payload) {
		t.Errorf("decoded = %q, want %q", got, payload)
	}
}

func TestCompress_RoundTripThroughBothDirections(t *testing.T) {
	p := pipetest.New(t, New())

	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 500)
	if err := p.InjectWrite(t, &types.Message{Data: append([]byte(nil), payload...), Kind: types.MessageApplicationData}); err != nil {
		t.Fatalf("InjectWrite: %v", err)
	}
	if err := p.InjectRead(t, append([]byte(nil), p.Left.Writes[0].Data...)); err != nil {
		t.Fatalf("InjectRead: %v", err)
	}

	if len(p.Right.Reads) != 1 {
		t.Fatalf("right reads = %d, want 1", len(p.Right.Reads))
	}
	if !bytes.Equal(p.Right.Reads[0].Data, payload) {
		t.Error("round-tripped payload differs from original")
	}
}

func TestCompress_WriteTransfersCompletion(t *testing.T) {
	p := pipetest.New(t, New())

	var invoked bool
	msg := &types.Message{
		Data:         []byte("payload"),
		Kind:         types.MessageApplicationData,
		OnCompletion: func(_ *types.Message, _ int) { invoked = true },
		UserData:     42,
	}
	if err := p.InjectWrite(t, msg); err != nil {
		t.Fatalf("InjectWrite: %v", err)
	}

	out := p.Left.Writes[0]
	if out.OnCompletion == nil {
		t.Fatal("completion callback not transferred to encoded message")
	}
	if out.UserData != 42 {
		t.Errorf("user data = %v, want 42", out.UserData)
	}
	p.Run(t, func() { out.InvokeCompletion(0) })
	if !invoked {
		t.Error("completion callback never invoked")
	}
}

// ============================================================================
// 流损坏
// ============================================================================

func TestCompress_CorruptBlockShutsDownChannel(t *testing.T) {
	p := pipetest.New(t, New())

	if err := p.InjectRead(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}); err != types.ErrCorruptFrame {
		t.Errorf("InjectRead err = %v, want ErrCorruptFrame", err)
	}

	if code := p.WaitShutdown(t); code != types.ErrCodeProtocolError {
		t.Errorf("shutdown errCode = %d, want %d", code, types.ErrCodeProtocolError)
	}
	if len(p.Right.Reads) != 0 {
		t.Errorf("right reads = %d, want 0", len(p.Right.Reads))
	}
}

// ============================================================================
// 契约
// ============================================================================

func TestCompress_Options(t *testing.T) {
	h := New(WithInitialWindow(4096))
	if h.InitialWindowSize() != 4096 {
		t.Errorf("initial window = %d, want 4096", h.InitialWindowSize())
	}
	if h.MessageOverhead() != blockOverhead {
		t.Errorf("overhead = %d, want %d", h.MessageOverhead(), blockOverhead)
	}
}
