package channel

import (
	"context"
	"testing"
	"time"

	"hstrader/internal/wire"
)

func TestFramesSendAndReceive(t *testing.T) {
	f := NewFrames(2)
	ctx := context.Background()

	if !f.Send(ctx, wire.Frame{Data: []byte("abc")}) {
		t.Fatalf("send failed")
	}
	got := <-f.C
	f.Received()
	if string(got.Data) != "abc" {
		t.Fatalf("unexpected frame: %q", got.Data)
	}

	stats := f.GetStats()
	if stats.Sent != 1 || stats.Received != 1 || stats.Bytes != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFramesSendBlocksUntilCanceled(t *testing.T) {
	f := NewFrames(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if f.Send(ctx, wire.Frame{Binary: true}) {
		t.Fatalf("expected send to give up when nobody reads")
	}
	if f.GetStats().Abandoned != 1 {
		t.Fatalf("expected one abandoned frame, got %+v", f.GetStats())
	}
}

func TestFramesCloseIsIdempotent(t *testing.T) {
	f := NewFrames(1)
	f.Close()
	f.Close()
	if _, ok := <-f.C; ok {
		t.Fatalf("expected closed channel")
	}
}
