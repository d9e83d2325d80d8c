package ingest

import (
	"testing"
	"time"

	"github.com/sboreli/streamview/media"
)

func TestRegisterRejectsDuplicatePath(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, nil)
	if _, ok := r.Register("/live/stream"); !ok {
		t.Fatal("first register failed")
	}
	if _, ok := r.Register("/live/stream"); ok {
		t.Fatal("duplicate register accepted")
	}

	r.Unregister("/live/stream")
	if _, ok := r.Register("/live/stream"); !ok {
		t.Fatal("path not reusable after unregister")
	}
}

func TestOnPublisherCallback(t *testing.T) {
	t.Parallel()

	got := make(chan *Publisher, 1)
	r := NewRegistry(0, func(p *Publisher) { got <- p })

	p, ok := r.Register("/live/stream")
	if !ok {
		t.Fatal("register failed")
	}

	select {
	case cb := <-got:
		if cb != p {
			t.Fatal("callback received a different publisher")
		}
	case <-time.After(time.Second):
		t.Fatal("onPublisher callback not invoked")
	}
}

func TestWriteFrameDropOldest(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, nil)
	p, _ := r.Register("/live/stream")

	// Fill the buffer and then overflow it; the writer must never block and
	// the oldest frames must be the ones evicted.
	overflow := 10
	for i := 0; i < media.FrameBufferSize+overflow; i++ {
		p.WriteFrame(media.Frame{Kind: media.KindVideo, Timestamp: uint32(i)})
	}

	st := p.Stats()
	if st.FramesReceived != int64(media.FrameBufferSize+overflow) {
		t.Fatalf("frames received = %d", st.FramesReceived)
	}
	if st.FramesDropped != int64(overflow) {
		t.Fatalf("frames dropped = %d, want %d", st.FramesDropped, overflow)
	}

	first := <-p.Frames()
	if first.Timestamp != uint32(overflow) {
		t.Fatalf("oldest surviving frame = %d, want %d", first.Timestamp, overflow)
	}
}

func TestUnregisterClosesChannels(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, nil)
	p, _ := r.Register("/live/stream")
	r.Unregister("/live/stream")

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed")
	}
	if _, ok := <-p.Frames(); ok {
		t.Fatal("frame channel not closed")
	}
	if _, ok := r.Get("/live/stream"); ok {
		t.Fatal("publisher still registered")
	}
}
