package stats

import (
	"math"
	"testing"
	"time"
)

func TestSnapshotEmpty(t *testing.T) {
	t.Parallel()

	c := NewCollector(0)
	snap := c.Snapshot()
	if snap.FPS != 0 || snap.BitrateBps != 0 {
		t.Fatalf("empty collector reported rates: %+v", snap)
	}

	c.RecordVideoFrame(1000, true)
	snap = c.Snapshot()
	if snap.FPS != 0 {
		t.Fatalf("single sample reported FPS %v", snap.FPS)
	}
	if snap.TotalFrames != 1 || snap.KeyFrames != 1 {
		t.Fatalf("counters: %+v", snap)
	}
}

func TestThirtyFPSStream(t *testing.T) {
	t.Parallel()

	c := NewCollector(DefaultHistory)
	base := time.Unix(1700000000, 0)
	c.nowFunc = func() time.Time { return base }

	// 120 frames at exactly 30 fps, 1000 bytes each.
	for i := 0; i < 120; i++ {
		c.recordAt(base.Add(time.Duration(i)*time.Second/30), 1000, i%30 == 0)
	}

	snap := c.Snapshot()
	if math.Abs(snap.FPS-30.0) > 0.5 {
		t.Fatalf("FPS = %v, want 30.0 +/- 0.5", snap.FPS)
	}
	wantBitrate := 240000.0
	if math.Abs(snap.BitrateBps-wantBitrate)/wantBitrate > 0.01 {
		t.Fatalf("bitrate = %v, want %v +/- 1%%", snap.BitrateBps, wantBitrate)
	}
}

func TestRingEviction(t *testing.T) {
	t.Parallel()

	c := NewCollector(4)
	base := time.Unix(1700000000, 0)

	// 10 frames one second apart into a 4-slot ring: the window must only
	// cover the newest four samples.
	for i := 0; i < 10; i++ {
		c.recordAt(base.Add(time.Duration(i)*time.Second), 100, false)
	}

	snap := c.Snapshot()
	if snap.TotalFrames != 10 {
		t.Fatalf("total frames = %d, want 10", snap.TotalFrames)
	}
	// 3 intervals over 3 seconds.
	if math.Abs(snap.FPS-1.0) > 1e-9 {
		t.Fatalf("FPS = %v, want 1.0", snap.FPS)
	}
	// 400 bytes over 3 seconds.
	want := 400.0 * 8 / 3
	if math.Abs(snap.BitrateBps-want) > 1e-6 {
		t.Fatalf("bitrate = %v, want %v", snap.BitrateBps, want)
	}
}

func TestResolution(t *testing.T) {
	t.Parallel()

	c := NewCollector(8)
	c.SetResolution(1920, 1080)
	snap := c.Snapshot()
	if snap.Width != 1920 || snap.Height != 1080 {
		t.Fatalf("resolution = %dx%d", snap.Width, snap.Height)
	}
}
