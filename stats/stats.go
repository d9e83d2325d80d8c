// Package stats aggregates per-stream ingest telemetry over a rolling
// window, producing point-in-time snapshots for the display layer.
package stats

import (
	"sync"
	"time"
)

// DefaultHistory is the default ring capacity, matching the viewer's
// 120-frame FPS history.
const DefaultHistory = 120

// Snapshot is a point-in-time view of stream health. Safe to request from
// any goroutine.
type Snapshot struct {
	FPS         float64 `json:"fps"`
	BitrateBps  float64 `json:"bitrateBps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	TotalFrames int64   `json:"totalFrames"`
	KeyFrames   int64   `json:"keyFrames"`
	TotalBytes  int64   `json:"totalBytes"`
}

type sample struct {
	at    time.Time
	bytes int
}

// Collector records video frame arrivals into a fixed-capacity ring buffer
// and derives moving-average FPS and instantaneous bitrate from it. One
// writer (the connection goroutine) and any number of snapshot readers.
type Collector struct {
	mu      sync.Mutex
	ring    []sample
	head    int // index of the oldest sample
	count   int
	width   int
	height  int
	frames  int64
	keys    int64
	bytes   int64
	nowFunc func() time.Time
}

// NewCollector creates a Collector with the given ring capacity. A history
// of 0 or less falls back to DefaultHistory.
func NewCollector(history int) *Collector {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Collector{
		ring:    make([]sample, history),
		nowFunc: time.Now,
	}
}

// RecordVideoFrame records the arrival of a video frame of the given payload
// size. The oldest sample is evicted once the ring is full.
func (c *Collector) RecordVideoFrame(bytes int, keyFrame bool) {
	c.recordAt(c.nowFunc(), bytes, keyFrame)
}

func (c *Collector) recordAt(at time.Time, bytes int, keyFrame bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tail := (c.head + c.count) % len(c.ring)
	c.ring[tail] = sample{at: at, bytes: bytes}
	if c.count < len(c.ring) {
		c.count++
	} else {
		c.head = (c.head + 1) % len(c.ring)
	}

	c.frames++
	c.bytes += int64(bytes)
	if keyFrame {
		c.keys++
	}
}

// SetResolution stores the last-seen video resolution. Called when stream
// metadata or a changed configuration record reports new dimensions.
func (c *Collector) SetResolution(width, height int) {
	c.mu.Lock()
	c.width = width
	c.height = height
	c.mu.Unlock()
}

// Snapshot computes the current FPS and bitrate from the ring window.
// With fewer than two samples both rates are zero.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Width:       c.width,
		Height:      c.height,
		TotalFrames: c.frames,
		KeyFrames:   c.keys,
		TotalBytes:  c.bytes,
	}

	if c.count < 2 {
		return snap
	}

	oldest := c.ring[c.head]
	newest := c.ring[(c.head+c.count-1)%len(c.ring)]
	window := newest.at.Sub(oldest.at).Seconds()
	if window <= 0 {
		return snap
	}

	var windowBytes int64
	for i := 0; i < c.count; i++ {
		windowBytes += int64(c.ring[(c.head+i)%len(c.ring)].bytes)
	}

	snap.FPS = float64(c.count-1) / window
	snap.BitrateBps = float64(windowBytes) * 8 / window
	return snap
}
