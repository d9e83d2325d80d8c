// Package ingest manages active publisher connections, coupling the RTMP
// engine with per-stream statistics, lifecycle signaling, and the bounded
// frame handoff to the consumer.
package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sboreli/streamview/media"
	"github.com/sboreli/streamview/stats"
)

// PublisherStats captures connection-level counters for a publisher,
// exposed to the display layer for source-health reporting.
type PublisherStats struct {
	BytesReceived  int64  `json:"bytesReceived"`
	FramesReceived int64  `json:"framesReceived"`
	FramesDropped  int64  `json:"framesDropped"`
	ConnectedAt    int64  `json:"connectedAt"`
	UptimeMs       int64  `json:"uptimeMs"`
	RemoteAddr     string `json:"remoteAddr"`
}

// Publisher represents one active publishing connection. Frames written by
// the connection goroutine cross to the consumer over a bounded channel;
// when the consumer lags, the oldest queued frame is dropped and counted so
// the protocol pipeline is never blocked past the channel capacity.
type Publisher struct {
	Path      string
	StartedAt time.Time
	Video     *stats.Collector

	frames chan media.Frame
	done   chan struct{}

	bytesReceived  atomic.Int64
	framesReceived atomic.Int64
	framesDropped  atomic.Int64
	remoteAddr     atomic.Value

	closeOnce sync.Once
}

// WriteFrame hands a frame to the consumer. It never blocks: if the buffer
// is full the oldest queued frame is evicted first (drop-oldest policy, so
// the consumer always sees the freshest frames during overload).
func (p *Publisher) WriteFrame(f media.Frame) {
	p.framesReceived.Add(1)
	for {
		select {
		case p.frames <- f:
			return
		default:
		}
		select {
		case <-p.frames:
			p.framesDropped.Add(1)
		default:
		}
	}
}

// Frames is the consumer side of the frame handoff. It is closed when the
// publisher is unregistered.
func (p *Publisher) Frames() <-chan media.Frame {
	return p.frames
}

// Done is closed when the publisher is unregistered.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// RecordBytes adds to the raw byte counter, called by the connection after
// each socket read attributed to this publisher.
func (p *Publisher) RecordBytes(n int) {
	p.bytesReceived.Add(int64(n))
}

// SetRemoteAddr stores the remote address of the publishing connection for
// diagnostics.
func (p *Publisher) SetRemoteAddr(addr string) {
	p.remoteAddr.Store(addr)
}

// Stats returns a snapshot of publisher connection counters.
func (p *Publisher) Stats() PublisherStats {
	addr, _ := p.remoteAddr.Load().(string)
	return PublisherStats{
		BytesReceived:  p.bytesReceived.Load(),
		FramesReceived: p.framesReceived.Load(),
		FramesDropped:  p.framesDropped.Load(),
		ConnectedAt:    p.StartedAt.UnixMilli(),
		UptimeMs:       time.Since(p.StartedAt).Milliseconds(),
		RemoteAddr:     addr,
	}
}

func (p *Publisher) close() {
	p.closeOnce.Do(func() {
		close(p.frames)
		close(p.done)
	})
}

// Registry tracks active publishers by stream path and dispatches new ones
// to the onPublisher callback for consumer setup. It is the rendezvous point
// between the RTMP engine and the display layer.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]*Publisher
	history    int

	onPublisher func(p *Publisher)
}

// NewRegistry creates a Registry. history sets the video stats window
// (stats.DefaultHistory when <= 0). The onPublisher callback is invoked
// asynchronously whenever a new publisher is registered.
func NewRegistry(history int, onPublisher func(p *Publisher)) *Registry {
	return &Registry{
		publishers:  make(map[string]*Publisher),
		history:     history,
		onPublisher: onPublisher,
	}
}

// Register creates a new publisher for the given path. Returns false when
// the path already has an active publisher.
func (r *Registry) Register(path string) (*Publisher, bool) {
	p := &Publisher{
		Path:      path,
		StartedAt: time.Now(),
		Video:     stats.NewCollector(r.history),
		frames:    make(chan media.Frame, media.FrameBufferSize),
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	if _, ok := r.publishers[path]; ok {
		r.mu.Unlock()
		return nil, false
	}
	r.publishers[path] = p
	r.mu.Unlock()

	if r.onPublisher != nil {
		go r.onPublisher(p)
	}

	return p, true
}

// Unregister removes a publisher by path, closing its frame channel and
// signaling Done.
func (r *Registry) Unregister(path string) {
	r.mu.Lock()
	p, ok := r.publishers[path]
	if ok {
		delete(r.publishers, path)
	}
	r.mu.Unlock()

	if ok {
		p.close()
	}
}

// Get returns the publisher for the given path, or false if not found.
func (r *Registry) Get(path string) (*Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.publishers[path]
	return p, ok
}
