// Package stream tracks the lifecycle of active publisher streams, enforcing
// the single-publisher-per-path policy at publish time.
package stream

import (
	"log/slog"
	"sync"
	"time"
)

// Stream represents an active published stream.
type Stream struct {
	Path      string
	StartedAt time.Time
	done      chan struct{}
}

// Done is closed when the stream is removed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Manager manages the lifecycle of active streams keyed by stream path.
type Manager struct {
	log     *slog.Logger
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewManager creates a new stream manager. If log is nil, slog.Default() is used.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log.With("component", "stream-manager"),
		streams: make(map[string]*Stream),
	}
}

// Create registers a new stream for path. Returns the stream and true if
// created, or nil and false when the path already has an active publisher;
// the second publisher is rejected, never merged.
func (m *Manager) Create(path string) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[path]; ok {
		m.log.Warn("stream already has a publisher, rejecting", "path", path)
		return nil, false
	}

	s := &Stream{
		Path:      path,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}

	m.streams[path] = s
	m.log.Info("stream created", "path", path)
	return s, true
}

// Remove removes a stream from the manager. Removing an unknown path is a no-op.
func (m *Manager) Remove(path string) {
	m.mu.Lock()
	s, ok := m.streams[path]
	if ok {
		delete(m.streams, path)
	}
	m.mu.Unlock()

	if ok {
		close(s.done)
		m.log.Info("stream removed", "path", path)
	}
}

// List returns all active streams.
func (m *Manager) List() []*Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	streams := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	return streams
}
