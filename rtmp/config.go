package rtmp

import (
	"strings"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultAddr              = ":1935"
	DefaultStreamPath        = "/live/stream"
	DefaultWindowAckSize     = 2_500_000
	DefaultOutChunkSize      = 4096
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultIdleTimeout       = 10 * time.Second
	DefaultPublishRetryLimit = 3
)

// Config carries the construction-time settings of the RTMP server. How the
// values are obtained (flags, env, file) is the caller's business.
type Config struct {
	// Addr is the TCP listen address, e.g. ":1935".
	Addr string

	// StreamPath is the only path accepted for publish, "/app/name" form.
	StreamPath string

	// WindowAckSize is announced to the peer and drives how often the
	// server acknowledges received bytes.
	WindowAckSize uint32

	// ChunkSize is the outbound chunk size negotiated at connect time.
	ChunkSize uint32

	// HandshakeTimeout bounds the whole handshake exchange.
	HandshakeTimeout time.Duration

	// IdleTimeout closes a connection that delivers no bytes for this long.
	IdleTimeout time.Duration

	// PublishRetryLimit is how many rejected publish attempts a session may
	// make before the connection is dropped.
	PublishRetryLimit int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.StreamPath == "" {
		c.StreamPath = DefaultStreamPath
	}
	if !strings.HasPrefix(c.StreamPath, "/") {
		c.StreamPath = "/" + c.StreamPath
	}
	if c.WindowAckSize == 0 {
		c.WindowAckSize = DefaultWindowAckSize
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultOutChunkSize
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.PublishRetryLimit == 0 {
		c.PublishRetryLimit = DefaultPublishRetryLimit
	}
	return c
}

// appName returns the application segment of the configured stream path,
// e.g. "live" for "/live/stream".
func (c Config) appName() string {
	parts := strings.SplitN(strings.TrimPrefix(c.StreamPath, "/"), "/", 2)
	return parts[0]
}
