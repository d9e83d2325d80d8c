// Package rtmp implements the server side of the RTMP ingest protocol:
// handshake, chunk demultiplexing, message reassembly, the session state
// machine, and extraction of timestamped elementary frames which are handed
// to the ingest registry. One goroutine per connection; parsing within a
// connection is strictly sequential.
package rtmp

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/sboreli/streamview/ingest"
	"github.com/sboreli/streamview/stream"
)

// Server accepts incoming RTMP publish connections and registers the frames
// they carry with the ingest registry.
type Server struct {
	log      *slog.Logger
	cfg      Config
	registry *ingest.Registry
	streams  *stream.Manager
}

// NewServer creates an RTMP server for the given config. If log is nil,
// slog.Default() is used.
func NewServer(cfg Config, registry *ingest.Registry, streams *stream.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "rtmp-server"),
		cfg:      cfg.withDefaults(),
		registry: registry,
		streams:  streams,
	}
}

// Config returns the server's effective configuration after defaulting.
func (s *Server) Config() Config {
	return s.cfg
}

// Start begins accepting connections. It blocks until the context is
// cancelled. A failed connection only ever takes itself down; the listener
// and the other connections continue.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("rtmp listen on %s: %w", s.cfg.Addr, err)
	}
	s.log.Info("listening", "addr", s.cfg.Addr, "path", s.cfg.StreamPath)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		nc, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		s.log.Info("connection accepted", "remote", nc.RemoteAddr())
		go s.handleConnection(ctx, nc)
	}
}

func (s *Server) handleConnection(ctx context.Context, nc net.Conn) {
	defer nc.Close()

	c := newConn(nc, s.cfg, s.registry, s.streams, s.log)
	if err := c.serve(ctx); err != nil {
		s.log.Warn("connection closed", "remote", nc.RemoteAddr(), "error", err)
		return
	}
	s.log.Info("connection closed", "remote", nc.RemoteAddr())
}
