package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sboreli/streamview/ingest"
	"github.com/sboreli/streamview/rtmp"
	"github.com/sboreli/streamview/stream"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := rtmp.Config{
		Addr:              envOr("RTMP_ADDR", rtmp.DefaultAddr),
		StreamPath:        envOr("STREAM_PATH", rtmp.DefaultStreamPath),
		WindowAckSize:     uint32(envInt("WINDOW_ACK_SIZE", rtmp.DefaultWindowAckSize)),
		ChunkSize:         uint32(envInt("CHUNK_SIZE", rtmp.DefaultOutChunkSize)),
		HandshakeTimeout:  envDuration("HANDSHAKE_TIMEOUT", rtmp.DefaultHandshakeTimeout),
		IdleTimeout:       envDuration("IDLE_TIMEOUT", rtmp.DefaultIdleTimeout),
		PublishRetryLimit: envInt("PUBLISH_RETRY_LIMIT", rtmp.DefaultPublishRetryLimit),
	}
	history := envInt("FPS_HISTORY", 120)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	mgr := stream.NewManager(nil)

	g, ctx := errgroup.WithContext(ctx)

	// Registry created after the errgroup so the consumer goroutines capture
	// the errgroup-derived context and drain out when any component fails.
	registry := ingest.NewRegistry(history, func(p *ingest.Publisher) {
		consumePublisher(ctx, p)
	})

	srv := rtmp.NewServer(cfg, registry, mgr, nil)
	eff := srv.Config()

	slog.Info("streamview starting",
		"version", version,
		"addr", eff.Addr,
		"url", streamURL(eff.Addr, eff.StreamPath),
		"path", eff.StreamPath,
		"fps_history", history,
	)

	g.Go(func() error {
		return srv.Start(ctx)
	})

	g.Go(func() error {
		reportStats(ctx, mgr, registry)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// consumePublisher is the display layer's stand-in: it drains frames the way
// an attached decoder would, so the bounded handoff never silts up. Codec
// configuration records are surfaced at info level since a real decoder
// reinitializes on them.
func consumePublisher(ctx context.Context, p *ingest.Publisher) {
	log := slog.With("stream", p.Path)
	log.Info("publisher attached", "remote", p.Stats().RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-p.Frames():
			if !ok {
				st := p.Stats()
				log.Info("publisher detached",
					"frames", st.FramesReceived,
					"dropped", st.FramesDropped,
					"bytes", st.BytesReceived,
					"uptime_ms", st.UptimeMs,
				)
				return
			}
			if f.Config {
				log.Info("codec configuration received", "kind", f.Kind.String(), "bytes", len(f.Payload))
			}
		}
	}
}

// reportStats logs a once-per-second stats line per active stream: moving
// average FPS, auto-scaled bitrate, and last-seen resolution.
func reportStats(ctx context.Context, mgr *stream.Manager, registry *ingest.Registry) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range mgr.List() {
				p, ok := registry.Get(s.Path)
				if !ok {
					continue
				}
				snap := p.Video.Snapshot()
				slog.Info("stream stats",
					"stream", s.Path,
					"fps", fmt.Sprintf("%.2f", snap.FPS),
					"bitrate", formatBitrate(snap.BitrateBps),
					"resolution", fmt.Sprintf("%dx%d", snap.Width, snap.Height),
					"frames", snap.TotalFrames,
				)
			}
		}
	}
}

// formatBitrate renders bits per second as kbps below 2 Mbps and Mbps above,
// matching the viewer's display scaling.
func formatBitrate(bps float64) string {
	kbps := bps / 1000
	if kbps > 2000 {
		return fmt.Sprintf("%.2f Mbps", kbps/1000)
	}
	return fmt.Sprintf("%.2f kbps", kbps)
}

// streamURL builds the rtmp:// URL to hand to an encoder, substituting the
// local interface address when the server binds the wildcard.
func streamURL(addr, path string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = "", "1935"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = localIP()
	}
	return fmt.Sprintf("rtmp://%s:%s%s", host, port, path)
}

// localIP discovers the preferred outbound interface address. The dial never
// sends a packet; it only resolves routing.
func localIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
	}
	return fallback
}
