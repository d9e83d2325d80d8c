package rtmp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/sboreli/streamview/amf"
	"github.com/sboreli/streamview/flv"
	"github.com/sboreli/streamview/ingest"
	"github.com/sboreli/streamview/stream"
)

// errSessionEnded signals a graceful protocol-level teardown (deleteStream,
// unpublish) as opposed to a failure.
var errSessionEnded = errors.New("rtmp: session ended")

// countingReader tracks bytes delivered to the parser for the
// window-acknowledgement sequence number. 32-bit wraparound is intentional.
type countingReader struct {
	r io.Reader
	n uint32
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += uint32(n)
	return n, err
}

// conn is one accepted connection: its chunk reader/writer state, session
// state machine, and publish bookkeeping. Owned by a single goroutine; only
// the ingest publisher and stream manager it touches are shared.
type conn struct {
	cfg      Config
	log      *slog.Logger
	nc       net.Conn
	count    *countingReader
	reader   *chunkReader
	writer   *chunkWriter
	registry *ingest.Registry
	streams  *stream.Manager

	state          SessionState
	app            string
	publishPath    string
	publisher      *ingest.Publisher
	publishRejects int

	peerWindow uint32
	lastAck    uint32
}

func newConn(nc net.Conn, cfg Config, registry *ingest.Registry, streams *stream.Manager, log *slog.Logger) *conn {
	c := &conn{
		cfg:      cfg,
		log:      log.With("remote", nc.RemoteAddr().String()),
		nc:       nc,
		registry: registry,
		streams:  streams,
		state:    StateHandshaking,
	}
	c.count = &countingReader{r: bufio.NewReaderSize(nc, 4096)}
	c.reader = newChunkReader(c.count)
	c.writer = newChunkWriter(nc)
	return c
}

// serve runs the connection to completion. Cancelling ctx closes the socket,
// which unblocks any pending read and unwinds all per-connection state.
func (c *conn) serve(ctx context.Context) error {
	defer c.teardown()

	stop := context.AfterFunc(ctx, func() { c.nc.Close() })
	defer stop()

	if err := c.nc.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout)); err != nil {
		return err
	}
	if err := serverHandshake(c.nc); err != nil {
		return err
	}
	c.log.Debug("handshake complete")

	for {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout)); err != nil {
			return err
		}
		msg, err := c.reader.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return ErrIdleTimeout
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.maybeAcknowledge(); err != nil {
			return err
		}

		if err := c.handleMessage(msg); err != nil {
			if errors.Is(err, errSessionEnded) {
				return nil
			}
			return err
		}
	}
}

// maybeAcknowledge sends an Acknowledgement once a full window of bytes has
// arrived since the last one. Conforming encoders stall once their own
// window fills without it, so this is liveness, not telemetry.
func (c *conn) maybeAcknowledge() error {
	if c.count.n-c.lastAck < c.cfg.WindowAckSize {
		return nil
	}
	c.lastAck = c.count.n
	return c.writer.writeControl(MsgAcknowledgement, acknowledgementPayload(c.count.n))
}

func (c *conn) handleMessage(msg *Message) error {
	switch msg.Type {
	case MsgSetChunkSize:
		if len(msg.Payload) < 4 {
			return &ProtocolError{Reason: "short SetChunkSize payload"}
		}
		size := binary.BigEndian.Uint32(msg.Payload) & 0x7FFFFFFF
		if err := c.reader.setChunkSize(size); err != nil {
			return err
		}
		c.log.Debug("peer chunk size", "size", size)
		return nil

	case MsgAbort:
		if len(msg.Payload) < 4 {
			return &ProtocolError{Reason: "short Abort payload"}
		}
		c.reader.abort(binary.BigEndian.Uint32(msg.Payload))
		return nil

	case MsgAcknowledgement:
		return nil

	case MsgWindowAckSize:
		if len(msg.Payload) < 4 {
			return &ProtocolError{Reason: "short WindowAckSize payload"}
		}
		c.peerWindow = binary.BigEndian.Uint32(msg.Payload)
		return nil

	case MsgSetPeerBandwidth, MsgUserControl:
		// Tolerated without action: peer bandwidth hints and ping traffic
		// have no effect on a receive-only server.
		return nil

	case MsgCommandAMF0, MsgCommandAMF3:
		payload := msg.Payload
		if msg.Type == MsgCommandAMF3 && len(payload) > 0 {
			// AMF3 command messages open with a one-byte format prefix; the
			// body encoders actually send is still AMF0.
			payload = payload[1:]
		}
		vals, err := amf.Decode(payload)
		if err != nil {
			return err
		}
		return c.handleCommand(vals)

	case MsgDataAMF0, MsgDataAMF3:
		return c.handleData(msg)

	case MsgAudio:
		return c.handleMedia(msg)

	case MsgVideo:
		return c.handleMedia(msg)

	default:
		// Anything else (shared objects, aggregate messages) is outside the
		// supported profile; tolerated and logged rather than fatal.
		c.log.Debug("ignoring message", "type", msg.Type, "bytes", len(msg.Payload))
		return nil
	}
}

func (c *conn) handleCommand(vals []amf.Value) error {
	if len(vals) < 2 || vals[0].Kind != amf.KindString || vals[1].Kind != amf.KindNumber {
		return &ProtocolError{Reason: "command without name and transaction id"}
	}
	name := vals[0].String
	txn := vals[1].Number
	args := vals[2:]

	c.log.Debug("command", "name", name, "txn", txn, "state", c.state.String())

	switch name {
	case "connect":
		return c.handleConnect(txn, args)
	case "createStream":
		return c.handleCreateStream(txn)
	case "publish":
		return c.handlePublish(txn, args)
	case "play":
		return c.handlePlay(txn)
	case "deleteStream", "FCUnpublish", "closeStream":
		return c.handleUnpublish()
	case "releaseStream", "FCPublish", "getStreamLength":
		// Courtesy commands sent by common encoders ahead of publish; no
		// response is required for them to proceed.
		return nil
	default:
		c.log.Debug("ignoring command", "name", name)
		return nil
	}
}

func (c *conn) handleConnect(txn float64, args []amf.Value) error {
	next, err := transition(c.state, StateConnected)
	if err != nil {
		return err
	}

	app := ""
	if len(args) > 0 {
		if v, ok := args[0].Get("app"); ok {
			app = strings.Trim(v.String, "/")
		}
	}
	if app != c.cfg.appName() {
		// Unknown application: answered, then fatal. There is nothing the
		// peer could retry within this server's single configured path.
		c.writeError(txn, "NetConnection.Connect.Rejected", fmt.Sprintf("application %q not available", app))
		return &AppError{Code: "NetConnection.Connect.Rejected", Description: "unknown application " + app}
	}
	c.app = app
	c.state = next

	if err := c.writer.writeControl(MsgWindowAckSize, windowAckSizePayload(c.cfg.WindowAckSize)); err != nil {
		return err
	}
	if err := c.writer.writeControl(MsgSetPeerBandwidth, setPeerBandwidthPayload(c.cfg.WindowAckSize, 2)); err != nil {
		return err
	}
	if err := c.writer.writeControl(MsgSetChunkSize, setChunkSizePayload(c.cfg.ChunkSize)); err != nil {
		return err
	}
	c.writer.setChunkSize(c.cfg.ChunkSize)

	result := amf.Encode(
		amf.String("_result"),
		amf.Number(txn),
		amf.Object(
			amf.Prop("fmsVer", amf.String("FMS/3,0,1,123")),
			amf.Prop("capabilities", amf.Number(31)),
		),
		amf.Object(
			amf.Prop("level", amf.String("status")),
			amf.Prop("code", amf.String("NetConnection.Connect.Success")),
			amf.Prop("description", amf.String("Connection succeeded.")),
			amf.Prop("objectEncoding", amf.Number(0)),
		),
	)
	c.log.Info("connected", "app", app)
	return c.writer.writeCommand(0, result)
}

func (c *conn) handleCreateStream(txn float64) error {
	if c.state != StateConnected {
		return &ProtocolError{Reason: "createStream before connect"}
	}
	// A single message stream id serves the one publisher or player this
	// server admits per connection.
	result := amf.Encode(amf.String("_result"), amf.Number(txn), amf.Null(), amf.Number(publishStreamID))
	return c.writer.writeCommand(0, result)
}

// publishStreamID is the message stream id handed out by createStream and
// used for all media on the connection.
const publishStreamID = 1

func (c *conn) handlePublish(txn float64, args []amf.Value) error {
	next, err := transition(c.state, StatePublishing)
	if err != nil {
		return err
	}

	streamName := ""
	for _, a := range args {
		if a.Kind == amf.KindString {
			streamName = a.String
			break
		}
	}
	// Query parameters after the stream key carry encoder vanity settings
	// and never participate in path matching.
	if i := strings.IndexByte(streamName, '?'); i >= 0 {
		streamName = streamName[:i]
	}

	path := "/" + c.app + "/" + streamName
	if path != c.cfg.StreamPath {
		return c.rejectPublish(txn, "NetStream.Publish.BadName",
			fmt.Sprintf("stream path %q does not match %q", path, c.cfg.StreamPath))
	}

	if _, created := c.streams.Create(path); !created {
		return c.rejectPublish(txn, "NetStream.Publish.BadConnection",
			fmt.Sprintf("stream path %q already has a publisher", path))
	}

	pub, ok := c.registry.Register(path)
	if !ok {
		c.streams.Remove(path)
		return c.rejectPublish(txn, "NetStream.Publish.BadConnection",
			fmt.Sprintf("stream path %q already has a publisher", path))
	}
	pub.SetRemoteAddr(c.nc.RemoteAddr().String())

	c.publisher = pub
	c.publishPath = path
	c.state = next

	if err := c.writer.writeControl(MsgUserControl, userControlPayload(eventStreamBegin, publishStreamID)); err != nil {
		return err
	}
	c.log.Info("publishing", "path", path)
	return c.writeOnStatus("NetStream.Publish.Start", "Publishing "+streamName+".")
}

// rejectPublish answers a bad publish with _error and keeps the session in
// Connected so the peer may retry with a corrected path, up to the limit.
func (c *conn) rejectPublish(txn float64, code, desc string) error {
	c.log.Warn("publish rejected", "code", code, "desc", desc)
	c.writeError(txn, code, desc)
	c.publishRejects++
	if c.publishRejects >= c.cfg.PublishRetryLimit {
		return ErrPublishRetryLimit
	}
	return nil
}

func (c *conn) handlePlay(txn float64) error {
	next, err := transition(c.state, StatePlaying)
	if err != nil {
		return err
	}
	c.state = next

	if err := c.writer.writeControl(MsgUserControl, userControlPayload(eventStreamBegin, publishStreamID)); err != nil {
		return err
	}
	c.log.Info("playing")
	return c.writeOnStatus("NetStream.Play.Start", "Started playing.")
}

func (c *conn) handleUnpublish() error {
	next, err := transition(c.state, StateClosed)
	if err != nil {
		return err
	}
	c.state = next
	c.log.Info("session ended by peer")
	return errSessionEnded
}

// handleData processes AMF data messages. Only onMetaData is interpreted,
// for the last-seen resolution; other data messages are tolerated unread.
func (c *conn) handleData(msg *Message) error {
	payload := msg.Payload
	if msg.Type == MsgDataAMF3 && len(payload) > 0 {
		payload = payload[1:]
	}
	vals, err := amf.Decode(payload)
	if err != nil {
		return err
	}

	// Encoders wrap metadata as ["@setDataFrame", "onMetaData", object] or
	// send ["onMetaData", object] directly.
	var meta amf.Value
	found := false
	for i, v := range vals {
		if v.Kind == amf.KindString && v.String == "onMetaData" && i+1 < len(vals) {
			meta = vals[i+1]
			found = true
			break
		}
	}
	if !found || c.publisher == nil {
		return nil
	}

	w, wok := meta.Get("width")
	h, hok := meta.Get("height")
	if wok && hok && w.Number > 0 && h.Number > 0 {
		c.publisher.Video.SetResolution(int(w.Number), int(h.Number))
		c.log.Info("stream metadata", "width", int(w.Number), "height", int(h.Number))
	}
	return nil
}

func (c *conn) handleMedia(msg *Message) error {
	if c.state != StatePublishing {
		return &ProtocolError{Reason: "media message outside publishing state"}
	}

	if msg.Type == MsgVideo {
		f, perr := flv.ParseVideo(msg.Timestamp, msg.Payload)
		if perr != nil {
			return perr
		}
		c.publisher.RecordBytes(len(msg.Payload))
		c.publisher.Video.RecordVideoFrame(len(f.Payload), f.KeyFrame)
		c.publisher.WriteFrame(f)
		return nil
	}

	f, perr := flv.ParseAudio(msg.Timestamp, msg.Payload)
	if perr != nil {
		return perr
	}
	c.publisher.RecordBytes(len(msg.Payload))
	c.publisher.WriteFrame(f)
	return nil
}

func (c *conn) writeOnStatus(code, desc string) error {
	payload := amf.Encode(
		amf.String("onStatus"),
		amf.Number(0),
		amf.Null(),
		amf.Object(
			amf.Prop("level", amf.String("status")),
			amf.Prop("code", amf.String(code)),
			amf.Prop("description", amf.String(desc)),
		),
	)
	return c.writer.writeCommand(publishStreamID, payload)
}

// writeError best-effort sends an _error command; a write failure here is
// moot because the caller is already rejecting or closing.
func (c *conn) writeError(txn float64, code, desc string) {
	payload := amf.Encode(
		amf.String("_error"),
		amf.Number(txn),
		amf.Null(),
		amf.Object(
			amf.Prop("level", amf.String("error")),
			amf.Prop("code", amf.String(code)),
			amf.Prop("description", amf.String(desc)),
		),
	)
	if err := c.writer.writeCommand(0, payload); err != nil {
		c.log.Debug("error response write failed", "error", err)
	}
}

// teardown releases publish resources. Safe to call once per connection,
// from serve's defer.
func (c *conn) teardown() {
	c.state = StateClosed
	if c.publisher != nil {
		c.registry.Unregister(c.publishPath)
		c.streams.Remove(c.publishPath)
		c.publisher = nil
	}
}
