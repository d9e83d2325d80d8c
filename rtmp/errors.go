package rtmp

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the connection pipeline. All are fatal for the
// connection that raised them; none affect the listener or other connections.
var (
	// ErrVersionMismatch is a C0 byte other than 3.
	ErrVersionMismatch = errors.New("rtmp: unsupported protocol version")

	// ErrEchoMismatch is a C2 block that does not echo S1 byte-for-byte.
	ErrEchoMismatch = errors.New("rtmp: handshake echo mismatch")

	// ErrIdleTimeout is raised when no complete message arrives within the
	// configured idle window.
	ErrIdleTimeout = errors.New("rtmp: idle timeout")

	// ErrPublishRetryLimit is raised after the peer exhausts its publish
	// attempts against a non-matching path.
	ErrPublishRetryLimit = errors.New("rtmp: publish retry limit exceeded")
)

// HandshakeError indicates a malformed or timed-out handshake exchange.
// Always fatal; a failed handshake is never retried.
type HandshakeError struct {
	Stage string // "C0", "C1", "C2"
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("rtmp: handshake %s: %v", e.Stage, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates a malformed chunk header, a message-length
// violation, or a continuation chunk for a chunk stream with no prior state.
// The connection closes rather than risking silent payload corruption.
type ProtocolError struct {
	ChunkStreamID uint32
	Reason        string
}

func (e *ProtocolError) Error() string {
	if e.ChunkStreamID != 0 {
		return fmt.Sprintf("rtmp: protocol error on chunk stream %d: %s", e.ChunkStreamID, e.Reason)
	}
	return fmt.Sprintf("rtmp: protocol error: %s", e.Reason)
}

// AppError is a recoverable application-level rejection, answered with an
// _error command while the session stays alive (up to the retry limit).
type AppError struct {
	Code        string // e.g. "NetStream.Publish.BadName"
	Description string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("rtmp: %s: %s", e.Code, e.Description)
}
