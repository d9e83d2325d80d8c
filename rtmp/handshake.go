package rtmp

import (
	"bytes"
	"crypto/rand"
	"io"
)

// Handshake constants: version byte 3, 1536-byte blocks of 4-byte timestamp,
// 4-byte zero, 1528 random bytes.
const (
	protocolVersion = 0x03
	handshakeSize   = 1536
)

// serverHandshake performs the server side of the 3-part exchange:
// read C0 (version), send S0+S1, read C1, send S2 = C1 echo, read C2 and
// require it to echo S1 byte-for-byte (strict validation). Any failure is a
// HandshakeError; the caller closes the connection and never retries.
func serverHandshake(rw io.ReadWriter) error {
	var c0 [1]byte
	if _, err := io.ReadFull(rw, c0[:]); err != nil {
		return &HandshakeError{Stage: "C0", Err: err}
	}
	if c0[0] != protocolVersion {
		return &HandshakeError{Stage: "C0", Err: ErrVersionMismatch}
	}

	// S1: timestamp and zero fields stay zero, rest random. rand.Read only
	// fails when the platform entropy source is broken.
	s1 := make([]byte, handshakeSize)
	if _, err := rand.Read(s1[8:]); err != nil {
		return &HandshakeError{Stage: "C0", Err: err}
	}
	if _, err := rw.Write([]byte{protocolVersion}); err != nil {
		return &HandshakeError{Stage: "C0", Err: err}
	}
	if _, err := rw.Write(s1); err != nil {
		return &HandshakeError{Stage: "C1", Err: err}
	}

	c1 := make([]byte, handshakeSize)
	if _, err := io.ReadFull(rw, c1); err != nil {
		return &HandshakeError{Stage: "C1", Err: err}
	}

	// S2 echoes C1; the peer's timestamp fields are tolerated as-is.
	if _, err := rw.Write(c1); err != nil {
		return &HandshakeError{Stage: "C2", Err: err}
	}

	c2 := make([]byte, handshakeSize)
	if _, err := io.ReadFull(rw, c2); err != nil {
		return &HandshakeError{Stage: "C2", Err: err}
	}
	if !bytes.Equal(c2, s1) {
		return &HandshakeError{Stage: "C2", Err: ErrEchoMismatch}
	}

	return nil
}

// clientHandshake performs the client side of the exchange. Exported through
// Dial-style helpers only in tests; the server core never initiates.
func clientHandshake(rw io.ReadWriter) error {
	c1 := make([]byte, handshakeSize)
	if _, err := rand.Read(c1[8:]); err != nil {
		return &HandshakeError{Stage: "C1", Err: err}
	}
	if _, err := rw.Write([]byte{protocolVersion}); err != nil {
		return &HandshakeError{Stage: "C0", Err: err}
	}
	if _, err := rw.Write(c1); err != nil {
		return &HandshakeError{Stage: "C1", Err: err}
	}

	var s0 [1]byte
	if _, err := io.ReadFull(rw, s0[:]); err != nil {
		return &HandshakeError{Stage: "C0", Err: err}
	}
	if s0[0] != protocolVersion {
		return &HandshakeError{Stage: "C0", Err: ErrVersionMismatch}
	}

	s1 := make([]byte, handshakeSize)
	if _, err := io.ReadFull(rw, s1); err != nil {
		return &HandshakeError{Stage: "C1", Err: err}
	}

	// C2 echoes S1.
	if _, err := rw.Write(s1); err != nil {
		return &HandshakeError{Stage: "C2", Err: err}
	}

	s2 := make([]byte, handshakeSize)
	if _, err := io.ReadFull(rw, s2); err != nil {
		return &HandshakeError{Stage: "C2", Err: err}
	}
	if !bytes.Equal(s2, c1) {
		return &HandshakeError{Stage: "C2", Err: ErrEchoMismatch}
	}

	return nil
}
