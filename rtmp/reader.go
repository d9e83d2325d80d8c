package rtmp

import (
	"fmt"
	"io"
)

// chunkReader demultiplexes the interleaved chunk streams of one connection
// and reassembles complete protocol messages. All state is per-connection;
// nothing here is shared across connections.
type chunkReader struct {
	r         io.Reader
	chunkSize uint32
	states    map[uint32]*chunkState
}

func newChunkReader(r io.Reader) *chunkReader {
	return &chunkReader{
		r:         r,
		chunkSize: DefaultChunkSize,
		states:    make(map[uint32]*chunkState),
	}
}

// setChunkSize applies an inbound SetChunkSize immediately; it governs every
// subsequent chunk read.
func (cr *chunkReader) setChunkSize(size uint32) error {
	if size == 0 || size > maxChunkSize {
		return &ProtocolError{Reason: fmt.Sprintf("peer set chunk size %d out of range", size)}
	}
	cr.chunkSize = size
	return nil
}

// abort discards the partially assembled message of a chunk stream, per an
// Abort control message. Header state survives so later chunks still resolve.
func (cr *chunkReader) abort(csid uint32) {
	if st, ok := cr.states[csid]; ok {
		st.assembly = nil
	}
}

// ReadMessage reads chunks until one message completes and returns it.
// Messages from interleaved chunk streams complete in arrival order of their
// final chunk.
func (cr *chunkReader) ReadMessage() (*Message, error) {
	for {
		msg, err := cr.readChunk()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
	}
}

// readChunk consumes exactly one chunk. It returns a non-nil Message when
// that chunk completes one.
func (cr *chunkReader) readChunk() (*Message, error) {
	format, csid, err := readBasicHeader(cr.r)
	if err != nil {
		return nil, err
	}

	st, err := readMessageHeader(cr.r, format, csid, cr.states[csid])
	if err != nil {
		return nil, err
	}
	cr.states[csid] = st

	// Invariant: the assembly buffer never exceeds the declared length; each
	// chunk carries at most chunkSize bytes of the remainder.
	n := st.remaining()
	if n > cr.chunkSize {
		n = cr.chunkSize
	}
	if n > 0 {
		if st.assembly == nil {
			st.assembly = make([]byte, 0, st.length)
		}
		off := len(st.assembly)
		st.assembly = st.assembly[:off+int(n)]
		if _, err := io.ReadFull(cr.r, st.assembly[off:]); err != nil {
			return nil, err
		}
	}

	if uint32(len(st.assembly)) < st.length {
		return nil, nil
	}

	msg := &Message{
		Type:      st.typeID,
		StreamID:  st.streamID,
		Timestamp: st.timestamp,
		Payload:   st.assembly,
	}
	st.assembly = nil
	return msg, nil
}
