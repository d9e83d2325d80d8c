package rtmp

import (
	"encoding/binary"
	"io"
)

// chunkWriter serializes messages into full-header chunks followed by
// continuation chunks, honoring the outbound chunk size. The outbound size
// is negotiated independently of the inbound one.
type chunkWriter struct {
	w         io.Writer
	chunkSize uint32
}

func newChunkWriter(w io.Writer) *chunkWriter {
	return &chunkWriter{w: w, chunkSize: DefaultChunkSize}
}

func (cw *chunkWriter) setChunkSize(size uint32) {
	cw.chunkSize = size
}

// WriteMessage writes m as a format-0 chunk plus as many format-3
// continuation chunks as the payload requires. Timestamps at or above the
// 24-bit ceiling use the extended-timestamp escape, re-sent on every
// continuation chunk as the protocol requires.
func (cw *chunkWriter) WriteMessage(csid uint32, m *Message) error {
	extended := m.Timestamp >= extendedTimestamp

	header := appendBasicHeader(nil, fmtFull, csid)
	if extended {
		header = appendUint24(header, extendedTimestamp)
	} else {
		header = appendUint24(header, m.Timestamp)
	}
	header = appendUint24(header, uint32(len(m.Payload)))
	header = append(header, m.Type)
	header = binary.LittleEndian.AppendUint32(header, m.StreamID)
	if extended {
		header = binary.BigEndian.AppendUint32(header, m.Timestamp)
	}
	if _, err := cw.w.Write(header); err != nil {
		return err
	}

	payload := m.Payload
	for {
		n := uint32(len(payload))
		if n > cw.chunkSize {
			n = cw.chunkSize
		}
		if _, err := cw.w.Write(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
		if len(payload) == 0 {
			return nil
		}

		cont := appendBasicHeader(nil, fmtContinuation, csid)
		if extended {
			cont = binary.BigEndian.AppendUint32(cont, m.Timestamp)
		}
		if _, err := cw.w.Write(cont); err != nil {
			return err
		}
	}
}

// writeControl sends a protocol control message on chunk stream 2,
// message stream 0.
func (cw *chunkWriter) writeControl(typeID uint8, payload []byte) error {
	return cw.WriteMessage(csidControl, &Message{Type: typeID, Payload: payload})
}

// writeCommand sends an AMF0 command on chunk stream 3.
func (cw *chunkWriter) writeCommand(streamID uint32, payload []byte) error {
	return cw.WriteMessage(csidCommand, &Message{Type: MsgCommandAMF0, StreamID: streamID, Payload: payload})
}
