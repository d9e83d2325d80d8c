package rtmp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Chunk basic-header formats. The format selects how much of the previous
// message header for the same chunk stream is reused.
const (
	fmtFull         byte = 0 // 11-byte header: timestamp, length, type, stream id
	fmtNoStreamID   byte = 1 // 7-byte header: delta, length, type
	fmtTimestampOig byte = 2 // 3-byte header: delta only
	fmtContinuation byte = 3 // 0-byte header: everything reused
)

// readBasicHeader reads the 1-3 byte basic header carrying the format and
// chunk stream id. Ids 2-63 fit the first byte; 0 and 1 escape to the 2- and
// 3-byte forms covering 64-319 and 64-65599.
func readBasicHeader(r io.Reader) (byte, uint32, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, 0, err
	}
	format := b[0] >> 6
	switch csid := uint32(b[0] & 0x3F); csid {
	case 0:
		if _, err := io.ReadFull(r, b[:1]); err != nil {
			return 0, 0, err
		}
		return format, 64 + uint32(b[0]), nil
	case 1:
		if _, err := io.ReadFull(r, b[:2]); err != nil {
			return 0, 0, err
		}
		return format, 64 + uint32(binary.LittleEndian.Uint16(b[:2])), nil
	default:
		if csid < 2 {
			return 0, 0, &ProtocolError{ChunkStreamID: csid, Reason: "reserved chunk stream id"}
		}
		return format, csid, nil
	}
}

// appendBasicHeader appends the shortest basic-header encoding of csid.
func appendBasicHeader(buf []byte, format byte, csid uint32) []byte {
	switch {
	case csid < 64:
		return append(buf, format<<6|byte(csid))
	case csid < 320:
		return append(buf, format<<6, byte(csid-64))
	default:
		buf = append(buf, format<<6|1)
		return binary.LittleEndian.AppendUint16(buf, uint16(csid-64))
	}
}

func readUint24(r io.Reader) (uint32, error) {
	var b [3]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

func appendUint24(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>16), byte(v>>8), byte(v))
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// chunkState is the per-chunk-stream header record used to reconstruct the
// fields that compacted headers omit, plus the in-progress assembly buffer.
// The absolute timestamp is tracked here; raw header values are deltas for
// formats 1-3 and only absolute at format 0.
type chunkState struct {
	timestamp uint32 // resolved absolute timestamp of the current message
	delta     uint32 // last timestamp delta, reapplied by format-3 message starts
	length    uint32
	typeID    uint8
	streamID  uint32
	extended  bool // last header escaped to the 32-bit extended timestamp
	assembly  []byte
}

func (s *chunkState) remaining() uint32 {
	return s.length - uint32(len(s.assembly))
}

// readMessageHeader reads the format-specific message header and folds it
// into st. A format 1-3 header for a chunk stream with no prior state is a
// ProtocolError: guessing the missing fields would corrupt the payload
// silently, so the connection fails loudly instead.
func readMessageHeader(r io.Reader, format byte, csid uint32, st *chunkState) (*chunkState, error) {
	if format != fmtFull && st == nil {
		return nil, &ProtocolError{ChunkStreamID: csid, Reason: fmt.Sprintf("format %d header without prior chunk state", format)}
	}

	switch format {
	case fmtFull:
		ts, err := readUint24(r)
		if err != nil {
			return nil, err
		}
		length, err := readUint24(r)
		if err != nil {
			return nil, err
		}
		var tb [1]byte
		if _, err := io.ReadFull(r, tb[:]); err != nil {
			return nil, err
		}
		var sb [4]byte
		if _, err := io.ReadFull(r, sb[:]); err != nil {
			return nil, err
		}
		if st == nil {
			st = &chunkState{}
		}
		st.extended = ts == extendedTimestamp
		if st.extended {
			if ts, err = readUint32(r); err != nil {
				return nil, err
			}
		}
		if len(st.assembly) > 0 {
			return nil, &ProtocolError{ChunkStreamID: csid, Reason: "new message header while assembly in progress"}
		}
		st.timestamp = ts
		st.delta = 0
		st.length = length
		st.typeID = tb[0]
		st.streamID = binary.LittleEndian.Uint32(sb[:])
		return st, nil

	case fmtNoStreamID, fmtTimestampOig:
		delta, err := readUint24(r)
		if err != nil {
			return nil, err
		}
		var length uint32
		var typeID uint8
		if format == fmtNoStreamID {
			if length, err = readUint24(r); err != nil {
				return nil, err
			}
			var tb [1]byte
			if _, err := io.ReadFull(r, tb[:]); err != nil {
				return nil, err
			}
			typeID = tb[0]
		} else {
			length = st.length
			typeID = st.typeID
		}
		st.extended = delta == extendedTimestamp
		if st.extended {
			if delta, err = readUint32(r); err != nil {
				return nil, err
			}
		}
		if len(st.assembly) > 0 {
			return nil, &ProtocolError{ChunkStreamID: csid, Reason: "new message header while assembly in progress"}
		}
		// 32-bit wraparound arithmetic handles timestamp rollover.
		st.timestamp += delta
		st.delta = delta
		st.length = length
		st.typeID = typeID
		return st, nil

	case fmtContinuation:
		// A format-3 chunk either continues the in-progress message (no
		// header at all) or starts a new message reusing every previous
		// field, including the delta. When the governing header escaped to
		// the extended timestamp, the 32-bit value is re-sent here.
		if st.extended {
			v, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			if len(st.assembly) == 0 {
				st.delta = v
			}
		}
		if len(st.assembly) == 0 {
			st.timestamp += st.delta
		}
		return st, nil
	}

	return nil, &ProtocolError{ChunkStreamID: csid, Reason: fmt.Sprintf("invalid header format %d", format)}
}
