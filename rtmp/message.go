package rtmp

import "encoding/binary"

// RTMP message type ids.
const (
	MsgSetChunkSize     uint8 = 1
	MsgAbort            uint8 = 2
	MsgAcknowledgement  uint8 = 3
	MsgUserControl      uint8 = 4
	MsgWindowAckSize    uint8 = 5
	MsgSetPeerBandwidth uint8 = 6
	MsgAudio            uint8 = 8
	MsgVideo            uint8 = 9
	MsgDataAMF3         uint8 = 15
	MsgCommandAMF3      uint8 = 17
	MsgDataAMF0         uint8 = 18
	MsgCommandAMF0      uint8 = 20
)

// Well-known chunk stream ids used for server-originated messages.
const (
	csidControl uint32 = 2
	csidCommand uint32 = 3
)

// User-control event types.
const (
	eventStreamBegin uint16 = 0
	eventStreamEOF   uint16 = 1
)

// Protocol limits.
const (
	// DefaultChunkSize is the chunk size both peers start with.
	DefaultChunkSize = 128
	// maxChunkSize caps SetChunkSize values; 31 bits are reserved for the
	// size field but conforming peers stay far below this.
	maxChunkSize = 0xFFFFFF
	// extendedTimestamp escapes the 24-bit timestamp field.
	extendedTimestamp = 0xFFFFFF
)

// Message is one complete protocol message reassembled from chunks. The
// timestamp is absolute (deltas already applied). A Message is immutable
// once emitted by the reader.
type Message struct {
	Type      uint8
	StreamID  uint32
	Timestamp uint32
	Payload   []byte
}

// Control payload constructors. Control messages always travel on chunk
// stream 2, message stream 0, per the protocol.

func setChunkSizePayload(size uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, size)
}

func windowAckSizePayload(size uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, size)
}

func acknowledgementPayload(sequence uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, sequence)
}

func setPeerBandwidthPayload(size uint32, limitType byte) []byte {
	buf := binary.BigEndian.AppendUint32(nil, size)
	return append(buf, limitType)
}

func userControlPayload(event uint16, streamID uint32) []byte {
	buf := binary.BigEndian.AppendUint16(nil, event)
	return binary.BigEndian.AppendUint32(buf, streamID)
}
