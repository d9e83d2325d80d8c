// Package media defines the elementary frame type that flows from the RTMP
// ingest engine to the display layer.
package media

// FrameBufferSize is the capacity of the bounded channel between a publishing
// connection and the frame consumer. Sized to absorb roughly two seconds of
// combined audio and video at typical encoder rates without unbounded growth.
const FrameBufferSize = 256

// FrameKind distinguishes audio from video frames.
type FrameKind int

// Frame kinds.
const (
	KindAudio FrameKind = iota
	KindVideo
)

// String returns the lowercase kind name.
func (k FrameKind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "video"
}

// Frame is a single timestamped elementary-stream unit extracted from an RTMP
// audio or video message, with the tag header already stripped. Payload bytes
// are opaque to the core; an external decoder interprets them. A Frame is
// immutable once emitted and owned by whoever receives it.
type Frame struct {
	Kind      FrameKind
	Timestamp uint32 // milliseconds, resolved absolute RTMP timestamp
	KeyFrame  bool   // video only
	Config    bool   // codec configuration record (sequence header)
	Payload   []byte
}
