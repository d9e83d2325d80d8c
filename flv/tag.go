// Package flv parses the FLV-style tag headers that prefix RTMP audio and
// video message payloads, yielding elementary frames with timing and
// key-frame metadata. Codec payload bytes past the tag header are never
// interpreted here; that is the external decoder's job.
package flv

import (
	"fmt"

	"github.com/sboreli/streamview/media"
)

// Video frame types (upper nibble of the first video byte).
const (
	frameTypeKey   = 1
	frameTypeInter = 2
)

// Video codec ids (lower nibble of the first video byte).
const (
	CodecH263        = 2
	CodecScreenVideo = 3
	CodecVP6         = 4
	CodecVP6Alpha    = 5
	CodecScreenV2    = 6
	CodecAVC         = 7
	CodecHEVC        = 12
	CodecAV1         = 13
)

// Audio sound formats (upper nibble of the first audio byte).
const (
	SoundMP3  = 2
	SoundPCM  = 3
	SoundAAC  = 10
	SoundOpus = 13
)

// Packet type 0 on AVC/HEVC/AV1 video and AAC/Opus audio marks a codec
// configuration record (sequence header) rather than a media frame.
const packetTypeConfig = 0

// ErrEmptyPayload is returned for a zero-length media message; the tag header
// is mandatory, so an empty payload is a peer violation.
var ErrEmptyPayload = fmt.Errorf("flv: empty media payload")

// ParseVideo strips the video tag header from an RTMP video message payload
// and returns the elementary frame. For AVC/HEVC/AV1 the header is five bytes
// (frame type + codec, packet type, 24-bit composition time); legacy codecs
// carry only the first byte. Configuration records are flagged, not dropped,
// so the decoder can initialize from them.
func ParseVideo(timestamp uint32, payload []byte) (media.Frame, error) {
	if len(payload) == 0 {
		return media.Frame{}, ErrEmptyPayload
	}

	frameType := payload[0] >> 4
	codec := payload[0] & 0x0F

	headerLen := 1
	config := false
	switch codec {
	case CodecAVC, CodecHEVC, CodecAV1:
		headerLen = 5
		if len(payload) < headerLen {
			return media.Frame{}, fmt.Errorf("flv: video payload %d bytes, need %d for codec %d header", len(payload), headerLen, codec)
		}
		config = payload[1] == packetTypeConfig
	case CodecH263, CodecScreenVideo, CodecVP6, CodecVP6Alpha, CodecScreenV2:
	default:
		return media.Frame{}, fmt.Errorf("flv: unknown video codec id %d", codec)
	}

	return media.Frame{
		Kind:      media.KindVideo,
		Timestamp: timestamp,
		KeyFrame:  frameType == frameTypeKey,
		Config:    config,
		Payload:   payload[headerLen:],
	}, nil
}

// ParseAudio strips the audio tag header from an RTMP audio message payload.
// AAC and Opus carry a packet-type byte after the format byte; packet type 0
// is the codec configuration record.
func ParseAudio(timestamp uint32, payload []byte) (media.Frame, error) {
	if len(payload) == 0 {
		return media.Frame{}, ErrEmptyPayload
	}

	format := payload[0] >> 4

	headerLen := 1
	config := false
	if format == SoundAAC || format == SoundOpus {
		headerLen = 2
		if len(payload) < headerLen {
			return media.Frame{}, fmt.Errorf("flv: audio payload %d bytes, need %d for format %d header", len(payload), headerLen, format)
		}
		config = payload[1] == packetTypeConfig
	}

	return media.Frame{
		Kind:      media.KindAudio,
		Timestamp: timestamp,
		Config:    config,
		Payload:   payload[headerLen:],
	}, nil
}
