package flv

import (
	"bytes"
	"testing"

	"github.com/sboreli/streamview/media"
)

func TestParseVideoAVC(t *testing.T) {
	t.Parallel()

	nalu := []byte{0x00, 0x00, 0x00, 0x01, 0x65}
	// Key frame, AVC, NALU packet, zero composition time.
	payload := append([]byte{0x17, 0x01, 0x00, 0x00, 0x00}, nalu...)

	f, err := ParseVideo(1000, payload)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if f.Kind != media.KindVideo || !f.KeyFrame || f.Config {
		t.Fatalf("unexpected flags: %+v", f)
	}
	if f.Timestamp != 1000 {
		t.Fatalf("timestamp = %d, want 1000", f.Timestamp)
	}
	if !bytes.Equal(f.Payload, nalu) {
		t.Fatalf("payload = %x, want %x", f.Payload, nalu)
	}
}

func TestParseVideoConfigRecord(t *testing.T) {
	t.Parallel()

	avcc := []byte{0x01, 0x64, 0x00, 0x1f}
	payload := append([]byte{0x17, 0x00, 0x00, 0x00, 0x00}, avcc...)

	f, err := ParseVideo(0, payload)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if !f.Config || !f.KeyFrame {
		t.Fatalf("config record not flagged: %+v", f)
	}
	if !bytes.Equal(f.Payload, avcc) {
		t.Fatalf("payload = %x, want %x", f.Payload, avcc)
	}
}

func TestParseVideoInterFrame(t *testing.T) {
	t.Parallel()

	payload := []byte{0x27, 0x01, 0x00, 0x00, 0x00, 0xaa}
	f, err := ParseVideo(40, payload)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if f.KeyFrame {
		t.Fatal("inter frame flagged as key frame")
	}
}

func TestParseVideoLegacyCodec(t *testing.T) {
	t.Parallel()

	// Sorenson H.263: single-byte header only.
	payload := []byte{0x12, 0xde, 0xad}
	f, err := ParseVideo(0, payload)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if !bytes.Equal(f.Payload, []byte{0xde, 0xad}) {
		t.Fatalf("payload = %x", f.Payload)
	}
}

func TestParseVideoErrors(t *testing.T) {
	t.Parallel()

	if _, err := ParseVideo(0, nil); err == nil {
		t.Fatal("empty payload accepted")
	}
	// AVC header declared but payload too short for it.
	if _, err := ParseVideo(0, []byte{0x17, 0x01}); err == nil {
		t.Fatal("short AVC header accepted")
	}
	// Unknown codec id.
	if _, err := ParseVideo(0, []byte{0x1F, 0x00}); err == nil {
		t.Fatal("unknown codec accepted")
	}
}

func TestParseAudioAAC(t *testing.T) {
	t.Parallel()

	aac := []byte{0x21, 0x1b}
	payload := append([]byte{0xaf, 0x01}, aac...)

	f, err := ParseAudio(23, payload)
	if err != nil {
		t.Fatalf("ParseAudio: %v", err)
	}
	if f.Kind != media.KindAudio || f.Config {
		t.Fatalf("unexpected flags: %+v", f)
	}
	if !bytes.Equal(f.Payload, aac) {
		t.Fatalf("payload = %x, want %x", f.Payload, aac)
	}
}

func TestParseAudioAACSequenceHeader(t *testing.T) {
	t.Parallel()

	asc := []byte{0x12, 0x10}
	f, err := ParseAudio(0, append([]byte{0xaf, 0x00}, asc...))
	if err != nil {
		t.Fatalf("ParseAudio: %v", err)
	}
	if !f.Config {
		t.Fatal("AAC sequence header not flagged as config")
	}
	if !bytes.Equal(f.Payload, asc) {
		t.Fatalf("payload = %x, want %x", f.Payload, asc)
	}
}

func TestParseAudioMP3(t *testing.T) {
	t.Parallel()

	f, err := ParseAudio(0, []byte{0x2f, 0xff, 0xfb})
	if err != nil {
		t.Fatalf("ParseAudio: %v", err)
	}
	if !bytes.Equal(f.Payload, []byte{0xff, 0xfb}) {
		t.Fatalf("payload = %x", f.Payload)
	}
}

func TestParseAudioErrors(t *testing.T) {
	t.Parallel()

	if _, err := ParseAudio(0, nil); err == nil {
		t.Fatal("empty payload accepted")
	}
	if _, err := ParseAudio(0, []byte{0xaf}); err == nil {
		t.Fatal("short AAC header accepted")
	}
}
