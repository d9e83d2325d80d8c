package amf

import (
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		val  Value
	}{
		{"number", Number(1935)},
		{"negative number", Number(-0.5)},
		{"bool true", Boolean(true)},
		{"bool false", Boolean(false)},
		{"string", String("live")},
		{"empty string", String("")},
		{"null", Null()},
		{"undefined", Undefined()},
		{"date", Date(1700000000000)},
		{"flat object", Object(
			Prop("app", String("live")),
			Prop("tcUrl", String("rtmp://127.0.0.1/live")),
			Prop("fpad", Boolean(false)),
			Prop("videoCodecs", Number(252)),
		)},
		{"array", Array(Number(1), String("two"), Boolean(true), Null())},
		{"nested depth 5", Object(
			Prop("a", Object(
				Prop("b", Object(
					Prop("c", Object(
						Prop("d", Object(
							Prop("e", Number(5)),
						)),
					)),
				)),
			)),
			Prop("arr", Array(Object(Prop("k", String("v"))), Number(2))),
		)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.val)
			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("decoded %d values, want 1", len(got))
			}
			if !got[0].Equal(tc.val) {
				t.Fatalf("round trip mismatch: got %+v want %+v", got[0], tc.val)
			}
		})
	}
}

func TestDecodeSequence(t *testing.T) {
	t.Parallel()

	// A publish command payload: name, transaction id, null, two arguments.
	buf := Encode(String("publish"), Number(4), Null(), String("stream"), String("live"))
	vals, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vals) != 5 {
		t.Fatalf("decoded %d values, want 5", len(vals))
	}
	if vals[0].String != "publish" || vals[1].Number != 4 {
		t.Fatalf("unexpected head values: %+v", vals[:2])
	}
}

func TestDecodeLongString(t *testing.T) {
	t.Parallel()

	long := make([]byte, 0x10001)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	buf := Encode(String(string(long)))
	if buf[0] != markerLongString {
		t.Fatalf("expected long string marker, got 0x%02x", buf[0])
	}
	vals, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[0].String != string(long) {
		t.Fatal("long string mismatch")
	}
}

func TestDecodeECMAArray(t *testing.T) {
	t.Parallel()

	// onMetaData payloads commonly use an ECMA array: count prefix plus
	// object-style terminated properties.
	buf := []byte{markerECMAArray, 0, 0, 0, 2}
	buf = appendShortString(buf, "width")
	buf = appendValue(buf, Number(1280))
	buf = appendShortString(buf, "height")
	buf = appendValue(buf, Number(720))
	buf = appendShortString(buf, "")
	buf = append(buf, markerObjectEnd)

	vals, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	w, ok := vals[0].Get("width")
	if !ok || w.Number != 1280 {
		t.Fatalf("width = %+v, %v", w, ok)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		buf  []byte
	}{
		{"unknown marker", []byte{0x42}},
		{"truncated number", []byte{markerNumber, 0, 0}},
		{"truncated string length", []byte{markerString, 0}},
		{"string past end", []byte{markerString, 0, 10, 'a', 'b'}},
		{"object missing terminator", Encode(Object(Prop("k", Number(1))))[:8]},
		{"strict array count past end", []byte{markerStrictArray, 0xff, 0xff, 0xff, 0xff}},
		{"truncated date", []byte{markerDate, 0, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.buf)
			if err == nil {
				t.Fatal("expected DecodeError, got nil")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
		})
	}
}
