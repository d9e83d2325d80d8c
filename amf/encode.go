package amf

import (
	"encoding/binary"
	"math"
)

// Encode appends the AMF0 encoding of each value to a new buffer. The server
// uses it to build _result, _error, and onStatus command payloads.
func Encode(vals ...Value) []byte {
	var buf []byte
	for _, v := range vals {
		buf = appendValue(buf, v)
	}
	return buf
}

func appendValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindNumber:
		buf = append(buf, markerNumber)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Number))

	case KindBoolean:
		buf = append(buf, markerBoolean)
		if v.Boolean {
			return append(buf, 1)
		}
		return append(buf, 0)

	case KindString:
		if len(v.String) > 0xFFFF {
			buf = append(buf, markerLongString)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.String)))
			return append(buf, v.String...)
		}
		buf = append(buf, markerString)
		return appendShortString(buf, v.String)

	case KindNull:
		return append(buf, markerNull)

	case KindUndefined:
		return append(buf, markerUndefined)

	case KindObject:
		buf = append(buf, markerObject)
		return appendProperties(buf, v.Object)

	case KindArray:
		buf = append(buf, markerStrictArray)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Array)))
		for _, e := range v.Array {
			buf = appendValue(buf, e)
		}
		return buf

	case KindDate:
		buf = append(buf, markerDate)
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Number))
		return append(buf, 0, 0) // reserved time zone
	}
	return buf
}

func appendProperties(buf []byte, props []Property) []byte {
	for _, p := range props {
		buf = appendShortString(buf, p.Key)
		buf = appendValue(buf, p.Value)
	}
	buf = appendShortString(buf, "")
	return append(buf, markerObjectEnd)
}

func appendShortString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}
