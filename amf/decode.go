package amf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode decodes every AMF0 value in payload, in order. RTMP command and data
// messages are a flat sequence of values (command name, transaction id,
// arguments), so decoding runs to the end of the payload and trailing garbage
// is an error.
func Decode(payload []byte) ([]Value, error) {
	d := decoder{buf: payload}
	var vals []Value
	for d.pos < len(d.buf) {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) fail(err error) error {
	return &DecodeError{Offset: d.pos, Err: err}
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.pos < n {
		return nil, d.fail(ErrTruncated)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) value() (Value, error) {
	m, err := d.take(1)
	if err != nil {
		return Value{}, err
	}

	switch m[0] {
	case markerNumber:
		b, err := d.take(8)
		if err != nil {
			return Value{}, err
		}
		return Number(math.Float64frombits(binary.BigEndian.Uint64(b))), nil

	case markerBoolean:
		b, err := d.take(1)
		if err != nil {
			return Value{}, err
		}
		return Boolean(b[0] != 0), nil

	case markerString:
		s, err := d.shortString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil

	case markerLongString:
		b, err := d.take(4)
		if err != nil {
			return Value{}, err
		}
		s, err := d.take(int(binary.BigEndian.Uint32(b)))
		if err != nil {
			return Value{}, err
		}
		return String(string(s)), nil

	case markerNull:
		return Null(), nil

	case markerUndefined:
		return Undefined(), nil

	case markerObject:
		props, err := d.properties()
		if err != nil {
			return Value{}, err
		}
		return Object(props...), nil

	case markerECMAArray:
		// The leading count is advisory; the array is still terminated by an
		// empty key + object-end marker like a plain object.
		if _, err := d.take(4); err != nil {
			return Value{}, err
		}
		props, err := d.properties()
		if err != nil {
			return Value{}, err
		}
		return Object(props...), nil

	case markerStrictArray:
		b, err := d.take(4)
		if err != nil {
			return Value{}, err
		}
		count := binary.BigEndian.Uint32(b)
		if int(count) > len(d.buf)-d.pos {
			return Value{}, d.fail(fmt.Errorf("strict array count %d exceeds remaining payload", count))
		}
		vals := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := d.value()
			if err != nil {
				return Value{}, err
			}
			vals = append(vals, v)
		}
		return Array(vals...), nil

	case markerDate:
		b, err := d.take(8)
		if err != nil {
			return Value{}, err
		}
		// The two time-zone bytes are reserved and always ignored.
		if _, err := d.take(2); err != nil {
			return Value{}, err
		}
		return Date(math.Float64frombits(binary.BigEndian.Uint64(b))), nil

	default:
		return Value{}, d.fail(fmt.Errorf("unknown type marker 0x%02x", m[0]))
	}
}

// properties reads (key, value) pairs until the empty-key object-end
// terminator. A payload that ends before the terminator is malformed.
func (d *decoder) properties() ([]Property, error) {
	var props []Property
	for {
		key, err := d.shortString()
		if err != nil {
			return nil, err
		}
		if key == "" {
			m, err := d.take(1)
			if err != nil {
				return nil, err
			}
			if m[0] != markerObjectEnd {
				return nil, d.fail(fmt.Errorf("expected object end, got marker 0x%02x", m[0]))
			}
			return props, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: key, Value: v})
	}
}

func (d *decoder) shortString() (string, error) {
	b, err := d.take(2)
	if err != nil {
		return "", err
	}
	s, err := d.take(int(binary.BigEndian.Uint16(b)))
	if err != nil {
		return "", err
	}
	return string(s), nil
}
