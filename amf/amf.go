// Package amf implements the AMF0 binary object notation used by RTMP for
// command arguments and stream metadata.
//
// Values are modeled as an explicit sum type rather than interface{} so the
// decoder handles every type marker exhaustively and malformed input is
// always surfaced as a DecodeError instead of a silent truncation.
package amf

import (
	"errors"
	"fmt"
)

// AMF0 type markers.
const (
	markerNumber      = 0x00
	markerBoolean     = 0x01
	markerString      = 0x02
	markerObject      = 0x03
	markerNull        = 0x05
	markerUndefined   = 0x06
	markerECMAArray   = 0x08
	markerObjectEnd   = 0x09
	markerStrictArray = 0x0a
	markerDate        = 0x0b
	markerLongString  = 0x0c
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds, one per supported AMF0 type.
const (
	KindNumber Kind = iota
	KindBoolean
	KindString
	KindNull
	KindUndefined
	KindObject
	KindArray
	KindDate
)

// Property is a single key/value pair of an AMF0 object. Objects preserve
// encoding order, so they are a slice of properties rather than a map.
type Property struct {
	Key   string
	Value Value
}

// Value is a decoded AMF0 value. Exactly the fields implied by Kind are
// meaningful; the zero Value is the number 0.
type Value struct {
	Kind    Kind
	Number  float64    // KindNumber, KindDate (epoch milliseconds)
	Boolean bool       // KindBoolean
	String  string     // KindString
	Object  []Property // KindObject
	Array   []Value    // KindArray
}

// Constructors for each variant, used when building command responses.

// Number returns a number Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// Boolean returns a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Boolean: b} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, String: s} }

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// Undefined returns the undefined Value.
func Undefined() Value { return Value{Kind: KindUndefined} }

// Object returns an object Value with the given ordered properties.
func Object(props ...Property) Value { return Value{Kind: KindObject, Object: props} }

// Array returns a strict-array Value.
func Array(vals ...Value) Value { return Value{Kind: KindArray, Array: vals} }

// Date returns a date Value from epoch milliseconds.
func Date(epochMillis float64) Value { return Value{Kind: KindDate, Number: epochMillis} }

// Prop builds an object property.
func Prop(key string, v Value) Property { return Property{Key: key, Value: v} }

// Get returns the value of the named property of an object, or false when the
// value is not an object or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for _, p := range v.Object {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep equality of two values. Objects compare by ordered
// properties, matching the round-trip guarantee of the codec.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber, KindDate:
		return v.Number == o.Number
	case KindBoolean:
		return v.Boolean == o.Boolean
	case KindString:
		return v.String == o.String
	case KindNull, KindUndefined:
		return true
	case KindObject:
		if len(v.Object) != len(o.Object) {
			return false
		}
		for i := range v.Object {
			if v.Object[i].Key != o.Object[i].Key || !v.Object[i].Value.Equal(o.Object[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ErrTruncated indicates the payload ended inside a value.
var ErrTruncated = errors.New("amf: truncated value")

// DecodeError indicates a malformed AMF0 payload. It is fatal for the
// connection that produced it; a truncated or unknown encoding means a
// non-conforming peer, never normal end of input.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("amf: decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
