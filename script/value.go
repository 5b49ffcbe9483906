package script

import (
	"bytes"

	"github.com/bsv-blockchain/verdict/signature"
)

const (
	// MaxValueSize is the largest element a script may push.
	MaxValueSize = 520

	// DefaultNumberSize is the largest operand accepted by numeric opcodes.
	DefaultNumberSize = 4

	// LockTimeNumberSize is the operand size accepted by the lock time opcodes.
	LockTimeNumberSize = 5
)

// Value is a stack element.  Values are never modified once pushed; opcodes
// that transform a value build a new one.
//
// As a number a Value is little endian with the sign in the top bit of the
// last byte.  Zero is the empty value.
type Value []byte

// NewValueFromInteger returns the minimal encoding of n.
func NewValueFromInteger(n int64) Value {
	if n == 0 {
		return Value{}
	}

	negative := n < 0

	magnitude := uint64(n) //nolint:gosec // two's complement
	if negative {
		magnitude = -magnitude
	}

	v := make(Value, 0, 9)
	for magnitude > 0 {
		v = append(v, byte(magnitude))
		magnitude >>= 8
	}

	switch {
	case v[len(v)-1]&0x80 != 0 && negative:
		v = append(v, 0x80)
	case v[len(v)-1]&0x80 != 0:
		v = append(v, 0x00)
	case negative:
		v[len(v)-1] |= 0x80
	}

	return v
}

func NewValueFromBoolean(b bool) Value {
	if b {
		return Value{0x01}
	}

	return Value{}
}

// AsInteger decodes v as a number of at most maxLen bytes, which must not
// exceed 8.  When requireMinimal is set a non minimal encoding is rejected.
func (v Value) AsInteger(maxLen int, requireMinimal bool) (int64, bool) {
	if len(v) > maxLen {
		return 0, false
	}

	if requireMinimal && !v.IsMinimallyEncoded() {
		return 0, false
	}

	if len(v) == 0 {
		return 0, true
	}

	var result int64
	for i, b := range v {
		result |= int64(b) << (8 * i)
	}

	last := len(v) - 1
	if v[last]&0x80 != 0 {
		return -(result &^ (int64(0x80) << (8 * last))), true
	}

	return result, true
}

// AsBoolean is false for any encoding of zero, including negative zero.
func (v Value) AsBoolean() bool {
	for i, b := range v {
		if b != 0 {
			if i == len(v)-1 && b == 0x80 {
				return false
			}

			return true
		}
	}

	return false
}

// IsMinimallyEncoded reports whether v is the shortest encoding of its number.
func (v Value) IsMinimallyEncoded() bool {
	if len(v) == 0 {
		return true
	}

	// the last byte may only be 0x00 or 0x80 when it carries the sign of a
	// byte that would otherwise read as negative
	if v[len(v)-1]&0x7f == 0 {
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return false
		}
	}

	return true
}

// AsPublicKey returns the serialized public key held by v.
func (v Value) AsPublicKey() []byte {
	return v
}

// AsSignature splits a transaction signature into the signature bytes and the
// trailing hash type.  An empty value yields an empty signature.
func (v Value) AsSignature() ([]byte, signature.HashType) {
	if len(v) == 0 {
		return nil, 0
	}

	return v[:len(v)-1], signature.HashTypeFromSignature(v)
}

func (v Value) Equal(other Value) bool {
	return bytes.Equal(v, other)
}

// minimallyEncode strips redundant sign padding from an arbitrary byte string
// so that it becomes a minimally encoded number.
func minimallyEncode(data []byte) Value {
	if len(data) == 0 {
		return Value{}
	}

	last := data[len(data)-1]
	if last&0x7f != 0 {
		return Value(data)
	}

	if len(data) == 1 {
		return Value{}
	}

	if data[len(data)-2]&0x80 != 0 {
		return Value(data)
	}

	for i := len(data) - 1; i > 0; i-- {
		if data[i-1] != 0 {
			out := make(Value, 0, i+1)

			if data[i-1]&0x80 != 0 {
				out = append(out, data[:i]...)
				return append(out, last)
			}

			out = append(out, data[:i]...)
			out[i-1] |= last

			return out
		}
	}

	return Value{}
}
