package script

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IntegerRoundTrip(t *testing.T) {
	numbers := []int64{
		0, 1, -1, 16, 127, -127, 128, -128, 255, 256, -255, 32767, -32768,
		65535, -65280, math.MaxInt32, -math.MaxInt32, 1 << 40, math.MaxInt64, -math.MaxInt64,
	}

	for _, n := range numbers {
		v := NewValueFromInteger(n)

		assert.True(t, v.IsMinimallyEncoded(), "%d encodes as %x", n, []byte(v))

		decoded, ok := v.AsInteger(8, true)
		require.True(t, ok, "%d", n)
		assert.Equal(t, n, decoded)
	}
}

func TestValue_Encoding(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, ""},
		{1, "01"},
		{-1, "81"},
		{127, "7f"},
		{128, "8000"},
		{-128, "8080"},
		{255, "ff00"},
		{256, "0001"},
		{-65280, "00ff80"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, hex.EncodeToString(NewValueFromInteger(tt.n)), "%d", tt.n)
	}
}

func TestValue_AsInteger(t *testing.T) {
	// non minimal zero
	n, ok := Value{0x00}.AsInteger(DefaultNumberSize, false)
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)

	_, ok = Value{0x00}.AsInteger(DefaultNumberSize, true)
	assert.False(t, ok)

	// negative zero
	n, ok = Value{0x80}.AsInteger(DefaultNumberSize, false)
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)

	n, ok = Value{0x01, 0x00}.AsInteger(DefaultNumberSize, false)
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	_, ok = Value{0x01, 0x00}.AsInteger(DefaultNumberSize, true)
	assert.False(t, ok)

	// operand too large
	_, ok = Value{0x01, 0x02, 0x03, 0x04, 0x05}.AsInteger(DefaultNumberSize, false)
	assert.False(t, ok)

	n, ok = Value{0x01, 0x02, 0x03, 0x04, 0x05}.AsInteger(LockTimeNumberSize, true)
	assert.True(t, ok)
	assert.Equal(t, int64(0x0504030201), n)
}

func TestValue_IsMinimallyEncoded(t *testing.T) {
	assert.True(t, Value{}.IsMinimallyEncoded())
	assert.True(t, Value{0x80, 0x00}.IsMinimallyEncoded())
	assert.True(t, Value{0xff, 0x80}.IsMinimallyEncoded())

	assert.False(t, Value{0x00}.IsMinimallyEncoded())
	assert.False(t, Value{0x80}.IsMinimallyEncoded())
	assert.False(t, Value{0x01, 0x00}.IsMinimallyEncoded())
	assert.False(t, Value{0x01, 0x80}.IsMinimallyEncoded())
}

func TestValue_AsBoolean(t *testing.T) {
	assert.False(t, Value{}.AsBoolean())
	assert.False(t, Value{0x00}.AsBoolean())
	assert.False(t, Value{0x00, 0x00}.AsBoolean())
	assert.False(t, Value{0x00, 0x80}.AsBoolean())

	assert.True(t, Value{0x01}.AsBoolean())
	assert.True(t, Value{0x80, 0x00}.AsBoolean())
	assert.True(t, Value{0x00, 0x01, 0x00}.AsBoolean())
	assert.True(t, NewValueFromBoolean(true).AsBoolean())
	assert.False(t, NewValueFromBoolean(false).AsBoolean())
}

func TestValue_AsSignature(t *testing.T) {
	sig, hashType := Value{0x30, 0x01, 0x41}.AsSignature()
	assert.Equal(t, []byte{0x30, 0x01}, sig)
	assert.Equal(t, uint32(0x41), uint32(hashType))

	sig, hashType = Value{}.AsSignature()
	assert.Empty(t, sig)
	assert.Zero(t, hashType)
}

func TestMinimallyEncode(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"01", "01"},
		{"00", ""},
		{"80", ""},
		{"010000", "01"},
		{"0080", ""},
		{"010080", "81"},
		{"8000", "8000"},
		{"80000080", "8080"},
		{"ff000000", "ff00"},
	}

	for _, tt := range tests {
		in, _ := hex.DecodeString(tt.in)
		assert.Equal(t, tt.expected, hex.EncodeToString(minimallyEncode(in)), tt.in)
	}
}

func TestStack(t *testing.T) {
	s := NewStack()

	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(Value{1})
	s.Push(Value{2})
	s.Push(Value{3})

	top, ok := s.Peek(0)
	require.True(t, ok)
	assert.Equal(t, Value{3}, top)

	bottom, ok := s.Peek(2)
	require.True(t, ok)
	assert.Equal(t, Value{1}, bottom)

	_, ok = s.Peek(3)
	assert.False(t, ok)

	removed, ok := s.Remove(1)
	require.True(t, ok)
	assert.Equal(t, Value{2}, removed)
	assert.Equal(t, 2, s.Len())

	s.PushAlt(Value{9})
	assert.Equal(t, 3, s.Size())

	clone := s.Clone()
	clone.Push(Value{4})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, clone.Len())
	assert.Equal(t, 1, clone.Len()-s.Len())
	assert.Equal(t, 3, clone.Size())

	alt, ok := s.PopAlt()
	require.True(t, ok)
	assert.Equal(t, Value{9}, alt)

	assert.True(t, s.Swap(0, 1))
	top, _ = s.Peek(0)
	assert.Equal(t, Value{1}, top)
	assert.False(t, s.Swap(0, 5))
}
