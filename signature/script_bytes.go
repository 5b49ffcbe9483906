package signature

import (
	"bytes"
	"encoding/binary"
)

const (
	opPushData1     = 0x4c
	opPushData2     = 0x4d
	opPushData4     = 0x4e
	opCodeSeparator = 0xab
)

// nextOpcode returns the offset of the opcode following the one at pos, or false
// if the push at pos runs past the end of the script.
func nextOpcode(script []byte, pos int) (int, bool) {
	if pos >= len(script) {
		return pos, false
	}

	op := script[pos]
	pos++

	var dataLen int

	switch {
	case op < opPushData1:
		dataLen = int(op)
	case op == opPushData1:
		if pos+1 > len(script) {
			return pos, false
		}

		dataLen = int(script[pos])
		pos++
	case op == opPushData2:
		if pos+2 > len(script) {
			return pos, false
		}

		dataLen = int(binary.LittleEndian.Uint16(script[pos:]))
		pos += 2
	case op == opPushData4:
		if pos+4 > len(script) {
			return pos, false
		}

		dataLen = int(binary.LittleEndian.Uint32(script[pos:]))
		pos += 4
	}

	if dataLen < 0 || dataLen > len(script)-pos {
		return pos, false
	}

	return pos + dataLen, true
}

// PushDataBytes returns the serialized push of data as a script would encode it
// with the smallest PUSHDATA form that fits.
func PushDataBytes(data []byte) []byte {
	n := len(data)

	var b []byte

	switch {
	case n < opPushData1:
		b = make([]byte, 0, 1+n)
		b = append(b, byte(n))
	case n <= 0xff:
		b = make([]byte, 0, 2+n)
		b = append(b, opPushData1, byte(n))
	case n <= 0xffff:
		b = make([]byte, 0, 3+n)
		b = append(b, opPushData2)
		b = binary.LittleEndian.AppendUint16(b, uint16(n))
	default:
		b = make([]byte, 0, 5+n)
		b = append(b, opPushData4)
		b = binary.LittleEndian.AppendUint32(b, uint32(n)) //nolint:gosec // scripts are far below 4GB
	}

	return append(b, data...)
}

// FindAndDelete removes every occurrence of the serialized push of sig that
// starts on an opcode boundary of script.  A script that stops parsing part way
// keeps its unparsable tail.
func FindAndDelete(script, sig []byte) []byte {
	if len(sig) == 0 {
		return script
	}

	pattern := PushDataBytes(sig)
	result := make([]byte, 0, len(script))

	found := false
	pos := 0
	start := 0

	for pos < len(script) {
		result = append(result, script[start:pos]...)

		for len(script)-pos >= len(pattern) && bytes.Equal(script[pos:pos+len(pattern)], pattern) {
			pos += len(pattern)
			found = true
		}

		start = pos

		next, ok := nextOpcode(script, pos)
		if !ok {
			break
		}

		pos = next
	}

	if !found {
		return script
	}

	return append(result, script[start:]...)
}

// RemoveCodeSeparators drops every OP_CODESEPARATOR opcode from script, as the
// legacy signature digest requires.
func RemoveCodeSeparators(script []byte) []byte {
	result := make([]byte, 0, len(script))
	pos := 0

	for pos < len(script) {
		next, ok := nextOpcode(script, pos)
		if !ok {
			return append(result, script[pos:]...)
		}

		if script[pos] != opCodeSeparator {
			result = append(result, script[pos:next]...)
		}

		pos = next
	}

	return result
}
