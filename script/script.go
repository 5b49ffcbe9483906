package script

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/bsv-blockchain/verdict/errors"
)

// MaxScriptSize is the largest script that may be executed.
const MaxScriptSize = 10000

// Operation is one parsed instruction.  Data holds the pushed bytes of data
// pushes and is empty otherwise.
type Operation struct {
	Opcode Opcode
	Kind   Kind
	Data   []byte

	offset int
}

// Script is a parsed script.  It is never modified after Parse; evaluation
// state such as the last code separator lives in the Context.
type Script struct {
	raw        []byte
	operations []Operation
	err        error
}

// Parse splits b into operations.  A push that runs past the end of the
// script stops parsing; the operations read so far are kept and Err reports
// the failure, which makes the script fail when executed.
func Parse(b []byte) *Script {
	s := &Script{raw: b}

	pos := 0
	for pos < len(b) {
		op := Opcode(b[pos])
		start := pos
		pos++

		var dataLen int

		switch {
		case op >= OpDATA1 && op <= OpDATA75:
			dataLen = int(op)
		case op == OpPUSHDATA1:
			if len(b)-pos < 1 {
				s.err = errors.NewScriptParseError("OP_PUSHDATA1 at %d has no length", start)
				return s
			}

			dataLen = int(b[pos])
			pos++
		case op == OpPUSHDATA2:
			if len(b)-pos < 2 {
				s.err = errors.NewScriptParseError("OP_PUSHDATA2 at %d has no length", start)
				return s
			}

			dataLen = int(binary.LittleEndian.Uint16(b[pos:]))
			pos += 2
		case op == OpPUSHDATA4:
			if len(b)-pos < 4 {
				s.err = errors.NewScriptParseError("OP_PUSHDATA4 at %d has no length", start)
				return s
			}

			dataLen = int(binary.LittleEndian.Uint32(b[pos:]))
			pos += 4
		}

		if dataLen < 0 || dataLen > len(b)-pos {
			s.err = errors.NewScriptParseError("push of %d bytes at %d runs past the end of the script", dataLen, start)
			return s
		}

		operation := Operation{
			Opcode: op,
			Kind:   KindOf(op),
			offset: start,
		}

		if dataLen > 0 {
			operation.Data = b[pos : pos+dataLen]
			pos += dataLen
		}

		s.operations = append(s.operations, operation)
	}

	return s
}

// Err returns the parse failure, if any.
func (s *Script) Err() error {
	return s.err
}

// Bytes returns the serialized script exactly as it was parsed.
func (s *Script) Bytes() []byte {
	return s.raw
}

func (s *Script) Operations() []Operation {
	return s.operations
}

func (s *Script) Len() int {
	return len(s.operations)
}

// IsPushOnly reports whether the script only pushes values.
func (s *Script) IsPushOnly() bool {
	if s.err != nil {
		return false
	}

	for _, op := range s.operations {
		if !op.Opcode.IsPush() {
			return false
		}
	}

	return true
}

// IsPayToScriptHash matches OP_HASH160 <20 bytes> OP_EQUAL.
func (s *Script) IsPayToScriptHash() bool {
	b := s.raw

	return len(b) == 23 &&
		Opcode(b[0]) == OpHASH160 &&
		b[1] == 0x14 &&
		Opcode(b[22]) == OpEQUAL
}

// subscript returns the serialized script from operation index onwards.
func (s *Script) subscript(index int) []byte {
	if index >= len(s.operations) {
		return nil
	}

	return s.raw[s.operations[index].offset:]
}

// String renders the script in the usual assembly form.
func (s *Script) String() string {
	parts := make([]string, 0, len(s.operations)+1)

	for _, op := range s.operations {
		switch {
		case len(op.Data) > 0:
			parts = append(parts, hex.EncodeToString(op.Data))
		case op.Opcode == OpFALSE:
			parts = append(parts, "0")
		default:
			parts = append(parts, op.Opcode.String())
		}
	}

	if s.err != nil {
		parts = append(parts, "[error]")
	}

	return strings.Join(parts, " ")
}

// checkMinimalPush reports whether the data push of op used the smallest
// opcode able to push its data.
func checkMinimalPush(op Operation) bool {
	n := len(op.Data)

	switch {
	case n == 0:
		return op.Opcode == OpFALSE
	case n == 1 && op.Data[0] >= 1 && op.Data[0] <= 16:
		return op.Opcode == OpTRUE+Opcode(op.Data[0]-1)
	case n == 1 && op.Data[0] == 0x81:
		return op.Opcode == Op1NEGATE
	case n <= int(OpDATA75):
		return int(op.Opcode) == n
	case n <= 0xff:
		return op.Opcode == OpPUSHDATA1
	case n <= 0xffff:
		return op.Opcode == OpPUSHDATA2
	}

	return true
}
