package model

import (
	"encoding/binary"
	"io"
)

// VarIntSize returns the number of bytes required to store x as a Bitcoin
// variable-length integer: 1, 3, 5 or 9.
func VarIntSize(x uint64) int {
	switch {
	case x < 0xfd:
		return 1
	case x <= 0xffff:
		return 3
	case x <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarInt reads a Bitcoin variable-length integer.  Non canonical encodings
// (a wide form holding a small value) are accepted, the protocol never rejected
// them on read.
func ReadVarInt(r io.Reader) (uint64, error) {
	var b [8]byte

	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, err
	}

	switch b[0] {
	case 0xfd:
		if _, err := io.ReadFull(r, b[:2]); err != nil {
			return 0, err
		}

		return uint64(binary.LittleEndian.Uint16(b[:2])), nil
	case 0xfe:
		if _, err := io.ReadFull(r, b[:4]); err != nil {
			return 0, err
		}

		return uint64(binary.LittleEndian.Uint32(b[:4])), nil
	case 0xff:
		if _, err := io.ReadFull(r, b[:8]); err != nil {
			return 0, err
		}

		return binary.LittleEndian.Uint64(b[:8]), nil
	default:
		return uint64(b[0]), nil
	}
}

// AppendVarInt appends the canonical encoding of x to dst.
func AppendVarInt(dst []byte, x uint64) []byte {
	switch {
	case x < 0xfd:
		return append(dst, byte(x))
	case x <= 0xffff:
		dst = append(dst, 0xfd)
		return binary.LittleEndian.AppendUint16(dst, uint16(x))
	case x <= 0xffffffff:
		dst = append(dst, 0xfe)
		return binary.LittleEndian.AppendUint32(dst, uint32(x))
	default:
		dst = append(dst, 0xff)
		return binary.LittleEndian.AppendUint64(dst, x)
	}
}

// readBytes reads a varint length prefixed byte slice.  The length is checked
// against what is left in the reader so a corrupt prefix cannot trigger a huge
// allocation.
func readBytes(r *reader) ([]byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	if length > uint64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}

	b := make([]byte, length)
	if _, err = io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return b, nil
}
