package model

import (
	"bytes"
	"encoding/binary"
	"io"
)

type reader struct {
	*bytes.Reader
	scratch [8]byte
}

func newReader(b []byte) *reader {
	return &reader{Reader: bytes.NewReader(b)}
}

func (r *reader) uint32() (uint32, error) {
	if _, err := io.ReadFull(r, r.scratch[:4]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(r.scratch[:4]), nil
}

func (r *reader) uint64() (uint64, error) {
	if _, err := io.ReadFull(r, r.scratch[:8]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(r.scratch[:8]), nil
}

func (r *reader) hash(dst []byte) error {
	_, err := io.ReadFull(r, dst)
	return err
}
