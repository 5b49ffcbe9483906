package model

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// OutpointSize is the serialized size of an Outpoint.
const OutpointSize = chainhash.HashSize + 4

// Outpoint identifies a transaction output by the hash of the transaction that
// created it and the index of the output within that transaction.
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func NewOutpoint(hash chainhash.Hash, index uint32) Outpoint {
	return Outpoint{Hash: hash, Index: index}
}

// IsNull reports whether the outpoint is the one referenced by a coinbase input.
func (o Outpoint) IsNull() bool {
	return o.Index == 0xffffffff && o.Hash == chainhash.Hash{}
}

// Bytes returns the 36 byte wire form: hash followed by the little endian index.
func (o Outpoint) Bytes() []byte {
	b := make([]byte, OutpointSize)
	copy(b, o.Hash[:])
	binary.LittleEndian.PutUint32(b[chainhash.HashSize:], o.Index)

	return b
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash.String(), o.Index)
}
