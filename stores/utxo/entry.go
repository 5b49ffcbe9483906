package utxo

import (
	"encoding/binary"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
)

// entryHeaderSize is amount, block height and flags.
const entryHeaderSize = 8 + 4 + 1

const flagCoinbase byte = 1

// Entry is the metadata kept for an unspent output.
type Entry struct {
	Amount        int64
	LockingScript []byte
	BlockHeight   uint32
	IsCoinbase    bool
}

func NewEntry(output *model.Output, blockHeight uint32, isCoinbase bool) *Entry {
	return &Entry{
		Amount:        output.Amount,
		LockingScript: output.LockingScript,
		BlockHeight:   blockHeight,
		IsCoinbase:    isCoinbase,
	}
}

// EntriesFromTransaction returns the outpoint and entry of every output of tx.
func EntriesFromTransaction(tx *model.Transaction, blockHeight uint32) ([]model.Outpoint, []*Entry) {
	outpoints := make([]model.Outpoint, len(tx.Outputs))
	entries := make([]*Entry, len(tx.Outputs))
	isCoinbase := tx.IsCoinbase()

	for i, output := range tx.Outputs {
		//nolint:gosec // output counts are bounded by the block size
		outpoints[i] = tx.Outpoint(uint32(i))
		entries[i] = NewEntry(output, blockHeight, isCoinbase)
	}

	return outpoints, entries
}

// Output returns the entry as the transaction output it was created from.
func (e *Entry) Output(index uint32) *model.Output {
	return &model.Output{
		Amount:        e.Amount,
		LockingScript: e.LockingScript,
		Index:         index,
	}
}

// IsMature reports whether a coinbase entry may be spent at height. Non coinbase
// entries are always mature.
func (e *Entry) IsMature(height uint32, maturity uint16) bool {
	if !e.IsCoinbase {
		return true
	}

	return height >= e.BlockHeight+uint32(maturity)
}

// Bytes is the encoding used by the key value backends.
func (e *Entry) Bytes() []byte {
	b := make([]byte, entryHeaderSize+len(e.LockingScript))

	//nolint:gosec // amounts are stored as their two's complement
	binary.LittleEndian.PutUint64(b[0:8], uint64(e.Amount))
	binary.LittleEndian.PutUint32(b[8:12], e.BlockHeight)

	if e.IsCoinbase {
		b[12] = flagCoinbase
	}

	copy(b[entryHeaderSize:], e.LockingScript)

	return b
}

// NewEntryFromBytes decodes b. The locking script is copied so b may be reused.
func NewEntryFromBytes(b []byte) (*Entry, error) {
	if len(b) < entryHeaderSize {
		return nil, errors.NewProcessingError("utxo entry too short: %d bytes", len(b))
	}

	script := make([]byte, len(b)-entryHeaderSize)
	copy(script, b[entryHeaderSize:])

	return &Entry{
		//nolint:gosec // see Bytes
		Amount:        int64(binary.LittleEndian.Uint64(b[0:8])),
		BlockHeight:   binary.LittleEndian.Uint32(b[8:12]),
		IsCoinbase:    b[12]&flagCoinbase != 0,
		LockingScript: script,
	}, nil
}
