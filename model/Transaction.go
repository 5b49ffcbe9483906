package model

import (
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
)

// minInputSize is the smallest possible serialized input: outpoint, empty script
// length and sequence.
const minInputSize = OutpointSize + 1 + 4

// minOutputSize is the smallest possible serialized output: amount and empty
// script length.
const minOutputSize = 8 + 1

type Input struct {
	PreviousOutpoint Outpoint
	UnlockingScript  []byte
	SequenceNumber   uint32
}

type Output struct {
	Amount        int64
	LockingScript []byte
	// Index is the position of the output in its transaction.  It is assigned at
	// parse time and is not part of the wire format.
	Index uint32
}

// Transaction is immutable once parsed.  Its hash is computed on first use and
// cached for the lifetime of the object.
type Transaction struct {
	Version        int32
	Inputs         []*Input
	Outputs        []*Output
	LockTime       uint32
	HasWitnessData bool

	hashOnce sync.Once
	hash     chainhash.Hash
}

func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	r := newReader(b)

	tx, err := readTransaction(r)
	if err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, errors.NewProcessingError("transaction has %d trailing bytes", r.Len())
	}

	return tx, nil
}

func NewTransactionFromString(txHex string) (*Transaction, error) {
	b, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, errors.NewProcessingError("error decoding transaction hex", err)
	}

	return NewTransactionFromBytes(b)
}

func readTransaction(r *reader) (*Transaction, error) {
	version, err := r.uint32()
	if err != nil {
		return nil, errors.NewProcessingError("could not read transaction version", err)
	}

	tx := &Transaction{
		Version: int32(version), //nolint:gosec // wire value is a signed int32
	}

	inputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, errors.NewProcessingError("could not read input count", err)
	}

	if inputCount > uint64(r.Len()/minInputSize) {
		return nil, errors.NewProcessingError("input count %d exceeds remaining bytes", inputCount)
	}

	tx.Inputs = make([]*Input, 0, inputCount)

	for i := uint64(0); i < inputCount; i++ {
		input := &Input{}

		if err = r.hash(input.PreviousOutpoint.Hash[:]); err != nil {
			return nil, errors.NewProcessingError("could not read input %d outpoint", i, err)
		}

		if input.PreviousOutpoint.Index, err = r.uint32(); err != nil {
			return nil, errors.NewProcessingError("could not read input %d outpoint index", i, err)
		}

		if input.UnlockingScript, err = readBytes(r); err != nil {
			return nil, errors.NewProcessingError("could not read input %d unlocking script", i, err)
		}

		if input.SequenceNumber, err = r.uint32(); err != nil {
			return nil, errors.NewProcessingError("could not read input %d sequence", i, err)
		}

		tx.Inputs = append(tx.Inputs, input)
	}

	outputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, errors.NewProcessingError("could not read output count", err)
	}

	if outputCount > uint64(r.Len()/minOutputSize) {
		return nil, errors.NewProcessingError("output count %d exceeds remaining bytes", outputCount)
	}

	tx.Outputs = make([]*Output, 0, outputCount)

	for i := uint64(0); i < outputCount; i++ {
		amount, err := r.uint64()
		if err != nil {
			return nil, errors.NewProcessingError("could not read output %d amount", i, err)
		}

		output := &Output{
			Amount: int64(amount), //nolint:gosec // range is checked by the validator
			Index:  uint32(i),     //nolint:gosec // bounded by the remaining bytes
		}

		if output.LockingScript, err = readBytes(r); err != nil {
			return nil, errors.NewProcessingError("could not read output %d locking script", i, err)
		}

		tx.Outputs = append(tx.Outputs, output)
	}

	if tx.LockTime, err = r.uint32(); err != nil {
		return nil, errors.NewProcessingError("could not read lock time", err)
	}

	return tx, nil
}

// Bytes returns the wire serialization of the transaction.
func (tx *Transaction) Bytes() []byte {
	return tx.AppendBytes(make([]byte, 0, tx.Size()))
}

// AppendBytes appends the wire serialization of the transaction to dst.
func (tx *Transaction) AppendBytes(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(tx.Version)) //nolint:gosec // two's complement on the wire

	dst = AppendVarInt(dst, uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		dst = append(dst, input.PreviousOutpoint.Hash[:]...)
		dst = binary.LittleEndian.AppendUint32(dst, input.PreviousOutpoint.Index)
		dst = AppendVarInt(dst, uint64(len(input.UnlockingScript)))
		dst = append(dst, input.UnlockingScript...)
		dst = binary.LittleEndian.AppendUint32(dst, input.SequenceNumber)
	}

	dst = AppendVarInt(dst, uint64(len(tx.Outputs)))
	for _, output := range tx.Outputs {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(output.Amount)) //nolint:gosec // two's complement on the wire
		dst = AppendVarInt(dst, uint64(len(output.LockingScript)))
		dst = append(dst, output.LockingScript...)
	}

	return binary.LittleEndian.AppendUint32(dst, tx.LockTime)
}

// Size returns the serialized size of the transaction in bytes.
func (tx *Transaction) Size() int {
	size := 4 + VarIntSize(uint64(len(tx.Inputs))) + VarIntSize(uint64(len(tx.Outputs))) + 4

	for _, input := range tx.Inputs {
		size += OutpointSize + VarIntSize(uint64(len(input.UnlockingScript))) + len(input.UnlockingScript) + 4
	}

	for _, output := range tx.Outputs {
		size += 8 + VarIntSize(uint64(len(output.LockingScript))) + len(output.LockingScript)
	}

	return size
}

// Hash returns the double sha256 of the serialized transaction.
func (tx *Transaction) Hash() chainhash.Hash {
	tx.hashOnce.Do(func() {
		tx.hash = chainhash.DoubleHashH(tx.Bytes())
	})

	return tx.hash
}

func (tx *Transaction) String() string {
	h := tx.Hash()
	return h.String()
}

// IsCoinbase reports whether the transaction has exactly one input spending the
// null outpoint.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PreviousOutpoint.IsNull()
}

// TotalOutputValue sums the output amounts.  The second return value is false if
// the sum overflows or any amount is negative.
func (tx *Transaction) TotalOutputValue() (int64, bool) {
	var total int64

	for _, output := range tx.Outputs {
		if output.Amount < 0 {
			return 0, false
		}

		total += output.Amount
		if total < 0 {
			return 0, false
		}
	}

	return total, true
}

// Outpoint returns the outpoint referencing the output at index.
func (tx *Transaction) Outpoint(index uint32) Outpoint {
	return Outpoint{Hash: tx.Hash(), Index: index}
}
