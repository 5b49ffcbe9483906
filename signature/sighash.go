package signature

import (
	"encoding/binary"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
)

// sigHashOne is returned by the legacy algorithm for SIGHASH_SINGLE without a
// matching output and for an out of range input index.  Signatures over it are
// valid consensus-wise, a long standing quirk of the protocol.
var sigHashOne = chainhash.Hash{0x01}

// Hasher computes signature digests for the inputs of a single transaction.  The
// FORKID intermediate hashes do not depend on the input being signed and are
// computed once per transaction.  A Hasher is safe for concurrent use.
type Hasher struct {
	tx *model.Transaction

	once         sync.Once
	hashPrevouts chainhash.Hash
	hashSequence chainhash.Hash
	hashOutputs  chainhash.Hash
}

func NewHasher(tx *model.Transaction) *Hasher {
	return &Hasher{tx: tx}
}

// SignatureHash returns the digest signed by the signature for input
// inputIndex.  scriptCode is the part of the executing script after the last
// OP_CODESEPARATOR; for legacy digests the caller has already removed the
// signature from it.  The FORKID algorithm is used when useForkID is set and the
// hash type carries the FORKID flag.
func (h *Hasher) SignatureHash(inputIndex int, scriptCode []byte, amount int64, hashType HashType, useForkID bool) chainhash.Hash {
	if useForkID && hashType.HasForkID() {
		return h.forkIDHash(inputIndex, scriptCode, amount, hashType)
	}

	return h.legacyHash(inputIndex, scriptCode, hashType)
}

func (h *Hasher) legacyHash(inputIndex int, scriptCode []byte, hashType HashType) chainhash.Hash {
	tx := h.tx

	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return sigHashOne
	}

	base := hashType.BaseType()
	if base == SigHashSingle && inputIndex >= len(tx.Outputs) {
		return sigHashOne
	}

	scriptCode = RemoveCodeSeparators(scriptCode)

	buf := make([]byte, 0, tx.Size()+len(scriptCode)+4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(tx.Version)) //nolint:gosec // two's complement on the wire

	if hashType.HasAnyoneCanPay() {
		buf = model.AppendVarInt(buf, 1)
		buf = appendLegacyInput(buf, tx.Inputs[inputIndex], scriptCode, tx.Inputs[inputIndex].SequenceNumber)
	} else {
		buf = model.AppendVarInt(buf, uint64(len(tx.Inputs)))

		for i, input := range tx.Inputs {
			script := []byte(nil)
			sequence := input.SequenceNumber

			if i == inputIndex {
				script = scriptCode
			} else if base == SigHashNone || base == SigHashSingle {
				sequence = 0
			}

			buf = appendLegacyInput(buf, input, script, sequence)
		}
	}

	switch base {
	case SigHashNone:
		buf = model.AppendVarInt(buf, 0)
	case SigHashSingle:
		buf = model.AppendVarInt(buf, uint64(inputIndex+1))

		for i := 0; i < inputIndex; i++ {
			// null output: amount -1 and an empty script
			buf = binary.LittleEndian.AppendUint64(buf, 0xffffffffffffffff)
			buf = model.AppendVarInt(buf, 0)
		}

		buf = appendOutput(buf, tx.Outputs[inputIndex])
	default:
		buf = model.AppendVarInt(buf, uint64(len(tx.Outputs)))
		for _, output := range tx.Outputs {
			buf = appendOutput(buf, output)
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, tx.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(hashType))

	return chainhash.DoubleHashH(buf)
}

func (h *Hasher) forkIDHash(inputIndex int, scriptCode []byte, amount int64, hashType HashType) chainhash.Hash {
	tx := h.tx

	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return sigHashOne
	}

	h.once.Do(h.computeForkIDHashes)

	base := hashType.BaseType()

	var hashPrevouts, hashSequence, hashOutputs chainhash.Hash

	if !hashType.HasAnyoneCanPay() {
		hashPrevouts = h.hashPrevouts
	}

	if !hashType.HasAnyoneCanPay() && base != SigHashSingle && base != SigHashNone {
		hashSequence = h.hashSequence
	}

	switch {
	case base != SigHashSingle && base != SigHashNone:
		hashOutputs = h.hashOutputs
	case base == SigHashSingle && inputIndex < len(tx.Outputs):
		hashOutputs = chainhash.DoubleHashH(appendOutput(nil, tx.Outputs[inputIndex]))
	}

	input := tx.Inputs[inputIndex]

	buf := make([]byte, 0, 4+32+32+model.OutpointSize+model.VarIntSize(uint64(len(scriptCode)))+len(scriptCode)+8+4+32+4+4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(tx.Version)) //nolint:gosec // two's complement on the wire
	buf = append(buf, hashPrevouts[:]...)
	buf = append(buf, hashSequence[:]...)
	buf = append(buf, input.PreviousOutpoint.Hash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, input.PreviousOutpoint.Index)
	buf = model.AppendVarInt(buf, uint64(len(scriptCode)))
	buf = append(buf, scriptCode...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(amount)) //nolint:gosec // two's complement on the wire
	buf = binary.LittleEndian.AppendUint32(buf, input.SequenceNumber)
	buf = append(buf, hashOutputs[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, tx.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(hashType))

	return chainhash.DoubleHashH(buf)
}

func (h *Hasher) computeForkIDHashes() {
	tx := h.tx

	prevouts := make([]byte, 0, len(tx.Inputs)*model.OutpointSize)
	sequences := make([]byte, 0, len(tx.Inputs)*4)

	for _, input := range tx.Inputs {
		prevouts = append(prevouts, input.PreviousOutpoint.Hash[:]...)
		prevouts = binary.LittleEndian.AppendUint32(prevouts, input.PreviousOutpoint.Index)
		sequences = binary.LittleEndian.AppendUint32(sequences, input.SequenceNumber)
	}

	var outputs []byte
	for _, output := range tx.Outputs {
		outputs = appendOutput(outputs, output)
	}

	h.hashPrevouts = chainhash.DoubleHashH(prevouts)
	h.hashSequence = chainhash.DoubleHashH(sequences)
	h.hashOutputs = chainhash.DoubleHashH(outputs)
}

func appendLegacyInput(buf []byte, input *model.Input, script []byte, sequence uint32) []byte {
	buf = append(buf, input.PreviousOutpoint.Hash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, input.PreviousOutpoint.Index)
	buf = model.AppendVarInt(buf, uint64(len(script)))
	buf = append(buf, script...)

	return binary.LittleEndian.AppendUint32(buf, sequence)
}

func appendOutput(buf []byte, output *model.Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(output.Amount)) //nolint:gosec // two's complement on the wire
	buf = model.AppendVarInt(buf, uint64(len(output.LockingScript)))

	return append(buf, output.LockingScript...)
}
