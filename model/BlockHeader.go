package model

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
)

// BlockHeaderSize is the size of a serialized block header.
const BlockHeaderSize = 80

type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version uint32

	// Hash of the previous block header in the blockchain.
	HashPrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	HashMerkleRoot chainhash.Hash

	// Time the block was created in unix time.
	Timestamp uint32

	// Difficulty target for the block.
	Bits NBit

	// Nonce used to generate the block.
	Nonce uint32

	hashOnce sync.Once
	hash     chainhash.Hash
}

func NewBlockHeaderFromBytes(headerBytes []byte) (*BlockHeader, error) {
	if len(headerBytes) != BlockHeaderSize {
		return nil, errors.NewProcessingError("block header should be %d bytes long, got %d", BlockHeaderSize, len(headerBytes))
	}

	bh := &BlockHeader{
		Version:   binary.LittleEndian.Uint32(headerBytes[:4]),
		Timestamp: binary.LittleEndian.Uint32(headerBytes[68:72]),
		Bits:      NBit(binary.LittleEndian.Uint32(headerBytes[72:76])),
		Nonce:     binary.LittleEndian.Uint32(headerBytes[76:]),
	}

	copy(bh.HashPrevBlock[:], headerBytes[4:36])
	copy(bh.HashMerkleRoot[:], headerBytes[36:68])

	return bh, nil
}

func NewBlockHeaderFromString(headerHex string) (*BlockHeader, error) {
	headerBytes, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, errors.NewProcessingError("error decoding hex string to bytes", err)
	}

	return NewBlockHeaderFromBytes(headerBytes)
}

func (bh *BlockHeader) Hash() chainhash.Hash {
	bh.hashOnce.Do(func() {
		bh.hash = chainhash.DoubleHashH(bh.Bytes())
	})

	return bh.hash
}

func (bh *BlockHeader) Bytes() []byte {
	b := make([]byte, 0, BlockHeaderSize)
	b = binary.LittleEndian.AppendUint32(b, bh.Version)
	b = append(b, bh.HashPrevBlock[:]...)
	b = append(b, bh.HashMerkleRoot[:]...)
	b = binary.LittleEndian.AppendUint32(b, bh.Timestamp)
	b = binary.LittleEndian.AppendUint32(b, uint32(bh.Bits))
	b = binary.LittleEndian.AppendUint32(b, bh.Nonce)

	return b
}

// HasMetTargetDifficulty reports whether the header hash, read as a little
// endian number, is at or below the target encoded in Bits.
func (bh *BlockHeader) HasMetTargetDifficulty() (bool, *chainhash.Hash, error) {
	target := bh.Bits.CalculateTarget()
	if target.Sign() <= 0 {
		return false, nil, errors.NewBlockInvalidError("block target %s is not positive", bh.Bits)
	}

	hash := bh.Hash()

	return HashToBig(&hash).Cmp(target) <= 0, &hash, nil
}

// HashToBig converts a chainhash into a big.Int that can be used to perform
// math comparisons.
func HashToBig(hash *chainhash.Hash) *big.Int {
	// A Hash is in little-endian, but the big package wants the bytes in
	// big-endian, so reverse them.
	buf := *hash
	blen := len(buf)

	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}

	return new(big.Int).SetBytes(buf[:])
}
