package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// CalculateMerkleRoot builds the merkle root of hashes.  On levels with an odd
// number of nodes the last node is paired with itself.
func CalculateMerkleRoot(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(hashes))
	copy(level, hashes)

	var concat [chainhash.HashSize * 2]byte

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := level[:0]

		for i := 0; i < len(level); i += 2 {
			copy(concat[:chainhash.HashSize], level[i][:])
			copy(concat[chainhash.HashSize:], level[i+1][:])
			next = append(next, chainhash.DoubleHashH(concat[:]))
		}

		level = next
	}

	return level[0]
}
