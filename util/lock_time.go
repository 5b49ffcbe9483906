package util

import "github.com/bsv-blockchain/verdict/model"

// LockTimeThreshold separates lock times that are block heights (below) from
// lock times that are unix timestamps (at or above).
const LockTimeThreshold = 500_000_000

// SequenceFinal marks an input that opts out of lock time enforcement.
const SequenceFinal = 0xffffffff

// ValidLockTime reports whether lockTime has passed for a block at blockHeight
// whose lock time reference is blockTime.
func ValidLockTime(lockTime uint32, blockHeight uint32, blockTime int64) bool {
	if lockTime < LockTimeThreshold {
		return lockTime < blockHeight
	}

	return int64(lockTime) < blockTime
}

// IsTransactionFinal reports whether tx may be included in the block at
// blockHeight. blockTime is the median time past of the previous blocks once
// BIP113 is active and the block timestamp before that.
func IsTransactionFinal(tx *model.Transaction, blockHeight uint32, blockTime int64) bool {
	if tx.LockTime == 0 {
		return true
	}

	if ValidLockTime(tx.LockTime, blockHeight, blockTime) {
		return true
	}

	for _, input := range tx.Inputs {
		if input.SequenceNumber != SequenceFinal {
			return false
		}
	}

	return true
}
