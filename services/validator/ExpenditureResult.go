package validator

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// ExpenditureStatus is the verdict on a single transaction.
type ExpenditureStatus uint8

const (
	StatusValid ExpenditureStatus = iota
	// StatusUnresolved means an input spends an output found nowhere: not in
	// the store, the caches or the transactions of the same block.
	StatusUnresolved
	// StatusOverspent means the outputs are worth more than the inputs.
	StatusOverspent
	StatusScriptFailed
	// StatusInvalidAmount covers negative amounts and amounts or sums above
	// the money supply.
	StatusInvalidAmount
	StatusMalformed
	StatusImmatureCoinbase
	StatusNotFinal
)

var statusNames = [...]string{
	StatusValid:            "valid",
	StatusUnresolved:       "unresolved",
	StatusOverspent:        "overspent",
	StatusScriptFailed:     "script_failed",
	StatusInvalidAmount:    "invalid_amount",
	StatusMalformed:        "malformed",
	StatusImmatureCoinbase: "immature_coinbase",
	StatusNotFinal:         "not_final",
}

func (s ExpenditureStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}

	return "unknown"
}

// ExpenditureResult is either valid with the fees collected, or invalid with
// the hashes of the offending transactions. Err is set when the verdict could
// not be reached because of an infrastructure failure; such a result is
// always invalid.
type ExpenditureResult struct {
	Valid               bool
	TotalFees           int64
	InvalidTransactions []chainhash.Hash
	Err                 error
}

func NewValidExpenditure(totalFees int64) *ExpenditureResult {
	return &ExpenditureResult{
		Valid:     true,
		TotalFees: totalFees,
	}
}

func NewInvalidExpenditure(invalidTransactions ...chainhash.Hash) *ExpenditureResult {
	return &ExpenditureResult{
		InvalidTransactions: invalidTransactions,
	}
}

// NewFailedExpenditure is the fail closed result of an infrastructure error.
func NewFailedExpenditure(err error, invalidTransactions ...chainhash.Hash) *ExpenditureResult {
	return &ExpenditureResult{
		InvalidTransactions: invalidTransactions,
		Err:                 err,
	}
}
