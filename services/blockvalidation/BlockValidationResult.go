package blockvalidation

import (
	"encoding/json"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// BlockValidationResult is the verdict on a block. An invalid result carries a
// human readable reason and, when the failure is attributable to specific
// transactions, their hashes in block order.
type BlockValidationResult struct {
	IsValid             bool             `json:"isValid"`
	ErrorMessage        string           `json:"errorMessage,omitempty"`
	InvalidTransactions []chainhash.Hash `json:"-"`
	TotalFees           int64            `json:"totalFees"`
	// Err is set when no verdict could be reached, for example because the utxo
	// store failed. The block is then reported invalid but may be retried.
	Err error `json:"-"`
}

func NewValidResult(totalFees int64) *BlockValidationResult {
	return &BlockValidationResult{
		IsValid:   true,
		TotalFees: totalFees,
	}
}

func NewInvalidResult(message string, invalidTransactions ...chainhash.Hash) *BlockValidationResult {
	return &BlockValidationResult{
		ErrorMessage:        message,
		InvalidTransactions: invalidTransactions,
	}
}

// NewFailedResult is the fail closed result of an infrastructure error.
func NewFailedResult(message string, err error, invalidTransactions ...chainhash.Hash) *BlockValidationResult {
	return &BlockValidationResult{
		ErrorMessage:        message + ": " + err.Error(),
		InvalidTransactions: invalidTransactions,
		Err:                 err,
	}
}

func (r *BlockValidationResult) String() string {
	if r.IsValid {
		return fmt.Sprintf("valid (fees %d)", r.TotalFees)
	}

	if len(r.InvalidTransactions) == 0 {
		return "invalid: " + r.ErrorMessage
	}

	return fmt.Sprintf("invalid: %s (%d transactions)", r.ErrorMessage, len(r.InvalidTransactions))
}

type blockValidationResultJSON struct {
	IsValid             bool     `json:"isValid"`
	ErrorMessage        string   `json:"errorMessage,omitempty"`
	InvalidTransactions []string `json:"invalidTransactions,omitempty"`
	TotalFees           int64    `json:"totalFees"`
}

// MarshalJSON writes transaction hashes in their usual display form.
func (r *BlockValidationResult) MarshalJSON() ([]byte, error) {
	out := blockValidationResultJSON{
		IsValid:      r.IsValid,
		ErrorMessage: r.ErrorMessage,
		TotalFees:    r.TotalFees,
	}

	for _, hash := range r.InvalidTransactions {
		out.InvalidTransactions = append(out.InvalidTransactions, hash.String())
	}

	return json.Marshal(out)
}

func (r *BlockValidationResult) UnmarshalJSON(b []byte) error {
	var in blockValidationResultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	r.IsValid = in.IsValid
	r.ErrorMessage = in.ErrorMessage
	r.TotalFees = in.TotalFees
	r.InvalidTransactions = nil

	for _, s := range in.InvalidTransactions {
		hash, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return err
		}

		r.InvalidTransactions = append(r.InvalidTransactions, *hash)
	}

	return nil
}
