package errors

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// UtxoSpentErrData describes an outpoint that could not be removed from the utxo
// store because it was already spent or never existed.
type UtxoSpentErrData struct {
	Hash  chainhash.Hash `json:"hash"`
	Index uint32         `json:"index"`
}

func (e *UtxoSpentErrData) Error() string {
	return fmt.Sprintf("utxo %s:%d already spent", e.Hash, e.Index)
}

func NewUtxoSpentError(hash chainhash.Hash, index uint32) error {
	data := &UtxoSpentErrData{
		Hash:  hash,
		Index: index,
	}

	return &Error{
		code:    ERR_UTXO_SPENT,
		message: data.Error(),
		data:    data,
	}
}
