package utxo

import (
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
)

var ErrBatchClosed = errors.NewStorageError("utxo batch already committed or rolled back")

// NewSpentError is returned by RemoveOutputs for an outpoint that is not unspent.
// It matches errors.ErrSpent and carries the outpoint as UtxoSpentErrData.
func NewSpentError(outpoint model.Outpoint) error {
	return errors.NewSpentError("utxo %s is not unspent", outpoint, errors.NewUtxoSpentError(outpoint.Hash, outpoint.Index))
}

// NewClosedError is returned by Get and Begin once the store has been closed.
// It matches errors.ErrStorageNotStarted and is not retried.
func NewClosedError(store string) error {
	return errors.NewStorageNotStartedError("[%s] utxo store is closed", store)
}
