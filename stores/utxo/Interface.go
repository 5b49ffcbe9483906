// Package utxo defines the durable unspent output store the validation engine
// resolves previous outputs against, and the batch used to apply a block to it.
//
// A store holds an entry for an outpoint if and only if the output has not been
// spent by any block on the active chain. Reads outside a batch always observe
// the last committed state.
package utxo

import (
	"context"

	"github.com/bsv-blockchain/verdict/model"
)

// Store is the durable key value view of the unspent output set.
type Store interface {
	// Health returns an http status code and a human readable description.
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// Get returns the entry for the outpoint, or nil and no error when the
	// outpoint is unknown or already spent.
	Get(ctx context.Context, outpoint model.Outpoint) (*Entry, error)

	// Begin starts a batch. Only one batch should be open per store at a time.
	Begin(ctx context.Context) (Batch, error)

	Close() error
}

// Batch groups the output changes of one block so they are applied atomically.
type Batch interface {
	// PutOutputs adds every output of tx as unspent at the given height.
	PutOutputs(ctx context.Context, tx *model.Transaction, blockHeight uint32) error

	// RemoveOutputs marks the outpoints as spent. Removing an outpoint that is not
	// in the store, or was removed earlier in the batch, returns an ERR_SPENT error.
	RemoveOutputs(ctx context.Context, outpoints []model.Outpoint) error

	Commit() error

	// Rollback discards the batch. It is a no-op after Commit so it can be deferred.
	Rollback() error
}
