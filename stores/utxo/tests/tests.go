// Package tests holds the behaviour every utxo.Store backend must share. Each
// backend package runs RunConformance from its own tests.
package tests

import (
	"context"
	"encoding/binary"
	"net/http"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTransaction returns a transaction spending a made up outpoint derived from
// seed, with one output per amount. Each output locks to OP_TRUE.
func NewTransaction(seed uint32, amounts ...int64) *model.Transaction {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], seed)

	tx := &model.Transaction{
		Version: 1,
		Inputs: []*model.Input{{
			PreviousOutpoint: model.NewOutpoint(chainhash.HashH(b[:]), 0),
			UnlockingScript:  []byte{},
			SequenceNumber:   0xffffffff,
		}},
	}

	for i, amount := range amounts {
		tx.Outputs = append(tx.Outputs, &model.Output{
			Amount:        amount,
			LockingScript: []byte{0x51},
			//nolint:gosec // test helper
			Index: uint32(i),
		})
	}

	return tx
}

// NewCoinbaseTransaction returns a coinbase paying amount, made unique by height.
func NewCoinbaseTransaction(height uint32, amount int64) *model.Transaction {
	script := make([]byte, 5)
	script[0] = 4
	binary.LittleEndian.PutUint32(script[1:], height)

	return &model.Transaction{
		Version: 1,
		Inputs: []*model.Input{{
			PreviousOutpoint: model.NewOutpoint(chainhash.Hash{}, 0xffffffff),
			UnlockingScript:  script,
			SequenceNumber:   0xffffffff,
		}},
		Outputs: []*model.Output{{
			Amount:        amount,
			LockingScript: []byte{0x51},
		}},
	}
}

// RunConformance runs the shared suite. newStore must return an empty store; it
// is closed when the subtest ends.
func RunConformance(t *testing.T, newStore func(t *testing.T) utxo.Store) {
	open := func(t *testing.T) utxo.Store {
		s := newStore(t)

		t.Cleanup(func() {
			_ = s.Close()
		})

		return s
	}

	t.Run("health", func(t *testing.T) {
		status, _, err := open(t).Health(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("get unknown", func(t *testing.T) { getUnknown(t, open(t)) })
	t.Run("put and get", func(t *testing.T) { putAndGet(t, open(t)) })
	t.Run("coinbase", func(t *testing.T) { coinbase(t, open(t)) })
	t.Run("rollback", func(t *testing.T) { rollback(t, open(t)) })
	t.Run("remove", func(t *testing.T) { remove(t, open(t)) })
	t.Run("remove unknown", func(t *testing.T) { removeUnknown(t, open(t)) })
	t.Run("remove twice in batch", func(t *testing.T) { removeTwiceInBatch(t, open(t)) })
	t.Run("create and spend in batch", func(t *testing.T) { createAndSpendInBatch(t, open(t)) })
	t.Run("closed batch", func(t *testing.T) { closedBatch(t, open(t)) })
	t.Run("empty locking script", func(t *testing.T) { emptyLockingScript(t, open(t)) })
	t.Run("closed", func(t *testing.T) { closedStore(t, open(t)) })
}

// Reopen checks that committed outputs survive closing and reopening the store.
func Reopen(t *testing.T, s utxo.Store, reopen func() utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(7, 1000)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 12))
	})

	require.NoError(t, s.Close())

	s = reopen()

	defer func() {
		_ = s.Close()
	}()

	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(1000), entry.Amount)
	assert.Equal(t, uint32(12), entry.BlockHeight)
}

func commit(t *testing.T, s utxo.Store, apply func(b utxo.Batch)) {
	b, err := s.Begin(context.Background())
	require.NoError(t, err)

	apply(b)

	require.NoError(t, b.Commit())
}

func getUnknown(t *testing.T, s utxo.Store) {
	entry, err := s.Get(context.Background(), NewTransaction(1, 1).Outpoint(0))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func putAndGet(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(2, 10, 20, 30)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 100))
	})

	for i, output := range tx.Outputs {
		//nolint:gosec // small test index
		entry, err := s.Get(ctx, tx.Outpoint(uint32(i)))
		require.NoError(t, err)
		require.NotNil(t, entry)

		assert.Equal(t, output.Amount, entry.Amount)
		assert.Equal(t, output.LockingScript, entry.LockingScript)
		assert.Equal(t, uint32(100), entry.BlockHeight)
		assert.False(t, entry.IsCoinbase)
	}

	entry, err := s.Get(ctx, tx.Outpoint(3))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func coinbase(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewCoinbaseTransaction(5, 50_0000_0000)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 5))
	})

	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsCoinbase)
	assert.False(t, entry.IsMature(104, 100))
	assert.True(t, entry.IsMature(105, 100))
}

func rollback(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(3, 10)

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, b.PutOutputs(ctx, tx, 1))
	require.NoError(t, b.Rollback())

	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func remove(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(4, 10, 20)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 1))
	})

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.RemoveOutputs(ctx, []model.Outpoint{tx.Outpoint(0)}))
	})

	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	assert.Nil(t, entry)

	// the sibling output stays unspent
	entry, err = s.Get(ctx, tx.Outpoint(1))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(20), entry.Amount)

	b, err := s.Begin(ctx)
	require.NoError(t, err)

	err = b.RemoveOutputs(ctx, []model.Outpoint{tx.Outpoint(0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSpent))

	var spentData *errors.UtxoSpentErrData
	require.True(t, errors.AsData(err, &spentData))
	assert.Equal(t, tx.Hash(), spentData.Hash)
	assert.Equal(t, uint32(0), spentData.Index)

	require.NoError(t, b.Rollback())
}

func removeUnknown(t *testing.T, s utxo.Store) {
	ctx := context.Background()

	b, err := s.Begin(ctx)
	require.NoError(t, err)

	defer func() {
		_ = b.Rollback()
	}()

	err = b.RemoveOutputs(ctx, []model.Outpoint{NewTransaction(5, 1).Outpoint(0)})
	assert.True(t, errors.Is(err, errors.ErrSpent))
}

func removeTwiceInBatch(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(6, 10)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 1))
	})

	b, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, b.RemoveOutputs(ctx, []model.Outpoint{tx.Outpoint(0)}))

	err = b.RemoveOutputs(ctx, []model.Outpoint{tx.Outpoint(0)})
	assert.True(t, errors.Is(err, errors.ErrSpent))

	require.NoError(t, b.Rollback())

	// the rolled back removal leaves the output in place
	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func createAndSpendInBatch(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	parent := NewTransaction(8, 10, 20)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, parent, 3))
		require.NoError(t, b.RemoveOutputs(ctx, []model.Outpoint{parent.Outpoint(1)}))
	})

	entry, err := s.Get(ctx, parent.Outpoint(0))
	require.NoError(t, err)
	assert.NotNil(t, entry)

	entry, err = s.Get(ctx, parent.Outpoint(1))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func closedBatch(t *testing.T, s utxo.Store) {
	ctx := context.Background()

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Commit())

	assert.Error(t, b.Commit())
	assert.Error(t, b.PutOutputs(ctx, NewTransaction(9, 1), 1))
	assert.NoError(t, b.Rollback())
}

func emptyLockingScript(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(10, 0)
	tx.Outputs[0].LockingScript = []byte{}

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 1))
	})

	entry, err := s.Get(ctx, tx.Outpoint(0))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Empty(t, entry.LockingScript)
	assert.Equal(t, int64(0), entry.Amount)
}

func closedStore(t *testing.T, s utxo.Store) {
	ctx := context.Background()
	tx := NewTransaction(9, 10)

	commit(t, s, func(b utxo.Batch) {
		require.NoError(t, b.PutOutputs(ctx, tx, 1))
	})

	require.NoError(t, s.Close())

	// closing twice is harmless
	require.NoError(t, s.Close())

	_, err := s.Get(ctx, tx.Outpoint(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageNotStarted))
	assert.False(t, errors.IsRetryableError(err))

	_, err = s.Begin(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageNotStarted))
}
