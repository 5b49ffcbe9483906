package validator

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
)

// UnknownPosition is the position of a transaction that is not part of the
// block being validated.
const UnknownPosition = -1

// QueuedTransactions indexes the transactions of the block under validation by
// hash, so that a transaction can spend an output created earlier in the same
// block. It is built once before the work is dispatched and is read only from
// then on, so workers share it without locking.
type QueuedTransactions struct {
	transactions []*model.Transaction
	positions    map[chainhash.Hash]int
	duplicates   []chainhash.Hash
}

func NewQueuedTransactions(transactions []*model.Transaction) *QueuedTransactions {
	q := &QueuedTransactions{
		transactions: transactions,
		positions:    make(map[chainhash.Hash]int, len(transactions)),
	}

	for i, tx := range transactions {
		hash := tx.Hash()
		if _, exists := q.positions[hash]; exists {
			q.duplicates = append(q.duplicates, hash)
			continue
		}

		q.positions[hash] = i
	}

	return q
}

// Get returns the transaction with hash and its position in the block.
func (q *QueuedTransactions) Get(hash chainhash.Hash) (*model.Transaction, int, bool) {
	if q == nil {
		return nil, UnknownPosition, false
	}

	position, ok := q.positions[hash]
	if !ok {
		return nil, UnknownPosition, false
	}

	return q.transactions[position], position, true
}

func (q *QueuedTransactions) Position(hash chainhash.Hash) int {
	_, position, _ := q.Get(hash)
	return position
}

// Duplicates returns the hashes that occur more than once in the block.
func (q *QueuedTransactions) Duplicates() []chainhash.Hash {
	return q.duplicates
}

func (q *QueuedTransactions) Len() int {
	if q == nil {
		return 0
	}

	return len(q.transactions)
}

// OutputView resolves the outputs spent by the transactions of one block. The
// durable view behind the resolver is consulted first and the queued
// transactions of the block second.
type OutputView struct {
	resolver    *cache.Resolver
	queued      *QueuedTransactions
	blockHeight uint32
	// ordered requires a queued output to be created by a transaction that
	// precedes its spender, which is the rule before canonical ordering.
	ordered bool
}

// NewOutputView returns a view for the block at blockHeight. Either source may
// be nil.
func NewOutputView(resolver *cache.Resolver, queued *QueuedTransactions, blockHeight uint32, ordered bool) *OutputView {
	initPrometheusMetrics()

	return &OutputView{
		resolver:    resolver,
		queued:      queued,
		blockHeight: blockHeight,
		ordered:     ordered,
	}
}

// Find returns the entry for outpoint as seen by the transaction at position
// spender of the block, or nil when it cannot be resolved. An error is an
// infrastructure failure.
func (v *OutputView) Find(ctx context.Context, outpoint model.Outpoint, spender int) (*utxo.Entry, error) {
	if v.resolver != nil {
		entry, err := v.resolver.Find(ctx, outpoint)
		if err != nil {
			return nil, err
		}

		if entry != nil {
			return entry, nil
		}
	}

	tx, position, ok := v.queued.Get(outpoint.Hash)
	if !ok {
		return nil, nil
	}

	if v.ordered && spender != UnknownPosition && position >= spender {
		return nil, nil
	}

	if int(outpoint.Index) >= len(tx.Outputs) {
		return nil, nil
	}

	prometheusQueuedOutputLookups.Inc()

	return utxo.NewEntry(tx.Outputs[outpoint.Index], v.blockHeight, tx.IsCoinbase()), nil
}

func (v *OutputView) BlockHeight() uint32 {
	return v.blockHeight
}
