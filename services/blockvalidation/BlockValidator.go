package blockvalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/services/validator"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util"
	"github.com/dolthub/swiss"
)

// BlockValidator decides whether a block may be connected to the chain. It
// holds no per block state, so one validator can check many blocks, although
// blocks sharing a store must be validated one at a time.
type BlockValidator struct {
	logger          ulogger.Logger
	settings        *settings.Settings
	params          *chaincfg.Params
	store           utxo.Store
	master          *cache.MasterCache
	pool            *WorkerPool
	headerValidator HeaderValidator
}

func NewBlockValidator(logger ulogger.Logger, tSettings *settings.Settings, store utxo.Store, master *cache.MasterCache,
	pool *WorkerPool, headerValidator HeaderValidator) *BlockValidator {
	initPrometheusMetrics()

	if headerValidator == nil {
		headerValidator = NewBasicHeaderValidator(tSettings.ChainCfgParams)
	}

	return &BlockValidator{
		logger:          logger,
		settings:        tSettings,
		params:          tSettings.ChainCfgParams,
		store:           store,
		master:          master,
		pool:            pool,
		headerValidator: headerValidator,
	}
}

// ValidateBlock checks block against the utxo store as it stands, for
// connection at chain. It never mutates the store. Cancelling ctx aborts the
// transaction workers and yields a failed result.
func (bv *BlockValidator) ValidateBlock(ctx context.Context, block *model.Block, chain ChainContext, opts ...validator.Option) *BlockValidationResult {
	start, stat, ctx := util.StartStat(ctx, "ValidateBlock")
	defer func() {
		stat.AddTime(start)
		prometheusBlockValidationValidateBlock.Observe(float64(time.Since(start).Microseconds()) / 1_000)
	}()

	if block == nil || block.Header == nil {
		return bv.invalid("header", NewInvalidResult("missing block header"))
	}

	result := bv.validateBlock(ctx, block, chain, opts)

	if !result.IsValid {
		bv.logger.Warnf("[ValidateBlock][%s] block at height %d is invalid: %s", block.Hash(), chain.Height, result.ErrorMessage)
	} else {
		bv.logger.Infof("[ValidateBlock][%s] block at height %d is valid with %d transactions and %d fees", block.Hash(), chain.Height, len(block.Transactions), result.TotalFees)
	}

	return result
}

func (bv *BlockValidator) validateBlock(ctx context.Context, block *model.Block, chain ChainContext, opts []validator.Option) *BlockValidationResult {
	if header := bv.headerValidator.ValidateHeader(ctx, block.Header, chain); !header.IsValid {
		return bv.invalid("header", NewInvalidResult("invalid header: "+header.ErrorMessage))
	}

	if len(block.Transactions) == 0 {
		return bv.invalid("structure", NewInvalidResult("block has no transactions"))
	}

	if !block.CheckMerkleRoot() {
		return bv.invalid("merkle_root", NewInvalidResult("merkle root does not match transactions"))
	}

	coinbase := block.CoinbaseTx()
	if !coinbase.IsCoinbase() {
		return bv.invalid("coinbase", NewInvalidResult("first transaction is not a coinbase", coinbase.Hash()))
	}

	transactions := block.Transactions[1:]

	for _, tx := range transactions {
		if tx.IsCoinbase() {
			return bv.invalid("coinbase", NewInvalidResult("block contains more than one coinbase", tx.Hash()))
		}
	}

	queued := validator.NewQueuedTransactions(block.Transactions)

	if duplicates := queued.Duplicates(); len(duplicates) > 0 {
		return bv.invalid("duplicate", NewInvalidResult("block contains duplicate transactions", duplicates...))
	}

	if doubleSpends := findDoubleSpends(transactions); len(doubleSpends) > 0 {
		return bv.invalid("double_spend", NewInvalidResult("transactions spend the same output", doubleSpends...))
	}

	prometheusBlockValidationTransactions.Add(float64(len(block.Transactions)))

	if err := bv.prefetch(ctx, transactions, queued); err != nil {
		return bv.invalid("error", NewFailedResult("could not prefetch inputs", err))
	}

	options := append([]validator.Option{validator.WithMedianTimePast(bv.lockTimeReference(block.Header, chain))}, opts...)

	expenditure, err := bv.validateExpenditure(ctx, transactions, queued, chain.Height, false, options)
	if err != nil {
		return bv.invalid("error", NewFailedResult("transaction validation did not complete", err))
	}

	if !expenditure.Valid && expenditure.Err == nil {
		// a chunk stops at its first invalid transaction, so which transactions
		// were reported depends on the partition. Re-check every transaction to
		// report the same set whatever the worker count.
		expenditure, err = bv.validateExpenditure(ctx, transactions, queued, chain.Height, true, options)
		if err != nil {
			return bv.invalid("error", NewFailedResult("transaction validation did not complete", err))
		}
	}

	if expenditure.Err != nil {
		return bv.invalid("error", NewFailedResult("could not validate transactions", expenditure.Err, expenditure.InvalidTransactions...))
	}

	if !expenditure.Valid {
		return bv.invalid("transactions", NewInvalidResult("block contains invalid transactions", expenditure.InvalidTransactions...))
	}

	coinbaseValue, ok := coinbase.TotalOutputValue()
	if !ok || coinbaseValue > chaincfg.MaxSatoshis {
		return bv.invalid("coinbase", NewInvalidResult("coinbase output value is invalid", coinbase.Hash()))
	}

	subsidy := bv.params.BlockSubsidy(chain.Height)
	if coinbaseValue > subsidy+expenditure.TotalFees {
		return bv.invalid("coinbase", NewInvalidResult(
			fmt.Sprintf("coinbase pays %d, more than subsidy %d plus fees %d", coinbaseValue, subsidy, expenditure.TotalFees),
			coinbase.Hash(),
		))
	}

	return NewValidResult(expenditure.TotalFees)
}

func (bv *BlockValidator) invalid(reason string, result *BlockValidationResult) *BlockValidationResult {
	prometheusBlockValidationInvalidBlocks.WithLabelValues(reason).Inc()
	return result
}

// lockTimeReference is the time lock times are compared against: the median
// time past once CSV is active, the block's own timestamp before.
func (bv *BlockValidator) lockTimeReference(header *model.BlockHeader, chain ChainContext) int64 {
	if bv.params.IsCSVEnabled(chain.Height) {
		return chain.MedianTimePast
	}

	return int64(header.Timestamp)
}

func (bv *BlockValidator) validateExpenditure(ctx context.Context, transactions []*model.Transaction, queued *validator.QueuedTransactions,
	blockHeight uint32, exhaustive bool, opts []validator.Option) (*validator.ExpenditureResult, error) {
	if len(transactions) == 0 {
		return validator.NewValidExpenditure(0), nil
	}

	spawner := NewTaskSpawner(
		bv.logger,
		"TotalExpenditure",
		bv.pool,
		bv.settings.Validation.MaxThreadCount,
		NewTotalExpenditureTaskHandlerFactory(bv.logger, bv.settings, bv.store, bv.master, queued, blockHeight, exhaustive, opts...),
	)

	stop := context.AfterFunc(ctx, spawner.Abort)
	defer stop()

	if err := spawner.ExecuteTasks(ctx, transactions); err != nil {
		_, _ = spawner.WaitForResults()
		return nil, err
	}

	results, err := spawner.WaitForResults()
	if err != nil {
		return nil, err
	}

	return AggregateExpenditure(results), nil
}

// prefetch warms the master cache with the outputs the block spends from the
// store, so workers rarely go to the store one input at a time.
func (bv *BlockValidator) prefetch(ctx context.Context, transactions []*model.Transaction, queued *validator.QueuedTransactions) error {
	if bv.settings.Validation.PrefetchBatchSize <= 0 {
		return nil
	}

	outpoints := make([]model.Outpoint, 0, len(transactions))

	for _, tx := range transactions {
		for _, input := range tx.Inputs {
			if _, _, inBlock := queued.Get(input.PreviousOutpoint.Hash); inBlock {
				continue
			}

			outpoints = append(outpoints, input.PreviousOutpoint)
		}
	}

	if len(outpoints) == 0 {
		return nil
	}

	return cache.NewResolver(bv.logger, bv.settings, bv.store, bv.master).Prefetch(ctx, outpoints)
}

// findDoubleSpends returns, in block order, every transaction spending an
// output that an earlier transaction of the block already spends.
func findDoubleSpends(transactions []*model.Transaction) []chainhash.Hash {
	inputCount := 0
	for _, tx := range transactions {
		inputCount += len(tx.Inputs)
	}

	//nolint:gosec // input counts are bounded by the block size
	spenders := swiss.NewMap[model.Outpoint, chainhash.Hash](uint32(inputCount))

	var doubleSpends []chainhash.Hash

	for _, tx := range transactions {
		hash := tx.Hash()
		flagged := false

		for _, input := range tx.Inputs {
			spender, ok := spenders.Get(input.PreviousOutpoint)
			if !ok {
				spenders.Put(input.PreviousOutpoint, hash)
				continue
			}

			if spender != hash && !flagged {
				doubleSpends = append(doubleSpends, hash)
				flagged = true
			}
		}
	}

	return doubleSpends
}
