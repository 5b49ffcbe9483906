package blockvalidation

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/services/validator"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/ulogger"
	"go.uber.org/atomic"
)

// TotalExpenditureTaskHandler validates a chunk of the block's transactions and
// sums their fees. Unless exhaustive, it stops checking its chunk after the
// first invalid transaction.
type TotalExpenditureTaskHandler struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	store       utxo.Store
	master      *cache.MasterCache
	queued      *validator.QueuedTransactions
	blockHeight uint32
	options     []validator.Option
	exhaustive  bool

	txValidator *validator.TxValidator
	view        *validator.OutputView

	totalFees int64
	invalid   []chainhash.Hash
	err       error
	aborted   atomic.Bool
}

// NewTotalExpenditureTaskHandlerFactory returns a factory of handlers that all
// share the master cache, store and queued transactions of one block.
func NewTotalExpenditureTaskHandlerFactory(logger ulogger.Logger, tSettings *settings.Settings, store utxo.Store, master *cache.MasterCache,
	queued *validator.QueuedTransactions, blockHeight uint32, exhaustive bool, opts ...validator.Option) TaskHandlerFactory[*model.Transaction, *validator.ExpenditureResult] {
	return func() TaskHandler[*model.Transaction, *validator.ExpenditureResult] {
		return &TotalExpenditureTaskHandler{
			logger:      logger,
			settings:    tSettings,
			store:       store,
			master:      master,
			queued:      queued,
			blockHeight: blockHeight,
			options:     opts,
			exhaustive:  exhaustive,
		}
	}
}

// Init builds the worker's own resolver and validator.
func (h *TotalExpenditureTaskHandler) Init(_ context.Context) error {
	resolver := cache.NewResolver(h.logger, h.settings, h.store, h.master)
	h.txValidator = validator.NewTxValidator(h.logger, h.settings, resolver, h.blockHeight, h.options...)
	h.view = h.txValidator.NewOutputView(h.queued)

	return nil
}

func (h *TotalExpenditureTaskHandler) ExecuteTask(ctx context.Context, tx *model.Transaction) {
	if h.aborted.Load() || h.err != nil {
		return
	}

	if !h.exhaustive && len(h.invalid) > 0 {
		return
	}

	hash := tx.Hash()

	fee, status, err := h.txValidator.CheckTransaction(ctx, tx, h.view, h.queued.Position(hash))
	if err != nil {
		h.logger.Errorf("[TotalExpenditureTaskHandler] could not validate tx %s: %v", hash, err)
		h.err = err
		h.invalid = append(h.invalid, hash)

		return
	}

	if status != validator.StatusValid {
		h.invalid = append(h.invalid, hash)
		return
	}

	h.totalFees += fee
}

func (h *TotalExpenditureTaskHandler) Result() (*validator.ExpenditureResult, bool) {
	if h.aborted.Load() {
		return nil, false
	}

	if h.err != nil {
		return validator.NewFailedExpenditure(h.err, h.invalid...), true
	}

	if len(h.invalid) > 0 {
		return validator.NewInvalidExpenditure(h.invalid...), true
	}

	return validator.NewValidExpenditure(h.totalFees), true
}

func (h *TotalExpenditureTaskHandler) Abort() {
	h.aborted.Store(true)
}

// AggregateExpenditure combines chunk results: fees are summed and the invalid
// transactions of every chunk are concatenated in chunk order. The first
// infrastructure error wins.
func AggregateExpenditure(results []*validator.ExpenditureResult) *validator.ExpenditureResult {
	var (
		totalFees int64
		invalid   []chainhash.Hash
		firstErr  error
	)

	for _, result := range results {
		if result.Err != nil && firstErr == nil {
			firstErr = result.Err
		}

		invalid = append(invalid, result.InvalidTransactions...)
		totalFees += result.TotalFees
	}

	if firstErr != nil {
		return validator.NewFailedExpenditure(firstErr, invalid...)
	}

	if len(invalid) > 0 {
		return validator.NewInvalidExpenditure(invalid...)
	}

	return validator.NewValidExpenditure(totalFees)
}
