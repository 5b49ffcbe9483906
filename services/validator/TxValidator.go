/*
Package validator decides whether a single transaction may be included in a
block.

A transaction is checked on its own first (inputs and outputs present, no
duplicate inputs, amounts within the money supply, lock time satisfied). Its
inputs are then resolved through an OutputView, which consults the utxo
resolver before the other transactions of the same block, and the value of the
inputs must cover the outputs. Finally every input's unlocking script is run
against the locking script it spends, unless the block is at or below the
trusted height.

Consensus rejections are reported as an ExpenditureStatus. An error means the
verdict could not be reached at all, and callers treat it as invalid.
*/
package validator

import (
	"context"
	"time"

	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/script"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/signature"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util"
)

// TxValidatorI is implemented by TxValidator and by test doubles.
type TxValidatorI interface {
	// ValidateTransactionExpenditure validates tx against the durable utxo view
	// and the transactions queued in the same block.
	ValidateTransactionExpenditure(ctx context.Context, tx *model.Transaction, queued *QueuedTransactions) *ExpenditureResult

	// ValidateTransactionInputs evaluates the scripts of every input of tx.
	ValidateTransactionInputs(ctx context.Context, tx *model.Transaction, view *OutputView) (bool, error)
}

// TxValidator validates the transactions of the block at one height. It is
// not safe for concurrent use: every worker creates its own, bound to its own
// Resolver.
type TxValidator struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	params      *chaincfg.Params
	interpreter *script.Interpreter
	resolver    *cache.Resolver
	blockHeight uint32
	options     *Options
}

func NewTxValidator(logger ulogger.Logger, tSettings *settings.Settings, resolver *cache.Resolver, blockHeight uint32, opts ...Option) *TxValidator {
	initPrometheusMetrics()

	return &TxValidator{
		logger:      logger,
		settings:    tSettings,
		params:      tSettings.ChainCfgParams,
		interpreter: script.NewInterpreter(),
		resolver:    resolver,
		blockHeight: blockHeight,
		options:     ProcessOptions(opts...),
	}
}

// NewOutputView returns the view the validator resolves inputs through for a
// block made of queued.
func (tv *TxValidator) NewOutputView(queued *QueuedTransactions) *OutputView {
	// before canonical ordering a transaction may only spend outputs of
	// transactions that precede it in the block
	ordered := !tv.params.IsHF20181115Enabled(tv.blockHeight)

	return NewOutputView(tv.resolver, queued, tv.blockHeight, ordered)
}

func (tv *TxValidator) ValidateTransactionExpenditure(ctx context.Context, tx *model.Transaction, queued *QueuedTransactions) *ExpenditureResult {
	hash := tx.Hash()

	fee, status, err := tv.CheckTransaction(ctx, tx, tv.NewOutputView(queued), queued.Position(hash))
	if err != nil {
		tv.logger.Errorf("[ValidateTransactionExpenditure][%s] failed to validate: %v", hash, err)
		return NewFailedExpenditure(err, hash)
	}

	if status != StatusValid {
		return NewInvalidExpenditure(hash)
	}

	return NewValidExpenditure(fee)
}

// CheckTransaction returns the fee paid by tx, the transaction at position of
// the block, or the reason it is invalid. A coinbase transaction is exempt
// and pays no fee; its value is bounded by the block validator. An error means
// no verdict could be reached.
func (tv *TxValidator) CheckTransaction(ctx context.Context, tx *model.Transaction, view *OutputView, position int) (int64, ExpenditureStatus, error) {
	start, stat, ctx := util.StartStat(ctx, "CheckTransaction")
	defer func() {
		stat.AddTime(start)
		prometheusTransactionValidate.Observe(float64(time.Since(start).Microseconds()) / 1_000_000)
	}()

	if tx.IsCoinbase() {
		return 0, StatusValid, nil
	}

	totalOut, status := tv.checkStructure(tx)
	if status != StatusValid {
		return 0, tv.reject(tx, status), nil
	}

	entries, totalIn, status, err := tv.resolveInputs(ctx, tx, view, position)
	if err != nil {
		return 0, StatusValid, err
	}

	if status != StatusValid {
		return 0, tv.reject(tx, status), nil
	}

	if totalIn < totalOut {
		return 0, tv.reject(tx, StatusOverspent), nil
	}

	if tv.scriptsRequired() && !tv.verifyScripts(ctx, tx, entries) {
		return 0, tv.reject(tx, StatusScriptFailed), nil
	}

	return totalIn - totalOut, StatusValid, nil
}

func (tv *TxValidator) ValidateTransactionInputs(ctx context.Context, tx *model.Transaction, view *OutputView) (bool, error) {
	if tx.IsCoinbase() || !tv.scriptsRequired() {
		return true, nil
	}

	entries, _, status, err := tv.resolveInputs(ctx, tx, view, view.queued.Position(tx.Hash()))
	if err != nil {
		return false, err
	}

	if status != StatusValid {
		return false, nil
	}

	return tv.verifyScripts(ctx, tx, entries), nil
}

// checkStructure applies the checks that need nothing but the transaction and
// returns its total output value.
func (tv *TxValidator) checkStructure(tx *model.Transaction) (int64, ExpenditureStatus) {
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return 0, StatusMalformed
	}

	spent := make(map[model.Outpoint]struct{}, len(tx.Inputs))

	for _, input := range tx.Inputs {
		if input.PreviousOutpoint.IsNull() {
			return 0, StatusMalformed
		}

		if _, exists := spent[input.PreviousOutpoint]; exists {
			return 0, StatusMalformed
		}

		spent[input.PreviousOutpoint] = struct{}{}
	}

	for _, output := range tx.Outputs {
		if output.Amount > chaincfg.MaxSatoshis {
			return 0, StatusInvalidAmount
		}
	}

	totalOut, ok := tx.TotalOutputValue()
	if !ok || totalOut > chaincfg.MaxSatoshis {
		return 0, StatusInvalidAmount
	}

	if !util.IsTransactionFinal(tx, tv.blockHeight, tv.options.MedianTimePast) {
		return 0, StatusNotFinal
	}

	return totalOut, StatusValid
}

func (tv *TxValidator) resolveInputs(ctx context.Context, tx *model.Transaction, view *OutputView, position int) ([]*utxo.Entry, int64, ExpenditureStatus, error) {
	entries := make([]*utxo.Entry, len(tx.Inputs))

	var totalIn int64

	for i, input := range tx.Inputs {
		entry, err := view.Find(ctx, input.PreviousOutpoint, position)
		if err != nil {
			return nil, 0, StatusValid, errors.NewProcessingError("[resolveInputs][%s] failed to resolve input %d", tx.Hash(), i, err)
		}

		if entry == nil {
			prometheusUnresolvedInputs.Inc()
			return nil, 0, StatusUnresolved, nil
		}

		if entry.Amount < 0 || entry.Amount > chaincfg.MaxSatoshis {
			return nil, 0, StatusInvalidAmount, nil
		}

		if !entry.IsMature(tv.blockHeight, tv.params.CoinbaseMaturity) {
			return nil, 0, StatusImmatureCoinbase, nil
		}

		totalIn += entry.Amount
		if totalIn > chaincfg.MaxSatoshis {
			return nil, 0, StatusInvalidAmount, nil
		}

		entries[i] = entry
	}

	return entries, totalIn, StatusValid, nil
}

// scriptsRequired is false for blocks at or below the trusted height.
func (tv *TxValidator) scriptsRequired() bool {
	return !tv.options.SkipScripts && tv.blockHeight > tv.settings.Validation.TrustedBlockHeight
}

func (tv *TxValidator) verifyScripts(ctx context.Context, tx *model.Transaction, entries []*utxo.Entry) bool {
	start, stat, _ := util.StartStat(ctx, "verifyScripts")
	defer func() {
		stat.AddTime(start)
		prometheusTransactionScripts.Observe(float64(time.Since(start).Microseconds()) / 1_000_000)
	}()

	hasher := signature.NewHasher(tx)

	for i, input := range tx.Inputs {
		output := entries[i].Output(input.PreviousOutpoint.Index)
		scriptCtx := script.NewContext(tv.params, tv.blockHeight, tx, i, output, hasher)

		if !tv.interpreter.RunScripts(script.Parse(input.UnlockingScript), script.Parse(output.LockingScript), scriptCtx) {
			prometheusScriptFailures.Inc()
			tv.logger.Debugf("[verifyScripts][%s] input %d failed script evaluation", tx.Hash(), i)

			return false
		}

		prometheusInputsVerified.Inc()
	}

	return true
}

func (tv *TxValidator) reject(tx *model.Transaction, status ExpenditureStatus) ExpenditureStatus {
	prometheusInvalidTransactions.WithLabelValues(status.String()).Inc()
	tv.logger.Debugf("[CheckTransaction][%s] invalid: %s", tx.Hash(), status)

	return status
}
