package validator

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/stores/utxo/memory"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testHeight = uint32(200)

type fixture struct {
	ctx      context.Context
	settings *settings.Settings
	store    utxo.Store
	wallet   *testutil.Wallet
	funding  *model.Transaction
}

// newFixture commits a funding transaction paying 10000 and 20000 to the
// wallet at height 1.
func newFixture(t testing.TB) *fixture {
	f := &fixture{
		ctx:      context.Background(),
		settings: settings.NewTestSettings(),
		store:    memory.New(ulogger.TestLogger{}),
		wallet:   testutil.NewWallet("validator"),
	}

	f.funding = &model.Transaction{
		Version: 1,
		Inputs: []*model.Input{{
			PreviousOutpoint: model.NewOutpoint(chainhash.HashH([]byte("genesis funds")), 0),
			SequenceNumber:   0xffffffff,
		}},
		Outputs: []*model.Output{f.wallet.Output(10_000), f.wallet.Output(20_000)},
	}
	f.funding.Outputs[1].Index = 1

	testutil.Commit(t, f.store, 1, f.funding)

	return f
}

func (f *fixture) validator(height uint32, opts ...Option) *TxValidator {
	master := cache.NewMasterCache(f.settings.UtxoCache.MaxEntries, f.settings.UtxoCache.Shards)
	resolver := cache.NewResolver(ulogger.TestLogger{}, f.settings, f.store, master)

	return NewTxValidator(ulogger.TestLogger{}, f.settings, resolver, height, opts...)
}

func (f *fixture) check(t *testing.T, tv *TxValidator, tx *model.Transaction, queued *QueuedTransactions) (int64, ExpenditureStatus) {
	t.Helper()

	fee, status, err := tv.CheckTransaction(f.ctx, tx, tv.NewOutputView(queued), queued.Position(tx.Hash()))
	require.NoError(t, err)

	return fee, status
}

func TestCheckTransaction_Valid(t *testing.T) {
	f := newFixture(t)
	tx := f.wallet.Spend(testutil.Spendables(f.funding), f.wallet.Output(29_000))

	fee, status := f.check(t, f.validator(testHeight), tx, nil)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, int64(1_000), fee)

	result := f.validator(testHeight).ValidateTransactionExpenditure(f.ctx, tx, nil)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(1_000), result.TotalFees)
	assert.Empty(t, result.InvalidTransactions)
	assert.NoError(t, result.Err)
}

func TestCheckTransaction_Overspent(t *testing.T) {
	f := newFixture(t)
	tx := f.wallet.Spend(testutil.Spendables(f.funding, 0), f.wallet.Output(10_001))

	fee, status := f.check(t, f.validator(testHeight), tx, nil)
	assert.Equal(t, StatusOverspent, status)
	assert.Equal(t, int64(0), fee)

	result := f.validator(testHeight).ValidateTransactionExpenditure(f.ctx, tx, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, int64(0), result.TotalFees)
	assert.Equal(t, []chainhash.Hash{tx.Hash()}, result.InvalidTransactions)
}

func TestCheckTransaction_Unresolved(t *testing.T) {
	f := newFixture(t)

	missing := testutil.Spendable{
		Outpoint:      model.NewOutpoint(chainhash.HashH([]byte("nowhere")), 3),
		Amount:        1_000,
		LockingScript: f.wallet.LockingScript,
	}
	tx := f.wallet.Spend([]testutil.Spendable{missing}, f.wallet.Output(500))

	_, status := f.check(t, f.validator(testHeight), tx, nil)
	assert.Equal(t, StatusUnresolved, status)

	// an index past the outputs of a known transaction is unresolved too
	pastEnd := testutil.Spendables(f.funding, 0)
	pastEnd[0].Outpoint.Index = 7
	tx = f.wallet.Spend(pastEnd, f.wallet.Output(500))

	_, status = f.check(t, f.validator(testHeight), tx, nil)
	assert.Equal(t, StatusUnresolved, status)
}

func TestCheckTransaction_ScriptFailure(t *testing.T) {
	f := newFixture(t)
	thief := testutil.NewWallet("thief")

	tx := thief.Spend(testutil.Spendables(f.funding, 0), thief.Output(9_000))

	_, status := f.check(t, f.validator(testHeight), tx, nil)
	assert.Equal(t, StatusScriptFailed, status)

	ok, err := f.validator(testHeight).ValidateTransactionInputs(f.ctx, tx, NewOutputView(nil, nil, testHeight, false))
	require.NoError(t, err)
	assert.False(t, ok, "inputs that resolve nowhere cannot be verified")

	ok, err = f.validator(testHeight).ValidateTransactionInputs(f.ctx, tx, f.validator(testHeight).NewOutputView(nil))
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("skipped at or below the trusted height", func(t *testing.T) {
		f.settings.Validation.TrustedBlockHeight = testHeight

		_, status := f.check(t, f.validator(testHeight), tx, nil)
		assert.Equal(t, StatusValid, status)

		_, status = f.check(t, f.validator(testHeight+1), tx, nil)
		assert.Equal(t, StatusScriptFailed, status)

		f.settings.Validation.TrustedBlockHeight = 0
	})

	t.Run("skipped by option", func(t *testing.T) {
		_, status := f.check(t, f.validator(testHeight, WithSkipScripts(true)), tx, nil)
		assert.Equal(t, StatusValid, status)
	})
}

func TestValidateTransactionInputs(t *testing.T) {
	f := newFixture(t)
	tv := f.validator(testHeight)
	tx := f.wallet.Spend(testutil.Spendables(f.funding), f.wallet.Output(30_000))

	ok, err := tv.ValidateTransactionInputs(f.ctx, tx, tv.NewOutputView(nil))
	require.NoError(t, err)
	assert.True(t, ok)

	// the signature commits to the amount of the spent output
	tampered := f.wallet.Spend(testutil.Spendables(f.funding), f.wallet.Output(30_000))
	tampered.Outputs[0].Amount = 29_999

	ok, err = tv.ValidateTransactionInputs(f.ctx, tampered, tv.NewOutputView(nil))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckTransaction_Coinbase(t *testing.T) {
	f := newFixture(t)
	coinbase := testutil.Coinbase(testHeight, f.wallet.Output(50*chaincfg.SatoshisPerBitcoin))

	fee, status := f.check(t, f.validator(testHeight), coinbase, nil)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, int64(0), fee)
}

func TestCheckTransaction_Structure(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		tx     func() *model.Transaction
		status ExpenditureStatus
	}{
		{
			name: "no outputs",
			tx: func() *model.Transaction {
				return f.wallet.Spend(testutil.Spendables(f.funding, 0))
			},
			status: StatusMalformed,
		},
		{
			name: "duplicate inputs",
			tx: func() *model.Transaction {
				from := testutil.Spendables(f.funding, 0, 0)
				return f.wallet.Spend(from, f.wallet.Output(100))
			},
			status: StatusMalformed,
		},
		{
			name: "negative output",
			tx: func() *model.Transaction {
				return f.wallet.Spend(testutil.Spendables(f.funding, 0), f.wallet.Output(-1))
			},
			status: StatusInvalidAmount,
		},
		{
			name: "output above the money supply",
			tx: func() *model.Transaction {
				return f.wallet.Spend(testutil.Spendables(f.funding, 0), f.wallet.Output(chaincfg.MaxSatoshis+1))
			},
			status: StatusInvalidAmount,
		},
		{
			name: "outputs sum above the money supply",
			tx: func() *model.Transaction {
				return f.wallet.Spend(testutil.Spendables(f.funding, 0),
					f.wallet.Output(chaincfg.MaxSatoshis), f.wallet.Output(1))
			},
			status: StatusInvalidAmount,
		},
		{
			name: "not final",
			tx: func() *model.Transaction {
				from := testutil.Spendables(f.funding, 0)
				tx := f.wallet.Spend(from, f.wallet.Output(100))
				tx.LockTime = testHeight
				tx.Inputs[0].SequenceNumber = 0
				f.wallet.Sign(tx, from)

				return tx
			},
			status: StatusNotFinal,
		},
		{
			name: "lock time below the block height",
			tx: func() *model.Transaction {
				from := testutil.Spendables(f.funding, 0)
				tx := f.wallet.Spend(from, f.wallet.Output(100))
				tx.LockTime = testHeight - 1
				tx.Inputs[0].SequenceNumber = 0
				f.wallet.Sign(tx, from)

				return tx
			},
			status: StatusValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, status := f.check(t, f.validator(testHeight), tt.tx(), nil)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestCheckTransaction_CoinbaseMaturity(t *testing.T) {
	f := newFixture(t)

	coinbase := testutil.Coinbase(150, f.wallet.Output(50*chaincfg.SatoshisPerBitcoin))
	testutil.Commit(t, f.store, 150, coinbase)

	tx := f.wallet.Spend(testutil.Spendables(coinbase), f.wallet.Output(49*chaincfg.SatoshisPerBitcoin))

	_, status := f.check(t, f.validator(249), tx, nil)
	assert.Equal(t, StatusImmatureCoinbase, status)

	fee, status := f.check(t, f.validator(250), tx, nil)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, int64(chaincfg.SatoshisPerBitcoin), fee)
}

func TestCheckTransaction_QueuedTransactions(t *testing.T) {
	f := newFixture(t)

	parent := f.wallet.Spend(testutil.Spendables(f.funding, 0), f.wallet.Output(9_000))
	child := f.wallet.Spend(testutil.Spendables(parent), f.wallet.Output(8_000))

	t.Run("parent in the same block", func(t *testing.T) {
		queued := NewQueuedTransactions([]*model.Transaction{parent, child})
		tv := f.validator(testHeight)

		fee, status := f.check(t, tv, child, queued)
		assert.Equal(t, StatusValid, status)
		assert.Equal(t, int64(1_000), fee)
	})

	t.Run("parent nowhere", func(t *testing.T) {
		_, status := f.check(t, f.validator(testHeight), child, NewQueuedTransactions([]*model.Transaction{child}))
		assert.Equal(t, StatusUnresolved, status)
	})

	t.Run("child before parent with canonical ordering", func(t *testing.T) {
		queued := NewQueuedTransactions([]*model.Transaction{child, parent})

		_, status := f.check(t, f.validator(testHeight), child, queued)
		assert.Equal(t, StatusValid, status)
	})

	t.Run("child before parent without canonical ordering", func(t *testing.T) {
		params := chaincfg.RegressionNetParams
		params.HF20181115Height = int32(testHeight) + 1
		f.settings.ChainCfgParams = &params

		defer func() {
			f.settings.ChainCfgParams = &chaincfg.RegressionNetParams
		}()

		_, status := f.check(t, f.validator(testHeight), child, NewQueuedTransactions([]*model.Transaction{child, parent}))
		assert.Equal(t, StatusUnresolved, status)

		_, status = f.check(t, f.validator(testHeight), child, NewQueuedTransactions([]*model.Transaction{parent, child}))
		assert.Equal(t, StatusValid, status)
	})

	t.Run("queued coinbase is immature", func(t *testing.T) {
		coinbase := testutil.Coinbase(testHeight, f.wallet.Output(50*chaincfg.SatoshisPerBitcoin))
		spend := f.wallet.Spend(testutil.Spendables(coinbase), f.wallet.Output(1))

		_, status := f.check(t, f.validator(testHeight), spend, NewQueuedTransactions([]*model.Transaction{coinbase, spend}))
		assert.Equal(t, StatusImmatureCoinbase, status)
	})
}

func TestQueuedTransactions(t *testing.T) {
	w := testutil.NewWallet("queued")
	a := testutil.Coinbase(1, w.Output(1))
	b := testutil.Coinbase(2, w.Output(1))

	q := NewQueuedTransactions([]*model.Transaction{a, b, a})
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 0, q.Position(a.Hash()))
	assert.Equal(t, 1, q.Position(b.Hash()))
	assert.Equal(t, []chainhash.Hash{a.Hash()}, q.Duplicates())

	tx, position, ok := q.Get(b.Hash())
	require.True(t, ok)
	assert.Equal(t, 1, position)
	assert.Same(t, b, tx)

	var empty *QueuedTransactions
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, UnknownPosition, empty.Position(a.Hash()))
}

func TestOutputView_StoreBeforeQueue(t *testing.T) {
	f := newFixture(t)
	master := cache.NewMasterCache(f.settings.UtxoCache.MaxEntries, f.settings.UtxoCache.Shards)
	resolver := cache.NewResolver(ulogger.TestLogger{}, f.settings, f.store, master)

	// the same transaction queued and committed resolves to the committed entry
	queued := NewQueuedTransactions([]*model.Transaction{f.funding})
	view := NewOutputView(resolver, queued, testHeight, false)

	entry, err := view.Find(f.ctx, f.funding.Outpoint(0), UnknownPosition)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, uint32(1), entry.BlockHeight)

	view = NewOutputView(nil, queued, testHeight, false)

	entry, err = view.Find(f.ctx, f.funding.Outpoint(0), UnknownPosition)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, testHeight, entry.BlockHeight)
}

type failingStore struct {
	mock.Mock
}

func (s *failingStore) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	return 0, "", nil
}

func (s *failingStore) Get(ctx context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	args := s.Called(ctx, outpoint)
	return nil, args.Error(0)
}

func (s *failingStore) Begin(ctx context.Context) (utxo.Batch, error) {
	return nil, errors.NewStorageError("read only")
}

func (s *failingStore) Close() error {
	return nil
}

func TestValidateTransactionExpenditure_FailsClosed(t *testing.T) {
	f := newFixture(t)

	store := &failingStore{}
	store.On("Get", mock.Anything, mock.Anything).Return(errors.NewStorageUnavailableError("down"))

	master := cache.NewMasterCache(f.settings.UtxoCache.MaxEntries, f.settings.UtxoCache.Shards)
	resolver := cache.NewResolver(ulogger.TestLogger{}, f.settings, store, master)
	tv := NewTxValidator(ulogger.TestLogger{}, f.settings, resolver, testHeight)

	tx := f.wallet.Spend(testutil.Spendables(f.funding), f.wallet.Output(29_000))

	result := tv.ValidateTransactionExpenditure(f.ctx, tx, nil)
	assert.False(t, result.Valid)
	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, errors.ErrStorageUnavailable))
	assert.Equal(t, []chainhash.Hash{tx.Hash()}, result.InvalidTransactions)

	// one attempt and one retry
	store.AssertNumberOfCalls(t, "Get", 2)
}

func TestCheckTransaction_SQLStore(t *testing.T) {
	setup := testutil.NewCommonTestSetup(t)
	store := testutil.NewSQLiteMemoryUTXOStore(setup.Ctx, setup.Logger, setup.Settings, t)

	wallet := testutil.NewWallet("sql")
	funding := testutil.Coinbase(1, wallet.Output(5_000))
	testutil.Commit(t, store, 1, funding)

	master := cache.NewMasterCache(setup.Settings.UtxoCache.MaxEntries, setup.Settings.UtxoCache.Shards)
	tv := NewTxValidator(setup.Logger, setup.Settings, cache.NewResolver(setup.Logger, setup.Settings, store, master), testHeight)

	tx := wallet.Spend(testutil.Spendables(funding), wallet.Output(4_000))

	result := tv.ValidateTransactionExpenditure(setup.Ctx, tx, nil)
	require.NoError(t, result.Err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(1_000), result.TotalFees)
}

func TestExpenditureStatus_String(t *testing.T) {
	assert.Equal(t, "valid", StatusValid.String())
	assert.Equal(t, "overspent", StatusOverspent.String())
	assert.Equal(t, "not_final", StatusNotFinal.String())
	assert.Equal(t, "unknown", ExpenditureStatus(200).String())
}
