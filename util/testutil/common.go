// Package testutil holds fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/sql"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/stretchr/testify/require"
)

// CommonTestSetup provides the standard test context used across services
type CommonTestSetup struct {
	Ctx      context.Context
	Logger   ulogger.Logger
	Settings *settings.Settings
}

// NewCommonTestSetup creates the basic test infrastructure used by most service tests
func NewCommonTestSetup(t *testing.T) *CommonTestSetup {
	return &CommonTestSetup{
		Ctx:      context.Background(),
		Logger:   ulogger.NewErrorTestLogger(t),
		Settings: settings.NewTestSettings(),
	}
}

// NewSQLiteMemoryUTXOStore creates the standard SQLite memory UTXO store used in most tests
func NewSQLiteMemoryUTXOStore(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, t *testing.T) utxo.Store {
	utxoStoreURL, err := url.Parse("sqlitememory:///test")
	require.NoError(t, err)

	utxoStore, err := sql.New(ctx, logger, tSettings, utxoStoreURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = utxoStore.Close()
	})

	return utxoStore
}

// Commit writes the outputs of txs to store as created at blockHeight.
func Commit(t testing.TB, store utxo.Store, blockHeight uint32, txs ...*model.Transaction) {
	t.Helper()

	ctx := context.Background()

	batch, err := store.Begin(ctx)
	require.NoError(t, err)

	for _, tx := range txs {
		require.NoError(t, batch.PutOutputs(ctx, tx, blockHeight))
	}

	require.NoError(t, batch.Commit())
}
