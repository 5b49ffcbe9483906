package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/badger"
	"github.com/bsv-blockchain/verdict/stores/utxo/bolt"
	"github.com/bsv-blockchain/verdict/stores/utxo/memory"
	"github.com/bsv-blockchain/verdict/stores/utxo/sql"
	"github.com/bsv-blockchain/verdict/ulogger"
)

func init() {
	availableDatabases["memory"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ *url.URL) (utxo.Store, error) {
		return memory.New(logger), nil
	}

	sqlInit := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		return sql.New(ctx, logger, tSettings, storeURL)
	}

	availableDatabases["postgres"] = sqlInit
	availableDatabases["sqlite"] = sqlInit
	availableDatabases["sqlitememory"] = sqlInit

	availableDatabases["badger"] = func(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		return badger.New(logger, tSettings, storeURL)
	}

	availableDatabases["bolt"] = func(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		return bolt.New(logger, tSettings, storeURL)
	}
}
