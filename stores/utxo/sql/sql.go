// Package sql provides a utxo.Store on top of PostgreSQL or SQLite.
//
// # Database Schema
//
//   - transactions: one row per transaction that still has unspent outputs
//   - outputs: one row per unspent output, removed when spent
//
// A transaction row is deleted together with its last unspent output, so the
// unique index on the transaction hash only rejects a transaction whose earlier
// copy is still partly unspent.
//
// # Metrics
//
//   - verdict_sql_utxo_get, verdict_sql_utxo_put, verdict_sql_utxo_remove
//   - verdict_sql_utxo_commit
//   - verdict_sql_utxo_errors: number of errors by function and type
package sql

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util"
	"github.com/bsv-blockchain/verdict/util/usql"
	"github.com/lib/pq"
	"go.uber.org/atomic"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	logger    ulogger.Logger
	db        *usql.DB
	engine    util.SQLEngine
	dbTimeout time.Duration
	closed    atomic.Bool

	// transactionIDs caches committed row ids. Ids are never reused, so a stale
	// id only costs a second query.
	transactionIDs *cache.Namespace[chainhash.Hash, int64]
}

func New(_ context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	initPrometheusMetrics()

	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	switch engine {
	case util.Postgres:
		err = createPostgresSchema(db)
	case util.Sqlite, util.SqliteMemory:
		err = createSqliteSchema(db)
	default:
		err = errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	if err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("failed to create %s schema", storeURL.Scheme, err)
	}

	transactionIDs, err := cache.NewNamespace[chainhash.Hash, int64](tSettings.UtxoCache.TransactionIDCacheSize, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		logger:         logger,
		db:             db,
		engine:         engine,
		dbTimeout:      tSettings.UtxoStore.DBTimeout,
		transactionIDs: transactionIDs,
	}, nil
}

func (s *Store) Health(ctx context.Context, _ bool) (int, string, error) {
	details := "SQL Engine is " + string(s.engine)

	var num int

	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&num); err != nil {
		return http.StatusServiceUnavailable, details, err
	}

	return http.StatusOK, details, nil
}

func (s *Store) Get(ctx context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("SQL")
	}

	start, stat, _ := util.StartStat(ctx, "Get")
	defer func() {
		stat.AddTime(start)
	}()

	prometheusUtxoGet.Inc()

	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	if transactionID, ok := s.transactionIDs.Get(outpoint.Hash); ok {
		entry, _, err := s.get(ctx, outpoint, `
			SELECT
			 o.amount
			,o.locking_script
			,t.block_height
			,t.is_coinbase
			,t.id
			FROM outputs AS o
			INNER JOIN transactions AS t ON t.id = o.transaction_id
			WHERE t.id = $1
			  AND o.idx = $2
		`, transactionID, outpoint.Index)
		if err != nil || entry != nil {
			return entry, err
		}
	}

	entry, transactionID, err := s.get(ctx, outpoint, `
		SELECT
		 o.amount
		,o.locking_script
		,t.block_height
		,t.is_coinbase
		,t.id
		FROM outputs AS o
		INNER JOIN transactions AS t ON t.id = o.transaction_id
		WHERE t.hash = $1
		  AND o.idx = $2
	`, outpoint.Hash[:], outpoint.Index)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		return nil, nil
	}

	s.transactionIDs.Add(outpoint.Hash, transactionID)

	return entry, nil
}

func (s *Store) get(ctx context.Context, outpoint model.Outpoint, q string, args ...interface{}) (*utxo.Entry, int64, error) {
	var transactionID int64

	entry := &utxo.Entry{}

	err := s.db.QueryRowContext(ctx, q, args...).Scan(
		&entry.Amount,
		&entry.LockingScript,
		&entry.BlockHeight,
		&entry.IsCoinbase,
		&transactionID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}

		prometheusUtxoErrors.WithLabelValues("Get", err.Error()).Inc()

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, errors.NewStorageUnavailableError("[SQL] timed out getting %s", outpoint, err)
		}

		return nil, 0, errors.NewStorageError("[SQL] failed to get %s", outpoint, err)
	}

	return entry, transactionID, nil
}

// Begin opens a database transaction. sqlite runs on a single connection so
// Get must not be called on the store while a batch is open.
func (s *Store) Begin(ctx context.Context) (utxo.Batch, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("SQL")
	}

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		prometheusUtxoErrors.WithLabelValues("Begin", err.Error()).Inc()
		return nil, errors.NewStorageUnavailableError("[SQL] failed to begin batch", err)
	}

	return &batch{txn: txn, transactionIDs: s.transactionIDs}, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.db.Close()
}

type batch struct {
	txn            *usql.Tx
	transactionIDs *cache.Namespace[chainhash.Hash, int64]
	closed         bool
}

func (b *batch) PutOutputs(ctx context.Context, tx *model.Transaction, blockHeight uint32) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	if len(tx.Outputs) == 0 {
		return nil
	}

	hash := tx.Hash()

	var transactionID int64

	err := b.txn.QueryRowContext(ctx, `
		INSERT INTO transactions (
		 hash
		,block_height
		,is_coinbase
		) VALUES (
		 $1
		,$2
		,$3
		)
		RETURNING id
	`, hash[:], blockHeight, tx.IsCoinbase()).Scan(&transactionID)
	if err != nil {
		prometheusUtxoErrors.WithLabelValues("PutOutputs", err.Error()).Inc()

		if isUniqueViolation(err) {
			return errors.NewTxAlreadyExistsError("[SQL] transaction %s already has unspent outputs", hash, err)
		}

		return errors.NewStorageError("[SQL] failed to insert transaction %s", hash, err)
	}

	q := `
		INSERT INTO outputs (
		 transaction_id
		,idx
		,amount
		,locking_script
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		)
	`

	for i, output := range tx.Outputs {
		if _, err = b.txn.ExecContext(ctx, q, transactionID, i, output.Amount, output.LockingScript); err != nil {
			prometheusUtxoErrors.WithLabelValues("PutOutputs", err.Error()).Inc()
			return errors.NewStorageError("[SQL] failed to insert output %s:%d", hash, i, err)
		}

		prometheusUtxoPut.Inc()
	}

	return nil
}

func (b *batch) RemoveOutputs(ctx context.Context, outpoints []model.Outpoint) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	for _, outpoint := range outpoints {
		result, err := b.txn.ExecContext(ctx, `
			DELETE FROM outputs
			WHERE transaction_id = (SELECT id FROM transactions WHERE hash = $1)
			  AND idx = $2
		`, outpoint.Hash[:], outpoint.Index)
		if err != nil {
			prometheusUtxoErrors.WithLabelValues("RemoveOutputs", err.Error()).Inc()
			return errors.NewStorageError("[SQL] failed to remove %s", outpoint, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return errors.NewStorageError("[SQL] failed to remove %s", outpoint, err)
		}

		if affected == 0 {
			return utxo.NewSpentError(outpoint)
		}

		result, err = b.txn.ExecContext(ctx, `
			DELETE FROM transactions
			WHERE hash = $1
			  AND NOT EXISTS (SELECT 1 FROM outputs WHERE outputs.transaction_id = transactions.id)
		`, outpoint.Hash[:])
		if err != nil {
			prometheusUtxoErrors.WithLabelValues("RemoveOutputs", err.Error()).Inc()
			return errors.NewStorageError("[SQL] failed to remove spent transaction %s", outpoint.Hash, err)
		}

		if affected, _ = result.RowsAffected(); affected > 0 {
			b.transactionIDs.Remove(outpoint.Hash)
		}

		prometheusUtxoRemove.Inc()
	}

	return nil
}

func (b *batch) Commit() error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	b.closed = true

	if err := b.txn.Commit(); err != nil {
		prometheusUtxoErrors.WithLabelValues("Commit", err.Error()).Inc()
		return errors.NewStorageError("[SQL] failed to commit batch", err)
	}

	prometheusUtxoCommit.Inc()

	return nil
}

func (b *batch) Rollback() error {
	if b.closed {
		return nil
	}

	b.closed = true

	return b.txn.Rollback()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	return false
}
