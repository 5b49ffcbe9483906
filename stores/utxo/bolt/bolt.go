// Package bolt provides a utxo.Store backed by a bbolt file. All unspent outputs
// live in one bucket keyed by the wire form of the outpoint.
package bolt

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/ulogger"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"
)

var bucketUtxo = []byte("utxo_by_outpoint")

type Store struct {
	logger ulogger.Logger
	db     *bolt.DB
	closed atomic.Bool
}

// New opens <DataFolder>/<path>.db, creating it and the utxo bucket if needed.
func New(logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	if err := os.MkdirAll(tSettings.DataFolder, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create data folder %s", tSettings.DataFolder, err)
	}

	path := filepath.Join(tSettings.DataFolder, storeURL.Path+".db")

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to open bolt db at %s", path, err)
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUtxo)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("failed to create bucket %s", string(bucketUtxo), err)
	}

	logger.Infof("[Bolt] using utxo store at %s", path)

	return &Store{
		logger: logger,
		db:     db,
	}, nil
}

func (s *Store) Health(_ context.Context, _ bool) (int, string, error) {
	err := s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketUtxo) == nil {
			return errors.NewStorageError("bucket %s missing", string(bucketUtxo))
		}

		return nil
	})
	if err != nil {
		return http.StatusServiceUnavailable, "Bolt Store", err
	}

	return http.StatusOK, "Bolt Store at " + s.db.Path(), nil
}

func (s *Store) Get(_ context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Bolt")
	}

	var entry *utxo.Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		var err error

		entry, err = get(tx.Bucket(bucketUtxo), outpoint)

		return err
	})
	if err != nil {
		return nil, errors.NewStorageError("[Bolt] failed to get %s", outpoint, err)
	}

	return entry, nil
}

// Begin opens a writable bolt transaction. bolt allows one writer at a time so
// a second Begin blocks until the first batch is closed.
func (s *Store) Begin(_ context.Context) (utxo.Batch, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Bolt")
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("[Bolt] failed to begin batch", err)
	}

	return &batch{tx: tx, bucket: tx.Bucket(bucketUtxo)}, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.db.Close()
}

// get copies the value out since bolt memory is only valid inside the transaction.
func get(bucket *bolt.Bucket, outpoint model.Outpoint) (*utxo.Entry, error) {
	val := bucket.Get(outpoint.Bytes())
	if val == nil {
		return nil, nil
	}

	return utxo.NewEntryFromBytes(val)
}

type batch struct {
	tx     *bolt.Tx
	bucket *bolt.Bucket
	closed bool
}

func (b *batch) PutOutputs(_ context.Context, tx *model.Transaction, blockHeight uint32) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	outpoints, entries := utxo.EntriesFromTransaction(tx, blockHeight)
	for i, outpoint := range outpoints {
		if err := b.bucket.Put(outpoint.Bytes(), entries[i].Bytes()); err != nil {
			return errors.NewStorageError("[Bolt] failed to put %s", outpoint, err)
		}
	}

	return nil
}

func (b *batch) RemoveOutputs(_ context.Context, outpoints []model.Outpoint) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	for _, outpoint := range outpoints {
		key := outpoint.Bytes()

		if b.bucket.Get(key) == nil {
			return utxo.NewSpentError(outpoint)
		}

		if err := b.bucket.Delete(key); err != nil {
			return errors.NewStorageError("[Bolt] failed to remove %s", outpoint, err)
		}
	}

	return nil
}

func (b *batch) Commit() error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	b.closed = true

	if err := b.tx.Commit(); err != nil {
		return errors.NewStorageError("[Bolt] failed to commit batch", err)
	}

	return nil
}

func (b *batch) Rollback() error {
	if b.closed {
		return nil
	}

	b.closed = true

	return b.tx.Rollback()
}
