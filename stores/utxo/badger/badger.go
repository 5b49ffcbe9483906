// Package badger provides a utxo.Store backed by an embedded badger database.
// Keys are the 36 byte wire form of the outpoint, values the encoded utxo.Entry.
package badger

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/atomic"
)

type Store struct {
	logger ulogger.Logger
	db     *badger.DB
	path   string
	closed atomic.Bool
}

// New opens the database named by storeURL. badger://memory keeps everything in
// memory, badger:///name opens <DataFolder>/name.
func New(logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	var opts badger.Options

	path := "memory"

	if storeURL.Host == "memory" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path = filepath.Join(tSettings.DataFolder, storeURL.Path)
		opts = badger.DefaultOptions(path)
	}

	// badger logs a lot at info level
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.NewStorageError("failed to open badger db at %s", path, err)
	}

	logger.Infof("[Badger] using utxo store at %s", path)

	return &Store{
		logger: logger,
		db:     db,
		path:   path,
	}, nil
}

func (s *Store) Health(_ context.Context, _ bool) (int, string, error) {
	if s.closed.Load() || s.db.IsClosed() {
		return http.StatusServiceUnavailable, "Badger Store closed", errors.ErrStorageUnavailable
	}

	return http.StatusOK, "Badger Store at " + s.path, nil
}

func (s *Store) Get(_ context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Badger")
	}

	var entry *utxo.Entry

	err := s.db.View(func(txn *badger.Txn) error {
		var err error

		entry, err = get(txn, outpoint)

		return err
	})
	if err != nil {
		return nil, errors.NewStorageError("[Badger] failed to get %s", outpoint, err)
	}

	return entry, nil
}

func (s *Store) Begin(_ context.Context) (utxo.Batch, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Badger")
	}

	return &batch{txn: s.db.NewTransaction(true)}, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.db.Close()
}

func get(txn *badger.Txn, outpoint model.Outpoint) (*utxo.Entry, error) {
	item, err := txn.Get(outpoint.Bytes())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var entry *utxo.Entry

	err = item.Value(func(val []byte) error {
		entry, err = utxo.NewEntryFromBytes(val)
		return err
	})

	return entry, err
}

// batch wraps a single read-write badger transaction. Reads inside it observe
// its own pending writes.
type batch struct {
	txn    *badger.Txn
	closed bool
}

func (b *batch) PutOutputs(_ context.Context, tx *model.Transaction, blockHeight uint32) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	outpoints, entries := utxo.EntriesFromTransaction(tx, blockHeight)
	for i, outpoint := range outpoints {
		if err := b.txn.Set(outpoint.Bytes(), entries[i].Bytes()); err != nil {
			return errors.NewStorageError("[Badger] failed to put %s", outpoint, err)
		}
	}

	return nil
}

func (b *batch) RemoveOutputs(_ context.Context, outpoints []model.Outpoint) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	for _, outpoint := range outpoints {
		entry, err := get(b.txn, outpoint)
		if err != nil {
			return errors.NewStorageError("[Badger] failed to read %s", outpoint, err)
		}

		if entry == nil {
			return utxo.NewSpentError(outpoint)
		}

		if err = b.txn.Delete(outpoint.Bytes()); err != nil {
			return errors.NewStorageError("[Badger] failed to remove %s", outpoint, err)
		}
	}

	return nil
}

func (b *batch) Commit() error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	b.closed = true

	if err := b.txn.Commit(); err != nil {
		return errors.NewStorageError("[Badger] failed to commit batch", err)
	}

	return nil
}

func (b *batch) Rollback() error {
	if !b.closed {
		b.closed = true
		b.txn.Discard()
	}

	return nil
}
