// Package memory provides a utxo.Store held entirely in memory. It is used by
// tests and by short lived command line runs.
package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/dolthub/swiss"
	"go.uber.org/atomic"
)

const initialCapacity = 1024 * 1024

type Store struct {
	logger ulogger.Logger
	mu     sync.RWMutex
	m      *swiss.Map[model.Outpoint, *utxo.Entry]
	closed atomic.Bool
}

func New(logger ulogger.Logger) *Store {
	return &Store{
		logger: logger,
		// the swiss map uses a lot less memory than the standard map
		m: swiss.NewMap[model.Outpoint, *utxo.Entry](initialCapacity),
	}
}

func (s *Store) Health(_ context.Context, _ bool) (int, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return http.StatusOK, "Memory Store", nil
}

func (s *Store) Get(_ context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Memory")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.m.Get(outpoint)
	if !ok {
		return nil, nil
	}

	return entry, nil
}

func (s *Store) Begin(_ context.Context) (utxo.Batch, error) {
	if s.closed.Load() {
		return nil, utxo.NewClosedError("Memory")
	}

	return &batch{
		store:   s,
		puts:    swiss.NewMap[model.Outpoint, *utxo.Entry](64),
		removed: swiss.NewMap[model.Outpoint, struct{}](64),
	}, nil
}

// Len returns the number of unspent outputs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.m.Count()
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.Clear()

	return nil
}

func (s *Store) has(outpoint model.Outpoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.m.Has(outpoint)
}

// batch stages changes and applies them to the store under one lock on Commit.
type batch struct {
	store   *Store
	puts    *swiss.Map[model.Outpoint, *utxo.Entry]
	removed *swiss.Map[model.Outpoint, struct{}]
	closed  bool
}

func (b *batch) PutOutputs(_ context.Context, tx *model.Transaction, blockHeight uint32) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	outpoints, entries := utxo.EntriesFromTransaction(tx, blockHeight)
	for i, outpoint := range outpoints {
		b.puts.Put(outpoint, entries[i])
	}

	return nil
}

func (b *batch) RemoveOutputs(_ context.Context, outpoints []model.Outpoint) error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	for _, outpoint := range outpoints {
		// created and spent within the same batch
		if b.puts.Has(outpoint) {
			b.puts.Delete(outpoint)
			continue
		}

		if b.removed.Has(outpoint) || !b.store.has(outpoint) {
			return utxo.NewSpentError(outpoint)
		}

		b.removed.Put(outpoint, struct{}{})
	}

	return nil
}

func (b *batch) Commit() error {
	if b.closed {
		return utxo.ErrBatchClosed
	}

	b.closed = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	b.removed.Iter(func(outpoint model.Outpoint, _ struct{}) bool {
		b.store.m.Delete(outpoint)
		return false
	})

	b.puts.Iter(func(outpoint model.Outpoint, entry *utxo.Entry) bool {
		b.store.m.Put(outpoint, entry)
		return false
	})

	return nil
}

func (b *batch) Rollback() error {
	b.closed = true

	return nil
}
