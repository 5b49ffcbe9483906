// Package pendingblocks keeps the blocks that were announced or received but
// not processed yet, so that a block whose parent is still missing can wait
// for it.
package pendingblocks

import (
	"slices"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/dolthub/swiss"
)

// failedDownloadPenalty pushes a block back in the queue, in seconds of
// priority, every time downloading it fails.
const failedDownloadPenalty = 60

// PendingBlock is a row of the table. Lower priorities are processed first.
type PendingBlock struct {
	Hash                chainhash.Hash
	PreviousHash        chainhash.Hash
	Block               *model.Block
	Timestamp           int64
	Priority            int64
	FailedDownloadCount int
}

// HasData reports whether the block itself has been received.
func (p *PendingBlock) HasData() bool {
	return p.Block != nil
}

type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type noopLocker struct{}

func (noopLocker) Lock()    {}
func (noopLocker) Unlock()  {}
func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

type Store struct {
	logger   ulogger.Logger
	mu       rwLocker
	blocks   *swiss.Map[chainhash.Hash, *PendingBlock]
	children *swiss.Map[chainhash.Hash, []chainhash.Hash]
	now      func() time.Time
}

func New(logger ulogger.Logger, tSettings *settings.Settings) *Store {
	s := &Store{
		logger:   logger,
		blocks:   swiss.NewMap[chainhash.Hash, *PendingBlock](1024),
		children: swiss.NewMap[chainhash.Hash, []chainhash.Hash](1024),
		now:      time.Now,
	}

	if tSettings.PendingBlocks.LockingEnabled {
		s.mu = &sync.RWMutex{}
	} else {
		logger.Warnf("[PendingBlocks] locking is disabled, concurrent insert or update of the same block may lose writes")

		s.mu = noopLocker{}
	}

	return s
}

// StoreHash records an announced block. An existing row is left as it is,
// except that a previous hash it did not know yet is filled in.
func (s *Store) StoreHash(hash chainhash.Hash, previousHash *chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.blocks.Get(hash); ok {
		if previousHash != nil && existing.PreviousHash == (chainhash.Hash{}) {
			s.setPrevious(existing, *previousHash)
		}

		return
	}

	now := s.now().Unix()

	pending := &PendingBlock{
		Hash:      hash,
		Timestamp: now,
		Priority:  now,
	}

	if previousHash != nil {
		s.setPrevious(pending, *previousHash)
	}

	s.blocks.Put(hash, pending)
}

// Store records a received block, inserting it or attaching it to the row of
// its announcement. Its priority is the block timestamp, so older blocks are
// processed first.
func (s *Store) Store(block *model.Block) {
	hash := block.Hash()

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.blocks.Get(hash)
	if !ok {
		pending = &PendingBlock{Hash: hash}
		s.blocks.Put(hash, pending)
	}

	s.setPrevious(pending, block.Header.HashPrevBlock)

	pending.Block = block
	pending.Timestamp = s.now().Unix()
	pending.Priority = int64(block.Header.Timestamp)
}

// Get returns a copy of the row for hash.
func (s *Store) Get(hash chainhash.Hash) (PendingBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, ok := s.blocks.Get(hash)
	if !ok {
		return PendingBlock{}, false
	}

	return *pending, true
}

func (s *Store) Exists(hash chainhash.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocks.Has(hash)
}

// GetChildren returns the hashes of the pending blocks built on previousHash,
// in priority order.
func (s *Store) GetChildren(previousHash chainhash.Hash) []chainhash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children, _ := s.children.Get(previousHash)
	children = slices.Clone(children)

	s.sortByPriority(children)

	return children
}

// Remove deletes the row for hash and reports whether it existed.
func (s *Store) Remove(hash chainhash.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(hash)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocks.Count()
}

func (s *Store) SetPriority(hash chainhash.Hash, priority int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.blocks.Get(hash); ok {
		pending.Priority = priority
	}
}

// IncrementFailedDownloadCount records a failed download of hash and moves it
// back in the queue.
func (s *Store) IncrementFailedDownloadCount(hash chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.blocks.Get(hash); ok {
		pending.FailedDownloadCount++
		pending.Priority += failedDownloadPenalty
	}
}

// PurgeFailed removes the blocks without data that failed to download more
// than maxFailedDownloadCount times and returns how many were removed.
func (s *Store) PurgeFailed(maxFailedDownloadCount int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purge []chainhash.Hash

	s.blocks.Iter(func(hash chainhash.Hash, pending *PendingBlock) bool {
		if !pending.HasData() && pending.FailedDownloadCount > maxFailedDownloadCount {
			purge = append(purge, hash)
		}

		return false
	})

	for _, hash := range purge {
		s.logger.Infof("[PendingBlocks] purging failed pending block %s", hash)
		s.remove(hash)
	}

	return len(purge)
}

// SelectCandidate returns the received block with the lowest priority whose
// parent has been processed, as reported by isProcessed.
func (s *Store) SelectCandidate(isProcessed func(chainhash.Hash) bool) (*model.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidate *PendingBlock

	s.blocks.Iter(func(_ chainhash.Hash, pending *PendingBlock) bool {
		if !pending.HasData() || !isProcessed(pending.PreviousHash) {
			return false
		}

		if candidate == nil || less(pending, candidate) {
			candidate = pending
		}

		return false
	})

	if candidate == nil {
		return nil, false
	}

	return candidate.Block, true
}

func (s *Store) setPrevious(pending *PendingBlock, previousHash chainhash.Hash) {
	if pending.PreviousHash == previousHash {
		return
	}

	if pending.PreviousHash != (chainhash.Hash{}) {
		s.unlinkChild(pending.PreviousHash, pending.Hash)
	}

	pending.PreviousHash = previousHash

	children, _ := s.children.Get(previousHash)
	s.children.Put(previousHash, append(children, pending.Hash))
}

func (s *Store) remove(hash chainhash.Hash) bool {
	pending, ok := s.blocks.Get(hash)
	if !ok {
		return false
	}

	s.blocks.Delete(hash)
	s.unlinkChild(pending.PreviousHash, hash)

	return true
}

func (s *Store) unlinkChild(previousHash, hash chainhash.Hash) {
	children, ok := s.children.Get(previousHash)
	if !ok {
		return
	}

	children = slices.DeleteFunc(children, func(child chainhash.Hash) bool {
		return child == hash
	})

	if len(children) == 0 {
		s.children.Delete(previousHash)
		return
	}

	s.children.Put(previousHash, children)
}

func (s *Store) sortByPriority(hashes []chainhash.Hash) {
	slices.SortFunc(hashes, func(a, b chainhash.Hash) int {
		pa, _ := s.blocks.Get(a)
		pb, _ := s.blocks.Get(b)

		if less(pa, pb) {
			return -1
		}

		if less(pb, pa) {
			return 1
		}

		return 0
	})
}

// less orders by priority, then by hash so that the order is total.
func less(a, b *PendingBlock) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}

	return slices.Compare(a.Hash[:], b.Hash[:]) < 0
}
