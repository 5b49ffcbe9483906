package pendingblocks

import (
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow = int64(1_700_000_000)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(ulogger.TestLogger{}, settings.NewTestSettings())
	s.now = func() time.Time {
		return time.Unix(testNow, 0)
	}

	return s
}

func hash(s string) chainhash.Hash {
	return chainhash.HashH([]byte(s))
}

func newBlock(previous chainhash.Hash, timestamp uint32) *model.Block {
	return model.NewBlock(&model.BlockHeader{
		Version:       4,
		HashPrevBlock: previous,
		Timestamp:     timestamp,
		Bits:          0x207fffff,
	}, nil)
}

func TestStoreHash(t *testing.T) {
	s := newTestStore(t)

	s.StoreHash(hash("a"), nil)
	require.Equal(t, 1, s.Len())

	pending, ok := s.Get(hash("a"))
	require.True(t, ok)
	assert.Equal(t, testNow, pending.Priority)
	assert.Equal(t, testNow, pending.Timestamp)
	assert.False(t, pending.HasData())
	assert.Equal(t, chainhash.Hash{}, pending.PreviousHash)

	// a later announcement fills in the parent
	parent := hash("parent")
	s.StoreHash(hash("a"), &parent)

	pending, _ = s.Get(hash("a"))
	assert.Equal(t, parent, pending.PreviousHash)
	assert.Equal(t, []chainhash.Hash{hash("a")}, s.GetChildren(parent))

	// but does not replace a known one
	other := hash("other")
	s.StoreHash(hash("a"), &other)

	pending, _ = s.Get(hash("a"))
	assert.Equal(t, parent, pending.PreviousHash)
	assert.Empty(t, s.GetChildren(other))
	assert.Equal(t, 1, s.Len())
}

func TestStore_AttachesBlockToAnnouncement(t *testing.T) {
	s := newTestStore(t)
	parent := hash("parent")
	block := newBlock(parent, 1234)

	s.StoreHash(block.Hash(), nil)
	s.Store(block)

	require.Equal(t, 1, s.Len())

	pending, ok := s.Get(block.Hash())
	require.True(t, ok)
	assert.True(t, pending.HasData())
	assert.Same(t, block, pending.Block)
	assert.Equal(t, parent, pending.PreviousHash)
	assert.Equal(t, int64(1234), pending.Priority)
	assert.Equal(t, []chainhash.Hash{block.Hash()}, s.GetChildren(parent))
}

func TestStore_MovesChildWhenParentChanges(t *testing.T) {
	s := newTestStore(t)
	wrong := hash("wrong")
	block := newBlock(hash("right"), 1)

	s.StoreHash(block.Hash(), &wrong)
	s.Store(block)

	assert.Empty(t, s.GetChildren(wrong))
	assert.Equal(t, []chainhash.Hash{block.Hash()}, s.GetChildren(hash("right")))
}

func TestGetChildren_PriorityOrder(t *testing.T) {
	s := newTestStore(t)
	parent := hash("parent")

	late := newBlock(parent, 300)
	early := newBlock(parent, 100)
	middle := newBlock(parent, 200)

	s.Store(late)
	s.Store(early)
	s.Store(middle)

	assert.Equal(t, []chainhash.Hash{early.Hash(), middle.Hash(), late.Hash()}, s.GetChildren(parent))

	s.SetPriority(early.Hash(), 400)
	assert.Equal(t, []chainhash.Hash{middle.Hash(), late.Hash(), early.Hash()}, s.GetChildren(parent))
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	parent := hash("parent")
	block := newBlock(parent, 1)

	s.Store(block)

	assert.True(t, s.Remove(block.Hash()))
	assert.False(t, s.Remove(block.Hash()))
	assert.False(t, s.Exists(block.Hash()))
	assert.Empty(t, s.GetChildren(parent))
	assert.Equal(t, 0, s.Len())
}

func TestPurgeFailed(t *testing.T) {
	s := newTestStore(t)

	s.StoreHash(hash("flaky"), nil)
	s.StoreHash(hash("fine"), nil)
	s.Store(newBlock(hash("parent"), 1))

	for i := 0; i < 3; i++ {
		s.IncrementFailedDownloadCount(hash("flaky"))
	}

	pending, _ := s.Get(hash("flaky"))
	assert.Equal(t, 3, pending.FailedDownloadCount)
	assert.Equal(t, testNow+3*failedDownloadPenalty, pending.Priority)

	assert.Equal(t, 0, s.PurgeFailed(3))
	assert.Equal(t, 1, s.PurgeFailed(2))
	assert.False(t, s.Exists(hash("flaky")))
	assert.Equal(t, 2, s.Len())
}

func TestSelectCandidate(t *testing.T) {
	s := newTestStore(t)

	tip := hash("tip")
	first := newBlock(tip, 100)
	second := newBlock(first.Hash(), 200)
	orphan := newBlock(hash("unknown"), 50)

	s.Store(second)
	s.Store(orphan)
	s.Store(first)
	s.StoreHash(hash("announced only"), &tip)

	processed := map[chainhash.Hash]bool{tip: true}
	isProcessed := func(h chainhash.Hash) bool {
		return processed[h]
	}

	block, ok := s.SelectCandidate(isProcessed)
	require.True(t, ok)
	assert.Same(t, first, block)

	s.Remove(first.Hash())
	processed[first.Hash()] = true

	block, ok = s.SelectCandidate(isProcessed)
	require.True(t, ok)
	assert.Same(t, second, block)

	s.Remove(second.Hash())

	_, ok = s.SelectCandidate(isProcessed)
	assert.False(t, ok)
}

func TestLocking(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		s := newTestStore(t)
		assert.IsType(t, &sync.RWMutex{}, s.mu)

		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				for j := 0; j < 100; j++ {
					h := hash(string(rune('a'+i)) + string(rune(j)))
					s.StoreHash(h, nil)
					_, _ = s.Get(h)
					_ = s.GetChildren(h)
				}
			}(i)
		}

		wg.Wait()
		assert.Equal(t, 800, s.Len())
	})

	t.Run("disabled", func(t *testing.T) {
		tSettings := settings.NewTestSettings()
		tSettings.PendingBlocks.LockingEnabled = false

		s := New(ulogger.TestLogger{}, tSettings)
		assert.IsType(t, noopLocker{}, s.mu)

		s.StoreHash(hash("a"), nil)
		assert.True(t, s.Exists(hash("a")))
	})
}
