package cache

import (
	"encoding/binary"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/cespare/xxhash"
	"go.uber.org/atomic"
)

type shard struct {
	mu      sync.Mutex
	items   map[model.Outpoint]*utxo.Entry
	tracker *RecentItemTracker[model.Outpoint]
}

// MasterCache is the cache shared by every worker. Keys are spread over shards
// by xxhash of the outpoint; each shard evicts its least recently used entries
// once it holds more than its share of MaxEntries.
type MasterCache struct {
	shards      []*shard
	maxPerShard int
	clock       *atomic.Uint64
	generation  *atomic.Uint64
	evictions   *atomic.Uint64
	hits        *atomic.Uint64
	misses      *atomic.Uint64
}

func NewMasterCache(maxEntries int, shardCount int) *MasterCache {
	initPrometheusMetrics()

	if shardCount < 1 {
		shardCount = 1
	}

	maxPerShard := (maxEntries + shardCount - 1) / shardCount
	if maxPerShard < 1 {
		maxPerShard = 1
	}

	c := &MasterCache{
		shards:      make([]*shard, shardCount),
		maxPerShard: maxPerShard,
		clock:       atomic.NewUint64(0),
		generation:  atomic.NewUint64(0),
		evictions:   atomic.NewUint64(0),
		hits:        atomic.NewUint64(0),
		misses:      atomic.NewUint64(0),
	}

	initialCapacity := min(maxPerShard, 1024)

	for i := range c.shards {
		c.shards[i] = &shard{
			items:   make(map[model.Outpoint]*utxo.Entry, initialCapacity),
			tracker: NewRecentItemTracker[model.Outpoint](initialCapacity, c.clock),
		}
	}

	return c
}

func (c *MasterCache) shardFor(outpoint model.Outpoint) *shard {
	var b [model.OutpointSize]byte

	copy(b[:], outpoint.Hash[:])
	binary.LittleEndian.PutUint32(b[chainhash.HashSize:], outpoint.Index)

	return c.shards[xxhash.Sum64(b[:])%uint64(len(c.shards))]
}

func (c *MasterCache) Get(outpoint model.Outpoint) (*utxo.Entry, bool) {
	s := c.shardFor(outpoint)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[outpoint]
	if !ok {
		c.misses.Inc()
		prometheusUtxoCacheMisses.WithLabelValues(layerMaster).Inc()

		return nil, false
	}

	s.tracker.MarkRecent(outpoint)
	c.hits.Inc()
	prometheusUtxoCacheHits.WithLabelValues(layerMaster).Inc()

	return entry, true
}

func (c *MasterCache) Put(outpoint model.Outpoint, entry *utxo.Entry) {
	s := c.shardFor(outpoint)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[outpoint] = entry
	s.tracker.MarkRecent(outpoint)

	for len(s.items) > c.maxPerShard {
		oldest, ok := s.tracker.PopOldest()
		if !ok {
			break
		}

		delete(s.items, oldest)
		c.evictions.Inc()
		prometheusUtxoCacheEvictions.WithLabelValues(layerMaster).Inc()
	}
}

// Invalidate removes outpoint. Local caches observe the change through the
// generation counter before their next lookup.
func (c *MasterCache) Invalidate(outpoint model.Outpoint) {
	c.invalidate(outpoint)
	c.generation.Inc()
}

func (c *MasterCache) InvalidateMany(outpoints []model.Outpoint) {
	for _, outpoint := range outpoints {
		c.invalidate(outpoint)
	}

	if len(outpoints) > 0 {
		c.generation.Inc()
	}
}

func (c *MasterCache) invalidate(outpoint model.Outpoint) {
	s := c.shardFor(outpoint)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[outpoint]; ok {
		delete(s.items, outpoint)
		s.tracker.Remove(outpoint)
		prometheusUtxoCacheInvalidations.Inc()
	}
}

// Generation changes every time an entry may have been invalidated.
func (c *MasterCache) Generation() uint64 {
	return c.generation.Load()
}

func (c *MasterCache) Len() int {
	n := 0

	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}

	return n
}

type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *MasterCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
