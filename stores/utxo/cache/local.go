package cache

import (
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/stores/utxo"
)

// LocalCache is a per worker cache in front of the master. It is not safe for
// concurrent use. The master reference is fixed at construction.
//
// Any invalidation on the master bumps its generation; the local cache drops
// everything it holds when it sees a new generation, so it can never serve an
// entry the master has invalidated.
type LocalCache struct {
	master     *MasterCache
	maxEntries int
	items      map[model.Outpoint]*utxo.Entry
	tracker    *RecentItemTracker[model.Outpoint]
	generation uint64
}

func NewLocalCache(master *MasterCache, maxEntries int) *LocalCache {
	if maxEntries < 1 {
		maxEntries = 1
	}

	initialCapacity := min(maxEntries, 1024)

	return &LocalCache{
		master:     master,
		maxEntries: maxEntries,
		items:      make(map[model.Outpoint]*utxo.Entry, initialCapacity),
		tracker:    NewRecentItemTracker[model.Outpoint](initialCapacity, nil),
		generation: master.Generation(),
	}
}

func (l *LocalCache) Master() *MasterCache {
	return l.master
}

// Get checks the local entries and then the master, promoting master hits.
func (l *LocalCache) Get(outpoint model.Outpoint) (*utxo.Entry, bool) {
	l.sync()

	if entry, ok := l.items[outpoint]; ok {
		l.tracker.MarkRecent(outpoint)
		prometheusUtxoCacheHits.WithLabelValues(layerLocal).Inc()

		return entry, true
	}

	prometheusUtxoCacheMisses.WithLabelValues(layerLocal).Inc()

	entry, ok := l.master.Get(outpoint)
	if !ok {
		return nil, false
	}

	l.put(outpoint, entry)

	return entry, true
}

// Put adds the entry locally and to the master.
func (l *LocalCache) Put(outpoint model.Outpoint, entry *utxo.Entry) {
	l.sync()
	l.master.Put(outpoint, entry)
	l.put(outpoint, entry)
}

// Invalidate removes outpoint here and from the master.
func (l *LocalCache) Invalidate(outpoint model.Outpoint) {
	l.remove(outpoint)
	l.master.Invalidate(outpoint)
	l.generation = l.master.Generation()
}

func (l *LocalCache) InvalidateMany(outpoints []model.Outpoint) {
	for _, outpoint := range outpoints {
		l.remove(outpoint)
	}

	l.master.InvalidateMany(outpoints)
	l.generation = l.master.Generation()
}

func (l *LocalCache) Len() int {
	return len(l.items)
}

func (l *LocalCache) put(outpoint model.Outpoint, entry *utxo.Entry) {
	l.items[outpoint] = entry
	l.tracker.MarkRecent(outpoint)

	for len(l.items) > l.maxEntries {
		oldest, ok := l.tracker.PopOldest()
		if !ok {
			break
		}

		delete(l.items, oldest)
		prometheusUtxoCacheEvictions.WithLabelValues(layerLocal).Inc()
	}
}

func (l *LocalCache) remove(outpoint model.Outpoint) {
	delete(l.items, outpoint)
	l.tracker.Remove(outpoint)
}

func (l *LocalCache) sync() {
	generation := l.master.Generation()
	if generation == l.generation {
		return
	}

	clear(l.items)
	l.tracker.Clear()
	l.generation = generation
}
