package cache

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/settings"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Namespace is a bounded id mapping. A namespace with a parent checks itself
// first, then the parent, and promotes parent hits. Writes go to both.
type Namespace[K comparable, V any] struct {
	entries *lru.Cache[K, V]
	parent  *Namespace[K, V]
}

func NewNamespace[K comparable, V any](size int, parent *Namespace[K, V]) (*Namespace[K, V], error) {
	entries, err := lru.New[K, V](size)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid namespace size %d", size, err)
	}

	return &Namespace[K, V]{
		entries: entries,
		parent:  parent,
	}, nil
}

func (n *Namespace[K, V]) Get(key K) (V, bool) {
	if value, ok := n.entries.Get(key); ok {
		return value, true
	}

	if n.parent == nil {
		var zero V
		return zero, false
	}

	value, ok := n.parent.Get(key)
	if ok {
		n.entries.Add(key, value)
	}

	return value, ok
}

func (n *Namespace[K, V]) Add(key K, value V) {
	n.entries.Add(key, value)

	if n.parent != nil {
		n.parent.Add(key, value)
	}
}

func (n *Namespace[K, V]) Remove(key K) {
	n.entries.Remove(key)

	if n.parent != nil {
		n.parent.Remove(key)
	}
}

func (n *Namespace[K, V]) Len() int {
	return n.entries.Len()
}

// NewChild returns a namespace layered on n, used by a single worker.
func (n *Namespace[K, V]) NewChild(size int) (*Namespace[K, V], error) {
	return NewNamespace[K, V](size, n)
}

// IDCaches groups the id namespaces shared by the stores and the block processor.
type IDCaches struct {
	// TransactionIDs maps a transaction hash to its row id in the sql store.
	TransactionIDs *Namespace[chainhash.Hash, int64]
	// ChainSegments maps a block hash to the id of the chain segment it extends.
	ChainSegments *Namespace[chainhash.Hash, uint64]
	// BlockHeights maps a block hash to its height.
	BlockHeights *Namespace[chainhash.Hash, uint32]
}

func NewIDCaches(tSettings *settings.Settings) (*IDCaches, error) {
	transactionIDs, err := NewNamespace[chainhash.Hash, int64](tSettings.UtxoCache.TransactionIDCacheSize, nil)
	if err != nil {
		return nil, err
	}

	chainSegments, err := NewNamespace[chainhash.Hash, uint64](tSettings.UtxoCache.ChainSegmentCacheSize, nil)
	if err != nil {
		return nil, err
	}

	blockHeights, err := NewNamespace[chainhash.Hash, uint32](tSettings.UtxoCache.BlockHeightCacheSize, nil)
	if err != nil {
		return nil, err
	}

	return &IDCaches{
		TransactionIDs: transactionIDs,
		ChainSegments:  chainSegments,
		BlockHeights:   blockHeights,
	}, nil
}
