// Package cache layers bounded in-memory caches over a utxo.Store.
//
// Lookups go local cache, then master cache, then store, and results are
// promoted upward. Spent outputs must be invalidated before the batch that
// removes them is committed, so no layer can hand out an entry the store no
// longer holds.
package cache

import (
	"context"
	"time"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util/retry"
	"golang.org/x/sync/errgroup"
)

// Resolver is the per worker view of the utxo set. Each worker owns its own
// Resolver; the master cache and store underneath are shared.
type Resolver struct {
	logger   ulogger.Logger
	settings *settings.Settings
	store    utxo.Store
	local    *LocalCache
}

func NewResolver(logger ulogger.Logger, tSettings *settings.Settings, store utxo.Store, master *MasterCache) *Resolver {
	return &Resolver{
		logger:   logger,
		settings: tSettings,
		store:    store,
		local:    NewLocalCache(master, tSettings.UtxoCache.LocalMaxEntries),
	}
}

// Find returns the entry for outpoint, or nil when no layer holds it. A store
// failure is returned after one retry if it is transient.
func (r *Resolver) Find(ctx context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	if entry, ok := r.local.Get(outpoint); ok {
		return entry, nil
	}

	entry, err := r.fetch(ctx, outpoint)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		prometheusUtxoCacheMisses.WithLabelValues(layerStore).Inc()
		return nil, nil
	}

	prometheusUtxoCacheHits.WithLabelValues(layerStore).Inc()
	r.local.Put(outpoint, entry)

	return entry, nil
}

// Insert caches an entry that was just written to the store.
func (r *Resolver) Insert(outpoint model.Outpoint, entry *utxo.Entry) {
	r.local.Put(outpoint, entry)
}

func (r *Resolver) Invalidate(outpoint model.Outpoint) {
	r.local.Invalidate(outpoint)
}

func (r *Resolver) InvalidateMany(outpoints []model.Outpoint) {
	r.local.InvalidateMany(outpoints)
}

// Prefetch loads the outpoints missing from the master cache in parallel
// batches. Unknown outpoints are skipped; the first store error is returned.
func (r *Resolver) Prefetch(ctx context.Context, outpoints []model.Outpoint) error {
	master := r.local.Master()

	batchSize := max(1, r.settings.Validation.PrefetchBatchSize)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.settings.Validation.PrefetchConcurrency))

	for start := 0; start < len(outpoints); start += batchSize {
		batch := outpoints[start:min(start+batchSize, len(outpoints))]

		g.Go(func() error {
			for _, outpoint := range batch {
				if _, ok := master.Get(outpoint); ok {
					continue
				}

				entry, err := r.fetch(gCtx, outpoint)
				if err != nil {
					return err
				}

				if entry != nil {
					master.Put(outpoint, entry)
					prometheusUtxoCachePrefetched.Inc()
				}
			}

			return nil
		})
	}

	return g.Wait()
}

func (r *Resolver) fetch(ctx context.Context, outpoint model.Outpoint) (*utxo.Entry, error) {
	attempt := 0

	entry, err := retry.Retry(ctx, r.logger, func() (*utxo.Entry, error) {
		attempt++
		if attempt > 1 {
			prometheusUtxoCacheRetries.Inc()
		}

		return r.store.Get(ctx, outpoint)
	},
		retry.WithRetryCount(2),
		retry.WithRetryIf(errors.IsRetryableError),
		retry.WithBackoffDurationType(10*time.Millisecond),
		retry.WithMessage("[Resolver] retrying utxo lookup for "+outpoint.String()),
	)
	if err != nil {
		return nil, errors.NewStorageError("[Resolver] failed to resolve %s", outpoint, err)
	}

	return entry, nil
}
