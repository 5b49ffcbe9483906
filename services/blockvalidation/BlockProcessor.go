package blockvalidation

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/pendingblocks"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/bsv-blockchain/verdict/util"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/atomic"
)

// BlockProcessor connects blocks: it validates each one against the utxo
// store and, if valid, applies its outputs to the store in one batch. Blocks
// whose parent is not connected yet wait in the pending blocks store. Only
// blocks extending the tip are accepted; reorganisations are not handled.
type BlockProcessor struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	store       utxo.Store
	master      *cache.MasterCache
	validator   *BlockValidator
	pending     *pendingblocks.Store
	idCaches    *cache.IDCaches
	headers     *cache.Namespace[chainhash.Hash, *model.BlockHeader]
	knownBlocks *ttlcache.Cache[chainhash.Hash, *BlockValidationResult]
	statistics  *Statistics

	// mu serialises block processing; the store takes one batch at a time.
	mu                sync.Mutex
	tip               chainhash.Hash
	nextSegmentID     atomic.Uint64
	nextTransactionID atomic.Int64
}

func NewBlockProcessor(logger ulogger.Logger, tSettings *settings.Settings, store utxo.Store, master *cache.MasterCache,
	blockValidator *BlockValidator, pending *pendingblocks.Store) (*BlockProcessor, error) {
	initPrometheusMetrics()

	idCaches, err := cache.NewIDCaches(tSettings)
	if err != nil {
		return nil, err
	}

	headers, err := cache.NewNamespace[chainhash.Hash, *model.BlockHeader](tSettings.UtxoCache.BlockHeightCacheSize, nil)
	if err != nil {
		return nil, err
	}

	return &BlockProcessor{
		logger:    logger,
		settings:  tSettings,
		store:     store,
		master:    master,
		validator: blockValidator,
		pending:   pending,
		idCaches:  idCaches,
		headers:   headers,
		knownBlocks: ttlcache.New[chainhash.Hash, *BlockValidationResult](
			ttlcache.WithTTL[chainhash.Hash, *BlockValidationResult](tSettings.Validation.KnownBlockTTL),
			ttlcache.WithDisableTouchOnHit[chainhash.Hash, *BlockValidationResult](),
		),
		statistics: NewStatistics(),
	}, nil
}

// Start runs the expiry loop of the known blocks cache until Stop is called.
func (p *BlockProcessor) Start() {
	go p.knownBlocks.Start()
}

func (p *BlockProcessor) Stop() {
	p.knownBlocks.Stop()
}

func (p *BlockProcessor) Statistics() *Statistics {
	return p.statistics
}

// Tip returns the hash and height of the last connected block.
func (p *BlockProcessor) Tip() (chainhash.Hash, uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	height, _ := p.idCaches.BlockHeights.Get(p.tip)

	return p.tip, height
}

// SetTip records header as an already connected block at height and makes it
// the tip. It is used to seed the processor with genesis or a trusted
// checkpoint whose outputs are already in the store.
func (p *BlockProcessor) SetTip(header *model.BlockHeader, height uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := header.Hash()

	p.headers.Add(hash, header)
	p.idCaches.BlockHeights.Add(hash, height)
	p.idCaches.ChainSegments.Add(hash, p.nextSegmentID.Inc())
	p.tip = hash
}

// IsProcessed reports whether hash has been connected.
func (p *BlockProcessor) IsProcessed(hash chainhash.Hash) bool {
	_, ok := p.idCaches.BlockHeights.Get(hash)
	return ok
}

func (p *BlockProcessor) isTip(hash chainhash.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return hash == p.tip
}

// TransactionID returns the sequence number assigned to a connected
// transaction, if it is still cached.
func (p *BlockProcessor) TransactionID(hash chainhash.Hash) (int64, bool) {
	return p.idCaches.TransactionIDs.Get(hash)
}

// ChainContextFor derives the context a block on top of header.HashPrevBlock
// is validated in.
func (p *BlockProcessor) ChainContextFor(header *model.BlockHeader) (ChainContext, error) {
	parentHeight, ok := p.idCaches.BlockHeights.Get(header.HashPrevBlock)
	if !ok {
		return ChainContext{}, errors.NewBlockNotFoundError("parent block %s is not connected", header.HashPrevBlock)
	}

	medianTimePast, err := p.medianTimePast(header.HashPrevBlock)
	if err != nil {
		return ChainContext{}, err
	}

	segmentID, _ := p.idCaches.ChainSegments.Get(header.HashPrevBlock)

	return ChainContext{
		Height:         parentHeight + 1,
		PreviousHash:   header.HashPrevBlock,
		MedianTimePast: medianTimePast,
		ChainSegmentID: segmentID,
	}, nil
}

func (p *BlockProcessor) medianTimePast(hash chainhash.Hash) (int64, error) {
	timestamps := make([]int64, 0, util.MedianTimeBlocks)

	for len(timestamps) < util.MedianTimeBlocks {
		header, ok := p.headers.Get(hash)
		if !ok {
			break
		}

		timestamps = append(timestamps, int64(header.Timestamp))
		hash = header.HashPrevBlock
	}

	if len(timestamps) == 0 {
		return 0, errors.NewBlockNotFoundError("header of block %s is not known", hash)
	}

	return util.CalcPastMedianTime(timestamps)
}

// QueueBlock stores block until its parent has been connected.
func (p *BlockProcessor) QueueBlock(block *model.Block) {
	p.pending.Store(block)
	prometheusBlockValidationPendingBlocks.Set(float64(p.pending.Len()))
}

// ProcessPending connects every pending block that extends the tip, in
// priority order, until none is left. Invalid blocks are dropped from the
// queue; an infrastructure error stops processing and leaves the block queued.
func (p *BlockProcessor) ProcessPending(ctx context.Context) ([]*BlockValidationResult, error) {
	var results []*BlockValidationResult

	for {
		block, ok := p.pending.SelectCandidate(p.isTip)
		if !ok {
			break
		}

		result, err := p.ProcessBlock(ctx, block)
		if err != nil {
			if errors.IsContextError(err) {
				p.logger.Warnf("[ProcessPending][%s] interrupted, %d blocks left queued", block.Hash(), p.pending.Len())
			}

			return results, err
		}

		p.pending.Remove(block.Hash())
		prometheusBlockValidationPendingBlocks.Set(float64(p.pending.Len()))

		results = append(results, result)
	}

	return results, nil
}

// ProcessBlock validates block on top of its parent and, if valid, applies it
// to the utxo store. A consensus rejection is returned as an invalid result
// with a nil error. An error means no verdict was reached and the store was
// left untouched.
func (p *BlockProcessor) ProcessBlock(ctx context.Context, block *model.Block) (*BlockValidationResult, error) {
	start, stat, ctx := util.StartStat(ctx, "ProcessBlock")
	defer func() {
		stat.AddTime(start)
	}()

	hash := block.Hash()

	if item := p.knownBlocks.Get(hash); item != nil {
		p.logger.Debugf("[ProcessBlock][%s] block already processed", hash)
		return item.Value(), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// the verdict has expired from the known blocks cache but its outputs are
	// already in the store, so validating it again would report double spends
	if p.IsProcessed(hash) {
		return nil, errors.NewBlockExistsError("[ProcessBlock][%s] block already connected", hash)
	}

	if block.Header.HashPrevBlock != p.tip {
		// the store only holds the utxo set of the tip, so side chains cannot be validated
		return nil, errors.NewBlockError("[ProcessBlock][%s] parent %s is not the chain tip %s", hash, block.Header.HashPrevBlock, p.tip)
	}

	chain, err := p.ChainContextFor(block.Header)
	if err != nil {
		return nil, err
	}

	result := p.validator.ValidateBlock(ctx, block, chain)
	if result.Err != nil {
		return result, result.Err
	}

	if !result.IsValid {
		p.remember(hash, result)
		return result, nil
	}

	if err := p.apply(ctx, block, chain.Height); err != nil {
		return NewFailedResult("could not apply block", err), err
	}

	p.headers.Add(hash, block.Header)
	p.idCaches.BlockHeights.Add(hash, chain.Height)
	p.idCaches.ChainSegments.Add(hash, chain.ChainSegmentID)

	for _, tx := range block.Transactions {
		p.idCaches.TransactionIDs.Add(tx.Hash(), p.nextTransactionID.Inc())
	}

	p.tip = hash
	p.remember(hash, result)

	elapsed := time.Since(start)
	p.statistics.Record(elapsed, len(block.Transactions))
	prometheusBlockValidationProcessBlock.Observe(float64(elapsed.Microseconds()) / 1_000)

	p.logger.Infof("[ProcessBlock][%s] connected at height %d with %d transactions in %s", hash, chain.Height, len(block.Transactions), elapsed)

	return result, nil
}

func (p *BlockProcessor) remember(hash chainhash.Hash, result *BlockValidationResult) {
	p.knownBlocks.Set(hash, result, ttlcache.DefaultTTL)
	prometheusBlockValidationKnownBlocksCache.Set(float64(p.knownBlocks.Len()))
}

// apply adds the block's outputs and removes the outputs it spends in a
// single batch. Spent outputs leave the caches before the batch commits.
func (p *BlockProcessor) apply(ctx context.Context, block *model.Block, blockHeight uint32) error {
	batch, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = batch.Rollback()
	}()

	var spent []model.Outpoint

	for _, tx := range block.Transactions {
		if err := batch.PutOutputs(ctx, tx, blockHeight); err != nil {
			return err
		}

		if tx.IsCoinbase() {
			continue
		}

		for _, input := range tx.Inputs {
			spent = append(spent, input.PreviousOutpoint)
		}
	}

	if err := batch.RemoveOutputs(ctx, spent); err != nil {
		return errors.NewProcessingError("[ProcessBlock][%s] could not remove spent outputs", block.Hash(), err)
	}

	p.master.InvalidateMany(spent)

	if err := batch.Commit(); err != nil {
		return err
	}

	// warm the master cache with the outputs later blocks are likely to spend
	spentSet := make(map[model.Outpoint]struct{}, len(spent))
	for _, outpoint := range spent {
		spentSet[outpoint] = struct{}{}
	}

	for _, tx := range block.Transactions {
		outpoints, entries := utxo.EntriesFromTransaction(tx, blockHeight)

		for i, outpoint := range outpoints {
			if _, isSpent := spentSet[outpoint]; !isSpent {
				p.master.Put(outpoint, entries[i])
			}
		}
	}

	return nil
}
