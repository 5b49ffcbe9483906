package blockvalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
)

// MaxFutureBlockTime is how far ahead of the local clock a block timestamp may be.
const MaxFutureBlockTime = 2 * time.Hour

// ChainContext describes where on the chain a block is being connected.
type ChainContext struct {
	// Height is the height the block will have once connected.
	Height         uint32
	PreviousHash   chainhash.Hash
	MedianTimePast int64
	ChainSegmentID uint64
}

type HeaderValidationResult struct {
	IsValid      bool
	ErrorMessage string
}

func validHeader() HeaderValidationResult {
	return HeaderValidationResult{IsValid: true}
}

func invalidHeader(format string, args ...interface{}) HeaderValidationResult {
	return HeaderValidationResult{ErrorMessage: fmt.Sprintf(format, args...)}
}

// HeaderValidator decides whether a header may be connected at chain.
// Difficulty retargeting lives behind this interface so the block validator
// does not depend on it.
type HeaderValidator interface {
	ValidateHeader(ctx context.Context, header *model.BlockHeader, chain ChainContext) HeaderValidationResult
}

// BasicHeaderValidator checks linkage, proof of work against the header's own
// target and the proof of work limit, and the timestamp bounds.
type BasicHeaderValidator struct {
	params *chaincfg.Params
	now    func() time.Time
}

func NewBasicHeaderValidator(params *chaincfg.Params) *BasicHeaderValidator {
	return &BasicHeaderValidator{
		params: params,
		now:    time.Now,
	}
}

func (v *BasicHeaderValidator) ValidateHeader(_ context.Context, header *model.BlockHeader, chain ChainContext) HeaderValidationResult {
	if header == nil {
		return invalidHeader("missing header")
	}

	if !header.HashPrevBlock.IsEqual(&chain.PreviousHash) {
		return invalidHeader("previous block %s does not match chain tip %s", header.HashPrevBlock, chain.PreviousHash)
	}

	target := header.Bits.CalculateTarget()
	if target.Sign() <= 0 || target.Cmp(v.params.PowLimit) > 0 {
		return invalidHeader("target %s is outside the proof of work limit", header.Bits)
	}

	ok, hash, err := header.HasMetTargetDifficulty()
	if err != nil {
		return invalidHeader("%v", err)
	}

	if !ok {
		return invalidHeader("block %s does not meet its target %s", hash, header.Bits)
	}

	if int64(header.Timestamp) <= chain.MedianTimePast {
		return invalidHeader("timestamp %d is not after median time past %d", header.Timestamp, chain.MedianTimePast)
	}

	if maxTime := v.now().Add(MaxFutureBlockTime).Unix(); int64(header.Timestamp) > maxTime {
		return invalidHeader("timestamp %d is too far in the future", header.Timestamp)
	}

	return validHeader()
}
