package blockvalidation

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/util/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBasicHeaderValidator(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	previous := chainhash.HashH([]byte("parent"))
	now := time.Unix(1_700_000_000, 0)

	validator := NewBasicHeaderValidator(params)
	validator.now = func() time.Time { return now }

	//nolint:gosec // fixed test time
	timestamp := uint32(now.Unix())
	block := testutil.MineBlock(t, params, previous, timestamp, testutil.Coinbase(1))

	chain := ChainContext{
		Height:         1,
		PreviousHash:   previous,
		MedianTimePast: int64(timestamp) - 1,
	}

	t.Run("valid", func(t *testing.T) {
		result := validator.ValidateHeader(context.Background(), block.Header, chain)
		assert.True(t, result.IsValid, result.ErrorMessage)
	})

	t.Run("nil header", func(t *testing.T) {
		assert.False(t, validator.ValidateHeader(context.Background(), nil, chain).IsValid)
	})

	t.Run("timestamp equal to median time past", func(t *testing.T) {
		c := chain
		c.MedianTimePast = int64(timestamp)

		assert.False(t, validator.ValidateHeader(context.Background(), block.Header, c).IsValid)
	})

	t.Run("timestamp too far in the future", func(t *testing.T) {
		//nolint:gosec // fixed test time
		future := testutil.MineBlock(t, params, previous, uint32(now.Add(MaxFutureBlockTime+time.Second).Unix()), testutil.Coinbase(1))

		result := validator.ValidateHeader(context.Background(), future.Header, chain)
		assert.False(t, result.IsValid)
		assert.Contains(t, result.ErrorMessage, "future")
	})

	t.Run("target above the proof of work limit", func(t *testing.T) {
		result := validator.ValidateHeader(context.Background(), withBits(block.Header, 0x2100ffff), chain)
		assert.False(t, result.IsValid)
		assert.Contains(t, result.ErrorMessage, "proof of work limit")
	})

	t.Run("hash above target", func(t *testing.T) {
		result := validator.ValidateHeader(context.Background(), withBits(block.Header, 0x03000001), chain)
		assert.False(t, result.IsValid)
		assert.Contains(t, result.ErrorMessage, "does not meet")
	})
}

func withBits(header *model.BlockHeader, bits uint32) *model.BlockHeader {
	return &model.BlockHeader{
		Version:        header.Version,
		HashPrevBlock:  header.HashPrevBlock,
		HashMerkleRoot: header.HashMerkleRoot,
		Timestamp:      header.Timestamp,
		Bits:           model.NBit(bits),
		Nonce:          header.Nonce,
	}
}
