// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"encoding/binary"
	"math/big"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
)

// These variables are the chain proof-of-work limit parameters for each default
// network.
var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a Bitcoin block can
	// have for the main network.  It is the value 2^224 - 1.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// regressionPowLimit is the highest proof of work value a Bitcoin block
	// can have for the regression test network.  It is the value 2^255 - 1.
	regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// testNet3PowLimit is the highest proof of work value a Bitcoin block
	// can have for the test network (version 3).  It is the value
	// 2^224 - 1.
	testNet3PowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)
)

// SatoshisPerBitcoin is the number of satoshis in one bitcoin.
const SatoshisPerBitcoin = 100_000_000

// MaxSatoshis is the maximum number of satoshis any single amount, or the sum of
// the outputs of one transaction, may carry.
const MaxSatoshis = 21_000_000 * SatoshisPerBitcoin

// baseSubsidy is the starting subsidy amount for mined blocks.  This value is
// halved every SubsidyReductionInterval blocks.
const baseSubsidy = 50 * SatoshisPerBitcoin

// genesisMerkleRoot is the merkle root of the single coinbase transaction shared
// by the genesis blocks of every default network.
var genesisMerkleRoot = newHashFromStr("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

// Params defines a Bitcoin network by the consensus parameters the validation
// engine needs.  Every field is a protocol constant; none of them is
// configuration, and a Params value must not be mutated once it is in use.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// These fields define the block heights at which the specified softfork
	// BIP became active.
	BIP0016Height int32
	BIP0034Height int32
	BIP0065Height int32
	BIP0066Height int32
	CSVHeight     int32

	// The following are the first heights at which the Bitcoin Cash specific
	// forks are enforced.
	Buip55Height     int32 // August 1, 2017: strict encoding, LOW_S, SIGHASH_FORKID
	HF20171113Height int32 // November 13, 2017: NULLFAIL
	HF20180515Height int32 // May 15, 2018: re-enabled splice and bitwise opcodes
	HF20181115Height int32 // November 15, 2018: CHECKDATASIG, push only unlocking scripts
	HF20190515Height int32 // May 15, 2019: Schnorr signatures
	HF20191115Height int32 // November 15, 2019: minimal data

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins (coinbase transactions) can be spent.
	CoinbaseMaturity uint16

	// SubsidyReductionInterval is the interval of blocks before the subsidy
	// is reduced.
	SubsidyReductionInterval int32

	// ReduceMinDifficulty defines whether the network accepts blocks at the
	// pow limit regardless of the compact target of the chain tip.
	ReduceMinDifficulty bool
}

// MainNetParams defines the network parameters for the main Bitcoin network.
var MainNetParams = Params{
	Name:         "mainnet",
	GenesisHash:  genesisHash(1231006505, 0x1d00ffff, 2083236893),
	PowLimit:     mainPowLimit,
	PowLimitBits: 0x1d00ffff,

	BIP0016Height: 173805, // 00000000000000ce80a7e057163a4db1d5ad7b20fb6f598c9597b9665c8fb0d4
	BIP0034Height: 227931, // 000000000000024b89b42a942fe0d9fea3bb44ab7bd1b19115dd6a759c0808b8
	BIP0065Height: 388381, // 000000000000000004c2b624ed5d7756c508d90fd0da2c7c679febfa6c4735f0
	BIP0066Height: 363725, // 00000000000000000379eaa19dce8c9b722d46ae6a57c2f1a988119488b50931
	CSVHeight:     419328, // 000000000000000004a1b34462cb8aeebd5799177f7a29cf28f2d1961716b5b5

	Buip55Height:     478559,
	HF20171113Height: 504032,
	HF20180515Height: 530356,
	HF20181115Height: 556767,
	HF20190515Height: 582680,
	HF20191115Height: 609136,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
}

// TestNet3Params defines the network parameters for the test Bitcoin network
// (version 3).
var TestNet3Params = Params{
	Name:         "testnet",
	GenesisHash:  genesisHash(1296688602, 0x1d00ffff, 414098458),
	PowLimit:     testNet3PowLimit,
	PowLimitBits: 0x1d00ffff,

	BIP0016Height: 514,
	BIP0034Height: 21111,
	BIP0065Height: 581885,
	BIP0066Height: 330776,
	CSVHeight:     770112,

	Buip55Height:     1155876,
	HF20171113Height: 1188698,
	HF20180515Height: 1233070,
	HF20181115Height: 1267997,
	HF20190515Height: 1303885,
	HF20191115Height: 1341712,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 210000,
	ReduceMinDifficulty:      true,
}

// RegressionNetParams defines the network parameters for the regression test
// Bitcoin network.  Every fork except BIP34 is active from the first block.
var RegressionNetParams = Params{
	Name:         "regtest",
	GenesisHash:  genesisHash(1296688602, 0x207fffff, 2),
	PowLimit:     regressionPowLimit,
	PowLimitBits: 0x207fffff,

	BIP0016Height: 0,
	BIP0034Height: 100000000, // Not active - Permit ver 1 blocks
	BIP0065Height: 1351,      // Used by regression tests
	BIP0066Height: 1251,      // Used by regression tests
	CSVHeight:     576,

	Buip55Height:     0,
	HF20171113Height: 0,
	HF20180515Height: 0,
	HF20181115Height: 0,
	HF20190515Height: 0,
	HF20191115Height: 0,

	CoinbaseMaturity:         100,
	SubsidyReductionInterval: 150,
	ReduceMinDifficulty:      true,
}

func isActive(activation int32, height uint32) bool {
	return activation >= 0 && uint64(height) >= uint64(activation)
}

// IsBIP16Enabled reports whether pay-to-script-hash is evaluated at height.
func (p *Params) IsBIP16Enabled(height uint32) bool { return isActive(p.BIP0016Height, height) }

// IsBIP34Enabled reports whether the coinbase must commit to the block height.
func (p *Params) IsBIP34Enabled(height uint32) bool { return isActive(p.BIP0034Height, height) }

// IsBIP65Enabled reports whether OP_CHECKLOCKTIMEVERIFY is enforced.
func (p *Params) IsBIP65Enabled(height uint32) bool { return isActive(p.BIP0065Height, height) }

// IsBIP66Enabled reports whether signatures must be strict DER.
func (p *Params) IsBIP66Enabled(height uint32) bool { return isActive(p.BIP0066Height, height) }

// IsCSVEnabled reports whether OP_CHECKSEQUENCEVERIFY is enforced.
func (p *Params) IsCSVEnabled(height uint32) bool { return isActive(p.CSVHeight, height) }

// IsBuip55Enabled reports whether strict encoding and SIGHASH_FORKID are required.
func (p *Params) IsBuip55Enabled(height uint32) bool { return isActive(p.Buip55Height, height) }

// IsHF20171113Enabled reports whether NULLFAIL is enforced.
func (p *Params) IsHF20171113Enabled(height uint32) bool {
	return isActive(p.HF20171113Height, height)
}

// IsHF20180515Enabled reports whether the splice and bitwise opcodes are available.
func (p *Params) IsHF20180515Enabled(height uint32) bool {
	return isActive(p.HF20180515Height, height)
}

// IsHF20181115Enabled reports whether OP_CHECKDATASIG is available and unlocking
// scripts must be push only.
func (p *Params) IsHF20181115Enabled(height uint32) bool {
	return isActive(p.HF20181115Height, height)
}

// IsHF20190515Enabled reports whether 64 byte Schnorr signatures are accepted.
func (p *Params) IsHF20190515Enabled(height uint32) bool {
	return isActive(p.HF20190515Height, height)
}

// IsHF20191115Enabled reports whether numeric operands must be minimally encoded.
func (p *Params) IsHF20191115Enabled(height uint32) bool {
	return isActive(p.HF20191115Height, height)
}

// BlockSubsidy returns the block reward at height, in satoshis.
func (p *Params) BlockSubsidy(height uint32) int64 {
	if p.SubsidyReductionInterval == 0 {
		return baseSubsidy
	}

	halvings := height / uint32(p.SubsidyReductionInterval)
	if halvings >= 64 {
		return 0
	}

	return baseSubsidy >> halvings
}

// genesisHash builds the 80 byte genesis header shared by the default networks
// and returns its hash.
func genesisHash(timestamp, bits, nonce uint32) *chainhash.Hash {
	header := make([]byte, 80)
	binary.LittleEndian.PutUint32(header[0:4], 1)
	copy(header[36:68], genesisMerkleRoot[:])
	binary.LittleEndian.PutUint32(header[68:72], timestamp)
	binary.LittleEndian.PutUint32(header[72:76], bits)
	binary.LittleEndian.PutUint32(header[76:80], nonce)

	hash := chainhash.DoubleHashH(header)

	return &hash
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash.  It only differs from the one available in chainhash in that
// it panics on an error since it will only (and must only) be called with
// hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}

	return hash
}

func GetChainParams(network string) (*Params, error) {
	switch strings.ToLower(network) {
	case "mainnet":
		return &MainNetParams, nil
	case "testnet", "testnet3":
		return &TestNet3Params, nil
	case "regtest":
		return &RegressionNetParams, nil
	default:
		return nil, errors.NewConfigurationError("unknown network %s", network)
	}
}
