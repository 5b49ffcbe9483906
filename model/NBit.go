package model

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/bsv-blockchain/verdict/errors"
)

// NBit is the compact representation of a proof of work target.
type NBit uint32

func NewNBitFromString(s string) (*NBit, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewProcessingError("error decoding nbit hex", err)
	}

	if len(b) != 4 {
		return nil, errors.NewProcessingError("nbit should be 4 bytes, got %d", len(b))
	}

	nBit := NBit(binary.BigEndian.Uint32(b))

	return &nBit, nil
}

func (n NBit) String() string {
	return fmt.Sprintf("%08x", uint32(n))
}

// CalculateTarget expands the compact form into the full 256 bit target.  The
// high bit of the mantissa is a sign bit; a negative target is returned as is
// so the caller can reject it.
func (n NBit) CalculateTarget() *big.Int {
	compact := uint32(n)
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int

	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// BigToCompact converts a target back into its compact form.
func BigToCompact(n *big.Int) NBit {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32

	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0]) //nolint:gosec // at most three bytes
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0]) //nolint:gosec // three bytes after the shift
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa //nolint:gosec // exponent fits in a byte
	if n.Sign() < 0 {
		compact |= 0x00800000
	}

	return NBit(compact)
}
