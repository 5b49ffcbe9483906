package signature

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// SchnorrSignatureSize is the size of a Schnorr signature without a hash type.
	SchnorrSignatureSize = 64

	minDERSignatureSize = 8
	maxDERSignatureSize = 72
)

// IsStrictDERSignature reports whether sig, including its trailing hash type
// byte, is a canonical DER encoding as required by BIP66.
func IsStrictDERSignature(sig []byte) bool {
	// Format: 0x30 [total-length] 0x02 [R-length] [R] 0x02 [S-length] [S] [sighash]
	if len(sig) < minDERSignatureSize+1 || len(sig) > maxDERSignatureSize+1 {
		return false
	}

	if sig[0] != 0x30 {
		return false
	}

	// the length covers everything but the sequence header and the hash type
	if int(sig[1]) != len(sig)-3 {
		return false
	}

	lenR := int(sig[3])
	if 5+lenR >= len(sig) {
		return false
	}

	lenS := int(sig[5+lenR])
	if lenR+lenS+7 != len(sig) {
		return false
	}

	if sig[2] != 0x02 || lenR == 0 || sig[4]&0x80 != 0 {
		return false
	}

	// no unnecessary leading zero
	if lenR > 1 && sig[4] == 0x00 && sig[5]&0x80 == 0 {
		return false
	}

	if sig[lenR+4] != 0x02 || lenS == 0 || sig[lenR+6]&0x80 != 0 {
		return false
	}

	if lenS > 1 && sig[lenR+6] == 0x00 && sig[lenR+7]&0x80 == 0 {
		return false
	}

	return true
}

// IsStrictDERDataSignature is IsStrictDERSignature for signatures that carry no
// hash type, as used by OP_CHECKDATASIG.
func IsStrictDERDataSignature(sig []byte) bool {
	withHashType := make([]byte, len(sig)+1)
	copy(withHashType, sig)

	return IsStrictDERSignature(withHashType)
}

// IsLowS reports whether the S value of the DER signature (without hash type)
// is at most half the curve order.  Unparsable signatures are not low S.
func IsLowS(der []byte) bool {
	_, s, ok := parseDERLax(der)
	if !ok {
		return false
	}

	return !s.IsOverHalfOrder()
}

// IsStrictPublicKey reports whether pubKey is a 33 byte compressed or 65 byte
// uncompressed serialization.  It checks the format only, not the curve.
func IsStrictPublicKey(pubKey []byte) bool {
	switch len(pubKey) {
	case secp256k1.PubKeyBytesLenCompressed:
		return pubKey[0] == secp256k1.PubKeyFormatCompressedEven || pubKey[0] == secp256k1.PubKeyFormatCompressedOdd
	case secp256k1.PubKeyBytesLenUncompressed:
		return pubKey[0] == secp256k1.PubKeyFormatUncompressed
	default:
		return false
	}
}

// parseDERLax parses a DER signature the way the reference client did before
// BIP66: lengths may use the long form, integers may carry leading zeros and
// trailing garbage after S is ignored.  Values that do not fit in 32 bytes or
// overflow the group order are returned as zero so the signature fails to
// verify instead of failing to parse.
func parseDERLax(sig []byte) (r, s secp256k1.ModNScalar, ok bool) {
	pos := 0
	n := len(sig)

	// sequence tag
	if pos == n || sig[pos] != 0x30 {
		return r, s, false
	}
	pos++

	// sequence length, skipped
	if pos == n {
		return r, s, false
	}

	lenByte := int(sig[pos])
	pos++

	if lenByte&0x80 != 0 {
		lenByte -= 0x80
		if lenByte > n-pos {
			return r, s, false
		}

		pos += lenByte
	}

	rPos, rLen, pos, ok := readLaxInteger(sig, pos)
	if !ok {
		return r, s, false
	}

	sPos, sLen, _, ok := readLaxInteger(sig, pos)
	if !ok {
		return r, s, false
	}

	var rb, sb [32]byte

	overflow := !copyLaxInteger(rb[:], sig[rPos:rPos+rLen])
	if !overflow {
		overflow = !copyLaxInteger(sb[:], sig[sPos:sPos+sLen])
	}

	if !overflow {
		overflow = r.SetBytes(&rb) != 0
	}

	if !overflow {
		overflow = s.SetBytes(&sb) != 0
	}

	if overflow {
		r.SetInt(0)
		s.SetInt(0)
	}

	return r, s, true
}

func readLaxInteger(sig []byte, pos int) (start, length, next int, ok bool) {
	n := len(sig)

	if pos == n || sig[pos] != 0x02 {
		return 0, 0, pos, false
	}
	pos++

	if pos == n {
		return 0, 0, pos, false
	}

	lenByte := int(sig[pos])
	pos++

	if lenByte&0x80 != 0 {
		lenByte -= 0x80
		if lenByte > n-pos {
			return 0, 0, pos, false
		}

		for lenByte > 0 && sig[pos] == 0 {
			pos++
			lenByte--
		}

		if lenByte >= 8 {
			return 0, 0, pos, false
		}

		length = 0
		for lenByte > 0 {
			length = (length << 8) + int(sig[pos])
			pos++
			lenByte--
		}
	} else {
		length = lenByte
	}

	if length > n-pos {
		return 0, 0, pos, false
	}

	return pos, length, pos + length, true
}

// copyLaxInteger right aligns the big endian integer b, without leading zeros,
// into dst and reports whether it fit.
func copyLaxInteger(dst, b []byte) bool {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}

	if len(b) > len(dst) {
		return false
	}

	copy(dst[len(dst)-len(b):], b)

	return true
}
