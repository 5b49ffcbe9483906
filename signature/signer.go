package signature

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// schnorrNonceVersion separates the RFC6979 nonces of Schnorr signatures from
// those used for ECDSA with the same key and digest.
var schnorrNonceVersion = []byte("Schnorr+SHA256  ")

// SignECDSA returns a canonical (strict DER, low S) signature over digest,
// without a hash type.
func SignECDSA(key *secp256k1.PrivateKey, digest []byte) []byte {
	return ecdsa.Sign(key, digest).Serialize()
}

// SignSchnorr returns a 64 byte Schnorr signature over digest that
// VerifySchnorr accepts.  The nonce is derived deterministically.
func SignSchnorr(key *secp256k1.PrivateKey, digest []byte) []byte {
	privKey := key.Serialize()
	pubKey := key.PubKey()

	for iteration := uint32(0); ; iteration++ {
		k := secp256k1.NonceRFC6979(privKey, digest, nil, schnorrNonceVersion, iteration)

		var point secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(k, &point)
		point.ToAffine()

		// -R has a residue y coordinate whenever R does not
		var y secp256k1.FieldVal
		if !y.SquareRootVal(&point.Y) {
			k.Negate()
		}

		r := point.X.Bytes()
		e := schnorrChallenge(r[:], pubKey, digest)

		var s secp256k1.ModNScalar
		s.Set(&e).Mul(&key.Key).Add(k)

		if s.IsZero() {
			continue
		}

		sBytes := s.Bytes()

		sig := make([]byte, 0, SchnorrSignatureSize)
		sig = append(sig, r[:]...)

		return append(sig, sBytes[:]...)
	}
}
