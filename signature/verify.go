package signature

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// VerifyECDSA checks a DER signature (without hash type) over digest.  Parsing
// is lax so that signatures from before BIP66 still verify; callers enforce
// strict encoding where the active rules require it.  High S values verify.
func VerifyECDSA(der, pubKey, digest []byte) bool {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	r, s, ok := parseDERLax(der)
	if !ok || r.IsZero() || s.IsZero() {
		return false
	}

	return ecdsa.NewSignature(&r, &s).Verify(digest, key)
}

// VerifySchnorr checks a 64 byte Schnorr signature r || s over digest using the
// scheme activated on May 15 2019:
//
//	e = sha256(r || compressed(P) || m) mod n
//	R = sG - eP
//
// R must not be infinity, its y coordinate must be a quadratic residue and its
// x coordinate must equal r.
func VerifySchnorr(sig, pubKey, digest []byte) bool {
	if len(sig) != SchnorrSignatureSize {
		return false
	}

	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	var r secp256k1.FieldVal
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}

	e := schnorrChallenge(sig[:32], key, digest)
	e.Negate()

	var p, sG, eP, point secp256k1.JacobianPoint

	key.AsJacobian(&p)
	secp256k1.ScalarBaseMultNonConst(&s, &sG)
	secp256k1.ScalarMultNonConst(&e, &p, &eP)
	secp256k1.AddNonConst(&sG, &eP, &point)

	if point.Z.IsZero() {
		return false
	}

	point.ToAffine()

	var y secp256k1.FieldVal
	if !y.SquareRootVal(&point.Y) {
		return false
	}

	return point.X.Equals(&r)
}

func schnorrChallenge(r []byte, key *secp256k1.PublicKey, digest []byte) secp256k1.ModNScalar {
	h := sha256.New()
	h.Write(r)
	h.Write(key.SerializeCompressed())
	h.Write(digest)

	var e secp256k1.ModNScalar
	e.SetByteSlice(h.Sum(nil))

	return e
}
