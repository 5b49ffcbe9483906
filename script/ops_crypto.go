package script

import (
	"crypto/sha1" //nolint:gosec // OP_SHA1 is part of the protocol
	"crypto/sha256"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/signature"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // OP_RIPEMD160 is part of the protocol
)

func (e *execution) applyCryptographic(op Operation) bool {
	switch op.Opcode {
	case OpRIPEMD160, OpSHA1, OpSHA256, OpHASH160, OpHASH256:
		v, ok := e.stack.Pop()
		if !ok {
			return false
		}

		e.stack.Push(hashValue(op.Opcode, v))

		return true

	case OpCODESEPARATOR:
		e.ctx.lastCodeSeparatorIndex = e.ctx.scriptIndex
		return true

	case OpCHECKSIG, OpCHECKSIGVERIFY:
		return e.checkSig(op.Opcode == OpCHECKSIGVERIFY)

	case OpCHECKMULTISIG, OpCHECKMULTISIGVERIFY:
		return e.checkMultiSig(op.Opcode == OpCHECKMULTISIGVERIFY)

	case OpCHECKDATASIG, OpCHECKDATASIGVERIFY:
		if !e.ctx.Params.IsHF20181115Enabled(e.ctx.BlockHeight) {
			return false
		}

		return e.checkDataSig(op.Opcode == OpCHECKDATASIGVERIFY)
	}

	return false
}

func hashValue(opcode Opcode, v Value) Value {
	switch opcode {
	case OpRIPEMD160:
		return ripemd160Sum(v)
	case OpSHA1:
		h := sha1.Sum(v) //nolint:gosec // protocol
		return h[:]
	case OpSHA256:
		h := sha256.Sum256(v)
		return h[:]
	case OpHASH160:
		h := sha256.Sum256(v)
		return ripemd160Sum(h[:])
	default:
		h := chainhash.DoubleHashB(v)
		return h
	}
}

func ripemd160Sum(b []byte) Value {
	h := ripemd160.New()
	h.Write(b)

	return h.Sum(nil)
}

func (e *execution) checkSig(verify bool) bool {
	pubKey, ok1 := e.stack.Pop()
	sig, ok2 := e.stack.Pop()

	if !ok1 || !ok2 {
		return false
	}

	if !e.checkSignatureEncoding(sig) || !e.checkPublicKeyEncoding(pubKey) {
		return false
	}

	valid := e.verifyTransactionSignature(sig, pubKey, e.scriptCode(sig))

	if !valid && len(sig) > 0 && e.ctx.nullFail() {
		return false
	}

	if verify {
		return valid
	}

	e.stack.Push(NewValueFromBoolean(valid))

	return true
}

// checkMultiSig matches signatures against keys in order: a signature may skip
// keys that do not match it but can never match a key before the one the
// previous signature matched.
func (e *execution) checkMultiSig(verify bool) bool {
	ctx := e.ctx

	keyCount, ok := e.popInteger()
	if !ok || keyCount < 0 || keyCount > MaxPubKeysPerMultisig {
		return false
	}

	e.opCount += int(keyCount)
	if e.opCount > MaxOpsPerScript {
		return false
	}

	keys := make([]Value, keyCount)
	for i := range keys {
		if keys[i], ok = e.stack.Pop(); !ok {
			return false
		}
	}

	sigCount, ok := e.popInteger()
	if !ok || sigCount < 0 || sigCount > keyCount {
		return false
	}

	sigs := make([]Value, sigCount)
	for i := range sigs {
		if sigs[i], ok = e.stack.Pop(); !ok {
			return false
		}
	}

	// the dummy element consumed by the off-by-one in CHECKMULTISIG
	if _, ok = e.stack.Pop(); !ok {
		return false
	}

	scriptCode := e.scriptCode(sigs...)

	valid := true
	sigIndex, keyIndex := 0, 0
	sigsLeft, keysLeft := len(sigs), len(keys)

	for valid && sigsLeft > 0 {
		sig := sigs[sigIndex]
		key := keys[keyIndex]

		if !e.checkSignatureEncoding(sig) || !e.checkPublicKeyEncoding(key) {
			return false
		}

		// Schnorr signatures are only accepted by the single signature opcodes
		if ctx.schnorrEnabled() && len(sig) == signature.SchnorrSignatureSize+1 {
			return false
		}

		if e.verifyTransactionSignature(sig, key, scriptCode) {
			sigIndex++
			sigsLeft--
		}

		keyIndex++
		keysLeft--

		if sigsLeft > keysLeft {
			valid = false
		}
	}

	if !valid && ctx.nullFail() {
		for _, sig := range sigs {
			if len(sig) > 0 {
				return false
			}
		}
	}

	if verify {
		return valid
	}

	e.stack.Push(NewValueFromBoolean(valid))

	return true
}

func (e *execution) checkDataSig(verify bool) bool {
	pubKey, ok1 := e.stack.Pop()
	message, ok2 := e.stack.Pop()
	sig, ok3 := e.stack.Pop()

	if !ok1 || !ok2 || !ok3 {
		return false
	}

	if !e.checkDataSignatureEncoding(sig) || !e.checkPublicKeyEncoding(pubKey) {
		return false
	}

	valid := false

	if len(sig) > 0 {
		digest := sha256.Sum256(message)

		if e.ctx.schnorrEnabled() && len(sig) == signature.SchnorrSignatureSize {
			valid = signature.VerifySchnorr(sig, pubKey, digest[:])
		} else {
			valid = signature.VerifyECDSA(sig, pubKey, digest[:])
		}
	}

	// NULLFAIL predates the data signature opcodes
	if !valid && len(sig) > 0 {
		return false
	}

	if verify {
		return valid
	}

	e.stack.Push(NewValueFromBoolean(valid))

	return true
}

// scriptCode is the part of the current script signed by a transaction
// signature: everything after the last executed OP_CODESEPARATOR, with the
// signatures themselves removed for legacy digests.
func (e *execution) scriptCode(sigs ...Value) []byte {
	ctx := e.ctx
	code := ctx.currentScript.subscript(ctx.lastCodeSeparatorIndex)

	for _, sig := range sigs {
		if ctx.forkIDEnabled() && signature.HashTypeFromSignature(sig).HasForkID() {
			continue
		}

		code = signature.FindAndDelete(code, sig)
	}

	return code
}

func (e *execution) verifyTransactionSignature(sig, pubKey Value, scriptCode []byte) bool {
	if len(sig) == 0 {
		return false
	}

	ctx := e.ctx
	body, hashType := sig.AsSignature()

	digest := ctx.hasher.SignatureHash(ctx.InputIndex, scriptCode, ctx.amount(), hashType, ctx.forkIDEnabled())

	if ctx.schnorrEnabled() && len(body) == signature.SchnorrSignatureSize {
		return signature.VerifySchnorr(body, pubKey.AsPublicKey(), digest[:])
	}

	return signature.VerifyECDSA(body, pubKey.AsPublicKey(), digest[:])
}

// checkSignatureEncoding applies the encoding rules active at the block
// height to a transaction signature.  An empty signature is always allowed.
func (e *execution) checkSignatureEncoding(sig Value) bool {
	if len(sig) == 0 {
		return true
	}

	ctx := e.ctx
	isSchnorr := ctx.schnorrEnabled() && len(sig) == signature.SchnorrSignatureSize+1

	if !isSchnorr {
		if (ctx.derSignatures() || ctx.lowS() || ctx.strictEncoding()) && !signature.IsStrictDERSignature(sig) {
			return false
		}

		if ctx.lowS() && !signature.IsLowS(sig[:len(sig)-1]) {
			return false
		}
	}

	if ctx.strictEncoding() {
		hashType := signature.HashTypeFromSignature(sig)
		if !hashType.IsDefined() {
			return false
		}

		if hashType.HasForkID() != ctx.forkIDEnabled() {
			return false
		}
	}

	return true
}

// checkDataSignatureEncoding is checkSignatureEncoding for signatures without a
// hash type.
func (e *execution) checkDataSignatureEncoding(sig Value) bool {
	if len(sig) == 0 {
		return true
	}

	ctx := e.ctx

	if ctx.schnorrEnabled() && len(sig) == signature.SchnorrSignatureSize {
		return true
	}

	if (ctx.derSignatures() || ctx.lowS() || ctx.strictEncoding()) && !signature.IsStrictDERDataSignature(sig) {
		return false
	}

	if ctx.lowS() && !signature.IsLowS(sig) {
		return false
	}

	return true
}

func (e *execution) checkPublicKeyEncoding(pubKey Value) bool {
	if e.ctx.strictEncoding() && !signature.IsStrictPublicKey(pubKey) {
		return false
	}

	return true
}
