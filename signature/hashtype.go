package signature

// HashType is the flag set appended to every transaction signature that selects
// which parts of the spending transaction the signature commits to.
type HashType uint32

const (
	SigHashAll          HashType = 0x01
	SigHashNone         HashType = 0x02
	SigHashSingle       HashType = 0x03
	SigHashForkID       HashType = 0x40
	SigHashAnyoneCanPay HashType = 0x80

	sigHashBaseMask HashType = 0x1f
)

// BaseType returns ALL, NONE or SINGLE, or an undefined value for malformed
// hash types.
func (h HashType) BaseType() HashType {
	return h & sigHashBaseMask
}

func (h HashType) HasForkID() bool {
	return h&SigHashForkID != 0
}

func (h HashType) HasAnyoneCanPay() bool {
	return h&SigHashAnyoneCanPay != 0
}

// IsDefined reports whether the hash type is one of the defined combinations of
// a base type with the ANYONECANPAY and FORKID modifiers.
func (h HashType) IsDefined() bool {
	base := h &^ (SigHashAnyoneCanPay | SigHashForkID)
	return base >= SigHashAll && base <= SigHashSingle
}

// HashTypeFromSignature returns the hash type byte that ends a transaction
// signature.  An empty signature yields zero.
func HashTypeFromSignature(sig []byte) HashType {
	if len(sig) == 0 {
		return 0
	}

	return HashType(sig[len(sig)-1])
}
