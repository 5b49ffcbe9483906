package script

const (
	lockTimeThreshold = 500000000

	sequenceFinal          = 0xffffffff
	sequenceDisableFlag    = 1 << 31
	sequenceTypeFlag       = 1 << 22
	sequenceLockTimeMask   = 0x0000ffff
	minSequenceLockVersion = 2
)

// applyLockTime runs CHECKLOCKTIMEVERIFY and CHECKSEQUENCEVERIFY, which behave
// as NOP2 and NOP3 before their activation.  Neither pops its operand.
func (e *execution) applyLockTime(op Operation) bool {
	ctx := e.ctx

	switch op.Opcode {
	case OpCHECKLOCKTIMEVERIFY:
		if !ctx.Params.IsBIP65Enabled(ctx.BlockHeight) {
			return true
		}

		lockTime, ok := e.peekLockTimeOperand()
		if !ok {
			return false
		}

		return checkLockTime(ctx, lockTime)

	case OpCHECKSEQUENCEVERIFY:
		if !ctx.Params.IsCSVEnabled(ctx.BlockHeight) {
			return true
		}

		sequence, ok := e.peekLockTimeOperand()
		if !ok {
			return false
		}

		if sequence&sequenceDisableFlag != 0 {
			return true
		}

		return checkSequence(ctx, sequence)
	}

	return false
}

func (e *execution) peekLockTimeOperand() (int64, bool) {
	top, ok := e.stack.Peek(0)
	if !ok {
		return 0, false
	}

	n, ok := top.AsInteger(LockTimeNumberSize, e.requireMinimal())
	if !ok || n < 0 {
		return 0, false
	}

	return n, true
}

func checkLockTime(ctx *Context, lockTime int64) bool {
	txLockTime := int64(ctx.Transaction.LockTime)

	// both must be heights or both must be timestamps
	if (txLockTime < lockTimeThreshold) != (lockTime < lockTimeThreshold) {
		return false
	}

	if lockTime > txLockTime {
		return false
	}

	// a final input disables the transaction lock time
	return ctx.Input.SequenceNumber != sequenceFinal
}

func checkSequence(ctx *Context, sequence int64) bool {
	if ctx.Transaction.Version < minSequenceLockVersion {
		return false
	}

	txSequence := int64(ctx.Input.SequenceNumber)
	if txSequence&sequenceDisableFlag != 0 {
		return false
	}

	const mask = sequenceTypeFlag | sequenceLockTimeMask

	txMasked := txSequence & mask
	masked := sequence & mask

	if (txMasked < sequenceTypeFlag) != (masked < sequenceTypeFlag) {
		return false
	}

	return masked <= txMasked
}
