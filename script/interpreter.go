package script

import (
	"fmt"
)

const (
	// MaxOpsPerScript bounds the non push operations of one script, including
	// the keys of every CHECKMULTISIG.
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultisig bounds the key count of CHECKMULTISIG.
	MaxPubKeysPerMultisig = 20
)

// Interpreter evaluates scripts.  It holds no state of its own, so one value
// may be used by any number of goroutines as long as each evaluation has its
// own Context.
type Interpreter struct{}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// RunScripts evaluates the unlocking script of an input followed by the
// locking script of the output it spends and reports whether the spend is
// authorised.  Every failure, whatever its cause, is false.
func (i *Interpreter) RunScripts(unlocking, locking *Script, ctx *Context) bool {
	if unlocking == nil || locking == nil || ctx == nil || ctx.Input == nil {
		return false
	}

	if ctx.Params.IsHF20181115Enabled(ctx.BlockHeight) && !unlocking.IsPushOnly() {
		return false
	}

	stack := NewStack()

	if !i.execute(unlocking, stack, ctx) {
		return false
	}

	p2sh := ctx.Params.IsBIP16Enabled(ctx.BlockHeight) && locking.IsPayToScriptHash()

	var p2shStack *Stack
	if p2sh {
		p2shStack = stack.Clone()
	}

	stack.ClearAlt()

	if !i.execute(locking, stack, ctx) {
		return false
	}

	if !topIsTrue(stack) {
		return false
	}

	if !p2sh {
		return true
	}

	if !unlocking.IsPushOnly() {
		return false
	}

	redeemBytes, ok := p2shStack.Pop()
	if !ok {
		return false
	}

	if !i.execute(Parse(redeemBytes), p2shStack, ctx) {
		return false
	}

	return topIsTrue(p2shStack)
}

func topIsTrue(stack *Stack) bool {
	top, ok := stack.Peek(0)
	return ok && top.AsBoolean()
}

// execution is the state of running a single script.
type execution struct {
	ctx        *Context
	stack      *Stack
	conditions []bool
	opCount    int
}

func (i *Interpreter) execute(s *Script, stack *Stack, ctx *Context) bool {
	if s.Err() != nil || len(s.Bytes()) > MaxScriptSize {
		return false
	}

	ctx.setCurrentScript(s)

	e := &execution{
		ctx:   ctx,
		stack: stack,
	}

	for idx, op := range s.Operations() {
		ctx.scriptIndex = idx + 1

		if len(op.Data) > MaxValueSize {
			return false
		}

		if !op.Opcode.IsPush() {
			e.opCount++
			if e.opCount > MaxOpsPerScript {
				return false
			}
		}

		// disabled opcodes fail even in a branch that is not taken
		if e.isDisabled(op) {
			return false
		}

		if e.executing() || (op.Opcode >= OpIF && op.Opcode <= OpENDIF) {
			if !e.apply(op) {
				return false
			}
		}

		if stack.Size() > MaxStackSize {
			return false
		}
	}

	return len(e.conditions) == 0
}

func (e *execution) executing() bool {
	for _, c := range e.conditions {
		if !c {
			return false
		}
	}

	return true
}

func (e *execution) isDisabled(op Operation) bool {
	switch op.Opcode {
	case OpCAT, OpSPLIT, OpAND, OpOR, OpXOR, OpDIV, OpMOD, OpNUM2BIN, OpBIN2NUM:
		return !e.ctx.Params.IsHF20180515Enabled(e.ctx.BlockHeight)
	}

	return op.Kind == KindDisabled
}

// apply executes op.  Each kind has its own handler.
func (e *execution) apply(op Operation) bool {
	switch op.Kind {
	case KindPushValue:
		return e.applyPush(op)
	case KindFlowControl:
		return e.applyFlowControl(op)
	case KindStack:
		return e.applyStack(op)
	case KindSplice:
		return e.applySplice(op)
	case KindBitwise:
		return e.applyBitwise(op)
	case KindComparison:
		return e.applyComparison(op)
	case KindArithmetic:
		return e.applyArithmetic(op)
	case KindCryptographic:
		return e.applyCryptographic(op)
	case KindLockTime:
		return e.applyLockTime(op)
	case KindNop:
		return true
	case KindDisabled, KindInvalid:
		return false
	default:
		panic(fmt.Sprintf("script: no handler for %s operations (%s)", op.Kind, op.Opcode))
	}
}

func (e *execution) requireMinimal() bool {
	return e.ctx.requireMinimal()
}

func (e *execution) popInteger() (int64, bool) {
	return e.stack.PopInteger(DefaultNumberSize, e.requireMinimal())
}

func (e *execution) applyPush(op Operation) bool {
	switch {
	case op.Opcode <= OpPUSHDATA4:
		if e.requireMinimal() && !checkMinimalPush(op) {
			return false
		}

		e.stack.Push(Value(op.Data))
	case op.Opcode == Op1NEGATE:
		e.stack.Push(NewValueFromInteger(-1))
	case op.Opcode >= OpTRUE && op.Opcode <= Op16:
		e.stack.Push(NewValueFromInteger(int64(op.Opcode-OpTRUE) + 1))
	default:
		return false
	}

	return true
}

func (e *execution) applyFlowControl(op Operation) bool {
	switch op.Opcode {
	case OpNOP:
		return true

	case OpIF, OpNOTIF:
		value := false

		if e.executing() {
			condition, ok := e.stack.PopBoolean()
			if !ok {
				return false
			}

			value = condition
			if op.Opcode == OpNOTIF {
				value = !value
			}
		}

		e.conditions = append(e.conditions, value)

		return true

	case OpELSE:
		if len(e.conditions) == 0 {
			return false
		}

		e.conditions[len(e.conditions)-1] = !e.conditions[len(e.conditions)-1]

		return true

	case OpENDIF:
		if len(e.conditions) == 0 {
			return false
		}

		e.conditions = e.conditions[:len(e.conditions)-1]

		return true

	case OpVERIFY:
		value, ok := e.stack.PopBoolean()
		return ok && value

	case OpRETURN:
		return false
	}

	return false
}
