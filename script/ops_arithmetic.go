package script

func (e *execution) applyArithmetic(op Operation) bool {
	switch op.Opcode {
	case Op1ADD, Op1SUB, OpNEGATE, OpABS, OpNOT, Op0NOTEQUAL:
		return e.unaryArithmetic(op.Opcode)
	case OpWITHIN:
		maximum, ok1 := e.popInteger()
		minimum, ok2 := e.popInteger()
		x, ok3 := e.popInteger()

		if !ok1 || !ok2 || !ok3 {
			return false
		}

		e.stack.Push(NewValueFromBoolean(minimum <= x && x < maximum))

		return true
	default:
		return e.binaryArithmetic(op.Opcode)
	}
}

func (e *execution) unaryArithmetic(opcode Opcode) bool {
	a, ok := e.popInteger()
	if !ok {
		return false
	}

	var result int64

	switch opcode {
	case Op1ADD:
		result = a + 1
	case Op1SUB:
		result = a - 1
	case OpNEGATE:
		result = -a
	case OpABS:
		result = a
		if a < 0 {
			result = -a
		}
	case OpNOT:
		result = boolToInt(a == 0)
	case Op0NOTEQUAL:
		result = boolToInt(a != 0)
	default:
		return false
	}

	e.stack.Push(NewValueFromInteger(result))

	return true
}

func (e *execution) binaryArithmetic(opcode Opcode) bool {
	b, ok1 := e.popInteger()
	a, ok2 := e.popInteger()

	if !ok1 || !ok2 {
		return false
	}

	var result int64

	switch opcode {
	case OpADD:
		result = a + b
	case OpSUB:
		result = a - b
	case OpDIV:
		if b == 0 {
			return false
		}

		result = a / b
	case OpMOD:
		if b == 0 {
			return false
		}

		result = a % b
	case OpBOOLAND:
		result = boolToInt(a != 0 && b != 0)
	case OpBOOLOR:
		result = boolToInt(a != 0 || b != 0)
	case OpNUMEQUAL, OpNUMEQUALVERIFY:
		result = boolToInt(a == b)
	case OpNUMNOTEQUAL:
		result = boolToInt(a != b)
	case OpLESSTHAN:
		result = boolToInt(a < b)
	case OpGREATERTHAN:
		result = boolToInt(a > b)
	case OpLESSTHANOREQUAL:
		result = boolToInt(a <= b)
	case OpGREATERTHANOREQUAL:
		result = boolToInt(a >= b)
	case OpMIN:
		result = min(a, b)
	case OpMAX:
		result = max(a, b)
	default:
		return false
	}

	if opcode == OpNUMEQUALVERIFY {
		return result == 1
	}

	e.stack.Push(NewValueFromInteger(result))

	return true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
