package script

import "bytes"

func (e *execution) applyStack(op Operation) bool {
	s := e.stack

	switch op.Opcode {
	case OpTOALTSTACK:
		v, ok := s.Pop()
		if !ok {
			return false
		}

		s.PushAlt(v)

	case OpFROMALTSTACK:
		v, ok := s.PopAlt()
		if !ok {
			return false
		}

		s.Push(v)

	case Op2DROP:
		if s.Len() < 2 {
			return false
		}

		s.Pop()
		s.Pop()

	case Op2DUP:
		return e.dup(2, 0)

	case Op3DUP:
		return e.dup(3, 0)

	case Op2OVER:
		// x1 x2 x3 x4 -> x1 x2 x3 x4 x1 x2
		return e.dup(2, 2)

	case Op2ROT:
		// x1 x2 x3 x4 x5 x6 -> x3 x4 x5 x6 x1 x2
		if s.Len() < 6 {
			return false
		}

		x1, _ := s.Remove(5)
		x2, _ := s.Remove(4)
		s.Push(x1)
		s.Push(x2)

	case Op2SWAP:
		// x1 x2 x3 x4 -> x3 x4 x1 x2
		if s.Len() < 4 {
			return false
		}

		s.Swap(3, 1)
		s.Swap(2, 0)

	case OpIFDUP:
		v, ok := s.Peek(0)
		if !ok {
			return false
		}

		if v.AsBoolean() {
			s.Push(v)
		}

	case OpDEPTH:
		s.Push(NewValueFromInteger(int64(s.Len())))

	case OpDROP:
		if _, ok := s.Pop(); !ok {
			return false
		}

	case OpDUP:
		return e.dup(1, 0)

	case OpNIP:
		if _, ok := s.Remove(1); !ok {
			return false
		}

	case OpOVER:
		return e.dup(1, 1)

	case OpPICK, OpROLL:
		n, ok := e.popInteger()
		if !ok || n < 0 || n >= int64(s.Len()) {
			return false
		}

		var v Value
		if op.Opcode == OpROLL {
			v, _ = s.Remove(int(n))
		} else {
			v, _ = s.Peek(int(n))
		}

		s.Push(v)

	case OpROT:
		// x1 x2 x3 -> x2 x3 x1
		v, ok := s.Remove(2)
		if !ok {
			return false
		}

		s.Push(v)

	case OpSWAP:
		return s.Swap(0, 1)

	case OpTUCK:
		// x1 x2 -> x2 x1 x2
		if s.Len() < 2 {
			return false
		}

		x2, _ := s.Pop()
		x1, _ := s.Pop()
		s.Push(x2)
		s.Push(x1)
		s.Push(x2)

	default:
		return false
	}

	return true
}

// dup copies count items, the deepest of which is at depth+count-1, onto the
// top of the stack in their original order.
func (e *execution) dup(count, depth int) bool {
	if e.stack.Len() < count+depth {
		return false
	}

	for i := 0; i < count; i++ {
		v, _ := e.stack.Peek(depth + count - 1)
		e.stack.Push(v)
	}

	return true
}

func (e *execution) applySplice(op Operation) bool {
	s := e.stack

	switch op.Opcode {
	case OpCAT:
		b, ok1 := s.Pop()
		a, ok2 := s.Pop()

		if !ok1 || !ok2 || len(a)+len(b) > MaxValueSize {
			return false
		}

		v := make(Value, 0, len(a)+len(b))
		v = append(v, a...)
		s.Push(append(v, b...))

	case OpSPLIT:
		n, ok := e.popInteger()
		if !ok {
			return false
		}

		data, ok := s.Pop()
		if !ok || n < 0 || n > int64(len(data)) {
			return false
		}

		s.Push(append(Value{}, data[:n]...))
		s.Push(append(Value{}, data[n:]...))

	case OpNUM2BIN:
		size, ok := e.popInteger()
		if !ok || size < 0 || size > MaxValueSize {
			return false
		}

		raw, ok := s.Pop()
		if !ok {
			return false
		}

		num := minimallyEncode(raw)
		if int64(len(num)) > size {
			return false
		}

		if int64(len(num)) == size {
			s.Push(num)
			break
		}

		out := make(Value, size)
		signBit := byte(0)

		if len(num) > 0 {
			copy(out, num)
			signBit = num[len(num)-1] & 0x80
			out[len(num)-1] &= 0x7f
		}

		out[size-1] |= signBit
		s.Push(out)

	case OpBIN2NUM:
		v, ok := s.Pop()
		if !ok {
			return false
		}

		num := minimallyEncode(v)
		if len(num) > DefaultNumberSize {
			return false
		}

		s.Push(num)

	case OpSIZE:
		v, ok := s.Peek(0)
		if !ok {
			return false
		}

		s.Push(NewValueFromInteger(int64(len(v))))

	default:
		return false
	}

	return true
}

func (e *execution) applyBitwise(op Operation) bool {
	b, ok1 := e.stack.Pop()
	a, ok2 := e.stack.Pop()

	if !ok1 || !ok2 || len(a) != len(b) {
		return false
	}

	out := make(Value, len(a))

	for i := range a {
		switch op.Opcode {
		case OpAND:
			out[i] = a[i] & b[i]
		case OpOR:
			out[i] = a[i] | b[i]
		case OpXOR:
			out[i] = a[i] ^ b[i]
		default:
			return false
		}
	}

	e.stack.Push(out)

	return true
}

func (e *execution) applyComparison(op Operation) bool {
	b, ok1 := e.stack.Pop()
	a, ok2 := e.stack.Pop()

	if !ok1 || !ok2 {
		return false
	}

	equal := bytes.Equal(a, b)

	if op.Opcode == OpEQUALVERIFY {
		return equal
	}

	e.stack.Push(NewValueFromBoolean(equal))

	return true
}
