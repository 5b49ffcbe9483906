package script

// MaxStackSize bounds the combined number of elements on the main and alt
// stacks.
const MaxStackSize = 1000

// Stack is the data stack of a script evaluation together with its alt stack.
// Depth 0 is the top of the stack.
type Stack struct {
	items []Value
	alt   []Value
}

func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) Push(v Value) {
	s.items = append(s.items, v)
}

func (s *Stack) Pop() (Value, bool) {
	if len(s.items) == 0 {
		return nil, false
	}

	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]

	return v, true
}

// PopInteger pops the top value and decodes it as a number.
func (s *Stack) PopInteger(maxLen int, requireMinimal bool) (int64, bool) {
	v, ok := s.Pop()
	if !ok {
		return 0, false
	}

	return v.AsInteger(maxLen, requireMinimal)
}

func (s *Stack) PopBoolean() (bool, bool) {
	v, ok := s.Pop()
	if !ok {
		return false, false
	}

	return v.AsBoolean(), true
}

func (s *Stack) Peek(depth int) (Value, bool) {
	if depth < 0 || depth >= len(s.items) {
		return nil, false
	}

	return s.items[len(s.items)-1-depth], true
}

// Remove takes the value at depth out of the stack.
func (s *Stack) Remove(depth int) (Value, bool) {
	if depth < 0 || depth >= len(s.items) {
		return nil, false
	}

	idx := len(s.items) - 1 - depth
	v := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)

	return v, true
}

// Swap exchanges the values at depths i and j.
func (s *Stack) Swap(i, j int) bool {
	if i < 0 || j < 0 || i >= len(s.items) || j >= len(s.items) {
		return false
	}

	top := len(s.items) - 1
	s.items[top-i], s.items[top-j] = s.items[top-j], s.items[top-i]

	return true
}

func (s *Stack) PushAlt(v Value) {
	s.alt = append(s.alt, v)
}

func (s *Stack) PopAlt() (Value, bool) {
	if len(s.alt) == 0 {
		return nil, false
	}

	v := s.alt[len(s.alt)-1]
	s.alt = s.alt[:len(s.alt)-1]

	return v, true
}

// Len is the depth of the main stack.
func (s *Stack) Len() int {
	return len(s.items)
}

// Size counts the elements of both stacks.
func (s *Stack) Size() int {
	return len(s.items) + len(s.alt)
}

// Clone copies the main stack.  The alt stack does not survive between
// scripts, so it is not copied.
func (s *Stack) Clone() *Stack {
	items := make([]Value, len(s.items))
	copy(items, s.items)

	return &Stack{items: items}
}

// ClearAlt drops the alt stack between the scripts of one evaluation.
func (s *Stack) ClearAlt() {
	s.alt = nil
}
