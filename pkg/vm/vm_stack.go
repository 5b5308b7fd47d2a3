package vm

import "fur/runtime-go/pkg/runtime"

// DefaultStackCapacity bounds the operand stack unless configured otherwise.
const DefaultStackCapacity = 256

// Stack is the operand stack shared by every frame of a thread. A capacity of
// zero means unbounded.
type Stack struct {
	items    []runtime.Object
	capacity int
}

// NewStack creates an operand stack.
func NewStack(capacity int) *Stack {
	if capacity < 0 {
		capacity = 0
	}
	initial := capacity
	if initial == 0 || initial > 16 {
		initial = 16
	}
	return &Stack{items: make([]runtime.Object, 0, initial), capacity: capacity}
}

// Push takes ownership of value.
func (s *Stack) Push(value runtime.Object) error {
	if s.capacity > 0 && len(s.items) >= s.capacity {
		return runtime.NewFault(runtime.FaultStackOverflow, "operand stack exceeded %d entries", s.capacity)
	}
	s.items = append(s.items, value)
	return nil
}

// Pop transfers ownership of the top value to the caller.
func (s *Stack) Pop() (runtime.Object, error) {
	if len(s.items) == 0 {
		return nil, runtime.NewFault(runtime.FaultStackUnderflow, "operand stack is empty")
	}
	last := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return last, nil
}

// Peek returns the top value without popping it.
func (s *Stack) Peek() (runtime.Object, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

// IsEmpty reports whether the stack holds no objects.
func (s *Stack) IsEmpty() bool { return len(s.items) == 0 }

// Len returns the number of objects on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Snapshot captures the current depth for a later Rewind.
func (s *Stack) Snapshot() int {
	return len(s.items)
}

// Rewind pops and releases everything pushed since snapshot. Only used while
// unwinding a fault.
func (s *Stack) Rewind(snapshot int) {
	if snapshot < 0 {
		snapshot = 0
	}
	for len(s.items) > snapshot {
		value, _ := s.Pop()
		runtime.Release(value)
	}
}

// Release empties the stack, releasing every value.
func (s *Stack) Release() {
	s.Rewind(0)
}

// Each visits values bottom to top.
func (s *Stack) Each(visit func(runtime.Object)) {
	for _, value := range s.items {
		visit(value)
	}
}
