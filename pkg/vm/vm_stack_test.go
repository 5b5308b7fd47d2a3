package vm

import (
	"testing"

	"fur/runtime-go/pkg/runtime"
)

func TestStack_PushPopOrder(t *testing.T) {
	s := NewStack(0)
	for i := int32(1); i <= 3; i++ {
		if err := s.Push(runtime.Integer(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if top, ok := s.Peek(); !ok || top != runtime.Integer(3) {
		t.Fatalf("Peek = %v, %v", top, ok)
	}
	for want := int32(3); want >= 1; want-- {
		got, err := s.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if got != runtime.Integer(want) {
			t.Fatalf("Pop = %v, want %d", got, want)
		}
	}
	if !s.IsEmpty() {
		t.Fatalf("stack should be empty")
	}
}

func TestStack_UnderflowAndOverflow(t *testing.T) {
	s := NewStack(1)
	if _, err := s.Pop(); err == nil {
		t.Fatalf("expected underflow")
	} else if kind, _ := runtime.FaultOf(err); kind != runtime.FaultStackUnderflow {
		t.Fatalf("kind = %s", kind)
	}
	if err := s.Push(runtime.True); err != nil {
		t.Fatalf("Push: %v", err)
	}
	err := s.Push(runtime.False)
	if kind, _ := runtime.FaultOf(err); kind != runtime.FaultStackOverflow {
		t.Fatalf("err = %v, want stack overflow", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d after rejected push", s.Len())
	}
}

func TestStack_RewindReleasesAboveSnapshot(t *testing.T) {
	base := runtime.Outstanding()
	s := NewStack(0)
	_ = s.Push(runtime.Integer(1))
	mark := s.Snapshot()
	concat, err := runtime.Concatenate(runtime.StringLiteral("a"), runtime.StringLiteral("b"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	_ = s.Push(concat)
	_ = s.Push(runtime.NewList(2))

	s.Rewind(mark)
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if got := runtime.Outstanding(); got != base {
		t.Fatalf("outstanding = %d, want %d", got, base)
	}
}

func TestStack_EachVisitsBottomToTop(t *testing.T) {
	s := NewStack(0)
	_ = s.Push(runtime.Integer(1))
	_ = s.Push(runtime.Integer(2))
	var seen []runtime.Object
	s.Each(func(o runtime.Object) { seen = append(seen, o) })
	if len(seen) != 2 || seen[0] != runtime.Integer(1) || seen[1] != runtime.Integer(2) {
		t.Fatalf("Each visited %v", seen)
	}
}
