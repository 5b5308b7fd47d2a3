package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind names a recognised runtime error condition.
type FaultKind string

const (
	FaultTypeMismatch     FaultKind = "TypeMismatchError"
	FaultArityMismatch    FaultKind = "ArityMismatchError"
	FaultUnboundSymbol    FaultKind = "UnboundSymbolError"
	FaultDuplicateBinding FaultKind = "DuplicateBindingError"
	FaultDivisionByZero   FaultKind = "DivisionByZeroError"
	FaultStackUnderflow   FaultKind = "StackUnderflowError"
	FaultStackOverflow    FaultKind = "StackOverflowError"
	FaultPoolExhausted    FaultKind = "PoolExhaustedError"
	FaultOutOfBounds      FaultKind = "OutOfBoundsError"
	FaultMissingField     FaultKind = "MissingFieldError"
	FaultInvalidArgument  FaultKind = "InvalidArgumentError"
	FaultInvalidProgram   FaultKind = "InvalidProgramError"
)

// Fault is a runtime error that unwinds the call chain. Trace lists the
// aborted frames, innermost first.
type Fault struct {
	Kind    FaultKind
	Message string
	Trace   []string
}

// NewFault formats a fault of the given kind.
func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	for _, name := range f.Trace {
		b.WriteString("\n\tin ")
		b.WriteString(name)
	}
	return b.String()
}

// Is matches faults by kind so callers can use errors.Is with a template.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Kind == f.Kind && other.Message == ""
}

// FaultOf extracts the fault kind from err, reporting false for other errors.
func FaultOf(err error) (FaultKind, bool) {
	var fault *Fault
	if errors.As(err, &fault) && fault != nil {
		return fault.Kind, true
	}
	return "", false
}
