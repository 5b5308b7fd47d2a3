package runtime

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Kind identifies the runtime object category.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindStringLiteral
	KindStringConcatenation
	KindClosure
	KindBuiltin
	KindList
	KindStructure
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindStringLiteral:
		return "string_literal"
	case KindStringConcatenation:
		return "string_concatenation"
	case KindClosure:
		return "closure"
	case KindBuiltin:
		return "builtin"
	case KindList:
		return "list"
	case KindStructure:
		return "structure"
	case KindVoid:
		return "void"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Object is the shared behaviour for all runtime values.
type Object interface {
	Kind() Kind
}

// outstanding counts heap objects (concatenations, structures, list backings)
// that have been allocated but not yet released.
var outstanding atomic.Int64

// Outstanding reports how many heap objects are currently unreleased.
func Outstanding() int64 {
	return outstanding.Load()
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

// Boolean is a truth value.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }

// Integer is a signed 32-bit integer.
type Integer int32

func (Integer) Kind() Kind { return KindInteger }

// StringLiteral is immutable program text; copies share the Go string.
type StringLiteral string

func (StringLiteral) Kind() Kind { return KindStringLiteral }

// Void is the value of expressions that produce nothing.
type Void struct{}

func (Void) Kind() Kind { return KindVoid }

var (
	True  Object = Boolean(true)
	False Object = Boolean(false)
	Nil   Object = Void{}
)

//-----------------------------------------------------------------------------
// Callables
//-----------------------------------------------------------------------------

// Closure pairs an entry point with the environment active at its definition.
// The environment reference is structural: it does not keep the environment
// alive, only reachability from a live environment does.
type Closure struct {
	Environment *Environment
	Entry       int
	Name        string
	Parameters  []Symbol
}

func (Closure) Kind() Kind { return KindClosure }

// Arity returns the declared parameter count.
func (c Closure) Arity() int { return len(c.Parameters) }

// CallContext gives builtins access to the calling thread's surroundings.
type CallContext struct {
	Environment *Environment
	Stdout      io.Writer
}

// BuiltinFunc receives its arguments in left-to-right order. Arguments are
// borrowed and released by the caller afterwards, so anything the builtin
// keeps must be rereferenced. The result is owned by the caller.
type BuiltinFunc func(ctx *CallContext, args []Object) (Object, error)

// Builtin is a callable implemented natively. Arity < 0 means variadic.
type Builtin struct {
	Name  string
	Arity int
	Impl  BuiltinFunc
}

func (Builtin) Kind() Kind { return KindBuiltin }

//-----------------------------------------------------------------------------
// Heap objects
//-----------------------------------------------------------------------------

// StringConcatenation is a reference-counted rope node.
type StringConcatenation struct {
	refs  int
	Left  Object
	Right Object
}

func (*StringConcatenation) Kind() Kind { return KindStringConcatenation }

// Concatenate joins two string objects. Both operands are rereferenced, so the
// caller keeps ownership of its handles.
func Concatenate(left, right Object) (Object, error) {
	if !IsString(left) {
		return nil, NewFault(FaultTypeMismatch, "concatenate expects strings, got %s", left.Kind())
	}
	if !IsString(right) {
		return nil, NewFault(FaultTypeMismatch, "concatenate expects strings, got %s", right.Kind())
	}
	outstanding.Add(1)
	return &StringConcatenation{
		refs:  1,
		Left:  Rereference(left),
		Right: Rereference(right),
	}, nil
}

// IsString reports whether the object is a literal or a concatenation.
func IsString(o Object) bool {
	switch o.(type) {
	case StringLiteral, *StringConcatenation:
		return true
	default:
		return false
	}
}

// List is deep-owned: it is never shared, copying duplicates it.
type List struct {
	Items []Object
}

func (*List) Kind() Kind { return KindList }

// NewList allocates an empty list with the given initial capacity.
func NewList(capacity int) *List {
	if capacity < 1 {
		capacity = 1
	}
	outstanding.Add(1)
	return &List{Items: make([]Object, 0, capacity)}
}

// Append adds an item, doubling the backing storage when it is full. The list
// takes ownership of item.
func (l *List) Append(item Object) {
	if len(l.Items) == cap(l.Items) {
		grown := make([]Object, len(l.Items), 2*cap(l.Items))
		copy(grown, l.Items)
		l.Items = grown
	}
	l.Items = append(l.Items, item)
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.Items) }

// ListGet returns the element at index without transferring ownership.
func ListGet(list Object, index Object) (Object, error) {
	l, ok := list.(*List)
	if !ok {
		return nil, NewFault(FaultTypeMismatch, "get expects a list, got %s", list.Kind())
	}
	i, ok := index.(Integer)
	if !ok {
		return nil, NewFault(FaultTypeMismatch, "list index must be an integer, got %s", index.Kind())
	}
	if i < 0 || int(i) >= len(l.Items) {
		return nil, NewFault(FaultOutOfBounds, "list index %d out of range [0, %d)", i, len(l.Items))
	}
	return l.Items[i], nil
}

// Field is one named structure member.
type Field struct {
	Name  Symbol
	Value Object
}

// Structure is a reference-counted record with construction-ordered fields.
type Structure struct {
	refs   int
	Fields []Field
}

func (*Structure) Kind() Kind { return KindStructure }

// NewStructure builds a structure. Every value is rereferenced; the caller
// keeps its own handles.
func NewStructure(names []Symbol, values []Object) (*Structure, error) {
	if len(names) != len(values) {
		return nil, NewFault(FaultArityMismatch, "structure has %d names but %d values", len(names), len(values))
	}
	for i, name := range names {
		for _, prior := range names[:i] {
			if prior == name {
				return nil, NewFault(FaultDuplicateBinding, "duplicate structure field %q", name)
			}
		}
	}
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Value: Rereference(values[i])}
	}
	outstanding.Add(1)
	return &Structure{refs: 1, Fields: fields}, nil
}

// StructureGet looks up a field by name without transferring ownership.
func StructureGet(structure Object, name Symbol) (Object, error) {
	s, ok := structure.(*Structure)
	if !ok {
		return nil, NewFault(FaultTypeMismatch, "field access expects a structure, got %s", structure.Kind())
	}
	for _, field := range s.Fields {
		if field.Name == name {
			return field.Value, nil
		}
	}
	return nil, NewFault(FaultMissingField, "structure has no field %q", name)
}

//-----------------------------------------------------------------------------
// Ownership
//-----------------------------------------------------------------------------

// Rereference returns a new owning handle. Must be called whenever an object
// is stored into a new owning slot.
func Rereference(o Object) Object {
	switch v := o.(type) {
	case *StringConcatenation:
		v.refs++
		return v
	case *Structure:
		v.refs++
		return v
	case *List:
		dup := NewList(cap(v.Items))
		for _, item := range v.Items {
			dup.Items = append(dup.Items, Rereference(item))
		}
		return dup
	default:
		return o
	}
}

// Release drops one owning handle, freeing children when the last handle goes.
func Release(o Object) {
	switch v := o.(type) {
	case *StringConcatenation:
		v.refs--
		if v.refs == 0 {
			Release(v.Left)
			Release(v.Right)
			v.Left, v.Right = nil, nil
			outstanding.Add(-1)
		}
	case *Structure:
		v.refs--
		if v.refs == 0 {
			for _, field := range v.Fields {
				Release(field.Value)
			}
			v.Fields = nil
			outstanding.Add(-1)
		}
	case *List:
		if v.Items == nil {
			return
		}
		for _, item := range v.Items {
			Release(item)
		}
		v.Items = nil
		outstanding.Add(-1)
	}
}

// References reports the shared count of a reference-counted object, or 0.
func References(o Object) int {
	switch v := o.(type) {
	case *StringConcatenation:
		return v.refs
	case *Structure:
		return v.refs
	default:
		return 0
	}
}
