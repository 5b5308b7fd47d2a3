package runtime

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		obj  Object
		want string
	}{
		{Boolean(true), "boolean"},
		{Integer(3), "integer"},
		{StringLiteral("x"), "string_literal"},
		{Void{}, "void"},
		{Closure{}, "closure"},
		{Builtin{Name: "print"}, "builtin"},
		{&List{}, "list"},
		{&Structure{}, "structure"},
	}
	for _, tc := range cases {
		if got := tc.obj.Kind().String(); got != tc.want {
			t.Fatalf("%T kind = %q, want %q", tc.obj, got, tc.want)
		}
	}
}

func TestConcatenationReferenceCounting(t *testing.T) {
	base := Outstanding()

	inner, err := Concatenate(StringLiteral("a"), StringLiteral("b"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	outer, err := Concatenate(inner, StringLiteral("c"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if got := References(inner); got != 2 {
		t.Fatalf("inner refs = %d, want 2 (own handle + outer child)", got)
	}

	Release(inner)
	if got := References(inner); got != 1 {
		t.Fatalf("inner refs after release = %d, want 1", got)
	}
	if got := Outstanding() - base; got != 2 {
		t.Fatalf("outstanding = %d, want 2", got)
	}

	Release(outer)
	if got := Outstanding(); got != base {
		t.Fatalf("outstanding after releasing outer = %d, want %d", got, base)
	}
}

func TestConcatenateRejectsNonStrings(t *testing.T) {
	_, err := Concatenate(StringLiteral("a"), Integer(1))
	if kind, ok := FaultOf(err); !ok || kind != FaultTypeMismatch {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestListAppendDoublesCapacity(t *testing.T) {
	base := Outstanding()
	list := NewList(1)
	for i := 0; i < 5; i++ {
		list.Append(Integer(i))
	}
	if list.Len() != 5 {
		t.Fatalf("len = %d, want 5", list.Len())
	}
	if got := cap(list.Items); got != 8 {
		t.Fatalf("cap = %d, want 8", got)
	}
	got, err := ListGet(list, Integer(3))
	if err != nil || got != Integer(3) {
		t.Fatalf("ListGet(3) = %v, %v", got, err)
	}
	Release(list)
	if Outstanding() != base {
		t.Fatalf("list not released: outstanding=%d base=%d", Outstanding(), base)
	}
}

func TestListGetFaults(t *testing.T) {
	list := NewList(2)
	defer Release(list)
	list.Append(Integer(1))

	tests := []struct {
		name  string
		list  Object
		index Object
		kind  FaultKind
	}{
		{"not a list", Integer(1), Integer(0), FaultTypeMismatch},
		{"index not integer", list, StringLiteral("0"), FaultTypeMismatch},
		{"negative", list, Integer(-1), FaultOutOfBounds},
		{"past end", list, Integer(1), FaultOutOfBounds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ListGet(tc.list, tc.index)
			if kind, ok := FaultOf(err); !ok || kind != tc.kind {
				t.Fatalf("ListGet err = %v, want %s", err, tc.kind)
			}
		})
	}
}

func TestListRereferenceDuplicates(t *testing.T) {
	base := Outstanding()
	s, err := Concatenate(StringLiteral("x"), StringLiteral("y"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	list := NewList(1)
	list.Append(s)

	dup := Rereference(list).(*List)
	if dup == list {
		t.Fatalf("expected a distinct list")
	}
	if References(s) != 2 {
		t.Fatalf("element refs = %d, want 2", References(s))
	}
	Release(list)
	Release(dup)
	if Outstanding() != base {
		t.Fatalf("outstanding = %d, want %d", Outstanding(), base)
	}
}

func TestStructureFields(t *testing.T) {
	base := Outstanding()
	x, y := Intern("x"), Intern("y")
	s, err := NewStructure([]Symbol{x, y}, []Object{Integer(1), StringLiteral("two")})
	if err != nil {
		t.Fatalf("NewStructure: %v", err)
	}

	got, err := StructureGet(s, y)
	if err != nil {
		t.Fatalf("StructureGet: %v", err)
	}
	if diff := cmp.Diff(Object(StringLiteral("two")), got); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}

	_, err = StructureGet(s, Intern("z"))
	if kind, ok := FaultOf(err); !ok || kind != FaultMissingField {
		t.Fatalf("expected missing field, got %v", err)
	}

	shared := Rereference(s)
	Release(s)
	if Outstanding() == base {
		t.Fatalf("structure freed while still shared")
	}
	Release(shared)
	if Outstanding() != base {
		t.Fatalf("structure leaked")
	}
}

func TestStructureRejectsDuplicateFields(t *testing.T) {
	a := Intern("a")
	_, err := NewStructure([]Symbol{a, a}, []Object{Integer(1), Integer(2)})
	if !errors.Is(err, &Fault{Kind: FaultDuplicateBinding}) {
		t.Fatalf("expected duplicate binding fault, got %v", err)
	}
}

func TestSymbolInterning(t *testing.T) {
	table := NewSymbolTable()
	a := table.Intern("alpha")
	b := table.Intern("beta")
	if a == b {
		t.Fatalf("distinct names share id %d", a)
	}
	if again := table.Intern("alpha"); again != a {
		t.Fatalf("re-interning changed id: %d vs %d", again, a)
	}
	if got := table.Name(b); got != "beta" {
		t.Fatalf("Name = %q, want beta", got)
	}
	if _, ok := table.Lookup("gamma"); ok {
		t.Fatalf("Lookup interned an unknown name")
	}
}
