package runtime

import (
	"fmt"
	"sync"
)

// Symbol is an interned identifier. Equal names always intern to the same id
// within a process.
type Symbol uint32

// SymbolTable maps identifier text to stable ids.
type SymbolTable struct {
	mu    sync.RWMutex
	ids   map[string]Symbol
	names []string
}

// NewSymbolTable creates an empty table. Id 0 is reserved for the empty name.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		ids:   map[string]Symbol{"": 0},
		names: []string{""},
	}
}

// Intern returns the id for name, assigning the next id on first use.
func (t *SymbolTable) Intern(name string) Symbol {
	t.mu.RLock()
	id, ok := t.ids[name]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	id = Symbol(len(t.names))
	t.ids[name] = id
	t.names = append(t.names, name)
	return id
}

// Lookup returns the id for name without interning it.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	t.mu.RLock()
	id, ok := t.ids[name]
	t.mu.RUnlock()
	return id, ok
}

// Name returns the text for id.
func (t *SymbolTable) Name(id Symbol) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < len(t.names) {
		return t.names[id]
	}
	return fmt.Sprintf("<symbol %d>", uint32(id))
}

var symbols = NewSymbolTable()

// Intern interns name in the process-wide table.
func Intern(name string) Symbol {
	return symbols.Intern(name)
}

// LookupSymbol finds an already interned name in the process-wide table.
func LookupSymbol(name string) (Symbol, bool) {
	return symbols.Lookup(name)
}

func (s Symbol) String() string {
	return symbols.Name(s)
}
