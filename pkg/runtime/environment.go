package runtime

// Binding is one symbol/value pair of an environment.
type Binding struct {
	Symbol Symbol
	Value  Object
}

// Environment provides lexical scoping for Fur runtime values. Environments
// live in pool slots and are reclaimed by the pool's collector, never freed
// individually.
type Environment struct {
	bindings []Binding
	parent   *Environment
	live     bool
	mark     bool
}

func (e *Environment) initialize(parent *Environment) {
	e.bindings = e.bindings[:0]
	e.parent = parent
	// Environments are only created at frame entry, so they start as roots.
	e.live = true
	e.mark = false
}

func (e *Environment) deinitialize() {
	for i := len(e.bindings) - 1; i >= 0; i-- {
		Release(e.bindings[i].Value)
		e.bindings[i] = Binding{}
	}
	e.bindings = e.bindings[:0]
	e.parent = nil
	e.live = false
}

// Parent exposes the lexical parent (nil at the root).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Live reports whether an active frame owns this environment.
func (e *Environment) Live() bool {
	return e.live
}

// SetLive toggles whether the environment is a collection root.
func (e *Environment) SetLive(live bool) {
	e.live = live
}

// Bindings returns the current scope's bindings, innermost first.
func (e *Environment) Bindings() []Binding {
	out := make([]Binding, len(e.bindings))
	for i := range e.bindings {
		out[i] = e.bindings[len(e.bindings)-1-i]
	}
	return out
}

func (e *Environment) getShallow(sym Symbol) (Object, bool) {
	for i := len(e.bindings) - 1; i >= 0; i-- {
		if e.bindings[i].Symbol == sym {
			return e.bindings[i].Value, true
		}
	}
	return nil, false
}

// Get retrieves a binding, searching outward through the scope chain. The
// returned object is borrowed; rereference it before storing it elsewhere.
func (e *Environment) Get(sym Symbol) (Object, error) {
	for env := e; env != nil; env = env.parent {
		if value, ok := env.getShallow(sym); ok {
			return value, nil
		}
	}
	return nil, NewFault(FaultUnboundSymbol, "variable `%s` not found", sym)
}

// HasInCurrentScope reports whether the binding exists in this scope only.
func (e *Environment) HasInCurrentScope(sym Symbol) bool {
	_, ok := e.getShallow(sym)
	return ok
}

// Set binds sym in this scope, taking ownership of value. Rebinding a symbol
// in the same scope is a fault; shadowing an outer binding is not.
func (e *Environment) Set(sym Symbol, value Object) error {
	if e.HasInCurrentScope(sym) {
		return NewFault(FaultDuplicateBinding, "`%s` is already bound in this scope", sym)
	}
	e.bindings = append(e.bindings, Binding{Symbol: sym, Value: value})
	return nil
}

// Mark flags the environment and everything reachable from it. Already marked
// environments return immediately, which terminates closure cycles.
func (e *Environment) Mark() {
	if e == nil || e.mark {
		return
	}
	e.mark = true
	e.parent.Mark()
	for _, binding := range e.bindings {
		markObject(binding.Value)
	}
}

func markObject(o Object) {
	switch v := o.(type) {
	case Closure:
		v.Environment.Mark()
	case *List:
		for _, item := range v.Items {
			markObject(item)
		}
	case *Structure:
		for _, field := range v.Fields {
			markObject(field.Value)
		}
	}
}
