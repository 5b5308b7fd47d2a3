package vm

import (
	"fmt"
	"sort"

	"fur/runtime-go/pkg/runtime"
)

// Optional builtins can be left out of a program; operator builtins are
// always registered because compiled code calls them by identifier.
var optionalBuiltins = map[string]runtime.Builtin{
	"print": {Name: "print", Arity: -1, Impl: builtinPrint},
	"pow":   {Name: "pow", Arity: 2, Impl: builtinPow},
}

var operatorBuiltins = []runtime.Builtin{
	arithmeticBuiltin("__add__", OpAdd),
	arithmeticBuiltin("__subtract__", OpSub),
	arithmeticBuiltin("__multiply__", OpMul),
	arithmeticBuiltin("__integer_divide__", OpIDiv),
	arithmeticBuiltin("__modular_divide__", OpMod),
	comparisonBuiltin("__lt__", OpLt),
	comparisonBuiltin("__gt__", OpGt),
	comparisonBuiltin("__lte__", OpLte),
	comparisonBuiltin("__gte__", OpGte),
	comparisonBuiltin("__eq__", OpEq),
	comparisonBuiltin("__neq__", OpNeq),
	{Name: "__negate__", Arity: 1, Impl: builtinNegate},
	{Name: "__concat__", Arity: 2, Impl: builtinConcat},
	{Name: "__field__", Arity: 2, Impl: builtinField},
	{Name: "__get__", Arity: 2, Impl: builtinGet},
	{Name: "__list__", Arity: -1, Impl: builtinList},
	{Name: "__append__", Arity: 2, Impl: builtinAppend},
	{Name: "__structure__", Arity: -1, Impl: builtinStructure},
}

// BuiltinNames lists every builtin identifier, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(optionalBuiltins)+len(operatorBuiltins))
	for name := range optionalBuiltins {
		names = append(names, name)
	}
	for _, builtin := range operatorBuiltins {
		names = append(names, builtin.Name)
	}
	sort.Strings(names)
	return names
}

// OptionalBuiltinNames lists the builtins a program may opt out of.
func OptionalBuiltinNames() []string {
	names := make([]string, 0, len(optionalBuiltins))
	for name := range optionalBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveBuiltins(enabled []string) ([]runtime.Builtin, error) {
	out := make([]runtime.Builtin, 0, len(optionalBuiltins)+len(operatorBuiltins))
	if len(enabled) == 0 {
		for _, name := range OptionalBuiltinNames() {
			out = append(out, optionalBuiltins[name])
		}
	} else {
		seen := make(map[string]bool, len(enabled))
		for _, name := range enabled {
			builtin, ok := optionalBuiltins[name]
			if !ok {
				if isOperatorBuiltin(name) {
					continue
				}
				return nil, fmt.Errorf("unknown builtin %q", name)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, builtin)
		}
	}
	return append(out, operatorBuiltins...), nil
}

func isOperatorBuiltin(name string) bool {
	for _, builtin := range operatorBuiltins {
		if builtin.Name == name {
			return true
		}
	}
	return false
}

func integerArgs(name string, args []runtime.Object) ([]runtime.Integer, error) {
	out := make([]runtime.Integer, len(args))
	for i, arg := range args {
		n, ok := arg.(runtime.Integer)
		if !ok {
			return nil, runtime.NewFault(runtime.FaultTypeMismatch, "%s expects integer arguments, got %s", name, arg.Kind())
		}
		out[i] = n
	}
	return out, nil
}

func arithmeticBuiltin(name string, op Opcode) runtime.Builtin {
	return runtime.Builtin{Name: name, Arity: 2, Impl: func(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
		ints, err := integerArgs(name, args)
		if err != nil {
			return nil, err
		}
		return arithmetic(op, ints[0], ints[1])
	}}
}

func comparisonBuiltin(name string, op Opcode) runtime.Builtin {
	return runtime.Builtin{Name: name, Arity: 2, Impl: func(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
		ints, err := integerArgs(name, args)
		if err != nil {
			return nil, err
		}
		return compare(op, ints[0], ints[1]), nil
	}}
}

func builtinNegate(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	ints, err := integerArgs("__negate__", args)
	if err != nil {
		return nil, err
	}
	return -ints[0], nil
}

func builtinPow(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	ints, err := integerArgs("pow", args)
	if err != nil {
		return nil, err
	}
	return power(ints[0], ints[1])
}

func builtinPrint(ctx *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	for _, arg := range args {
		if err := WriteObject(ctx.Stdout, arg); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
	}
	return runtime.Nil, nil
}

func builtinConcat(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	return runtime.Concatenate(args[0], args[1])
}

func builtinField(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	name, ok := args[1].(runtime.StringLiteral)
	if !ok {
		return nil, runtime.NewFault(runtime.FaultTypeMismatch, "field name must be a string literal, got %s", args[1].Kind())
	}
	value, err := runtime.StructureGet(args[0], runtime.Intern(string(name)))
	if err != nil {
		return nil, err
	}
	return runtime.Rereference(value), nil
}

func builtinGet(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	value, err := runtime.ListGet(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return runtime.Rereference(value), nil
}

func builtinList(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	list := runtime.NewList(len(args))
	for _, arg := range args {
		list.Append(runtime.Rereference(arg))
	}
	return list, nil
}

// builtinAppend returns a new list; the argument list is the caller's copy
// and is released with the other arguments.
func builtinAppend(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	if _, ok := args[0].(*runtime.List); !ok {
		return nil, runtime.NewFault(runtime.FaultTypeMismatch, "append expects a list, got %s", args[0].Kind())
	}
	list := runtime.Rereference(args[0]).(*runtime.List)
	list.Append(runtime.Rereference(args[1]))
	return list, nil
}

// builtinStructure takes alternating field names and values.
func builtinStructure(_ *runtime.CallContext, args []runtime.Object) (runtime.Object, error) {
	if len(args)%2 != 0 {
		return nil, runtime.NewFault(runtime.FaultArityMismatch, "structure expects name/value pairs, got %d arguments", len(args))
	}
	names := make([]runtime.Symbol, 0, len(args)/2)
	values := make([]runtime.Object, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		name, ok := args[i].(runtime.StringLiteral)
		if !ok {
			return nil, runtime.NewFault(runtime.FaultTypeMismatch, "structure field name must be a string literal, got %s", args[i].Kind())
		}
		names = append(names, runtime.Intern(string(name)))
		values = append(values, args[i+1])
	}
	return runtime.NewStructure(names, values)
}
