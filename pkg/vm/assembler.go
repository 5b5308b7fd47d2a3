package vm

import (
	"fmt"

	"fur/runtime-go/pkg/runtime"
)

// Assembler builds a Program, resolving forward label references when Build
// is called.
type Assembler struct {
	instructions []Instruction
	labels       map[string]int
	fixups       map[int]string
	functions    map[string]functionDecl
	builtins     []string
	err          error
}

type functionDecl struct {
	name       string
	parameters []string
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		labels:    make(map[string]int),
		fixups:    make(map[int]string),
		functions: make(map[string]functionDecl),
	}
}

func (a *Assembler) fail(format string, args ...any) *Assembler {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
	return a
}

func (a *Assembler) emit(instr Instruction) *Assembler {
	a.instructions = append(a.instructions, instr)
	return a
}

func (a *Assembler) emitLabel(op Opcode, label string) *Assembler {
	a.fixups[len(a.instructions)] = label
	return a.emit(Instruction{Op: op})
}

// Label marks the next instruction with name.
func (a *Assembler) Label(name string) *Assembler {
	if _, exists := a.labels[name]; exists {
		return a.fail("assembler: duplicate label %q", name)
	}
	a.labels[name] = len(a.instructions)
	return a
}

// Function declares closure metadata for the entry at label.
func (a *Assembler) Function(label string, parameters ...string) *Assembler {
	return a.NamedFunction(label, label, parameters...)
}

// NamedFunction is Function with a display name distinct from the label.
func (a *Assembler) NamedFunction(label, name string, parameters ...string) *Assembler {
	if _, exists := a.functions[label]; exists {
		return a.fail("assembler: function %q declared twice", label)
	}
	if name == "" {
		name = label
	}
	a.functions[label] = functionDecl{name: name, parameters: append([]string{}, parameters...)}
	return a
}

// Builtins records the optional builtins the program uses.
func (a *Assembler) Builtins(names ...string) *Assembler {
	a.builtins = append(a.builtins, names...)
	return a
}

// Op appends a raw instruction by name, used by loaders that read operation
// names from disk. Label operands are given as names.
func (a *Assembler) Op(name string, label string, count int, integer int32, text string) *Assembler {
	op, ok := ParseOpcode(name)
	if !ok {
		return a.fail("assembler: unknown operation %q", name)
	}
	switch op.Operand() {
	case OperandLabel:
		return a.emitLabel(op, label)
	case OperandCount:
		return a.emit(Instruction{Op: op, Count: count})
	case OperandInteger:
		return a.emit(Instruction{Op: op, Integer: integer})
	case OperandText:
		return a.emitText(op, text)
	default:
		return a.emit(Instruction{Op: op})
	}
}

func (a *Assembler) emitText(op Opcode, text string) *Assembler {
	instr := Instruction{Op: op, Text: text}
	if op == OpPush || op == OpPop {
		instr.Symbol = runtime.Intern(text)
	}
	return a.emit(instr)
}

func (a *Assembler) PushInteger(n int32) *Assembler { return a.emit(Instruction{Op: OpPushInteger, Integer: n}) }
func (a *Assembler) PushString(s string) *Assembler { return a.emitText(OpPushString, s) }
func (a *Assembler) Push(name string) *Assembler    { return a.emitText(OpPush, name) }
func (a *Assembler) Pop(name string) *Assembler     { return a.emitText(OpPop, name) }
func (a *Assembler) Drop() *Assembler               { return a.emit(Instruction{Op: OpDrop}) }
func (a *Assembler) Add() *Assembler                { return a.emit(Instruction{Op: OpAdd}) }
func (a *Assembler) Sub() *Assembler                { return a.emit(Instruction{Op: OpSub}) }
func (a *Assembler) Mul() *Assembler                { return a.emit(Instruction{Op: OpMul}) }
func (a *Assembler) IDiv() *Assembler               { return a.emit(Instruction{Op: OpIDiv}) }
func (a *Assembler) Mod() *Assembler                { return a.emit(Instruction{Op: OpMod}) }
func (a *Assembler) Neg() *Assembler                { return a.emit(Instruction{Op: OpNeg}) }
func (a *Assembler) Compare(op Opcode) *Assembler   { return a.emit(Instruction{Op: op}) }
func (a *Assembler) Close(label string) *Assembler  { return a.emitLabel(OpClose, label) }
func (a *Assembler) Call(argc int) *Assembler       { return a.emit(Instruction{Op: OpCall, Count: argc}) }
func (a *Assembler) Return() *Assembler             { return a.emit(Instruction{Op: OpReturn}) }
func (a *Assembler) Jump(label string) *Assembler   { return a.emitLabel(OpJump, label) }
func (a *Assembler) JumpIfFalse(label string) *Assembler {
	return a.emitLabel(OpJumpIfFalse, label)
}
func (a *Assembler) End() *Assembler { return a.emit(Instruction{Op: OpEnd}) }

// Build resolves labels and validates the program. entry names the label the
// main thread starts at.
func (a *Assembler) Build(entry string) (*Program, error) {
	if a.err != nil {
		return nil, a.err
	}
	instructions := append([]Instruction(nil), a.instructions...)
	for idx, label := range a.fixups {
		target, ok := a.labels[label]
		if !ok {
			return nil, fmt.Errorf("assembler: instruction %d references undefined label %q", idx, label)
		}
		instructions[idx].Label = target
	}
	start, ok := a.labels[entry]
	if !ok {
		return nil, fmt.Errorf("assembler: entry label %q not defined", entry)
	}

	labels := make(map[string]int, len(a.labels))
	for name, at := range a.labels {
		labels[name] = at
	}
	functions := make(map[int]Function, len(a.functions))
	for label, decl := range a.functions {
		at, ok := a.labels[label]
		if !ok {
			return nil, fmt.Errorf("assembler: function %q has no label", label)
		}
		symbols := make([]runtime.Symbol, len(decl.parameters))
		for i, param := range decl.parameters {
			symbols[i] = runtime.Intern(param)
		}
		functions[at] = Function{Name: decl.name, Entry: at, Parameters: symbols}
	}

	program := &Program{
		Instructions: instructions,
		Labels:       labels,
		Entry:        start,
		Functions:    functions,
		Builtins:     append([]string(nil), a.builtins...),
	}
	if err := program.Validate(); err != nil {
		return nil, err
	}
	return program, nil
}
