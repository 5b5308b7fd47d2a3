package vm

import (
	"fmt"
	"sort"

	"fur/runtime-go/pkg/runtime"
)

// Opcode identifies one instruction of the Fur instruction set.
type Opcode int

const (
	OpPushInteger Opcode = iota
	OpPushString
	OpPush
	OpPop
	OpDrop
	OpAdd
	OpSub
	OpMul
	OpIDiv
	OpMod
	OpNeg
	OpLt
	OpGt
	OpLte
	OpGte
	OpEq
	OpNeq
	OpClose
	OpCall
	OpReturn
	OpJump
	OpJumpIfFalse
	OpEnd
)

var opcodeNames = [...]string{
	OpPushInteger: "push_integer",
	OpPushString:  "push_string",
	OpPush:        "push",
	OpPop:         "pop",
	OpDrop:        "drop",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpIDiv:        "idiv",
	OpMod:         "mod",
	OpNeg:         "neg",
	OpLt:          "lt",
	OpGt:          "gt",
	OpLte:         "lte",
	OpGte:         "gte",
	OpEq:          "eq",
	OpNeq:         "neq",
	OpClose:       "close",
	OpCall:        "call",
	OpReturn:      "return",
	OpJump:        "jump",
	OpJumpIfFalse: "jump_if_false",
	OpEnd:         "end",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("unknown_op_%d", int(op))
}

// ParseOpcode maps an instruction name to its opcode.
func ParseOpcode(name string) (Opcode, bool) {
	for op, candidate := range opcodeNames {
		if candidate == name {
			return Opcode(op), true
		}
	}
	return 0, false
}

// OperandKind describes which argument field an opcode reads.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandLabel
	OperandCount
	OperandInteger
	OperandText
)

// Operand returns the argument an opcode expects.
func (op Opcode) Operand() OperandKind {
	switch op {
	case OpPushInteger:
		return OperandInteger
	case OpPushString, OpPush, OpPop:
		return OperandText
	case OpClose, OpJump, OpJumpIfFalse:
		return OperandLabel
	case OpCall:
		return OperandCount
	default:
		return OperandNone
	}
}

// Instruction is one (operation, argument) record. Exactly the field named by
// Op.Operand() is meaningful; Symbol caches the interned Text for push/pop.
type Instruction struct {
	Op      Opcode
	Label   int
	Count   int
	Integer int32
	Text    string
	Symbol  runtime.Symbol
}

func (i Instruction) String() string {
	switch i.Op.Operand() {
	case OperandLabel:
		return fmt.Sprintf("%s @%d", i.Op, i.Label)
	case OperandCount:
		return fmt.Sprintf("%s %d", i.Op, i.Count)
	case OperandInteger:
		return fmt.Sprintf("%s %d", i.Op, i.Integer)
	case OperandText:
		return fmt.Sprintf("%s %q", i.Op, i.Text)
	default:
		return i.Op.String()
	}
}

// Function is the metadata the compiler records for a closure entry point.
type Function struct {
	Name       string
	Entry      int
	Parameters []runtime.Symbol
}

// Program is a flat instruction array with resolved label offsets.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int
	Entry        int
	Functions    map[int]Function
	// Builtins names the optional builtins the program was compiled against.
	// Empty means all of them.
	Builtins []string
}

// NameAt returns the best name for an instruction index: a function name,
// then a label, then the raw index.
func (p *Program) NameAt(index int) string {
	if fn, ok := p.Functions[index]; ok && fn.Name != "" {
		return fn.Name
	}
	names := make([]string, 0, 1)
	for name, at := range p.Labels {
		if at == index {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		sort.Strings(names)
		return names[0]
	}
	return fmt.Sprintf("@%d", index)
}

// Validate checks that every operand is well formed and every label lands
// inside the program.
func (p *Program) Validate() error {
	if p == nil {
		return runtime.NewFault(runtime.FaultInvalidProgram, "program is nil")
	}
	n := len(p.Instructions)
	if n == 0 {
		return runtime.NewFault(runtime.FaultInvalidProgram, "program has no instructions")
	}
	if p.Entry < 0 || p.Entry >= n {
		return runtime.NewFault(runtime.FaultInvalidProgram, "entry %d outside program of %d instructions", p.Entry, n)
	}
	hasEnd := false
	for idx, instr := range p.Instructions {
		switch instr.Op.Operand() {
		case OperandLabel:
			if instr.Label < 0 || instr.Label >= n {
				return runtime.NewFault(runtime.FaultInvalidProgram, "instruction %d (%s): label %d out of range", idx, instr.Op, instr.Label)
			}
		case OperandCount:
			if instr.Count < 0 {
				return runtime.NewFault(runtime.FaultInvalidProgram, "instruction %d (%s): negative count", idx, instr.Op)
			}
		case OperandText:
			if (instr.Op == OpPush || instr.Op == OpPop) && instr.Text == "" {
				return runtime.NewFault(runtime.FaultInvalidProgram, "instruction %d (%s): missing name", idx, instr.Op)
			}
		case OperandNone:
			if instr.Op < 0 || int(instr.Op) >= len(opcodeNames) {
				return runtime.NewFault(runtime.FaultInvalidProgram, "instruction %d: unknown opcode %d", idx, int(instr.Op))
			}
		}
		if instr.Op == OpEnd {
			hasEnd = true
		}
	}
	if !hasEnd {
		return runtime.NewFault(runtime.FaultInvalidProgram, "program has no end instruction")
	}
	for entry := range p.Functions {
		if entry < 0 || entry >= n {
			return runtime.NewFault(runtime.FaultInvalidProgram, "function entry %d out of range", entry)
		}
	}
	return nil
}
