package vm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fur/runtime-go/pkg/runtime"
)

// Frame is one call's execution context. Frames form a LIFO chain through
// Return mirroring the call stack.
type Frame struct {
	Environment    *runtime.Environment
	Return         *Frame
	ProgramCounter int
	Name           string
	snapshot       int
}

// Options configures a Thread. Zero values select the defaults.
type Options struct {
	PoolSize int
	// StackCapacity bounds the operand stack; negative means unbounded.
	StackCapacity int
	// Builtins restricts the optional builtins (print, pow). Empty falls back
	// to the program's list, then to all of them.
	Builtins []string
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
}

// Thread drives one instruction stream: it owns the frame chain, the operand
// stack, and the environment pool its frames allocate from.
type Thread struct {
	program   *Program
	frame     *Frame
	stack     *Stack
	pool      *runtime.EnvironmentPool
	root      *runtime.Environment
	constants map[runtime.Symbol]runtime.Object
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	steps     int
	done      bool
	closed    bool
}

// NewThread prepares a thread positioned at the program's entry with the root
// environment populated with the configured builtins.
func NewThread(program *Program, opts Options) (*Thread, error) {
	if err := program.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	capacity := opts.StackCapacity
	if capacity == 0 {
		capacity = DefaultStackCapacity
	}

	enabled := opts.Builtins
	if len(enabled) == 0 {
		enabled = program.Builtins
	}
	builtins, err := resolveBuiltins(enabled)
	if err != nil {
		return nil, err
	}

	t := &Thread{
		program:   program,
		stack:     NewStack(capacity),
		constants: make(map[runtime.Symbol]runtime.Object, len(builtins)+2),
		stdout:    stdout,
		stderr:    stderr,
		logger:    logger,
	}
	t.pool = runtime.NewEnvironmentPool(
		runtime.WithPoolSize(opts.PoolSize),
		runtime.WithPoolLogger(logger),
	)
	t.pool.SetRoots(t.stack.Each)

	root, err := t.pool.Create(nil)
	if err != nil {
		return nil, err
	}
	t.root = root
	t.constants[runtime.Intern("true")] = runtime.True
	t.constants[runtime.Intern("false")] = runtime.False
	for _, builtin := range builtins {
		sym := runtime.Intern(builtin.Name)
		t.constants[sym] = builtin
		if err := root.Set(sym, builtin); err != nil {
			return nil, err
		}
	}

	t.frame = &Frame{
		Environment:    root,
		ProgramCounter: program.Entry,
		Name:           program.NameAt(program.Entry),
	}
	return t, nil
}

// Stack exposes the operand stack for inspection.
func (t *Thread) Stack() *Stack { return t.stack }

// Frame returns the active frame.
func (t *Thread) Frame() *Frame { return t.frame }

// Pool returns the environment pool backing this thread.
func (t *Thread) Pool() *runtime.EnvironmentPool { return t.pool }

// Program returns the program being executed.
func (t *Thread) Program() *Program { return t.program }

// Steps reports how many instructions have executed.
func (t *Thread) Steps() int { return t.steps }

// Done reports whether the thread reached end or aborted.
func (t *Thread) Done() bool { return t.done }

// Depth returns the current call nesting, counting the top-level frame.
func (t *Thread) Depth() int {
	depth := 0
	for f := t.frame; f != nil; f = f.Return {
		depth++
	}
	return depth
}

// Run executes until end or a fault, then releases the thread's resources.
func (t *Thread) Run() error {
	defer t.Close()
	for {
		done, err := t.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step executes a single instruction. It reports done once the thread has
// reached end or unwound a fault; the fault itself is returned as err.
func (t *Thread) Step() (bool, error) {
	if t.done {
		return true, nil
	}
	pc := t.frame.ProgramCounter
	if pc < 0 || pc >= len(t.program.Instructions) {
		return true, t.unwind(runtime.NewFault(runtime.FaultInvalidProgram, "program counter %d outside program", pc))
	}
	instr := t.program.Instructions[pc]
	if instr.Op == OpEnd {
		t.done = true
		return true, nil
	}
	t.steps++
	if err := t.execute(instr); err != nil {
		return true, t.unwind(err)
	}
	// The frame may have changed: calls land on entry-1, returns on the call site.
	t.frame.ProgramCounter++
	return false, nil
}

// unwind aborts every active frame, innermost first: the operand stack is
// rewound to the frame's entry snapshot and its environment stops being a
// root. Only the top level handles faults, so the whole chain unwinds.
func (t *Thread) unwind(err error) error {
	var fault *runtime.Fault
	if !errors.As(err, &fault) {
		fault = &runtime.Fault{Kind: runtime.FaultInvalidProgram, Message: err.Error()}
	}
	fmt.Fprintf(t.stderr, "%s: %s\n", fault.Kind, fault.Message)
	for frame := t.frame; frame != nil; frame = frame.Return {
		t.stack.Rewind(frame.snapshot)
		frame.Environment.SetLive(false)
		fault.Trace = append(fault.Trace, frame.Name)
		fmt.Fprintf(t.stderr, "\tin %s\n", frame.Name)
		t.logger.Debug("frame unwound", slog.String("frame", frame.Name), slog.Int("pc", frame.ProgramCounter))
	}
	t.done = true
	return fault
}

// Close releases the operand stack and every environment. Safe to call more
// than once.
func (t *Thread) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.done = true
	t.stack.Release()
	for frame := t.frame; frame != nil; frame = frame.Return {
		frame.Environment.SetLive(false)
	}
	t.pool.Deinitialize()
}

func (t *Thread) push(value runtime.Object) error {
	if err := t.stack.Push(value); err != nil {
		runtime.Release(value)
		return err
	}
	return nil
}

func (t *Thread) pop() (runtime.Object, error) {
	return t.stack.Pop()
}

func (t *Thread) popInteger() (runtime.Integer, error) {
	value, err := t.pop()
	if err != nil {
		return 0, err
	}
	n, ok := value.(runtime.Integer)
	if !ok {
		runtime.Release(value)
		return 0, runtime.NewFault(runtime.FaultTypeMismatch, "expected integer, got %s", value.Kind())
	}
	return n, nil
}

func (t *Thread) popBoolean() (runtime.Boolean, error) {
	value, err := t.pop()
	if err != nil {
		return false, err
	}
	b, ok := value.(runtime.Boolean)
	if !ok {
		runtime.Release(value)
		return false, runtime.NewFault(runtime.FaultTypeMismatch, "expected boolean, got %s", value.Kind())
	}
	return b, nil
}

func symbolOf(instr Instruction) runtime.Symbol {
	if instr.Symbol != 0 {
		return instr.Symbol
	}
	return runtime.Intern(instr.Text)
}

func (t *Thread) execute(instr Instruction) error {
	switch instr.Op {
	case OpPushInteger:
		return t.push(runtime.Integer(instr.Integer))
	case OpPushString:
		return t.push(runtime.StringLiteral(instr.Text))
	case OpPush:
		return t.execPush(symbolOf(instr))
	case OpPop:
		return t.execPop(symbolOf(instr))
	case OpDrop:
		value, err := t.pop()
		if err != nil {
			return err
		}
		runtime.Release(value)
		return nil
	case OpAdd, OpSub, OpMul, OpIDiv, OpMod:
		return t.execArithmetic(instr.Op)
	case OpNeg:
		n, err := t.popInteger()
		if err != nil {
			return err
		}
		return t.push(-n)
	case OpLt, OpGt, OpLte, OpGte, OpEq, OpNeq:
		return t.execComparison(instr.Op)
	case OpClose:
		return t.execClose(instr.Label)
	case OpCall:
		return t.execCall(instr.Count)
	case OpReturn:
		return t.execReturn()
	case OpJump:
		t.frame.ProgramCounter = instr.Label - 1
		return nil
	case OpJumpIfFalse:
		cond, err := t.popBoolean()
		if err != nil {
			return err
		}
		if !cond {
			t.frame.ProgramCounter = instr.Label - 1
		}
		return nil
	default:
		return runtime.NewFault(runtime.FaultInvalidProgram, "unsupported instruction %s", instr.Op)
	}
}

func (t *Thread) execPush(sym runtime.Symbol) error {
	if value, ok := t.constants[sym]; ok {
		return t.push(value)
	}
	value, err := t.frame.Environment.Get(sym)
	if err != nil {
		return err
	}
	return t.push(runtime.Rereference(value))
}

func (t *Thread) execPop(sym runtime.Symbol) error {
	if _, ok := t.constants[sym]; ok {
		return runtime.NewFault(runtime.FaultDuplicateBinding, "cannot rebind builtin `%s`", sym)
	}
	value, err := t.pop()
	if err != nil {
		return err
	}
	if err := t.frame.Environment.Set(sym, value); err != nil {
		runtime.Release(value)
		return err
	}
	return nil
}

func (t *Thread) execClose(entry int) error {
	closure := runtime.Closure{
		Environment: t.frame.Environment,
		Entry:       entry,
		Name:        t.program.NameAt(entry),
	}
	if fn, ok := t.program.Functions[entry]; ok {
		closure.Parameters = fn.Parameters
	}
	return t.push(closure)
}
