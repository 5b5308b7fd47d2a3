package vm

import (
	"log/slog"

	"fur/runtime-go/pkg/runtime"
)

func (t *Thread) execCall(argc int) error {
	if argc < 0 {
		return runtime.NewFault(runtime.FaultInvalidProgram, "call arg count invalid")
	}
	callee, err := t.pop()
	if err != nil {
		return err
	}
	switch fn := callee.(type) {
	case runtime.Builtin:
		return t.callBuiltin(fn, argc)
	case runtime.Closure:
		return t.callClosure(fn, argc)
	default:
		runtime.Release(callee)
		return runtime.NewFault(runtime.FaultTypeMismatch, "cannot call %s", callee.Kind())
	}
}

// callBuiltin runs a native callable in place against the top argc values.
func (t *Thread) callBuiltin(fn runtime.Builtin, argc int) error {
	if fn.Arity >= 0 && argc != fn.Arity {
		return runtime.NewFault(runtime.FaultArityMismatch, "%s expects %d arguments, got %d", fn.Name, fn.Arity, argc)
	}
	if argc > t.stack.Len() {
		return runtime.NewFault(runtime.FaultStackUnderflow, "%s needs %d arguments, stack holds %d", fn.Name, argc, t.stack.Len())
	}
	args := make([]runtime.Object, argc)
	for idx := argc - 1; idx >= 0; idx-- {
		arg, err := t.pop()
		if err != nil {
			releaseAll(args[idx+1:])
			return err
		}
		args[idx] = arg
	}
	ctx := &runtime.CallContext{Environment: t.frame.Environment, Stdout: t.stdout}
	result, err := fn.Impl(ctx, args)
	releaseAll(args)
	if err != nil {
		return err
	}
	if result == nil {
		result = runtime.Nil
	}
	return t.push(result)
}

// callClosure enters a new frame whose environment is a child of the
// closure's captured environment. Arguments are already on the shared stack,
// pushed left to right, so parameters are bound in reverse.
func (t *Thread) callClosure(fn runtime.Closure, argc int) error {
	if argc != fn.Arity() {
		return runtime.NewFault(runtime.FaultArityMismatch, "%s expects %d arguments, got %d", fn.Name, fn.Arity(), argc)
	}
	if argc > t.stack.Len() {
		return runtime.NewFault(runtime.FaultStackUnderflow, "%s needs %d arguments, stack holds %d", fn.Name, argc, t.stack.Len())
	}
	env, err := t.pool.Create(fn.Environment)
	if err != nil {
		return err
	}
	for idx := len(fn.Parameters) - 1; idx >= 0; idx-- {
		arg, err := t.pop()
		if err != nil {
			env.SetLive(false)
			return err
		}
		if err := env.Set(fn.Parameters[idx], arg); err != nil {
			runtime.Release(arg)
			env.SetLive(false)
			return err
		}
	}
	t.frame = &Frame{
		Environment:    env,
		Return:         t.frame,
		ProgramCounter: fn.Entry - 1,
		Name:           fn.Name,
		snapshot:       t.stack.Snapshot(),
	}
	t.logger.Debug("frame entered", slog.String("frame", fn.Name), slog.Int("depth", t.Depth()))
	return nil
}

// execReturn pops the frame chain. The callee environment stops being a root
// but stays allocated until a collection finds it unreachable, which keeps
// escaping closures valid.
func (t *Thread) execReturn() error {
	callee := t.frame
	if callee.Return == nil {
		return runtime.NewFault(runtime.FaultInvalidProgram, "return outside of a function")
	}
	t.frame = callee.Return
	callee.Environment.SetLive(false)
	callee.Return = nil
	return nil
}

func releaseAll(values []runtime.Object) {
	for _, value := range values {
		if value != nil {
			runtime.Release(value)
		}
	}
}
