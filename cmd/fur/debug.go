package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"fur/runtime-go/pkg/driver"
	"fur/runtime-go/pkg/runtime"
	"fur/runtime-go/pkg/vm"
)

const debugPrompt = "(fur) "

// debugger drives a thread one command at a time.
type debugger struct {
	thread *vm.Thread
	out    io.Writer
	fault  error
}

func runDebug(args []string) int {
	flags, paths, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fur debug: %v\n", err)
		return 1
	}
	if len(paths) != 1 {
		printUsage()
		return 1
	}
	job, err := loadJob(paths[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fur debug: %v\n", err)
		return 1
	}
	logger := driver.NewLogger(os.Stderr, flags.level(job.config))
	thread, err := vm.NewThread(job.program, job.config.ThreadOptions(os.Stdout, os.Stderr, logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fur debug: %v\n", err)
		return 1
	}
	defer thread.Close()
	dbg := &debugger{thread: thread, out: os.Stdout}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	dbg.where()
	last := ""
	for {
		line, err := ln.Prompt(debugPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(os.Stdout)
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "fur debug: %v\n", err)
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			line = last
		} else {
			ln.AppendHistory(line)
			last = line
		}
		if dbg.execute(line) {
			return 0
		}
	}
}

// execute runs one debugger command and reports whether to quit.
func (d *debugger) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed <= 0 {
				fmt.Fprintf(d.out, "step expects a positive count, got %q\n", fields[1])
				return false
			}
			n = parsed
		}
		d.step(n)
	case "continue", "c":
		d.step(-1)
	case "stack":
		d.printStack()
	case "env":
		d.printEnvironment()
	case "frames", "bt":
		d.printFrames()
	case "gc":
		reclaimed := d.thread.Pool().Collect()
		fmt.Fprintf(d.out, "reclaimed %d environments\n", reclaimed)
	case "stats":
		stats := d.thread.Pool().Stats()
		fmt.Fprintf(d.out, "steps=%d depth=%d pools=%d capacity=%d allocated=%d collections=%d reclaimed=%d outstanding=%d\n",
			d.thread.Steps(), d.thread.Depth(), stats.Pools, stats.Capacity, stats.Allocated, stats.Collections, stats.Reclaimed, runtime.Outstanding())
	case "quit", "q", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(d.out, "commands: step [n], continue, stack, env, frames, gc, stats, quit")
	default:
		fmt.Fprintf(d.out, "unknown command %q (try help)\n", fields[0])
	}
	return false
}

// step executes n instructions, or until the thread stops when n < 0.
func (d *debugger) step(n int) {
	if d.thread.Done() {
		d.finished()
		return
	}
	for i := 0; n < 0 || i < n; i++ {
		done, err := d.thread.Step()
		if err != nil {
			d.fault = err
		}
		if done {
			d.finished()
			return
		}
	}
	d.where()
}

func (d *debugger) finished() {
	if d.fault != nil {
		fmt.Fprintf(d.out, "program aborted: %v\n", d.fault)
		return
	}
	fmt.Fprintln(d.out, "program finished")
}

func (d *debugger) where() {
	frame := d.thread.Frame()
	program := d.thread.Program()
	pc := frame.ProgramCounter
	if pc < 0 || pc >= len(program.Instructions) {
		fmt.Fprintf(d.out, "%s @%d: <outside program>\n", frame.Name, pc)
		return
	}
	fmt.Fprintf(d.out, "%s @%d: %s\n", frame.Name, pc, program.Instructions[pc])
}

func (d *debugger) printStack() {
	stack := d.thread.Stack()
	if stack.IsEmpty() {
		fmt.Fprintln(d.out, "stack is empty")
		return
	}
	var items []runtime.Object
	stack.Each(func(o runtime.Object) { items = append(items, o) })
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Fprintf(d.out, "%3d  %s\n", i, vm.FormatObject(items[i]))
	}
}

// printEnvironment lists the active scope chain innermost first, skipping
// builtins.
func (d *debugger) printEnvironment() {
	depth := 0
	for env := d.thread.Frame().Environment; env != nil; env = env.Parent() {
		fmt.Fprintf(d.out, "scope %d:\n", depth)
		for _, binding := range env.Bindings() {
			if binding.Value.Kind() == runtime.KindBuiltin {
				continue
			}
			fmt.Fprintf(d.out, "  %s = %s\n", binding.Symbol, vm.FormatObject(binding.Value))
		}
		depth++
	}
}

func (d *debugger) printFrames() {
	index := 0
	for frame := d.thread.Frame(); frame != nil; frame = frame.Return {
		fmt.Fprintf(d.out, "#%d %s @%d\n", index, frame.Name, frame.ProgramCounter)
		index++
	}
}
