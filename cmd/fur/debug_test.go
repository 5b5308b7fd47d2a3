package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"fur/runtime-go/pkg/driver"
	"fur/runtime-go/pkg/vm"
)

func newTestDebugger(t *testing.T, path string) (*debugger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	program, err := driver.LoadProgram(path)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	var programOut, debugOut bytes.Buffer
	thread, err := vm.NewThread(program, vm.Options{
		Stdout: &programOut,
		Stderr: io.Discard,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}
	t.Cleanup(thread.Close)
	return &debugger{thread: thread, out: &debugOut}, &programOut, &debugOut
}

func TestDebuggerStepsIntoCalls(t *testing.T) {
	dbg, programOut, out := newTestDebugger(t, "testdata/increment.fur.yml")

	dbg.execute("step 5")
	if !strings.Contains(out.String(), `f @9: push "x"`) {
		t.Fatalf("expected to stop at the callee entry, got %q", out.String())
	}

	out.Reset()
	dbg.execute("frames")
	if want := "#0 f @9\n#1 __main__ @4\n"; out.String() != want {
		t.Fatalf("frames = %q, want %q", out.String(), want)
	}

	out.Reset()
	dbg.execute("env")
	if !strings.Contains(out.String(), "scope 0:\n  x = 41\n") || !strings.Contains(out.String(), "f = <Closure>") {
		t.Fatalf("env = %q", out.String())
	}

	dbg.execute("step 2")
	out.Reset()
	dbg.execute("stack")
	if want := "  1  1\n  0  41\n"; out.String() != want {
		t.Fatalf("stack = %q, want %q", out.String(), want)
	}

	out.Reset()
	dbg.execute("continue")
	if !strings.Contains(out.String(), "program finished") {
		t.Fatalf("continue = %q", out.String())
	}
	if programOut.String() != "42" {
		t.Fatalf("program output = %q", programOut.String())
	}

	out.Reset()
	dbg.execute("step")
	if !strings.Contains(out.String(), "program finished") {
		t.Fatalf("step after finish = %q", out.String())
	}
}

func TestDebuggerReportsFaults(t *testing.T) {
	dbg, _, out := newTestDebugger(t, "testdata/fault.fur.yml")
	dbg.execute("continue")
	if !strings.Contains(out.String(), "program aborted: DivisionByZeroError") {
		t.Fatalf("continue = %q", out.String())
	}
}

func TestDebuggerMiscCommands(t *testing.T) {
	dbg, _, out := newTestDebugger(t, "testdata/increment.fur.yml")

	dbg.execute("stack")
	if out.String() != "stack is empty\n" {
		t.Fatalf("stack = %q", out.String())
	}

	out.Reset()
	dbg.execute("gc")
	if out.String() != "reclaimed 0 environments\n" {
		t.Fatalf("gc = %q", out.String())
	}

	out.Reset()
	dbg.execute("stats")
	if !strings.Contains(out.String(), "steps=0 depth=1 pools=1") {
		t.Fatalf("stats = %q", out.String())
	}

	out.Reset()
	dbg.execute("step zero")
	if !strings.Contains(out.String(), "positive count") {
		t.Fatalf("step zero = %q", out.String())
	}

	out.Reset()
	dbg.execute("jump")
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("jump = %q", out.String())
	}

	if dbg.execute("") {
		t.Fatalf("empty line should not quit")
	}
	if !dbg.execute("quit") {
		t.Fatalf("quit should quit")
	}
}
