package driver

import (
	"fmt"

	"fur/runtime-go/pkg/runtime"
	"fur/runtime-go/pkg/vm"
)

// Report summarises one program execution. A runtime fault is recorded in
// Fault; it is not an execution error.
type Report struct {
	Path  string
	Steps int
	Pool  runtime.PoolStats
	Fault error
}

// Execute runs a program to completion on a fresh thread and reports what it
// did. Pool statistics are captured before the thread releases its pool.
func Execute(program *vm.Program, opts vm.Options) (*Report, error) {
	thread, err := vm.NewThread(program, opts)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	report := &Report{}
	for {
		done, stepErr := thread.Step()
		if stepErr != nil {
			report.Fault = stepErr
			break
		}
		if done {
			break
		}
	}
	report.Steps = thread.Steps()
	report.Pool = thread.Pool().Stats()
	thread.Close()
	return report, nil
}

// String renders the report in the form printed by --stats.
func (r *Report) String() string {
	status := "ok"
	if r.Fault != nil {
		if kind, ok := runtime.FaultOf(r.Fault); ok {
			status = string(kind)
		} else {
			status = "error"
		}
	}
	return fmt.Sprintf("%s: status=%s steps=%d pools=%d capacity=%d allocated=%d collections=%d reclaimed=%d",
		r.Path, status, r.Steps, r.Pool.Pools, r.Pool.Capacity, r.Pool.Allocated, r.Pool.Collections, r.Pool.Reclaimed)
}
