package main

import (
	"bytes"
	"fmt"
	"os"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"fur/runtime-go/pkg/driver"
	"fur/runtime-go/pkg/runtime"
	"fur/runtime-go/pkg/vm"
)

type programJob struct {
	path    string
	program *vm.Program
	config  *driver.Config
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	report  *driver.Report
}

func loadJob(path string) (*programJob, error) {
	cfg, err := driver.ResolveConfig(path)
	if err != nil {
		return nil, err
	}
	program, err := driver.LoadProgram(path)
	if err != nil {
		return nil, err
	}
	return &programJob{path: path, program: program, config: cfg}, nil
}

// runPrograms executes every program on its own thread. Output is buffered
// per program and flushed in argument order once all of them finish.
func runPrograms(args []string) int {
	flags, paths, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fur run: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		printUsage()
		return 1
	}

	jobs := make([]*programJob, 0, len(paths))
	for _, path := range paths {
		job, err := loadJob(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fur run: %v\n", err)
			return 1
		}
		jobs = append(jobs, job)
	}

	var g errgroup.Group
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			logger := driver.NewLogger(&job.stderr, flags.level(job.config))
			opts := job.config.ThreadOptions(&job.stdout, &job.stderr, logger)
			report, err := driver.Execute(job.program, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", job.path, err)
			}
			report.Path = job.path
			job.report = report
			return nil
		})
	}
	waitErr := g.Wait()

	for _, job := range jobs {
		_, _ = os.Stdout.Write(job.stdout.Bytes())
		_, _ = os.Stderr.Write(job.stderr.Bytes())
		if flags.stats && job.report != nil {
			fmt.Fprintln(os.Stderr, job.report.String())
		}
	}
	if flags.stats {
		fmt.Fprintf(os.Stderr, "outstanding objects: %d\n", runtime.Outstanding())
	}
	if waitErr != nil {
		fmt.Fprintf(os.Stderr, "fur run: %v\n", waitErr)
		return 1
	}
	return 0
}
