package main

import (
	"fmt"
	"os"

	"fur/runtime-go/pkg/driver"
)

// runCheck loads and validates programs without executing them.
func runCheck(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	failed := false
	for _, path := range args {
		if _, err := driver.ResolveConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "fur check: %v\n", err)
			failed = true
			continue
		}
		program, err := driver.LoadProgram(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fur check: %v\n", err)
			failed = true
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: ok (%d instructions, %d functions)\n", path, len(program.Instructions), len(program.Functions))
	}
	if failed {
		return 1
	}
	return 0
}
