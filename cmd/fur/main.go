package main

import (
	"fmt"
	"os"
	"strings"

	"fur/runtime-go/pkg/driver"
)

const cliToolVersion = "fur 0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a command line. Runtime faults are reported on stderr but do
// not change the exit status; only usage and load errors do.
func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runPrograms(args[1:])
	case "check":
		return runCheck(args[1:])
	case "debug":
		return runDebug(args[1:])
	default:
		if strings.HasSuffix(args[0], driver.ProgramExtension) || strings.HasPrefix(args[0], "--") {
			return runPrograms(args)
		}
		fmt.Fprintf(os.Stderr, "fur: unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}
