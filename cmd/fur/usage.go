package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  fur run [--log-level=debug|info|warn|error] [--stats] <program.fur.yml>...")
	fmt.Fprintln(os.Stderr, "  fur [--log-level=L] [--stats] <program.fur.yml>...")
	fmt.Fprintln(os.Stderr, "  fur check <program.fur.yml>...")
	fmt.Fprintln(os.Stderr, "  fur debug [--log-level=L] <program.fur.yml>")
	fmt.Fprintln(os.Stderr, "  fur version")
}
