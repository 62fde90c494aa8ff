package main

import (
	"fmt"
	"os"
)

func modeCommandLabel(mode executionMode) string {
	switch mode {
	case modeCheck:
		return "flexa check"
	default:
		return "flexa run"
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  flexa [flags] run [project-dir|program.json]")
	fmt.Fprintln(os.Stderr, "  flexa [flags] <program.json>")
	fmt.Fprintln(os.Stderr, "  flexa [flags] check [project-dir|program.json]")
	fmt.Fprintln(os.Stderr, "  flexa [flags] repl")
	fmt.Fprintln(os.Stderr, "  flexa [--trace] deps install [project-dir]")
	fmt.Fprintln(os.Stderr, "  flexa version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --engine=tree|bytecode  evaluation engine (overrides runtime.engine)")
	fmt.Fprintln(os.Stderr, "  --max-heap=N            collect once the heap holds N values")
	fmt.Fprintln(os.Stderr, "  --no-gc                 disable the garbage collector")
	fmt.Fprintln(os.Stderr, "  --trace                 log runtime events to stderr")
}
