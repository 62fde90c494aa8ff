package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/analyzer"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/driver"
	"github.com/flexa-script/interpreter-sub000/pkg/interpreter"
)

// runEntry checks the target and, in run mode, executes it. The returned
// code is the program's exit status, or 1 when loading or analysis failed.
func runEntry(args []string, flags runtimeFlags, mode executionMode) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "%s: unexpected arguments: %s\n", modeCommandLabel(mode), strings.Join(args[1:], " "))
		return 1
	}
	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	logger := flags.logger()
	registry := builtins.Default()
	project, err := driver.Open(target, registry, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to load %s\n", modeCommandLabel(mode), target)
		driver.Report(os.Stderr, err)
		return 1
	}

	if err := analyzer.Check(project.Entry, analyzer.Options{
		Registry:  registry,
		Libraries: project.Libraries,
		Logger:    logger,
	}); err != nil {
		driver.Report(os.Stderr, err)
		return 1
	}
	if mode == modeCheck {
		fmt.Fprintf(os.Stdout, "%s: ok\n", project.Entry.Name)
		return 0
	}

	opts, err := flags.interpreterOptions(project.Runtime(), registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", modeCommandLabel(mode), err)
		return 1
	}
	opts.Libraries = project.Libraries
	interp := interpreter.New(opts)
	code, err := interp.Run(project.Entry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
