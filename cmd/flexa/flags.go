package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/driver"
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/interpreter"
)

// runtimeFlags are the global flags accepted before the command. Zero values
// leave the manifest settings in place.
type runtimeFlags struct {
	engine  string
	maxHeap int
	noGC    bool
	trace   bool
}

func parseRuntimeFlags(args []string) (runtimeFlags, []string, error) {
	var flags runtimeFlags
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i+1:]...)
			break
		}
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--engine", "--max-heap":
			if !hasValue {
				if i+1 >= len(args) {
					return flags, nil, fmt.Errorf("%s expects a value", name)
				}
				value = args[i+1]
				i++
			}
			if err := flags.set(name, value); err != nil {
				return flags, nil, err
			}
		case "--no-gc":
			flags.noGC = true
		case "--trace":
			flags.trace = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return flags, remaining, nil
}

func (f *runtimeFlags) set(name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case "--engine":
		if _, ok := interpreter.ParseEngine(strings.ToLower(value)); !ok || value == "" {
			return fmt.Errorf("unknown --engine value '%s' (expected tree or bytecode)", value)
		}
		f.engine = strings.ToLower(value)
	case "--max-heap":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("--max-heap expects a positive integer, got '%s'", value)
		}
		f.maxHeap = n
	}
	return nil
}

// logger returns the trace logger, or nil so packages fall back to their
// discarding default.
func (f runtimeFlags) logger() *slog.Logger {
	if !f.trace {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// interpreterOptions layers the flags over the project runtime settings.
func (f runtimeFlags) interpreterOptions(rc driver.RuntimeConfig, registry *builtins.Registry) (interpreter.Options, error) {
	name := rc.Engine
	if f.engine != "" {
		name = f.engine
	}
	engine, ok := interpreter.ParseEngine(name)
	if !ok {
		return interpreter.Options{}, fmt.Errorf("unknown engine '%s'", name)
	}
	cfg := rc.GCConfig(gc.DefaultConfig())
	if f.maxHeap > 0 {
		cfg.MaxHeap = f.maxHeap
	}
	if f.noGC {
		cfg.Enabled = false
	}
	opts := interpreter.DefaultOptions()
	opts.GC = cfg
	opts.Registry = registry
	opts.Engine = engine
	opts.Logger = f.logger()
	return opts, nil
}
