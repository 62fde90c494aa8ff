package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/flexa-script/interpreter-sub000/pkg/analyzer"
	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/driver"
	"github.com/flexa-script/interpreter-sub000/pkg/interpreter"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
)

const (
	historyFile = ".flexa_history"
	promptMain  = "flx> "
	promptCont  = "...  "
	replProgram = "repl"
)

const replHelp = `Enter one statement per input as parser JSON, e.g.
  {"type":"Declaration","identifier":"x","value":{"type":"IntLiteral","value":2}}
Input continues until the JSON value is complete.
Commands:
  :help    Show this text
  :quit    Exit the REPL`

// lineReader is satisfied by *liner.State and by the plain reader used when
// stdin is not a terminal.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type historyAppender interface {
	AppendHistory(item string)
}

type plainReader struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// replSession keeps the analyzer and interpreter alive between inputs so
// declarations persist.
type replSession struct {
	program  *ast.Program
	analyzer *analyzer.Analyzer
	interp   *interpreter.Interpreter
	loader   *driver.Loader
	loaded   map[string]bool
	out      io.Writer
}

func newReplSession(opts interpreter.Options, registry *builtins.Registry, roots []string, namespace string, logger *slog.Logger) *replSession {
	return &replSession{
		program:  ast.NewProgram(replProgram, namespace, nil, nil),
		analyzer: analyzer.New(analyzer.Options{Registry: registry, Logger: logger}),
		interp:   interpreter.New(opts),
		loader:   driver.NewLoader(roots, registry, logger),
		loaded:   make(map[string]bool),
		out:      opts.Stdout,
	}
}

func runRepl(args []string, flags runtimeFlags) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "flexa repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flexa repl: %v\n", err)
		return 1
	}
	roots := []string{cwd}
	var rc driver.RuntimeConfig
	namespace := ""
	if path, err := driver.FindManifest(cwd); err == nil && path != "" {
		manifest, err := driver.LoadManifest(path)
		if err != nil {
			driver.Report(os.Stderr, err)
			return 1
		}
		roots = append(roots, manifest.SearchRoots()...)
		rc = manifest.Runtime
		namespace = manifest.Namespace
	}

	registry := builtins.Default()
	opts, err := flags.interpreterOptions(rc, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flexa repl: %v\n", err)
		return 1
	}
	session := newReplSession(opts, registry, roots, namespace, flags.logger())

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return session.loop(&plainReader{in: bufio.NewReader(os.Stdin), out: os.Stdout})
	}

	fmt.Fprintf(os.Stdout, "%s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for help.\n", cliToolVersion)
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()
	return session.loop(ln)
}

// loop reads statements until EOF, :quit or an exit statement and returns
// the exit code.
func (s *replSession) loop(in lineReader) int {
	var buf strings.Builder
	for {
		prompt := promptMain
		if buf.Len() > 0 {
			prompt = promptCont
		}
		line, err := in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintln(s.out)
			return 0
		}

		if buf.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ":quit", ":q":
				return 0
			case ":help":
				fmt.Fprintln(s.out, replHelp)
				continue
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		src := buf.String()
		if incompleteJSON(src) {
			continue
		}
		buf.Reset()
		if h, ok := in.(historyAppender); ok {
			h.AppendHistory(strings.TrimSpace(src))
		}
		if code, exited := s.eval(src); exited {
			return code
		}
	}
}

func incompleteJSON(src string) bool {
	var raw json.RawMessage
	err := json.NewDecoder(strings.NewReader(src)).Decode(&raw)
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// eval analyzes and executes one statement. Errors are echoed without their
// location header.
func (s *replSession) eval(src string) (int, bool) {
	stmt, err := ast.DecodeStatement([]byte(src))
	if err != nil {
		fmt.Fprintln(s.out, err)
		return 0, false
	}
	stmts := []ast.Statement{stmt}
	if err := s.loadLibraries(stmts); err != nil {
		fmt.Fprintln(s.out, err)
		return 0, false
	}
	if diags := s.analyzer.AnalyzeStatements(s.program, stmts); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(s.out, d.Message)
		}
		return 0, false
	}
	if err := s.interp.Exec(s.program, stmts); err != nil {
		fmt.Fprintln(s.out, interpreter.StripLocation(err))
		return 0, false
	}
	if s.interp.Exited() {
		return s.interp.ExitCode(), true
	}
	if _, isExpr := stmt.(ast.Expression); isExpr {
		if v := s.interp.Current(); !v.IsVoidOrUndefined() {
			fmt.Fprintln(s.out, runtime.Format(v))
		}
	}
	return 0, false
}

// loadLibraries resolves the libraries stmts name and hands new ones to both
// the analyzer and the interpreter.
func (s *replSession) loadLibraries(stmts []ast.Statement) error {
	libs, err := s.loader.LoadLibraries(ast.NewProgram(replProgram, "", stmts, nil))
	if err != nil {
		return err
	}
	for name, prog := range libs {
		if s.loaded[name] {
			continue
		}
		s.loaded[name] = true
		s.analyzer.AddLibrary(name, prog)
		s.interp.AddLibrary(name, prog)
	}
	return nil
}
