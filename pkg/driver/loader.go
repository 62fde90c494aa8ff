package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
)

// ProgramExt is the extension of parsed programs on disk.
const ProgramExt = ".json"

// ErrLibraryNotFound is returned when no search root holds a library.
var ErrLibraryNotFound = errors.New("library not found")

// Loader reads parsed programs from disk and resolves `using` directives
// against a list of search roots.
type Loader struct {
	roots    []string
	registry *builtins.Registry
	logger   *slog.Logger
}

// NewLoader constructs a loader. Libraries the registry provides are never
// looked up on disk.
func NewLoader(roots []string, registry *builtins.Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cleaned := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		cleaned = append(cleaned, root)
	}
	return &Loader{roots: cleaned, registry: registry, logger: logger}
}

// Roots returns the search roots in lookup order.
func (l *Loader) Roots() []string {
	return append([]string(nil), l.roots...)
}

// LoadProgram decodes the program stored at path. A program without a name
// is named after its file.
func (l *Loader) LoadProgram(path string) (*ast.Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer file.Close()
	prog, err := ast.DecodeProgram(file)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if prog.Name == "" {
		prog.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return prog, nil
}

// ResolveLibrary maps a dotted library name to the first matching file
// under the search roots: a.b.c resolves to <root>/a/b/c.json.
func (l *Loader) ResolveLibrary(name string) (string, error) {
	rel := filepath.Join(strings.Split(name, ".")...) + ProgramExt
	for _, root := range l.roots {
		candidate := filepath.Join(root, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: %w: %s (searched %s)", ErrLibraryNotFound, name, strings.Join(l.roots, ", "))
}

// LoadLibraries loads every library entry needs, directly or through other
// libraries. Resolution repeats until a pass discovers nothing new.
func (l *Loader) LoadLibraries(entry *ast.Program) (map[string]*ast.Program, error) {
	libs := make(map[string]*ast.Program)
	pending := UsedLibraries(entry)
	for len(pending) > 0 {
		var next []string
		for _, name := range pending {
			if _, done := libs[name]; done {
				continue
			}
			if _, builtin := l.registry.Lookup(name); builtin {
				continue
			}
			path, err := l.ResolveLibrary(name)
			if err != nil {
				return nil, err
			}
			prog, err := l.LoadProgram(path)
			if err != nil {
				return nil, err
			}
			prog.Name = name
			libs[name] = prog
			l.logger.Debug("library resolved", "name", name, "path", path)
			next = append(next, UsedLibraries(prog)...)
		}
		pending = next
	}
	return libs, nil
}

// UsedLibraries lists the libraries a program names, in first-use order:
// its libs header followed by every `using` statement at any depth.
func UsedLibraries(prog *ast.Program) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, lib := range prog.Libs {
		add(lib)
	}
	walkUsing(prog.Statements, add)
	return out
}

func walkUsing(stmts []ast.Statement, add func(string)) {
	block := func(b *ast.Block) {
		if b != nil {
			walkUsing(b.Statements, add)
		}
	}
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *ast.Using:
			add(n.Library)
		case *ast.Block:
			block(n)
		case *ast.FunctionDefinition:
			block(n.Body)
		case *ast.If:
			block(n.Then)
			for _, elif := range n.ElseIfs {
				block(elif.Body)
			}
			block(n.Else)
		case *ast.While:
			block(n.Body)
		case *ast.DoWhile:
			block(n.Body)
		case *ast.For:
			walkUsing(n.Init, add)
			block(n.Body)
		case *ast.ForEach:
			block(n.Body)
		case *ast.Switch:
			for _, c := range n.Cases {
				walkUsing(c.Body, add)
			}
		case *ast.TryCatch:
			block(n.Try)
			block(n.Catch)
		}
	}
}
