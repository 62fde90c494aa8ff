package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/flexa-script/interpreter-sub000/pkg/analyzer"
	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, `
name: demo
main: src/main.json
namespace: demo
lib_paths: [libs]
runtime:
  engine: bytecode
  gc:
    enabled: false
    max_heap: 64
dependencies:
  util:
    path: ../util
  json:
    git: https://example.com/json.git
    tag: v1.0.0
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "demo" || m.Namespace != "demo" || m.Runtime.Engine != "bytecode" {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if got := m.MainPath(); got != filepath.Join(dir, "src", "main.json") {
		t.Fatalf("unexpected main path %s", got)
	}
	cfg := m.Runtime.GCConfig(gc.DefaultConfig())
	if cfg.Enabled || cfg.MaxHeap != 64 {
		t.Fatalf("unexpected gc config %+v", cfg)
	}
	wantRoots := []string{dir, filepath.Join(dir, "libs"), filepath.Join(dir, "..", "util")}
	roots := m.SearchRoots()
	if len(roots) != len(wantRoots) {
		t.Fatalf("unexpected roots %v", roots)
	}
	for idx := range roots {
		if filepath.Clean(roots[idx]) != filepath.Clean(wantRoots[idx]) {
			t.Fatalf("root %d: expected %s, got %s", idx, wantRoots[idx], roots[idx])
		}
	}
	if names := m.DependencyNames(); !sort.StringsAreSorted(names) || len(names) != 2 {
		t.Fatalf("unexpected dependency names %v", names)
	}
}

func TestManifestValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, `
runtime:
  engine: jit
dependencies:
  a:
    git: https://example.com/a.git
  b:
    path: ../b
    tag: v1
  c:
    git: https://example.com/c.git
    path: ../c
    rev: abc
`)
	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"name must be provided",
		`runtime.engine "jit" must be tree or bytecode`,
		"dependencies.a: git dependencies require rev, tag, or branch",
		"dependencies.b: path dependencies cannot pin a revision",
		"dependencies.c: git and path are mutually exclusive",
		"dependencies.c: path dependencies cannot pin a revision",
	}
	if len(verr.Issues) != len(want) {
		t.Fatalf("unexpected issues %v", verr.Issues)
	}
	for idx := range want {
		if verr.Issues[idx] != want[idx] {
			t.Fatalf("issue %d: expected %q, got %q", idx, want[idx], verr.Issues[idx])
		}
	}
	lines := DiagnosticLines(err)
	if lines[0] != "manifest validation failed:" || lines[1] != "- name must be provided" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestManifestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	writeFile(t, path, "name: demo\nversion: 1\n")
	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "field version not found") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), "name: demo\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if got != filepath.Join(dir, ManifestName) {
		t.Fatalf("unexpected manifest %s", got)
	}
}

const mainProgram = `{"type":"Program","statements":[
  {"type":"Using","library":"util.strings","row":1,"col":1},
  {"type":"Using","library":"flx.std.math"},
  {"type":"Block","statements":[{"type":"Using","library":"util.nested"}]}
]}`

func TestLoaderResolvesLibrariesTransitively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.json"), mainProgram)
	libs := filepath.Join(dir, "libs")
	writeFile(t, filepath.Join(libs, "util", "strings.json"),
		`{"type":"Program","namespace":"util","statements":[{"type":"Using","library":"util.base"}]}`)
	writeFile(t, filepath.Join(libs, "util", "base.json"), `{"type":"Program","namespace":"util","statements":[]}`)
	writeFile(t, filepath.Join(dir, "util", "nested.json"), `{"type":"Program","statements":[]}`)

	loader := NewLoader([]string{dir, libs, dir}, builtins.Default(), nil)
	if len(loader.Roots()) != 2 {
		t.Fatalf("expected duplicate roots to collapse, got %v", loader.Roots())
	}
	entry, err := loader.LoadProgram(filepath.Join(dir, "main.json"))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if entry.Name != "main" {
		t.Fatalf("expected program named after its file, got %q", entry.Name)
	}
	if used := UsedLibraries(entry); strings.Join(used, ",") != "util.strings,flx.std.math,util.nested" {
		t.Fatalf("unexpected used libraries %v", used)
	}
	loaded, err := loader.LoadLibraries(entry)
	if err != nil {
		t.Fatalf("LoadLibraries: %v", err)
	}
	var names []string
	for name, prog := range loaded {
		if prog.Name != name {
			t.Fatalf("library %s loaded as %s", name, prog.Name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "util.base,util.nested,util.strings" {
		t.Fatalf("unexpected libraries %v", names)
	}
	if loaded["util.base"].Namespace != "util" {
		t.Fatalf("library namespace not preserved")
	}
}

func TestLoaderReportsMissingLibrary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.json"), `{"type":"Program","statements":[{"type":"Using","library":"no.such"}]}`)
	loader := NewLoader([]string{dir}, builtins.Default(), nil)
	entry, err := loader.LoadProgram(filepath.Join(dir, "main.json"))
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if _, err := loader.LoadLibraries(entry); !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
}

func TestOpenProjectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), "name: demo\nmain: src/main.json\nnamespace: demo\nlib_paths: [libs]\n")
	writeFile(t, filepath.Join(dir, "src", "main.json"),
		`{"type":"Program","statements":[{"type":"Using","library":"geo"}]}`)
	writeFile(t, filepath.Join(dir, "libs", "geo.json"), `{"type":"Program","namespace":"geo","statements":[]}`)

	project, err := Open(dir, builtins.Default(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if project.Entry.Namespace != "demo" {
		t.Fatalf("expected manifest namespace, got %q", project.Entry.Namespace)
	}
	if _, ok := project.Libraries["geo"]; !ok {
		t.Fatalf("expected geo library, got %v", project.Libraries)
	}
	if project.Runtime().Engine != "" {
		t.Fatalf("unexpected engine %q", project.Runtime().Engine)
	}
}

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lock := NewLockfile("demo")
	lock.Packages = append(lock.Packages,
		&LockedPackage{Name: "zeta", Version: "v1", Source: "git+x@1", Dir: "/tmp/zeta"},
		&LockedPackage{Name: "alpha", Version: "local", Source: "path:../alpha", Dir: "/tmp/alpha"},
	)
	path := filepath.Join(dir, LockfileName)
	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Root != "demo" || len(loaded.Packages) != 2 || loaded.Packages[0].Name != "alpha" {
		t.Fatalf("unexpected lockfile %+v", loaded)
	}
	if dirs := loaded.Dirs(); dirs[0] != "/tmp/alpha" || dirs[1] != "/tmp/zeta" {
		t.Fatalf("unexpected dirs %v", dirs)
	}
}

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := worktree.Add("geo.json"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "Flexa CLI", Email: "flexa@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := repo.CreateTag("v1.0.0", hash, nil); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	return hash.String()
}

func TestInstallFetchesGitDependencies(t *testing.T) {
	upstream := t.TempDir()
	writeFile(t, filepath.Join(upstream, "geo.json"), `{"type":"Program","namespace":"geo","statements":[]}`)
	commit := initGitRepo(t, upstream)

	project := t.TempDir()
	writeFile(t, filepath.Join(project, ManifestName),
		"name: demo\nmain: main.json\ndependencies:\n  geo:\n    git: "+upstream+"\n    tag: v1.0.0\n")
	writeFile(t, filepath.Join(project, "main.json"), `{"type":"Program","statements":[{"type":"Using","library":"geo"}]}`)
	m, err := LoadManifest(filepath.Join(project, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	cache := t.TempDir()
	lock, err := Install(m, NewGitFetcher(cache), nil)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(lock.Packages) != 1 {
		t.Fatalf("unexpected packages %+v", lock.Packages)
	}
	pkg := lock.Packages[0]
	if pkg.Version != "v1.0.0@"+commit || !strings.HasSuffix(pkg.Source, "@"+commit) {
		t.Fatalf("unexpected locked package %+v", pkg)
	}
	if _, err := os.Stat(filepath.Join(pkg.Dir, "geo.json")); err != nil {
		t.Fatalf("checkout missing: %v", err)
	}

	opened, err := Open(project, builtins.Default(), nil)
	if err != nil {
		t.Fatalf("Open after install: %v", err)
	}
	if _, ok := opened.Libraries["geo"]; !ok {
		t.Fatalf("installed library not resolved")
	}
}

func TestDiagnosticLinesSplitsSemanticErrors(t *testing.T) {
	err := analyzer.Check(ast.Prog("main",
		ast.Var("x", ast.Ty(types.Int), ast.Str("a")),
		ast.NewBreak(),
	), analyzer.Options{})
	lines := DiagnosticLines(err)
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "(SERR) main[0:0]: ") || !strings.HasSuffix(lines[1], "break must be inside a loop or switch") {
		t.Fatalf("unexpected lines %v", lines)
	}
	if DiagnosticLines(nil) != nil {
		t.Fatalf("nil error must produce no lines")
	}
}
