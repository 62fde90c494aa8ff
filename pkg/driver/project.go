package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
)

// Project is an entry program with everything needed to run it: the
// manifest (when one exists), the resolved libraries and the search roots
// they were found under.
type Project struct {
	Manifest  *Manifest
	Entry     *ast.Program
	Libraries map[string]*ast.Program
	Roots     []string
}

// Open prepares the program at path. path may name a program file or a
// directory holding flexa.yml, in which case the manifest's main entry is
// used.
func Open(path string, registry *builtins.Registry, logger *slog.Logger) (*Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if info.IsDir() {
		dir = path
	}
	manifestPath, err := FindManifest(dir)
	if err != nil {
		return nil, err
	}
	var manifest *Manifest
	if manifestPath != "" {
		if manifest, err = LoadManifest(manifestPath); err != nil {
			return nil, err
		}
	}
	entryPath := path
	if info.IsDir() {
		if manifest == nil || manifest.Main == "" {
			return nil, fmt.Errorf("open %s: no %s with a main entry", path, ManifestName)
		}
		entryPath = manifest.MainPath()
	}

	roots := []string{filepath.Dir(entryPath)}
	if manifest != nil {
		roots = append(roots, manifest.SearchRoots()...)
		lock, err := LoadLockfile(filepath.Join(manifest.Dir, LockfileName))
		switch {
		case err == nil:
			roots = append(roots, lock.Dirs()...)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	loader := NewLoader(roots, registry, logger)
	entry, err := loader.LoadProgram(entryPath)
	if err != nil {
		return nil, err
	}
	if entry.Namespace == "" && manifest != nil {
		entry.Namespace = manifest.Namespace
	}
	libs, err := loader.LoadLibraries(entry)
	if err != nil {
		return nil, err
	}
	return &Project{Manifest: manifest, Entry: entry, Libraries: libs, Roots: loader.Roots()}, nil
}

// Runtime returns the manifest runtime settings, or the zero config when
// the project has no manifest.
func (p *Project) Runtime() RuntimeConfig {
	if p.Manifest == nil {
		return RuntimeConfig{}
	}
	return p.Manifest.Runtime
}
