package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flexa-script/interpreter-sub000/pkg/gc"
)

// ManifestName is the project file looked up next to (or above) the entry
// program.
const ManifestName = "flexa.yml"

// Manifest represents the parsed contents of flexa.yml.
type Manifest struct {
	Path         string
	Dir          string
	Name         string
	Main         string
	Namespace    string
	LibPaths     []string
	Runtime      RuntimeConfig
	Dependencies map[string]*DependencySpec
}

// RuntimeConfig holds the interpreter settings a project pins.
type RuntimeConfig struct {
	Engine string
	GC     GCConfig
}

// GCConfig mirrors gc.Config; unset fields keep the collector defaults.
type GCConfig struct {
	Enabled *bool
	MaxHeap int
}

// DependencySpec describes where a library dependency comes from: a git
// repository pinned by rev, tag or branch, or a local path.
type DependencySpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	Path   string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name         string                     `yaml:"name"`
	Main         string                     `yaml:"main"`
	Namespace    string                     `yaml:"namespace"`
	LibPaths     []string                   `yaml:"lib_paths"`
	Runtime      runtimeFile                `yaml:"runtime"`
	Dependencies map[string]*dependencyFile `yaml:"dependencies"`
}

type runtimeFile struct {
	Engine string `yaml:"engine"`
	GC     gcFile `yaml:"gc"`
}

type gcFile struct {
	Enabled *bool `yaml:"enabled"`
	MaxHeap int   `yaml:"max_heap"`
}

type dependencyFile struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

// LoadManifest parses flexa.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks up from dir looking for flexa.yml. It returns an empty
// path and no error when none exists.
func FindManifest(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

func (raw manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:      path,
		Dir:       filepath.Dir(path),
		Name:      strings.TrimSpace(raw.Name),
		Main:      strings.TrimSpace(raw.Main),
		Namespace: strings.TrimSpace(raw.Namespace),
		LibPaths:  append([]string(nil), raw.LibPaths...),
		Runtime: RuntimeConfig{
			Engine: strings.TrimSpace(raw.Runtime.Engine),
			GC:     GCConfig{Enabled: raw.Runtime.GC.Enabled, MaxHeap: raw.Runtime.GC.MaxHeap},
		},
		Dependencies: make(map[string]*DependencySpec, len(raw.Dependencies)),
	}
	for name, dep := range raw.Dependencies {
		if dep == nil {
			m.Dependencies[name] = nil
			continue
		}
		m.Dependencies[name] = &DependencySpec{
			Git:    strings.TrimSpace(dep.Git),
			Rev:    strings.TrimSpace(dep.Rev),
			Tag:    strings.TrimSpace(dep.Tag),
			Branch: strings.TrimSpace(dep.Branch),
			Path:   strings.TrimSpace(dep.Path),
		}
	}
	return m
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	switch m.Runtime.Engine {
	case "", "tree", "bytecode":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("runtime.engine %q must be tree or bytecode", m.Runtime.Engine))
	}
	if m.Runtime.GC.MaxHeap < 0 {
		errs.Issues = append(errs.Issues, "runtime.gc.max_heap must not be negative")
	}
	for i, p := range m.LibPaths {
		if strings.TrimSpace(p) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("lib_paths[%d] must be a non-empty string", i))
		}
	}
	for _, name := range m.DependencyNames() {
		dep := m.Dependencies[name]
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: descriptor must not be empty", name))
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var issues []string
	switch {
	case d.Git != "" && d.Path != "":
		issues = append(issues, "git and path are mutually exclusive")
	case d.Git == "" && d.Path == "":
		issues = append(issues, "one of git or path is required")
	}
	pins := 0
	for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
		if pin != "" {
			pins++
		}
	}
	if d.Git != "" && pins == 0 {
		issues = append(issues, "git dependencies require rev, tag, or branch")
	}
	if pins > 1 {
		issues = append(issues, "only one of rev, tag, or branch may be set")
	}
	if d.Path != "" && pins > 0 {
		issues = append(issues, "path dependencies cannot pin a revision")
	}
	return issues
}

// DependencyNames lists the dependencies in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MainPath resolves the entry program relative to the manifest.
func (m *Manifest) MainPath() string {
	if m.Main == "" || filepath.IsAbs(m.Main) {
		return m.Main
	}
	return filepath.Join(m.Dir, m.Main)
}

// SearchRoots returns the library roots of the project: its own directory,
// each lib path and each local path dependency, resolved against the
// manifest directory.
func (m *Manifest) SearchRoots() []string {
	roots := []string{m.Dir}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(m.Dir, p)
	}
	for _, p := range m.LibPaths {
		roots = append(roots, resolve(p))
	}
	for _, name := range m.DependencyNames() {
		if dep := m.Dependencies[name]; dep != nil && dep.Path != "" {
			roots = append(roots, resolve(dep.Path))
		}
	}
	return roots
}

// GCConfig applies the manifest's collector settings over base.
func (r RuntimeConfig) GCConfig(base gc.Config) gc.Config {
	if r.GC.Enabled != nil {
		base.Enabled = *r.GC.Enabled
	}
	if r.GC.MaxHeap > 0 {
		base.MaxHeap = r.GC.MaxHeap
	}
	return base
}
