package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockfileName is written next to flexa.yml by `flexa deps install`.
const LockfileName = "flexa.lock"

// Lockfile models the flexa.lock contents.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Packages  []*LockedPackage
}

// LockedPackage captures a single resolved dependency and where its sources
// live on disk.
type LockedPackage struct {
	Name    string
	Version string
	Source  string
	Dir     string
}

// NewLockfile constructs a lockfile for the project named root.
func NewLockfile(root string) *Lockfile {
	return &Lockfile{
		Root:      strings.TrimSpace(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Packages:  []*LockedPackage{},
	}
}

// LoadLockfile parses flexa.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	lock.normalize()
	return lock, nil
}

// WriteLockfile serialises the lockfile to path, or to lock.Path when path
// is empty.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock.toDisk()); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

// Dirs returns the source directories of every locked package.
func (l *Lockfile) Dirs() []string {
	dirs := make([]string, 0, len(l.Packages))
	for _, pkg := range l.Packages {
		if pkg != nil && pkg.Dir != "" {
			dirs = append(dirs, pkg.Dir)
		}
	}
	return dirs
}

func (l *Lockfile) normalize() {
	pkgs := l.Packages[:0]
	for _, pkg := range l.Packages {
		if pkg != nil {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	l.Packages = pkgs
}

type lockfileDisk struct {
	Root      string            `yaml:"root"`
	Generated string            `yaml:"generated"`
	Packages  []lockfilePackage `yaml:"packages"`
}

type lockfilePackage struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Source  string `yaml:"source"`
	Dir     string `yaml:"dir"`
}

func (l *Lockfile) toDisk() lockfileDisk {
	out := lockfileDisk{Root: l.Root, Generated: l.Generated}
	for _, pkg := range l.Packages {
		out.Packages = append(out.Packages, lockfilePackage{
			Name:    pkg.Name,
			Version: pkg.Version,
			Source:  pkg.Source,
			Dir:     pkg.Dir,
		})
	}
	return out
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{Root: d.Root, Generated: d.Generated}
	for _, pkg := range d.Packages {
		lock.Packages = append(lock.Packages, &LockedPackage{
			Name:    pkg.Name,
			Version: pkg.Version,
			Source:  pkg.Source,
			Dir:     pkg.Dir,
		})
	}
	return lock
}
