package main

import (
	"fmt"
	"os"

	"github.com/flexa-script/interpreter-sub000/pkg/driver"
)

func runDeps(args []string, flags runtimeFlags) int {
	if len(args) == 0 || args[0] != "install" {
		fmt.Fprintln(os.Stderr, "flexa deps expects the install subcommand")
		printUsage()
		return 1
	}
	dir := "."
	switch len(args) {
	case 1:
	case 2:
		dir = args[1]
	default:
		fmt.Fprintf(os.Stderr, "flexa deps install takes at most one directory\n")
		return 1
	}

	manifestPath, err := driver.FindManifest(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flexa deps install: %v\n", err)
		return 1
	}
	if manifestPath == "" {
		fmt.Fprintf(os.Stderr, "flexa deps install: %s not found\n", driver.ManifestName)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		driver.Report(os.Stderr, err)
		return 1
	}
	cacheDir, err := driver.DefaultCacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flexa deps install: %v\n", err)
		return 1
	}
	lock, err := driver.Install(manifest, driver.NewGitFetcher(cacheDir), flags.logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "flexa deps install: %v\n", err)
		return 1
	}
	for _, pkg := range lock.Packages {
		fmt.Fprintf(os.Stdout, "%s %s\n", pkg.Name, pkg.Version)
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d packages)\n", lock.Path, len(lock.Packages))
	return 0
}
