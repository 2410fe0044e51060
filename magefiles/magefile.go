//go:build mage

// Package main contains Mage build targets for research-buddy developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "research-buddy"
	cmdPkg  = "./cmd/research-buddy"
)

// localDirs are created by Init: API key files and a project-local data dir.
var localDirs = []string{
	".secrets",
	"data/index",
	"data/reports",
}

// Init creates the local secrets and data directories.
func Init() error {
	for _, dir := range localDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Put API keys in .secrets/ (semantic-scholar-api-key, pubmed-api-key, gemini-api-key).")
	fmt.Println("Run with --data-dir data to keep the library in this checkout.")
	return nil
}

// Build compiles the CLI binary into bin/, stamping the version from git.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Check vets and tests the module.
func Check() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	mg.Deps(Test)
	return nil
}

// Stats prints non-blank Go lines per package, split into production and test code.
func Stats() error {
	stats, err := countGoLines(".")
	if err != nil {
		return err
	}
	pkgs := make([]string, 0, len(stats))
	for p := range stats {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	var prod, test int
	fmt.Printf("%-28s %8s %8s\n", "package", "prod", "test")
	for _, p := range pkgs {
		s := stats[p]
		fmt.Printf("%-28s %8d %8d\n", p, s.prod, s.test)
		prod += s.prod
		test += s.test
	}
	fmt.Printf("%-28s %8d %8d\n", "total", prod, test)
	return nil
}

type lineCount struct{ prod, test int }

// countGoLines walks root, skipping hidden and underscore-prefixed
// directories, and counts non-blank lines per package directory.
func countGoLines(root string) (map[string]lineCount, error) {
	stats := make(map[string]lineCount)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				n++
			}
		}
		pkg := filepath.Dir(path)
		s := stats[pkg]
		if strings.HasSuffix(path, "_test.go") {
			s.test += n
		} else {
			s.prod += n
		}
		stats[pkg] = s
		return sc.Err()
	})
	return stats, err
}
