//go:build mage

// Package main contains Mage build targets for paper-assistant developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories ingestion and chat expect.
var projectDirs = []string{
	"data/raw",
	"data/raw_recent",
	"data/processed",
	"data/vector_store",
	".secrets",
}

// Init creates the project directory structure.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "paper-assistant"
	cmdPkg  = "./cmd/paper-assistant"
)

func binPath() string { return filepath.Join(binDir, binName) }

// Build compiles the CLI binary into bin/, stamping the git version when available.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath(), cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", binPath(), version)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check vets and tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints non-blank Go lines per package, split into code and tests.
func Stats() error {
	type count struct{ code, test int }
	pkgs := map[string]*count{}

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := nonBlankLines(path)
		if err != nil {
			return err
		}
		c := pkgs[filepath.Dir(path)]
		if c == nil {
			c = &count{}
			pkgs[filepath.Dir(path)] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.code += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(pkgs))
	for d := range pkgs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var total count
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "package\tcode\ttests")
	for _, d := range dirs {
		c := pkgs[d]
		total.code += c.code
		total.test += c.test
		fmt.Fprintf(w, "%s\t%d\t%d\n", d, c.code, c.test)
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", total.code, total.test)
	return w.Flush()
}

// skipDir reports directories that hold reference material or build output.
func skipDir(name string) bool {
	return name == binDir || name == "data" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func nonBlankLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}
