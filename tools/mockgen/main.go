// mockgen generates a synthetic Java project for exercising jcg at
// scale: analyze it, then explore stacks from any generated entry point.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Config represents the mock project shape
type Config struct {
	OutputDir     string
	NumPackages   int
	NumClasses    int // classes per package
	NumMethods    int // methods per class
	CallDensity   float64
	CycleRate     float64 // fraction of classes given a recursion cycle
	ExternalRate  float64 // fraction of calls targeting unknown libraries
	Seed          int64
}

// methodRef identifies one generated method
type methodRef struct {
	Pkg    string
	Class  string
	Method string
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "output directory")
	flag.IntVar(&cfg.NumPackages, "pkgs", 5, "number of packages")
	flag.IntVar(&cfg.NumClasses, "classes", 10, "classes per package")
	flag.IntVar(&cfg.NumMethods, "methods", 8, "methods per class")
	flag.Float64Var(&cfg.CallDensity, "density", 3.0, "average calls per method")
	flag.Float64Var(&cfg.CycleRate, "cycles", 0.1, "fraction of classes with a recursion cycle")
	flag.Float64Var(&cfg.ExternalRate, "external", 0.2, "fraction of calls into unknown libraries")
	flag.Int64Var(&cfg.Seed, "seed", 0, "random seed (0 = time based)")
	flag.Parse()

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	total := cfg.NumPackages * cfg.NumClasses * cfg.NumMethods
	fmt.Printf("Generating mock Java project...\n")
	fmt.Printf("  packages: %d\n", cfg.NumPackages)
	fmt.Printf("  classes:  %d\n", cfg.NumPackages*cfg.NumClasses)
	fmt.Printf("  methods:  %d\n", total)
	fmt.Printf("  density:  %.1f calls/method\n", cfg.CallDensity)

	if err := generateProject(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nProject written to %s\n", cfg.OutputDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  jcg analyze %s -o mock.db\n", cfg.OutputDir)
	fmt.Printf("  jcg stack com.mock.p0.Service0_0 m0 %s\n", cfg.OutputDir)
}

func generateProject(cfg *Config) error {
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Registry of every method so call targets can land anywhere.
	var all []methodRef
	for p := 0; p < cfg.NumPackages; p++ {
		pkg := fmt.Sprintf("com.mock.p%d", p)
		for c := 0; c < cfg.NumClasses; c++ {
			class := fmt.Sprintf("Service%d_%d", p, c)
			for m := 0; m < cfg.NumMethods; m++ {
				all = append(all, methodRef{Pkg: pkg, Class: class, Method: fmt.Sprintf("m%d", m)})
			}
		}
	}

	for p := 0; p < cfg.NumPackages; p++ {
		pkg := fmt.Sprintf("com.mock.p%d", p)
		dir := filepath.Join(cfg.OutputDir, "src", "main", "java", filepath.Join(strings.Split(pkg, ".")...))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		for c := 0; c < cfg.NumClasses; c++ {
			class := fmt.Sprintf("Service%d_%d", p, c)
			src := generateClass(cfg, rng, pkg, class, all)
			path := filepath.Join(dir, class+".java")
			if err := os.WriteFile(path, []byte(src), 0644); err != nil {
				return err
			}
		}
	}

	return nil
}

func generateClass(cfg *Config, rng *rand.Rand, pkg, class string, all []methodRef) string {
	cyclic := rng.Float64() < cfg.CycleRate

	// Pick call targets per method first so imports can be collected.
	type callSite struct {
		recv, name string
		external   bool
	}
	calls := make([][]callSite, cfg.NumMethods)
	imports := make(map[string]bool)

	for m := 0; m < cfg.NumMethods; m++ {
		n := int(cfg.CallDensity)
		if rng.Float64() < cfg.CallDensity-float64(n) {
			n++
		}
		for i := 0; i < n; i++ {
			if rng.Float64() < cfg.ExternalRate {
				calls[m] = append(calls[m], callSite{recv: "LibHelper", name: "process", external: true})
				continue
			}
			target := all[rng.Intn(len(all))]
			if target.Pkg != pkg {
				imports[target.Pkg+"."+target.Class] = true
			}
			calls[m] = append(calls[m], callSite{recv: target.Class, name: target.Method})
		}
		// A cycle back into this class's first method.
		if cyclic && m == cfg.NumMethods-1 {
			calls[m] = append(calls[m], callSite{recv: class, name: "m0"})
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s;\n\n", pkg)
	var importList []string
	for imp := range imports {
		importList = append(importList, imp)
	}
	sort.Strings(importList)
	for _, imp := range importList {
		fmt.Fprintf(&sb, "import %s;\n", imp)
	}
	if len(importList) > 0 {
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "public class %s {\n", class)
	for m := 0; m < cfg.NumMethods; m++ {
		fmt.Fprintf(&sb, "\n    public void m%d() {\n", m)
		for _, cs := range calls[m] {
			fmt.Fprintf(&sb, "        %s.%s();\n", cs.recv, cs.name)
		}
		sb.WriteString("    }\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
