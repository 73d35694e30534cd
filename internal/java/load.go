package java

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mkravets/jcg/internal/model"
)

// skipDirs are directory names never descended into during source
// discovery. Build output and VCS metadata contain generated or vendored
// Java that would pollute the model.
var skipDirs = map[string]bool{
	".git":         true,
	".idea":        true,
	".gradle":      true,
	"target":       true,
	"build":        true,
	"out":          true,
	"node_modules": true,
}

// FindSourceFiles walks a project tree and returns all Java source files
// in lexical order. Directories named in excludes are skipped on top of
// the built-in skip list.
func FindSourceFiles(root string, excludes ...string) ([]string, error) {
	excluded := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		excluded[e] = true
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (skipDirs[name] || excluded[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".java") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return files, nil
}

// Load parses every Java file under root into a single program model.
func Load(root string, excludes ...string) (*model.Program, error) {
	files, err := FindSourceFiles(root, excludes...)
	if err != nil {
		return nil, err
	}
	return LoadFiles(root, files)
}

// LoadFiles parses the given files in parallel and assembles the program.
// Results are collected per file so class order does not depend on
// scheduling.
func LoadFiles(root string, files []string) (*model.Program, error) {
	parser := NewParser()
	perFile := make([][]*model.Class, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			classes, err := parser.ParseFile(path, content)
			if err != nil {
				return err
			}
			perFile[i] = classes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var classes []*model.Class
	for _, cs := range perFile {
		classes = append(classes, cs...)
	}
	return model.NewProgram("java", root, classes), nil
}
