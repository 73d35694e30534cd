package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkravets/jcg/internal/display"
	"github.com/mkravets/jcg/internal/gosrc"
	"github.com/mkravets/jcg/internal/java"
	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// detectLanguage picks the front end for a project: a go.mod at the root
// means Go, otherwise Java.
func detectLanguage(projectPath, lang string) string {
	if lang != "" && lang != "auto" {
		return lang
	}
	if _, err := os.Stat(filepath.Join(projectPath, "go.mod")); err == nil {
		return "go"
	}
	return "java"
}

// loadProgram builds the program model with the selected front end. Any
// load failure here is a setup failure and aborts the command. Excludes
// from the config and the --exclude flag are merged.
func loadProgram(projectPath, lang string, excludes ...string) (*model.Program, error) {
	if _, err := os.Stat(projectPath); err != nil {
		return nil, fmt.Errorf("project path %s: %w", projectPath, err)
	}
	excludes = append(excludes, cfg.Exclude...)
	switch detectLanguage(projectPath, lang) {
	case "go":
		return gosrc.Load(projectPath)
	case "java":
		return java.Load(projectPath, excludes...)
	default:
		return nil, fmt.Errorf("unknown language %q (want auto, java or go)", lang)
	}
}

// sourceExtension returns the file extension the given language's front
// end consumes.
func sourceExtension(language string) string {
	if language == "go" {
		return ".go"
	}
	return ".java"
}

// resolutionMode maps the --resolve flag to a model mode.
func resolutionMode(s string) (model.ResolutionMode, error) {
	switch s {
	case "", "name":
		return model.ResolveByName, nil
	case "signature":
		return model.ResolveBySignature, nil
	default:
		return "", fmt.Errorf("unknown resolution mode %q (want name or signature)", s)
	}
}

// printCallTree prints a stored call tree to stdout.
func printCallTree(tree []*storage.CallTreeNode, indent string, maxWidth, maxDepth, currentDepth int) {
	fmt.Print(display.FormatCallTree(tree, indent, maxWidth, maxDepth, currentDepth))
}

// pickMethod resolves a method reference against the stored facts. When
// the pattern is ambiguous, selectN picks the Nth match directly;
// otherwise the candidates are listed and the user chooses one.
func pickMethod(db *storage.DB, pattern string, selectN int) (*storage.Method, error) {
	methods, err := db.FindMethodsByPattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to find method: %w", err)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("method not found: %s", pattern)
	}
	if len(methods) == 1 {
		return methods[0], nil
	}

	if selectN >= 1 && selectN <= len(methods) {
		return methods[selectN-1], nil
	}

	fmt.Printf("Found %d matching methods, pick one:\n", len(methods))
	for i, m := range methods {
		fmt.Printf("  [%d] %s\n      %s:%d\n", i+1, display.ShortMethodName(m.QualifiedName()), m.File, m.Line)
	}
	fmt.Printf("\nEnter a number [1-%d]: ", len(methods))

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(methods) {
		return nil, fmt.Errorf("invalid selection")
	}
	return methods[choice-1], nil
}
