package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mkravets/jcg/internal/storage"
)

// Exporter generates RAG documentation from the call graph database
type Exporter struct {
	db *storage.DB
}

// NewExporter creates a new exporter
func NewExporter(db *storage.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	IncludeMermaid    bool
	IncludeCallChains bool
	ProjectName       string
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeMermaid:    true,
		IncludeCallChains: true,
		ProjectName:       "project",
	}
}

// ExportMarkdown generates a complete RAG document
func (e *Exporter) ExportMarkdown(w io.Writer, opts ExportOptions) error {
	methods, err := e.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}

	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	pkgMethods := groupByPackage(classes, methods)

	// Header
	fmt.Fprintf(w, "# %s call graph (RAG)\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> Classes: %d | Methods: %d | Call sites: %d (%d resolved)\n\n",
		stats.Classes, stats.Methods, stats.Invocations, stats.Resolved)

	// Package layout
	e.writePackageTree(w, pkgMethods)

	// Architecture diagram
	if opts.IncludeMermaid && len(methods) > 0 {
		e.writeArchitectureDiagram(w, pkgMethods)
	}

	// Package details
	fmt.Fprintf(w, "---\n\n## Packages\n\n")

	pkgNames := getSortedPackageNames(pkgMethods)
	for _, pkg := range pkgNames {
		e.writePackageSection(w, pkg, pkgMethods[pkg], opts)
	}

	// Endpoints
	if err := e.writeEndpoints(w); err != nil {
		return err
	}

	// Impact reference table
	e.writeImpactTable(w, methods)

	return nil
}

// writePackageTree writes the package layout as a directory tree
func (e *Exporter) writePackageTree(w io.Writer, pkgMethods map[string][]*storage.Method) {
	fmt.Fprintf(w, "## Package layout\n\n```\n")

	seen := make(map[string]bool)
	var prefixes []string
	for pkg := range pkgMethods {
		if pkg == "" {
			continue
		}
		parts := strings.Split(pkg, ".")
		for i := 1; i <= len(parts); i++ {
			p := strings.Join(parts[:i], ".")
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}
	sort.Strings(prefixes)

	for _, p := range prefixes {
		depth := strings.Count(p, ".")
		indent := strings.Repeat("│   ", depth)
		name := p
		if idx := strings.LastIndex(p, "."); idx >= 0 {
			name = p[idx+1:]
		}
		fmt.Fprintf(w, "%s├── %s/\n", indent, name)
	}

	fmt.Fprintf(w, "```\n\n")
}

// writeArchitectureDiagram writes a layered Mermaid architecture diagram.
// Classes are grouped into the usual Spring layers by package name.
func (e *Exporter) writeArchitectureDiagram(w io.Writer, pkgMethods map[string][]*storage.Method) {
	fmt.Fprintf(w, "## Architecture\n\n```mermaid\nflowchart TB\n")

	layers := categorizePackages(pkgMethods)
	classSet := make(map[string]bool)

	for _, layer := range []string{"web", "service", "data", "domain", "other"} {
		pkgs, ok := layers[layer]
		if !ok || len(pkgs) == 0 {
			continue
		}

		fmt.Fprintf(w, "    subgraph %s [%s]\n", layer, getLayerDisplayName(layer))

		for _, pkg := range pkgs {
			for _, cls := range classesOf(pkgMethods[pkg]) {
				classSet[cls] = true
				fmt.Fprintf(w, "        %s[%s]\n", makeNodeID(cls), simpleClass(cls))
			}
		}

		fmt.Fprintf(w, "    end\n\n")
	}

	// Class-level call edges between the drawn nodes
	edges, err := e.db.GetCallEdges()
	if err == nil {
		drawn := make(map[string]bool)
		for _, edge := range edges {
			from := classOf(edge.Caller)
			to := classOf(edge.Callee)
			if from == to || !classSet[from] || !classSet[to] {
				continue
			}
			key := from + "->" + to
			if drawn[key] {
				continue
			}
			drawn[key] = true
			fmt.Fprintf(w, "    %s --> %s\n", makeNodeID(from), makeNodeID(to))
		}
	}

	fmt.Fprintf(w, "```\n\n")
}

// writePackageSection writes detailed info for a package
func (e *Exporter) writePackageSection(w io.Writer, pkg string, methods []*storage.Method, opts ExportOptions) {
	if pkg == "" {
		pkg = "(default package)"
	}
	fmt.Fprintf(w, "### 📦 %s\n\n", pkg)

	// Sort public methods first, then by qualified name
	sort.Slice(methods, func(i, j int) bool {
		iPub := isPublicMethod(methods[i])
		jPub := isPublicMethod(methods[j])
		if iPub != jPub {
			return iPub
		}
		return methods[i].QualifiedName() < methods[j].QualifiedName()
	})

	// Table header
	fmt.Fprintf(w, "| Method | Doc | Callers | Callees |\n")
	fmt.Fprintf(w, "|--------|-----|---------|--------|\n")

	for _, m := range methods {
		doc := truncateDoc(m.Doc, 40)
		if doc == "" {
			doc = "-"
		}

		callers, _ := e.db.GetDirectCallers(m.ID)
		callees, _ := e.db.GetDirectCallees(m.ID)

		fmt.Fprintf(w, "| `%s` | %s | %d | %d |\n", shortMethod(m.QualifiedName()), doc, len(callers), len(callees))
	}

	fmt.Fprintf(w, "\n")

	// Detailed info for public methods
	for _, m := range methods {
		if !isPublicMethod(m) {
			continue
		}

		fmt.Fprintf(w, "#### `%s`\n\n", shortMethod(m.QualifiedName()))
		fmt.Fprintf(w, "- **Location**: `%s:%d`\n", m.File, m.Line)

		if m.Signature != "" {
			fmt.Fprintf(w, "- **Signature**: `%s`\n", m.Signature)
		}

		if m.Doc != "" {
			fmt.Fprintf(w, "- **Doc**: %s\n", truncateDoc(m.Doc, 200))
		}

		if opts.IncludeCallChains {
			callers, _ := e.db.GetDirectCallers(m.ID)
			callees, _ := e.db.GetDirectCallees(m.ID)

			if len(callers) > 0 {
				var names []string
				for _, c := range callers {
					names = append(names, "`"+shortMethod(c.QualifiedName())+"`")
				}
				fmt.Fprintf(w, "- **Called by**: %s\n", strings.Join(names, ", "))
			}

			if len(callees) > 0 {
				var names []string
				for _, c := range callees {
					names = append(names, "`"+shortMethod(c.QualifiedName())+"`")
				}
				fmt.Fprintf(w, "- **Calls**: %s\n", strings.Join(names, ", "))
			}
		}

		fmt.Fprintf(w, "\n")
	}
}

// writeEndpoints writes the REST endpoint table, when any were found
func (e *Exporter) writeEndpoints(w io.Writer) error {
	endpoints, err := e.db.GetAllEndpoints()
	if err != nil {
		return fmt.Errorf("failed to get endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		return nil
	}

	fmt.Fprintf(w, "---\n\n## REST endpoints\n\n")
	fmt.Fprintf(w, "| Method | Path | Handler |\n")
	fmt.Fprintf(w, "|--------|------|---------|\n")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "| %s | `%s` | `%s` |\n",
			ep.HTTPMethod, ep.Path, shortMethod(ep.Class+"."+ep.Method))
	}
	fmt.Fprintf(w, "\n")
	return nil
}

// writeImpactTable writes a summary table for impact analysis
func (e *Exporter) writeImpactTable(w io.Writer, methods []*storage.Method) {
	fmt.Fprintf(w, "---\n\n## Change impact quick reference\n\n")
	fmt.Fprintf(w, "| Method | Location | Callers | Callees | Risk |\n")
	fmt.Fprintf(w, "|--------|----------|---------|---------|------|\n")

	// Sort by caller count (most called first)
	type methodWithStats struct {
		m       *storage.Method
		callers int
		callees int
	}

	var stats []methodWithStats
	for _, m := range methods {
		callers, _ := e.db.GetDirectCallers(m.ID)
		callees, _ := e.db.GetDirectCallees(m.ID)
		if len(callers) > 0 {
			stats = append(stats, methodWithStats{m, len(callers), len(callees)})
		}
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].callers != stats[j].callers {
			return stats[i].callers > stats[j].callers
		}
		return stats[i].m.QualifiedName() < stats[j].m.QualifiedName()
	})

	for _, s := range stats {
		risk := "🟢"
		if s.callers >= 5 {
			risk = "🔴 high"
		} else if s.callers >= 3 {
			risk = "🟡 medium"
		}

		fmt.Fprintf(w, "| `%s` | %s:%d | %d | %d | %s |\n",
			shortMethod(s.m.QualifiedName()),
			s.m.File,
			s.m.Line,
			s.callers,
			s.callees,
			risk,
		)
	}
}

// ExportIncremental generates a change report for the given files only
func (e *Exporter) ExportIncremental(w io.Writer, changedFiles []string, opts ExportOptions) error {
	if len(changedFiles) == 0 {
		fmt.Fprintf(w, "# Incremental update\n\n> No changes detected\n")
		return nil
	}

	methods, err := e.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}

	fileSet := make(map[string]bool)
	for _, f := range changedFiles {
		fileSet[f] = true
	}
	var changed []*storage.Method
	for _, m := range methods {
		if fileSet[m.File] {
			changed = append(changed, m)
		}
	}

	fmt.Fprintf(w, "# Incremental update\n\n")
	fmt.Fprintf(w, "> Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> Changed files: %d | Changed methods: %d\n\n", len(changedFiles), len(changed))

	fmt.Fprintf(w, "## Changed files\n\n")
	for _, f := range changedFiles {
		fmt.Fprintf(w, "- `%s`\n", f)
	}
	fmt.Fprintf(w, "\n")

	if len(changed) == 0 {
		fmt.Fprintf(w, "_No affected methods_\n")
		return nil
	}

	fmt.Fprintf(w, "## Affected callers\n\n")

	for _, m := range changed {
		callers, _ := e.db.GetDirectCallers(m.ID)
		if len(callers) == 0 {
			continue
		}

		fmt.Fprintf(w, "### ⚠️ `%s`\n\n", shortMethod(m.QualifiedName()))
		fmt.Fprintf(w, "**Location**: `%s:%d`\n\n", m.File, m.Line)
		fmt.Fprintf(w, "**%d methods call this one and may need review:**\n\n", len(callers))
		fmt.Fprintf(w, "| Caller | File | Line |\n")
		fmt.Fprintf(w, "|--------|------|------|\n")
		for _, c := range callers {
			fmt.Fprintf(w, "| `%s` | %s | %d |\n", shortMethod(c.QualifiedName()), c.File, c.Line)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// jsonDocument is the shape of the JSON export.
type jsonDocument struct {
	GeneratedAt string              `json:"generated_at"`
	Stats       *storage.Stats      `json:"stats"`
	Classes     []*storage.Class    `json:"classes"`
	Methods     []*storage.Method   `json:"methods"`
	Edges       []*storage.CallEdge `json:"edges"`
	Endpoints   []*jsonEndpoint     `json:"endpoints,omitempty"`
}

type jsonEndpoint struct {
	HTTPMethod string `json:"http_method"`
	Path       string `json:"path"`
	Handler    string `json:"handler"`
}

// ExportJSON writes the stored facts as one JSON document
func (e *Exporter) ExportJSON(w io.Writer) error {
	stats, err := e.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	methods, err := e.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}
	edges, err := e.db.GetCallEdges()
	if err != nil {
		return fmt.Errorf("failed to get call edges: %w", err)
	}
	endpoints, err := e.db.GetAllEndpoints()
	if err != nil {
		return fmt.Errorf("failed to get endpoints: %w", err)
	}

	doc := jsonDocument{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Stats:       stats,
		Classes:     classes,
		Methods:     methods,
		Edges:       edges,
	}
	for _, ep := range endpoints {
		doc.Endpoints = append(doc.Endpoints, &jsonEndpoint{
			HTTPMethod: ep.HTTPMethod,
			Path:       ep.Path,
			Handler:    ep.Class + "." + ep.Method,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportDot writes the call graph in Graphviz DOT format, one cluster
// per package.
func (e *Exporter) ExportDot(w io.Writer) error {
	methods, err := e.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}
	classes, err := e.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	edges, err := e.db.GetCallEdges()
	if err != nil {
		return fmt.Errorf("failed to get call edges: %w", err)
	}

	fmt.Fprintf(w, "digraph calls {\n")
	fmt.Fprintf(w, "    rankdir=LR;\n")
	fmt.Fprintf(w, "    node [shape=box, fontsize=10];\n\n")

	pkgMethods := groupByPackage(classes, methods)
	pkgNames := getSortedPackageNames(pkgMethods)
	for i, pkg := range pkgNames {
		label := pkg
		if label == "" {
			label = "(default)"
		}
		fmt.Fprintf(w, "    subgraph cluster_%d {\n", i)
		fmt.Fprintf(w, "        label=%q;\n", label)
		for _, m := range pkgMethods[pkg] {
			fmt.Fprintf(w, "        %q;\n", m.QualifiedName())
		}
		fmt.Fprintf(w, "    }\n\n")
	}

	for _, edge := range edges {
		fmt.Fprintf(w, "    %q -> %q;\n", edge.Caller, edge.Callee)
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// ExportMermaid writes the call graph as a standalone Mermaid flowchart
func (e *Exporter) ExportMermaid(w io.Writer) error {
	methods, err := e.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}
	edges, err := e.db.GetCallEdges()
	if err != nil {
		return fmt.Errorf("failed to get call edges: %w", err)
	}

	fmt.Fprintf(w, "flowchart TD\n")
	for _, m := range methods {
		fmt.Fprintf(w, "    %s[\"%s\"]\n", makeNodeID(m.QualifiedName()), shortMethod(m.QualifiedName()))
	}
	fmt.Fprintf(w, "\n")
	for _, edge := range edges {
		fmt.Fprintf(w, "    %s --> %s\n", makeNodeID(edge.Caller), makeNodeID(edge.Callee))
	}
	return nil
}

// Helper functions

func categorizePackages(pkgMethods map[string][]*storage.Method) map[string][]string {
	layers := make(map[string][]string)

	for pkg := range pkgMethods {
		layers[layerOf(pkg)] = append(layers[layerOf(pkg)], pkg)
	}
	for _, pkgs := range layers {
		sort.Strings(pkgs)
	}

	return layers
}

func layerOf(pkg string) string {
	switch {
	case strings.Contains(pkg, "controller") || strings.Contains(pkg, "web") || strings.Contains(pkg, "rest"):
		return "web"
	case strings.Contains(pkg, "service"):
		return "service"
	case strings.Contains(pkg, "repo") || strings.Contains(pkg, "dao") || strings.Contains(pkg, "persistence"):
		return "data"
	case strings.Contains(pkg, "model") || strings.Contains(pkg, "domain") || strings.Contains(pkg, "entity"):
		return "domain"
	default:
		return "other"
	}
}

func getLayerOrder(pkg string) int {
	switch layerOf(pkg) {
	case "web":
		return 0
	case "service":
		return 1
	case "data":
		return 2
	case "domain":
		return 3
	}
	return 9
}

func getLayerDisplayName(layer string) string {
	switch layer {
	case "web":
		return "Web layer"
	case "service":
		return "Service layer"
	case "data":
		return "Data access"
	case "domain":
		return "Domain model"
	default:
		return "Other"
	}
}

func groupByPackage(classes []*storage.Class, methods []*storage.Method) map[string][]*storage.Method {
	pkgOf := make(map[string]string)
	for _, c := range classes {
		pkgOf[c.Name] = c.Package
	}
	result := make(map[string][]*storage.Method)
	for _, m := range methods {
		result[pkgOf[m.Class]] = append(result[pkgOf[m.Class]], m)
	}
	return result
}

func getSortedPackageNames(pkgMethods map[string][]*storage.Method) []string {
	var names []string
	for pkg := range pkgMethods {
		names = append(names, pkg)
	}
	// Sort by layer order, then name
	sort.Slice(names, func(i, j int) bool {
		oi, oj := getLayerOrder(names[i]), getLayerOrder(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

// shortMethod keeps the class and method of a qualified name
func shortMethod(qualified string) string {
	parts := strings.Split(qualified, ".")
	if len(parts) <= 2 {
		return qualified
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// classOf strips the method segment from a qualified method name
func classOf(qualifiedMethod string) string {
	if idx := strings.LastIndex(qualifiedMethod, "."); idx >= 0 {
		return qualifiedMethod[:idx]
	}
	return qualifiedMethod
}

// simpleClass keeps only the last segment of a qualified class name
func simpleClass(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}

// classesOf returns the distinct owning classes of the methods, sorted
func classesOf(methods []*storage.Method) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, m := range methods {
		if !seen[m.Class] {
			seen[m.Class] = true
			classes = append(classes, m.Class)
		}
	}
	sort.Strings(classes)
	return classes
}

func makeNodeID(name string) string {
	// Create a valid Mermaid node ID
	id := strings.ReplaceAll(name, ".", "_")
	id = strings.ReplaceAll(id, "(", "")
	id = strings.ReplaceAll(id, ")", "")
	id = strings.ReplaceAll(id, "$", "_")
	return id
}

func isPublicMethod(m *storage.Method) bool {
	return strings.Contains(m.Modifiers, "public")
}

func truncateDoc(doc string, maxLen int) string {
	doc = strings.TrimSpace(doc)
	// Take first line only
	if idx := strings.Index(doc, "\n"); idx >= 0 {
		doc = doc[:idx]
	}
	if len(doc) > maxLen {
		return doc[:maxLen-3] + "..."
	}
	return doc
}
