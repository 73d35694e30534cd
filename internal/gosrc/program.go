package gosrc

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"

	"github.com/mkravets/jcg/internal/model"
)

// Load analyzes the Go project at root and assembles the program model:
// packages are loaded, lowered to SSA, and the VTA call graph supplies the
// call sites. Named types become classes; free functions hang off a
// pseudo class per package.
func Load(root string) (*model.Program, error) {
	pkgs, err := LoadPackages(root)
	if err != nil {
		return nil, err
	}
	pkgs = FilterSourcePackages(pkgs)
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no Go packages found under %s", root)
	}

	prog, _ := BuildSSA(pkgs)
	cg, err := BuildCallGraph(prog)
	if err != nil {
		return nil, err
	}

	c := newConverter(prog.Fset, pkgs, root)
	return c.convert(cg), nil
}

// converter turns a VTA call graph into the shared program model.
type converter struct {
	fset        *token.FileSet
	root        string
	projectPkgs map[string]bool

	classes       map[string]*model.Class
	methods       map[string]*model.Method // fn.String() → method
	closureParent map[string]string
}

func newConverter(fset *token.FileSet, pkgs []*packages.Package, root string) *converter {
	projectPkgs := make(map[string]bool)
	for _, pkg := range pkgs {
		if pkg.PkgPath != "" {
			projectPkgs[pkg.PkgPath] = true
		}
	}

	absRoot, _ := filepath.Abs(root)

	return &converter{
		fset:          fset,
		root:          absRoot,
		projectPkgs:   projectPkgs,
		classes:       make(map[string]*model.Class),
		methods:       make(map[string]*model.Method),
		closureParent: make(map[string]string),
	}
}

func (c *converter) convert(cg *callgraph.Graph) *model.Program {
	// First pass: map closures to their parent functions so their calls
	// are merged into the parent's chain.
	for fn := range cg.Nodes {
		if fn == nil || !c.isProjectFunction(fn) {
			continue
		}
		if isClosure(fn) {
			c.closureParent[fn.String()] = parentFunctionName(fn)
		}
	}

	// Second pass: create methods in source order so sibling order in the
	// model never depends on map iteration.
	var fns []*ssa.Function
	for fn := range cg.Nodes {
		if fn == nil || !c.isProjectFunction(fn) || isClosure(fn) {
			continue
		}
		if fn.Synthetic != "" && fn.Pos() == token.NoPos {
			continue
		}
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool {
		pi, pj := c.fset.Position(fns[i].Pos()), c.fset.Position(fns[j].Pos())
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Offset != pj.Offset {
			return pi.Offset < pj.Offset
		}
		return fns[i].String() < fns[j].String()
	})
	for _, fn := range fns {
		c.addMethod(fn)
	}

	// Third pass: turn call edges into invocation sites on the caller.
	for fn, node := range cg.Nodes {
		if fn == nil || node == nil {
			continue
		}
		c.addCallSites(fn, node)
	}

	// Invocations arrive per caller unordered; fix the source order now.
	classes := make([]*model.Class, 0, len(c.classes))
	for _, cls := range c.classes {
		for _, m := range cls.Methods {
			sortSites(m.Invocations)
		}
		classes = append(classes, cls)
	}
	return model.NewProgram("go", c.root, classes)
}

func (c *converter) isProjectFunction(fn *ssa.Function) bool {
	if fn.Pkg == nil {
		return false
	}
	return c.projectPkgs[fn.Pkg.Pkg.Path()]
}

// isClosure checks if a function is a closure or a synthetic wrapper.
// Those are named with a $ suffix in SSA, e.g. "indexCmd$1".
func isClosure(fn *ssa.Function) bool {
	return strings.Contains(fn.Name(), "$")
}

// parentFunctionName strips the closure suffix:
// "github.com/foo/bar.indexCmd$1" → "github.com/foo/bar.indexCmd"
func parentFunctionName(fn *ssa.Function) string {
	name := fn.String()
	if idx := strings.LastIndex(name, "$"); idx != -1 {
		return name[:idx]
	}
	return name
}

// resolveToParent returns the parent function name if this is a closure,
// otherwise the name itself. Nested closures ($1$1) resolve recursively.
func (c *converter) resolveToParent(fnName string) string {
	if parent, ok := c.closureParent[fnName]; ok {
		return c.resolveToParent(parent)
	}
	return fnName
}

// className maps a function to its owning class: the receiver's named
// type for methods, the package pseudo class for free functions.
func (c *converter) className(fn *ssa.Function) (string, model.ClassKind) {
	pkgPath := fn.Pkg.Pkg.Path()
	if recv := fn.Signature.Recv(); recv != nil {
		t := recv.Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		if named, ok := t.(*types.Named); ok {
			kind := model.ClassKindStruct
			if _, isIface := named.Underlying().(*types.Interface); isIface {
				kind = model.ClassKindInterface
			}
			return pkgPath + "." + named.Obj().Name(), kind
		}
	}
	return pkgPath, model.ClassKindPackage
}

func (c *converter) ensureClass(name string, kind model.ClassKind, file string, line int) *model.Class {
	if cls, ok := c.classes[name]; ok {
		return cls
	}
	pkg := name
	if kind != model.ClassKindPackage {
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			pkg = name[:idx]
		}
	}
	cls := &model.Class{
		Name:    name,
		Package: pkg,
		Kind:    kind,
		File:    file,
		Line:    line,
	}
	c.classes[name] = cls
	return cls
}

func (c *converter) addMethod(fn *ssa.Function) {
	clsName, kind := c.className(fn)
	pos := c.fset.Position(fn.Pos())
	file := c.relPath(pos.Filename)

	cls := c.ensureClass(clsName, kind, file, pos.Line)

	m := &model.Method{
		Class:      clsName,
		Name:       fn.Name(),
		Kind:       model.MethodKindMethod,
		Params:     c.paramList(fn),
		ReturnType: c.returnType(fn),
		Doc:        docComment(fn),
		File:       file,
		Line:       pos.Line,
		EndLine:    c.endLine(fn),
		Complexity: complexity(fn),
	}
	cls.Methods = append(cls.Methods, m)
	c.methods[fn.String()] = m
}

// addCallSites records the outgoing edges of one call graph node as
// invocation sites on the (closure-resolved) caller method.
func (c *converter) addCallSites(fn *ssa.Function, node *callgraph.Node) {
	callerName := c.resolveToParent(fn.String())
	caller, ok := c.methods[callerName]
	if !ok {
		return
	}
	merged := callerName != fn.String()

	for _, edge := range node.Out {
		if edge.Callee == nil || edge.Callee.Func == nil {
			continue
		}
		calleeName := c.resolveToParent(edge.Callee.Func.String())
		callee, ok := c.methods[calleeName]
		if !ok {
			// Calls into dependencies and the standard library are not
			// part of the model.
			continue
		}

		// Closure merging can fabricate self loops; genuine recursion
		// has distinct SSA functions on neither side.
		if callerName == calleeName && (merged || calleeName != edge.Callee.Func.String()) {
			continue
		}

		line := 0
		if edge.Site != nil && edge.Site.Pos() != token.NoPos {
			line = c.fset.Position(edge.Site.Pos()).Line
		}
		if c.hasSite(caller, line, callee) {
			continue
		}

		caller.Invocations = append(caller.Invocations, &model.Invocation{
			Name:      callee.Name,
			Qualifier: callee.Class,
			Text:      callee.QualifiedName() + "()",
			Line:      line,
			Args:      len(callee.Params),
			Targets:   []string{callee.Class},
		})
	}
}

// hasSite reports whether the same callee was already recorded at the
// same line; VTA can surface one syntactic call through several edges.
func (c *converter) hasSite(caller *model.Method, line int, callee *model.Method) bool {
	for _, inv := range caller.Invocations {
		if inv.Line == line && inv.Name == callee.Name && len(inv.Targets) == 1 && inv.Targets[0] == callee.Class {
			return true
		}
	}
	return false
}

func sortSites(sites []*model.Invocation) {
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Line != sites[j].Line {
			return sites[i].Line < sites[j].Line
		}
		return sites[i].Text < sites[j].Text
	})
}

func (c *converter) paramList(fn *ssa.Function) []model.Param {
	sig := fn.Signature
	qual := types.RelativeTo(fn.Pkg.Pkg)
	tuple := sig.Params()
	if tuple.Len() == 0 {
		return nil
	}
	params := make([]model.Param, 0, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		v := tuple.At(i)
		params = append(params, model.Param{
			Name: v.Name(),
			Type: types.TypeString(v.Type(), qual),
		})
	}
	return params
}

func (c *converter) returnType(fn *ssa.Function) string {
	res := fn.Signature.Results()
	if res.Len() == 0 {
		return ""
	}
	qual := types.RelativeTo(fn.Pkg.Pkg)
	parts := make([]string, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		parts = append(parts, types.TypeString(res.At(i).Type(), qual))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c *converter) endLine(fn *ssa.Function) int {
	syntax := fn.Syntax()
	if syntax == nil {
		return 0
	}
	return c.fset.Position(syntax.End()).Line
}

func (c *converter) relPath(file string) string {
	if file == "" || c.root == "" {
		return file
	}
	if rel, err := filepath.Rel(c.root, file); err == nil {
		return rel
	}
	return file
}

// docComment extracts the doc comment for a function
func docComment(fn *ssa.Function) string {
	decl, ok := fn.Syntax().(*ast.FuncDecl)
	if !ok || decl.Doc == nil {
		return ""
	}
	return strings.TrimSpace(decl.Doc.Text())
}

// complexity counts branching statements on top of a base cost of one,
// mirroring what the Java front end reports.
func complexity(fn *ssa.Function) int {
	n := 1
	decl, ok := fn.Syntax().(*ast.FuncDecl)
	if !ok || decl.Body == nil {
		return n
	}
	ast.Inspect(decl.Body, func(node ast.Node) bool {
		switch node.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt,
			*ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			n++
		}
		return true
	})
	return n
}
