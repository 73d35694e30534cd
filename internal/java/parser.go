package java

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/mkravets/jcg/internal/model"
)

// Parser extracts classes, methods and call sites from Java source files.
type Parser struct{}

// NewParser creates a new Java parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses one compilation unit and returns the classes it
// declares, nested types included, in declaration order.
func (p *Parser) ParseFile(filePath string, content []byte) ([]*model.Class, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(java.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	e := &extractor{
		filePath: filePath,
		content:  content,
	}
	e.walkUnit(tree.RootNode())
	return e.classes, nil
}

// extractor walks a tree-sitter Java AST and builds the class model.
type extractor struct {
	filePath string
	content  []byte
	classes  []*model.Class

	pkgName string
	imports []*model.Import
}

func (e *extractor) walkUnit(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			e.extractPackage(child)
		case "import_declaration":
			e.extractImport(child)
		case "class_declaration", "interface_declaration", "enum_declaration":
			e.extractType(child, "")
		}
	}
}

func (e *extractor) extractPackage(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			e.pkgName = e.nodeText(child)
		}
	}
}

func (e *extractor) extractImport(node *sitter.Node) {
	imp := &model.Import{}
	// Iterate all children: "static" and "asterisk" are unnamed tokens.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.Wildcard = true
		case "scoped_identifier", "identifier":
			imp.Name = e.nodeText(child)
		}
	}
	if imp.Name == "" {
		return
	}
	e.imports = append(e.imports, imp)
}

// extractType handles class, interface and enum declarations. Nested
// types get their enclosing type's qualified name as a prefix, so an
// inner class of com.acme.Outer becomes com.acme.Outer.Inner.
func (e *extractor) extractType(node *sitter.Node, enclosing string) {
	var kind model.ClassKind
	switch node.Type() {
	case "class_declaration":
		kind = model.ClassKindClass
	case "interface_declaration":
		kind = model.ClassKindInterface
	case "enum_declaration":
		kind = model.ClassKindEnum
	default:
		return
	}

	name := ""
	modifiers := ""
	var annotations []string
	var superclass string
	var interfaces []string
	var bodyNode *sitter.Node

	doc := e.extractJavadoc(node)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			name = e.nodeText(child)
		case "modifiers":
			modifiers, annotations = e.extractModifiers(child)
		case "superclass":
			superclass = e.extractSuperclass(child)
		case "super_interfaces", "extends_interfaces":
			interfaces = append(interfaces, e.extractTypeList(child)...)
		case "class_body", "interface_body", "enum_body":
			bodyNode = child
		}
	}
	if name == "" {
		return
	}

	qualified := name
	if enclosing != "" {
		qualified = enclosing + "." + name
	} else if e.pkgName != "" {
		qualified = e.pkgName + "." + name
	}

	cls := &model.Class{
		Name:        qualified,
		Package:     e.pkgName,
		Kind:        kind,
		File:        e.filePath,
		Line:        int(node.StartPoint().Row) + 1,
		Modifiers:   modifiers,
		Annotations: annotations,
		Doc:         doc,
		Superclass:  superclass,
		Interfaces:  interfaces,
		Imports:     e.imports,
	}
	e.classes = append(e.classes, cls)

	if bodyNode != nil {
		e.walkTypeBody(bodyNode, cls, qualified)
	}
}

// walkTypeBody collects fields first so that method bodies can bind
// field-qualified calls regardless of declaration order, then extracts
// the methods themselves.
func (e *extractor) walkTypeBody(body *sitter.Node, cls *model.Class, className string) {
	var methodNodes []*sitter.Node

	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "field_declaration":
				e.extractFields(child, cls)
			case "method_declaration", "constructor_declaration":
				methodNodes = append(methodNodes, child)
			case "class_declaration", "interface_declaration", "enum_declaration":
				e.extractType(child, className)
			case "enum_body_declarations":
				collect(child)
			}
		}
	}
	collect(body)

	for _, m := range methodNodes {
		e.extractMethod(m, cls, className)
	}
}

func (e *extractor) extractFields(node *sitter.Node, cls *model.Class) {
	modifiers := ""
	var annotations []string
	fieldType := ""

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case child.Type() == "modifiers":
			modifiers, annotations = e.extractModifiers(child)
		case isTypeNode(child.Type()):
			fieldType = e.nodeText(child)
		case child.Type() == "variable_declarator":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			cls.Fields = append(cls.Fields, &model.Field{
				Name:        e.nodeText(nameNode),
				Type:        fieldType,
				Modifiers:   modifiers,
				Annotations: annotations,
				Line:        int(node.StartPoint().Row) + 1,
			})
		}
	}
}

func (e *extractor) extractMethod(node *sitter.Node, cls *model.Class, className string) {
	kind := model.MethodKindMethod
	if node.Type() == "constructor_declaration" {
		kind = model.MethodKindConstructor
	}

	name := ""
	returnType := ""
	modifiers := ""
	var annotations []string
	var params []model.Param
	var bodyNode *sitter.Node

	doc := e.extractJavadoc(node)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case child.Type() == "identifier":
			name = e.nodeText(child)
		case child.Type() == "modifiers":
			modifiers, annotations = e.extractModifiers(child)
		case child.Type() == "formal_parameters":
			params = e.extractParams(child)
		case child.Type() == "block" || child.Type() == "constructor_body":
			bodyNode = child
		case isTypeNode(child.Type()):
			returnType = e.nodeText(child)
		}
	}
	if name == "" {
		return
	}

	m := &model.Method{
		Class:       className,
		Name:        name,
		Kind:        kind,
		Params:      params,
		ReturnType:  returnType,
		Modifiers:   modifiers,
		Annotations: annotations,
		Doc:         doc,
		File:        e.filePath,
		Line:        int(node.StartPoint().Row) + 1,
		EndLine:     int(node.EndPoint().Row) + 1,
		Complexity:  1,
	}

	if bodyNode != nil {
		b := &bodyWalker{
			extractor: e,
			class:     cls,
			method:    m,
			locals:    make(map[string]string, len(params)),
		}
		for _, p := range params {
			if p.Name != "" && p.Type != "" {
				b.locals[p.Name] = baseType(p.Type)
			}
		}
		b.walk(bodyNode)
	}

	cls.Methods = append(cls.Methods, m)
}

func (e *extractor) extractParams(node *sitter.Node) []model.Param {
	var params []model.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "formal_parameter":
			p := model.Param{}
			if tn := child.ChildByFieldName("type"); tn != nil {
				p.Type = e.nodeText(tn)
			}
			if nn := child.ChildByFieldName("name"); nn != nil {
				p.Name = e.nodeText(nn)
			}
			params = append(params, p)
		case "spread_parameter":
			// Varargs: type and declarator are positional children.
			p := model.Param{}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				sub := child.NamedChild(j)
				if isTypeNode(sub.Type()) {
					p.Type = e.nodeText(sub) + "..."
				} else if sub.Type() == "variable_declarator" {
					if nn := sub.ChildByFieldName("name"); nn != nil {
						p.Name = e.nodeText(nn)
					}
				}
			}
			params = append(params, p)
		}
	}
	return params
}

func (e *extractor) extractModifiers(node *sitter.Node) (string, []string) {
	var mods []string
	var annotations []string
	// Iterate all children to get keyword modifiers and annotations.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "marker_annotation", "annotation":
			annotations = append(annotations, strings.TrimPrefix(e.nodeText(child), "@"))
		default:
			switch text := e.nodeText(child); text {
			case "public", "private", "protected", "static", "final", "abstract",
				"synchronized", "volatile", "transient", "native", "default":
				mods = append(mods, text)
			}
		}
	}
	return strings.Join(mods, " "), annotations
}

func (e *extractor) extractSuperclass(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isTypeNode(child.Type()) {
			return baseType(e.nodeText(child))
		}
	}
	return ""
}

func (e *extractor) extractTypeList(node *sitter.Node) []string {
	var types []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "type_list" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				types = append(types, baseType(e.nodeText(child.NamedChild(j))))
			}
		} else if isTypeNode(child.Type()) {
			types = append(types, baseType(e.nodeText(child)))
		}
	}
	return types
}

// extractJavadoc looks for a /** */ block comment immediately preceding
// the node. In tree-sitter Java, comments are siblings of the declaration
// they document.
func (e *extractor) extractJavadoc(node *sitter.Node) string {
	parent := node.Parent()
	if parent == nil {
		return ""
	}

	idx := -1
	for i := 0; i < int(parent.ChildCount()); i++ {
		if parent.Child(i) == node {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return ""
	}

	for j := idx - 1; j >= 0; j-- {
		prev := parent.Child(j)
		if prev.Type() == "block_comment" {
			text := e.nodeText(prev)
			if strings.HasPrefix(text, "/**") {
				return cleanJavadoc(text)
			}
			return ""
		}
		if prev.Type() != "line_comment" {
			break
		}
	}
	return ""
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}

// bodyWalker collects invocation sites from one method body in source
// order, tracking declared local types for receiver binding.
type bodyWalker struct {
	*extractor
	class  *model.Class
	method *model.Method
	locals map[string]string // param or local name → declared base type
}

func (b *bodyWalker) walk(node *sitter.Node) {
	switch node.Type() {
	case "local_variable_declaration":
		b.recordLocal(node)
	case "method_invocation":
		b.recordInvocation(node)
	case "object_creation_expression":
		b.recordCreation(node)
	case "if_statement", "while_statement", "for_statement",
		"enhanced_for_statement", "switch_expression", "switch_statement",
		"try_statement", "try_with_resources_statement":
		b.method.Complexity++
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		b.walk(node.NamedChild(i))
	}
}

func (b *bodyWalker) recordLocal(node *sitter.Node) {
	typ := ""
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isTypeNode(child.Type()) {
			typ = baseType(b.nodeText(child))
			continue
		}
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := b.nodeText(nameNode)
		declared := typ
		if declared == "var" {
			// var declarations carry no type; infer from a direct
			// constructor call when there is one.
			declared = ""
			if val := child.ChildByFieldName("value"); val != nil && val.Type() == "object_creation_expression" {
				declared = baseType(b.creationType(val))
			}
		}
		if _, ok := b.locals[name]; !ok && declared != "" {
			b.locals[name] = declared
		}
	}
}

func (b *bodyWalker) recordInvocation(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	site := &model.Invocation{
		Name: b.nodeText(nameNode),
		Text: b.nodeText(node),
		Line: int(node.StartPoint().Row) + 1,
		Args: argumentCount(node.ChildByFieldName("arguments")),
	}

	if obj := node.ChildByFieldName("object"); obj != nil {
		site.Qualifier = b.nodeText(obj)
		site.Targets = b.bindReceiver(obj)
	} else {
		// Unqualified call: own class first, then static imports.
		site.Targets = append([]string{b.class.Name}, b.staticImportTargets(site.Name)...)
	}

	b.method.Invocations = append(b.method.Invocations, site)
}

func (b *bodyWalker) recordCreation(node *sitter.Node) {
	typ := baseType(b.creationType(node))
	if typ == "" {
		return
	}
	b.method.Invocations = append(b.method.Invocations, &model.Invocation{
		Name:      lastSegment(typ),
		Qualifier: "new",
		Text:      b.nodeText(node),
		Line:      int(node.StartPoint().Row) + 1,
		Args:      argumentCount(node.ChildByFieldName("arguments")),
		Targets:   []string{typ},
	})
}

// bindReceiver maps a call receiver expression to candidate class
// references. An empty result means the callee is outside anything the
// parser can see syntactically.
func (b *bodyWalker) bindReceiver(obj *sitter.Node) []string {
	switch obj.Type() {
	case "this":
		return []string{b.class.Name}
	case "super":
		if b.class.Superclass != "" {
			return []string{b.class.Superclass}
		}
		return nil
	case "identifier":
		name := b.nodeText(obj)
		if t, ok := b.locals[name]; ok {
			return []string{t}
		}
		if t := b.fieldType(name); t != "" {
			return []string{baseType(t)}
		}
		if startsUpper(name) {
			// Static call through a class name.
			return []string{name}
		}
		return nil
	case "field_access":
		text := b.nodeText(obj)
		if strings.HasPrefix(text, "this.") {
			if t := b.fieldType(strings.TrimPrefix(text, "this.")); t != "" {
				return []string{baseType(t)}
			}
			return nil
		}
		// A dotted name with an uppercase last segment is a qualified
		// class reference (com.acme.Util); let resolution decide.
		if !strings.ContainsAny(text, "()") && startsUpper(lastSegment(text)) {
			return []string{text}
		}
		return nil
	case "object_creation_expression":
		if t := baseType(b.creationType(obj)); t != "" {
			return []string{t}
		}
		return nil
	}
	return nil
}

func (b *bodyWalker) creationType(node *sitter.Node) string {
	if tn := node.ChildByFieldName("type"); tn != nil {
		return b.nodeText(tn)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isTypeNode(child.Type()) {
			return b.nodeText(child)
		}
	}
	return ""
}

func (b *bodyWalker) fieldType(name string) string {
	for _, f := range b.class.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return ""
}

// staticImportTargets returns classes whose statically imported members
// could supply an unqualified call with the given name.
func (b *bodyWalker) staticImportTargets(name string) []string {
	var targets []string
	for _, imp := range b.class.Imports {
		if !imp.Static {
			continue
		}
		if imp.Wildcard {
			targets = append(targets, imp.Name)
			continue
		}
		if lastSegment(imp.Name) == name {
			targets = append(targets, strings.TrimSuffix(imp.Name, "."+name))
		}
	}
	return targets
}

// Helper functions

func isTypeNode(t string) bool {
	switch t {
	case "type_identifier", "void_type", "generic_type", "array_type",
		"integral_type", "floating_point_type", "boolean_type",
		"scoped_type_identifier":
		return true
	}
	return false
}

// baseType strips generic arguments and array brackets from a declared
// type, leaving the bare name that resolution works with.
func baseType(t string) string {
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.Index(t, "["); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func argumentCount(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

func cleanJavadoc(raw string) string {
	s := strings.TrimPrefix(raw, "/**")
	s = strings.TrimSuffix(s, "*/")

	lines := strings.Split(s, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
