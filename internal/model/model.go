package model

import "strings"

// ClassKind represents the kind of a type declaration
type ClassKind string

const (
	ClassKindClass     ClassKind = "class"
	ClassKindInterface ClassKind = "interface"
	ClassKindEnum      ClassKind = "enum"
	ClassKindStruct    ClassKind = "struct"
	ClassKindPackage   ClassKind = "package"
)

// MethodKind distinguishes regular methods from constructors
type MethodKind string

const (
	MethodKindMethod      MethodKind = "method"
	MethodKindConstructor MethodKind = "constructor"
)

// Class represents a type declaration extracted from source
type Class struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`    // qualified name (com.acme.Foo)
	Package     string    `json:"package"` // package name
	Kind        ClassKind `json:"kind"`
	File        string    `json:"file"`
	Line        int       `json:"line"`
	Modifiers   string    `json:"modifiers,omitempty"`
	Annotations []string  `json:"annotations,omitempty"`
	Doc         string    `json:"doc,omitempty"`
	Superclass  string    `json:"superclass,omitempty"`
	Interfaces  []string  `json:"interfaces,omitempty"`
	Imports     []*Import `json:"imports,omitempty"`
	Fields      []*Field  `json:"fields,omitempty"`
	Methods     []*Method `json:"methods,omitempty"` // declaration order
}

// SimpleName returns the last dotted segment of the class name
func (c *Class) SimpleName() string {
	if idx := strings.LastIndex(c.Name, "."); idx >= 0 {
		return c.Name[idx+1:]
	}
	return c.Name
}

// Import represents a single import declaration
type Import struct {
	ID       int64  `json:"id,omitempty"`
	ClassID  int64  `json:"class_id,omitempty"`
	Name     string `json:"name"`
	Static   bool   `json:"static,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
}

// Field represents a field declaration
type Field struct {
	ID          int64    `json:"id,omitempty"`
	ClassID     int64    `json:"class_id,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Modifiers   string   `json:"modifiers,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Line        int      `json:"line"`
}

// Param represents a single method parameter
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method represents a method or constructor declaration
type Method struct {
	ID          int64         `json:"id,omitempty"`
	ClassID     int64         `json:"class_id,omitempty"`
	Class       string        `json:"class"` // owning qualified class name
	Name        string        `json:"name"`
	Kind        MethodKind    `json:"kind"`
	Params      []Param       `json:"params,omitempty"`
	ReturnType  string        `json:"return_type,omitempty"`
	Modifiers   string        `json:"modifiers,omitempty"`
	Annotations []string      `json:"annotations,omitempty"`
	Doc         string        `json:"doc,omitempty"`
	File        string        `json:"file"`
	Line        int           `json:"line"`
	EndLine     int           `json:"end_line,omitempty"`
	Complexity  int           `json:"complexity,omitempty"`
	Invocations []*Invocation `json:"invocations,omitempty"` // source order
}

// Signature returns the canonical method signature, the identity used for
// call-path membership and tree-node equality.
// e.g. "com.acme.OrderService.save(Order, boolean)"
func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.Class)
	sb.WriteString(".")
	sb.WriteString(m.Name)
	sb.WriteString("(")
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
	}
	sb.WriteString(")")
	return sb.String()
}

// QualifiedName returns the class-qualified method name without parameters
func (m *Method) QualifiedName() string {
	return m.Class + "." + m.Name
}

// Invocation represents a single call site inside a method body, in the
// order statements occur. Targets holds the candidate owning-class names
// the front end could bind syntactically; an empty list means the callee
// is outside anything the front end can see.
type Invocation struct {
	ID        int64    `json:"id,omitempty"`
	MethodID  int64    `json:"method_id,omitempty"`
	Name      string   `json:"name"`                // called method name
	Qualifier string   `json:"qualifier,omitempty"` // receiver text as written
	Text      string   `json:"text"`                // call expression as written
	Line      int      `json:"line"`
	Args      int      `json:"args"`
	Targets   []string `json:"targets,omitempty"` // candidate owning classes
}

// Endpoint represents an HTTP endpoint mapped by annotations
type Endpoint struct {
	ID         int64  `json:"id,omitempty"`
	MethodID   int64  `json:"method_id,omitempty"`
	HTTPMethod string `json:"http_method"`
	Path       string `json:"path"`
	Class      string `json:"class"`
	Method     string `json:"method"`
}
