package model

import "sort"

// Program is the read-only, pre-loaded representation of an analyzed
// project. It is built once per run by a language front end and never
// mutated afterwards; lookups are the only operations the call-stack
// explorer needs.
type Program struct {
	Language string
	Root     string
	Classes  []*Class

	byName   map[string]*Class
	bySimple map[string][]*Class
}

// NewProgram builds a program from extracted classes. Classes are sorted by
// qualified name so that simple-name lookups and renderings are stable
// across runs.
func NewProgram(language, root string, classes []*Class) *Program {
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Name < classes[j].Name
	})

	p := &Program{
		Language: language,
		Root:     root,
		Classes:  classes,
		byName:   make(map[string]*Class, len(classes)),
		bySimple: make(map[string][]*Class),
	}
	for _, c := range classes {
		if _, ok := p.byName[c.Name]; !ok {
			p.byName[c.Name] = c
		}
		simple := c.SimpleName()
		p.bySimple[simple] = append(p.bySimple[simple], c)
	}
	return p
}

// FindClass looks up a class by qualified name. A bare simple name is
// accepted as a convenience and resolves to the first match in sorted
// order.
func (p *Program) FindClass(name string) (*Class, bool) {
	if c, ok := p.byName[name]; ok {
		return c, true
	}
	if matches := p.bySimple[name]; len(matches) > 0 {
		return matches[0], true
	}
	return nil, false
}

// FindMethod resolves a method by name alone: the first declared method
// whose name matches wins, overloads are not disambiguated.
func (p *Program) FindMethod(c *Class, name string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// MethodCount returns the total number of methods across all classes
func (p *Program) MethodCount() int {
	n := 0
	for _, c := range p.Classes {
		n += len(c.Methods)
	}
	return n
}
