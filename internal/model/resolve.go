package model

import "strings"

// ResolutionMode selects how call targets are matched
type ResolutionMode string

const (
	// ResolveByName binds to the first declared method whose name matches,
	// ignoring parameters. This mirrors the historical behavior and is the
	// default.
	ResolveByName ResolutionMode = "name"
	// ResolveBySignature additionally matches the argument count and
	// reports a tie as ambiguous instead of picking the first candidate.
	ResolveBySignature ResolutionMode = "signature"
)

// ResolutionStatus tags the outcome of resolving an invocation site
type ResolutionStatus string

const (
	StatusResolved   ResolutionStatus = "resolved"
	StatusAmbiguous  ResolutionStatus = "ambiguous"
	StatusUnresolved ResolutionStatus = "unresolved"
)

// Resolution is the result of binding an invocation site to a method
// within the loaded program.
type Resolution struct {
	Status     ResolutionStatus
	Method     *Method
	Candidates []*Method
}

// maxHierarchyDepth caps superclass chain walks; deeper chains are treated
// as unresolved rather than looping on malformed input.
const maxHierarchyDepth = 32

// Resolve binds an invocation site to a method of the loaded program.
// Candidate classes come from the front end's syntactic binding
// (site.Targets); each candidate's superclass chain is searched as well,
// so inherited methods resolve to their declaring class. Calls whose
// target lies outside the program come back unresolved; that is the
// normal case for library and JDK calls, not an error.
func (p *Program) Resolve(caller *Method, site *Invocation, mode ResolutionMode) Resolution {
	var owner *Class
	if caller != nil {
		owner = p.byName[caller.Class]
	}

	var candidates []*Method
	seen := make(map[*Method]bool)

	for _, ref := range site.Targets {
		cls := p.resolveClassRef(ref, owner)
		if cls == nil {
			continue
		}

		found := p.lookupInHierarchy(cls, site, mode)
		if mode == ResolveByName && len(found) > 0 {
			// First match wins, in target order then declaration order.
			return Resolution{Status: StatusResolved, Method: found[0]}
		}
		for _, m := range found {
			if !seen[m] {
				seen[m] = true
				candidates = append(candidates, m)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return Resolution{Status: StatusUnresolved}
	case 1:
		return Resolution{Status: StatusResolved, Method: candidates[0]}
	default:
		return Resolution{Status: StatusAmbiguous, Candidates: candidates}
	}
}

// lookupInHierarchy searches a class and its in-program superclass chain.
// A match in a subclass shadows matches further up the chain.
func (p *Program) lookupInHierarchy(cls *Class, site *Invocation, mode ResolutionMode) []*Method {
	visited := make(map[string]bool)
	for depth := 0; cls != nil && depth < maxHierarchyDepth; depth++ {
		if visited[cls.Name] {
			break
		}
		visited[cls.Name] = true

		var matches []*Method
		for _, m := range cls.Methods {
			if m.Name != site.Name {
				continue
			}
			if mode == ResolveBySignature && len(m.Params) != site.Args {
				continue
			}
			matches = append(matches, m)
		}
		if len(matches) > 0 {
			return matches
		}

		if cls.Superclass == "" {
			break
		}
		cls = p.resolveClassRef(cls.Superclass, cls)
	}
	return nil
}

// resolveClassRef maps a class reference as written in source to a loaded
// class: exact qualified name first, then the referencing class's imports
// (explicit, then wildcard), then the same package.
func (p *Program) resolveClassRef(ref string, from *Class) *Class {
	if ref == "" {
		return nil
	}
	if c, ok := p.byName[ref]; ok {
		return c
	}
	if from == nil {
		return nil
	}

	suffix := "." + ref
	for _, imp := range from.Imports {
		if imp.Wildcard || imp.Static {
			continue
		}
		if imp.Name == ref || strings.HasSuffix(imp.Name, suffix) {
			if c, ok := p.byName[imp.Name]; ok {
				return c
			}
		}
	}
	for _, imp := range from.Imports {
		if !imp.Wildcard || imp.Static {
			continue
		}
		if c, ok := p.byName[imp.Name+"."+ref]; ok {
			return c
		}
	}
	if from.Package != "" {
		if c, ok := p.byName[from.Package+suffix]; ok {
			return c
		}
	}
	return nil
}
