package callstack

import (
	"github.com/mkravets/jcg/internal/model"
)

// Program is the lookup surface the explorer needs from a loaded project.
// *model.Program satisfies it; tests substitute hand-built programs.
type Program interface {
	FindClass(name string) (*model.Class, bool)
	FindMethod(c *model.Class, name string) (*model.Method, bool)
	Resolve(caller *model.Method, site *model.Invocation, mode model.ResolutionMode) model.Resolution
}

// Explorer reconstructs the invocation tree reachable from an entry
// method. The walk is depth-first and path-sensitive: the visited set is
// scoped to the current root-to-node path, so a method reachable along two
// independent paths is expanded once per path, and a cycle is cut exactly
// where the current chain revisits itself. There is deliberately no global
// memoization; collapsing revisits across branches would change what
// RECURSIVE_CUT means.
type Explorer struct {
	prog     Program
	mode     model.ResolutionMode
	maxDepth int
	maxNodes int
}

// Option configures an Explorer
type Option func(*Explorer)

// WithResolutionMode selects name-only or signature-aware target matching
func WithResolutionMode(mode model.ResolutionMode) Option {
	return func(e *Explorer) {
		e.mode = mode
	}
}

// WithMaxDepth bounds the expansion depth; 0 means unlimited
func WithMaxDepth(n int) Option {
	return func(e *Explorer) {
		e.maxDepth = n
	}
}

// WithMaxNodes bounds the total tree size; 0 means unlimited
func WithMaxNodes(n int) Option {
	return func(e *Explorer) {
		e.maxNodes = n
	}
}

// New creates an explorer over a loaded program
func New(prog Program, opts ...Option) *Explorer {
	e := &Explorer{
		prog: prog,
		mode: model.ResolveByName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explore builds the call tree rooted at the given entry point. A missing
// class or method is a reportable outcome, not an error: the result is a
// single not-found node. All other per-branch conditions are likewise
// encoded in the tree, so one call always yields a complete, inspectable
// result.
func (e *Explorer) Explore(className, methodName string) *Node {
	cls, ok := e.prog.FindClass(className)
	if !ok {
		return &Node{Signature: "Class not found: " + className, Marker: MarkerNotFound}
	}
	method, ok := e.prog.FindMethod(cls, methodName)
	if !ok {
		return &Node{Signature: "Method not found: " + methodName, Marker: MarkerNotFound}
	}

	b := &budget{maxNodes: e.maxNodes}
	return e.expand(method, newPath(method.Signature()), 0, b)
}

// expand creates the node for method and descends into its invocation
// sites in declaration order. Each recursive call receives its own copy of
// the path, never a reference shared with sibling branches.
func (e *Explorer) expand(method *model.Method, path visitedPath, depth int, b *budget) *Node {
	node := &Node{
		Class:     method.Class,
		Method:    method.Name,
		Signature: method.Signature(),
		Marker:    MarkerExpanded,
	}
	b.spend()

	for _, site := range method.Invocations {
		// Once the node allowance is spent, the remaining sites collapse
		// into a single truncation marker; leaves count too, so maxNodes
		// bounds the whole walk.
		if b.exhausted() {
			node.Children = append(node.Children, &Node{Marker: MarkerTruncated})
			break
		}

		res := e.prog.Resolve(method, site, e.mode)
		switch res.Status {
		case model.StatusUnresolved:
			b.spend()
			node.Children = append(node.Children, &Node{
				Signature: site.Text,
				Marker:    MarkerExternal,
			})

		case model.StatusAmbiguous:
			b.spend()
			node.Children = append(node.Children, &Node{
				Signature:  site.Text,
				Marker:     MarkerAmbiguous,
				Candidates: len(res.Candidates),
			})

		case model.StatusResolved:
			sig := res.Method.Signature()
			if path.contains(sig) {
				b.spend()
				node.Children = append(node.Children, &Node{
					Class:     res.Method.Class,
					Method:    res.Method.Name,
					Signature: sig,
					Marker:    MarkerRecursiveCut,
				})
				continue
			}
			if e.maxDepth > 0 && depth+1 > e.maxDepth {
				b.spend()
				node.Children = append(node.Children, &Node{
					Class:     res.Method.Class,
					Method:    res.Method.Name,
					Signature: sig,
					Marker:    MarkerTruncated,
				})
				continue
			}
			node.Children = append(node.Children, e.expand(res.Method, path.extend(sig), depth+1, b))
		}
	}

	return node
}

// budget tracks the node allowance for a single exploration
type budget struct {
	maxNodes int
	used     int
}

func (b *budget) spend() {
	b.used++
}

func (b *budget) exhausted() bool {
	return b.maxNodes > 0 && b.used >= b.maxNodes
}

// visitedPath is the ordered set of method signatures along the current
// root-to-node path. extend returns a fresh copy so sibling branches never
// observe each other's additions.
type visitedPath struct {
	sigs []string
}

func newPath(sig string) visitedPath {
	return visitedPath{sigs: []string{sig}}
}

func (p visitedPath) contains(sig string) bool {
	for _, s := range p.sigs {
		if s == sig {
			return true
		}
	}
	return false
}

func (p visitedPath) extend(sig string) visitedPath {
	next := make([]string, len(p.sigs), len(p.sigs)+1)
	copy(next, p.sigs)
	return visitedPath{sigs: append(next, sig)}
}
