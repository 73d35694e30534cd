package facts

import (
	"fmt"

	"github.com/mkravets/jcg/internal/model"
)

// Sink receives extracted facts. *storage.DB satisfies it.
type Sink interface {
	InsertClass(c *model.Class) (int64, error)
	InsertMethod(classID int64, m *model.Method) (int64, error)
	InsertInvocation(methodID int64, position int, inv *model.Invocation, calleeID int64, targetClass string) error
	InsertEndpoint(methodID int64, ep *model.Endpoint) error
}

// Builder stores a parsed program's classes, methods and call links
type Builder struct {
	sink        Sink
	mode        model.ResolutionMode
	targetFiles map[string]bool // target files to insert (nil means all)
	methodIDs   map[*model.Method]int64
}

// NewBuilder creates a builder that writes to sink, resolving call
// sites with the given mode.
func NewBuilder(sink Sink, mode model.ResolutionMode) *Builder {
	return &Builder{
		sink:      sink,
		mode:      mode,
		methodIDs: make(map[*model.Method]int64),
	}
}

// SetTargetFiles sets the target files for incremental mode.
// Only classes from these files will be inserted into the database.
func (b *Builder) SetTargetFiles(files []string) {
	if len(files) == 0 {
		b.targetFiles = nil
		return
	}
	b.targetFiles = make(map[string]bool)
	for _, f := range files {
		b.targetFiles[f] = true
	}
}

// isTargetClass checks if a class should be inserted into the database.
// In incremental mode, only classes from target files are inserted.
func (b *Builder) isTargetClass(c *model.Class) bool {
	if b.targetFiles == nil {
		return true
	}
	return b.targetFiles[c.File]
}

// Build stores every class and method of the program, then links call
// sites to their resolved callees.
func (b *Builder) Build(prog *model.Program) error {
	// First pass: classes and methods, so sites can link anywhere.
	for _, c := range prog.Classes {
		if !b.isTargetClass(c) {
			continue
		}
		classID, err := b.sink.InsertClass(c)
		if err != nil {
			return fmt.Errorf("failed to store class %s: %w", c.Name, err)
		}
		for _, m := range c.Methods {
			methodID, err := b.sink.InsertMethod(classID, m)
			if err != nil {
				return fmt.Errorf("failed to store method %s: %w", m.Signature(), err)
			}
			b.methodIDs[m] = methodID
		}
	}

	// Second pass: call sites with resolved targets.
	for _, c := range prog.Classes {
		if !b.isTargetClass(c) {
			continue
		}
		for _, m := range c.Methods {
			methodID := b.methodIDs[m]
			for i, inv := range m.Invocations {
				calleeID, targetClass := b.resolveSite(prog, m, inv)
				if err := b.sink.InsertInvocation(methodID, i, inv, calleeID, targetClass); err != nil {
					return fmt.Errorf("failed to store call site %q: %w", inv.Text, err)
				}
			}
		}
	}

	return nil
}

// resolveSite resolves one call site against the full program. In
// incremental mode the callee may live outside the inserted file set;
// its id is then 0 and the target class name alone is stored so the
// link can be repaired against existing rows.
func (b *Builder) resolveSite(prog *model.Program, caller *model.Method, inv *model.Invocation) (int64, string) {
	res := prog.Resolve(caller, inv, b.mode)
	if res.Status != model.StatusResolved {
		return 0, ""
	}
	return b.methodIDs[res.Method], res.Method.Class
}

// BuildEndpoints stores REST endpoints, linked to their handler methods
// when those were stored.
func (b *Builder) BuildEndpoints(prog *model.Program, endpoints []*model.Endpoint) error {
	for _, ep := range endpoints {
		var methodID int64
		if c, ok := prog.FindClass(ep.Class); ok {
			if m, ok := prog.FindMethod(c, ep.Method); ok {
				methodID = b.methodIDs[m]
			}
		}
		if err := b.sink.InsertEndpoint(methodID, ep); err != nil {
			return fmt.Errorf("failed to store endpoint %s %s: %w", ep.HTTPMethod, ep.Path, err)
		}
	}
	return nil
}
