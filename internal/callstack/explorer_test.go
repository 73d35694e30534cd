package callstack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
)

func call(targetClass, name string) *model.Invocation {
	return &model.Invocation{
		Name:    name,
		Text:    targetClass + "." + name + "()",
		Targets: []string{targetClass},
		Args:    0,
	}
}

func method(class, name string, sites ...*model.Invocation) *model.Method {
	return &model.Method{
		Class:       class,
		Name:        name,
		Kind:        model.MethodKindMethod,
		Invocations: sites,
	}
}

func class(name string, methods ...*model.Method) *model.Class {
	return &model.Class{Name: name, Kind: model.ClassKindClass, Methods: methods}
}

func program(classes ...*model.Class) *model.Program {
	return model.NewProgram("java", ".", classes)
}

func TestExploreSelfRecursion(t *testing.T) {
	prog := program(
		class("com.acme.Loop",
			method("com.acme.Loop", "spin", call("com.acme.Loop", "spin")),
		),
	)

	root := New(prog).Explore("com.acme.Loop", "spin")

	require.Equal(t, MarkerExpanded, root.Marker)
	require.Len(t, root.Children, 1, "self call yields exactly one child")
	cut := root.Children[0]
	assert.Equal(t, MarkerRecursiveCut, cut.Marker)
	assert.Equal(t, "com.acme.Loop.spin()", cut.Signature)
	assert.Empty(t, cut.Children, "expansion stops at the first repetition")
}

func TestExploreDiamondExpandsTwice(t *testing.T) {
	prog := program(
		class("com.acme.A",
			method("com.acme.A", "run",
				call("com.acme.B", "step"),
				call("com.acme.C", "step"),
			),
		),
		class("com.acme.B",
			method("com.acme.B", "step", call("com.acme.D", "work")),
		),
		class("com.acme.C",
			method("com.acme.C", "step", call("com.acme.D", "work")),
		),
		class("com.acme.D",
			method("com.acme.D", "work", call("com.acme.A", "run")),
		),
	)

	root := New(prog).Explore("com.acme.A", "run")

	require.Len(t, root.Children, 2)
	left, right := root.Children[0], root.Children[1]
	assert.Equal(t, "com.acme.B.step()", left.Signature)
	assert.Equal(t, "com.acme.C.step()", right.Signature)

	require.Len(t, left.Children, 1)
	require.Len(t, right.Children, 1)
	dUnderB, dUnderC := left.Children[0], right.Children[0]
	assert.Equal(t, MarkerExpanded, dUnderB.Marker, "D under B is expanded")
	assert.Equal(t, MarkerExpanded, dUnderC.Marker, "D under C is expanded again, not memoized away")

	// The back edge to A cuts independently in both copies: A is on both paths.
	require.Len(t, dUnderB.Children, 1)
	require.Len(t, dUnderC.Children, 1)
	assert.Equal(t, MarkerRecursiveCut, dUnderB.Children[0].Marker)
	assert.Equal(t, MarkerRecursiveCut, dUnderC.Children[0].Marker)
	assert.Equal(t, "com.acme.A.run()", dUnderB.Children[0].Signature)
}

func TestExplorePathNotSharedAcrossSiblings(t *testing.T) {
	// A calls B, then C; C also calls B. B is visited in the first branch,
	// but the second branch carries its own path and must expand B again.
	prog := program(
		class("com.acme.A",
			method("com.acme.A", "run",
				call("com.acme.B", "step"),
				call("com.acme.C", "step"),
			),
		),
		class("com.acme.B", method("com.acme.B", "step")),
		class("com.acme.C",
			method("com.acme.C", "step", call("com.acme.B", "step")),
		),
	)

	root := New(prog).Explore("com.acme.A", "run")

	require.Len(t, root.Children, 2)
	cBranch := root.Children[1]
	require.Len(t, cBranch.Children, 1)
	assert.Equal(t, MarkerExpanded, cBranch.Children[0].Marker,
		"a method visited in a sibling branch expands again")
}

func TestExploreExternalLeaf(t *testing.T) {
	prog := program(
		class("com.acme.Service",
			method("com.acme.Service", "handle", &model.Invocation{
				Name:      "info",
				Qualifier: "log",
				Text:      "log.info(msg)",
				Args:      1,
			}),
		),
	)

	root := New(prog).Explore("com.acme.Service", "handle")

	require.Len(t, root.Children, 1)
	leaf := root.Children[0]
	assert.Equal(t, MarkerExternal, leaf.Marker)
	assert.Equal(t, "log.info(msg)", leaf.Signature, "leaf carries the original call text")
	assert.Empty(t, leaf.Children)
}

func TestExploreMissingEntry(t *testing.T) {
	prog := program(
		class("com.acme.Only", method("com.acme.Only", "run")),
	)
	e := New(prog)

	t.Run("missing class", func(t *testing.T) {
		root := e.Explore("com.acme.Nope", "foo")
		assert.Equal(t, MarkerNotFound, root.Marker)
		assert.Equal(t, "Class not found: com.acme.Nope", root.Signature)
		assert.Empty(t, root.Children)
	})

	t.Run("missing method", func(t *testing.T) {
		root := e.Explore("com.acme.Only", "frobnicate")
		assert.Equal(t, MarkerNotFound, root.Marker)
		assert.Equal(t, "Method not found: frobnicate", root.Signature)
		assert.Empty(t, root.Children)
	})
}

func TestExploreEmptyBody(t *testing.T) {
	prog := program(
		class("com.acme.Marker", method("com.acme.Marker", "noop")),
	)

	root := New(prog).Explore("com.acme.Marker", "noop")

	assert.Equal(t, MarkerExpanded, root.Marker)
	assert.Empty(t, root.Children)
}

func TestExploreOrderingAndRender(t *testing.T) {
	prog := program(
		class("com.acme.A",
			method("com.acme.A", "run",
				call("com.acme.Foo", "foo"),
				call("com.acme.Bar", "bar"),
			),
		),
		class("com.acme.Foo",
			method("com.acme.Foo", "foo", &model.Invocation{
				Name: "warn", Qualifier: "log", Text: "log.warn(x)", Args: 1,
			}),
		),
		class("com.acme.Bar", method("com.acme.Bar", "bar")),
	)

	root := New(prog).Explore("com.acme.A", "run")

	want := strings.Join([]string{
		"com.acme.A.run",
		"  com.acme.Foo.foo",
		"    log.warn(x) (external or unresolved)",
		"  com.acme.Bar.bar",
		"",
	}, "\n")
	assert.Equal(t, want, Render(root), "foo's subtree renders completely before bar's")
}

func TestRenderIsIdempotent(t *testing.T) {
	prog := program(
		class("com.acme.A",
			method("com.acme.A", "run", call("com.acme.A", "run")),
		),
	)
	root := New(prog).Explore("com.acme.A", "run")

	first := Render(root)
	second := Render(root)
	assert.Equal(t, first, second, "rendering the same tree twice is byte identical")
}

func TestExploreDepthBudget(t *testing.T) {
	prog := program(
		class("com.acme.A", method("com.acme.A", "a", call("com.acme.B", "b"))),
		class("com.acme.B", method("com.acme.B", "b", call("com.acme.C", "c"))),
		class("com.acme.C", method("com.acme.C", "c", call("com.acme.D", "d"))),
		class("com.acme.D", method("com.acme.D", "d")),
	)

	root := New(prog, WithMaxDepth(2)).Explore("com.acme.A", "a")

	b := root.Children[0]
	require.Len(t, b.Children, 1)
	c := b.Children[0]
	assert.Equal(t, MarkerExpanded, c.Marker)
	require.Len(t, c.Children, 1)
	assert.Equal(t, MarkerTruncated, c.Children[0].Marker, "descent past the depth budget is cut, not crashed")
	assert.Empty(t, c.Children[0].Children)
}

func TestExploreNodeBudget(t *testing.T) {
	prog := program(
		class("com.acme.A", method("com.acme.A", "a", call("com.acme.B", "b"))),
		class("com.acme.B", method("com.acme.B", "b", call("com.acme.C", "c"))),
		class("com.acme.C", method("com.acme.C", "c")),
	)

	root := New(prog, WithMaxNodes(2)).Explore("com.acme.A", "a")

	require.Len(t, root.Children, 1)
	b := root.Children[0]
	assert.Equal(t, MarkerExpanded, b.Marker)
	require.Len(t, b.Children, 1)
	assert.Equal(t, MarkerTruncated, b.Children[0].Marker)
}

func TestExploreNodeBudgetBoundsLeaves(t *testing.T) {
	ext := func(arg string) *model.Invocation {
		return &model.Invocation{
			Name: "info", Qualifier: "log", Text: "log.info(" + arg + ")", Args: 1,
		}
	}
	prog := program(
		class("com.acme.A",
			method("com.acme.A", "run",
				call("com.acme.B", "step"),
				ext("a"), ext("b"), ext("c"),
			),
		),
		class("com.acme.B", method("com.acme.B", "step")),
	)

	root := New(prog, WithMaxNodes(2)).Explore("com.acme.A", "run")

	// Once the allowance is spent, the trailing external sites collapse
	// into one truncation marker instead of piling up as leaves.
	require.Len(t, root.Children, 2)
	assert.Equal(t, MarkerExpanded, root.Children[0].Marker)
	assert.Equal(t, MarkerTruncated, root.Children[1].Marker)
	assert.Empty(t, root.Children[1].Children)
}

func TestExploreResolutionModes(t *testing.T) {
	repo := class("com.acme.Repo",
		&model.Method{
			Class: "com.acme.Repo", Name: "save", Kind: model.MethodKindMethod,
			Params: []model.Param{{Name: "o", Type: "Order"}},
		},
		&model.Method{
			Class: "com.acme.Repo", Name: "save", Kind: model.MethodKindMethod,
			Params: []model.Param{{Name: "s", Type: "String"}},
		},
		&model.Method{
			Class: "com.acme.Repo", Name: "save", Kind: model.MethodKindMethod,
			Params: []model.Param{{Name: "o", Type: "Order"}, {Name: "flush", Type: "boolean"}},
		},
	)

	site := func(args int) *model.Invocation {
		return &model.Invocation{
			Name:    "save",
			Text:    "repo.save(...)",
			Targets: []string{"com.acme.Repo"},
			Args:    args,
		}
	}

	t.Run("name mode takes the first declared overload", func(t *testing.T) {
		prog := program(repo, class("com.acme.Svc",
			method("com.acme.Svc", "run", site(2))))
		root := New(prog).Explore("com.acme.Svc", "run")
		require.Len(t, root.Children, 1)
		assert.Equal(t, "com.acme.Repo.save(Order)", root.Children[0].Signature,
			"parameter count is ignored by name-only resolution")
	})

	t.Run("signature mode matches arity", func(t *testing.T) {
		prog := program(repo, class("com.acme.Svc",
			method("com.acme.Svc", "run", site(2))))
		root := New(prog, WithResolutionMode(model.ResolveBySignature)).Explore("com.acme.Svc", "run")
		require.Len(t, root.Children, 1)
		assert.Equal(t, "com.acme.Repo.save(Order, boolean)", root.Children[0].Signature)
	})

	t.Run("signature mode reports ties as ambiguous", func(t *testing.T) {
		prog := program(repo, class("com.acme.Svc",
			method("com.acme.Svc", "run", site(1))))
		root := New(prog, WithResolutionMode(model.ResolveBySignature)).Explore("com.acme.Svc", "run")
		require.Len(t, root.Children, 1)
		leaf := root.Children[0]
		assert.Equal(t, MarkerAmbiguous, leaf.Marker)
		assert.Equal(t, 2, leaf.Candidates)
		assert.Empty(t, leaf.Children)
	})

	t.Run("signature mode with no arity match is unresolved", func(t *testing.T) {
		prog := program(repo, class("com.acme.Svc",
			method("com.acme.Svc", "run", site(3))))
		root := New(prog, WithResolutionMode(model.ResolveBySignature)).Explore("com.acme.Svc", "run")
		require.Len(t, root.Children, 1)
		assert.Equal(t, MarkerExternal, root.Children[0].Marker)
	})
}

func TestNodeCountAndDepth(t *testing.T) {
	prog := program(
		class("com.acme.A", method("com.acme.A", "a", call("com.acme.B", "b"), call("com.acme.B", "b"))),
		class("com.acme.B", method("com.acme.B", "b")),
	)

	root := New(prog).Explore("com.acme.A", "a")

	assert.Equal(t, 3, root.Count())
	assert.Equal(t, 1, root.Depth())
}
