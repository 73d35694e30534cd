package impact

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
)

// seedChain stores handle -> process -> persist and returns the db.
func seedChain(t *testing.T) (*storage.DB, map[string]int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ids := make(map[string]int64)
	classID, err := db.InsertClass(&model.Class{
		Name: "com.acme.Pipeline", Package: "com.acme",
		Kind: model.ClassKindClass, File: "src/Pipeline.java",
	})
	require.NoError(t, err)

	for _, name := range []string{"handle", "process", "persist"} {
		id, err := db.InsertMethod(classID, &model.Method{
			Class: "com.acme.Pipeline", Name: name,
			Kind: model.MethodKindMethod, File: "src/Pipeline.java", Line: 10,
		})
		require.NoError(t, err)
		ids[name] = id
	}

	link := func(from, to string) {
		require.NoError(t, db.InsertInvocation(ids[from], 0, &model.Invocation{
			Name: to, Text: to + "()", Line: 11,
		}, ids[to], "com.acme.Pipeline"))
	}
	link("handle", "process")
	link("process", "persist")

	return db, ids
}

func TestAnalyzeImpact(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	report, err := a.AnalyzeImpact("com.acme.Pipeline.process", 0, 0)
	require.NoError(t, err)

	require.Len(t, report.DirectCallers, 1)
	assert.Equal(t, "handle", report.DirectCallers[0].Name)
	assert.Empty(t, report.IndirectCallers)

	require.Len(t, report.DirectCallees, 1)
	assert.Equal(t, "persist", report.DirectCallees[0].Name)
	assert.Empty(t, report.IndirectCallees)
}

func TestAnalyzeImpactIndirect(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	report, err := a.AnalyzeImpact("persist", 0, 0)
	require.NoError(t, err)

	require.Len(t, report.DirectCallers, 1)
	assert.Equal(t, "process", report.DirectCallers[0].Name)
	require.Len(t, report.IndirectCallers, 1)
	assert.Equal(t, "handle", report.IndirectCallers[0].Name)
	assert.Empty(t, report.DirectCallees)
}

func TestAnalyzeImpactDepthOne(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	report, err := a.AnalyzeImpact("persist", 1, 1)
	require.NoError(t, err)
	require.Len(t, report.DirectCallers, 1)
	assert.Empty(t, report.IndirectCallers)
}

func TestAnalyzeImpactMissing(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	_, err := a.AnalyzeImpact("doesNotExist", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestFormatMarkdown(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	report, err := a.AnalyzeImpact("process", 0, 0)
	require.NoError(t, err)

	md := report.FormatMarkdown()
	assert.Contains(t, md, "## Change impact: Pipeline.process")
	assert.Contains(t, md, "| Pipeline.handle |")
	assert.Contains(t, md, "| Pipeline.persist |")
}

func TestFormatTree(t *testing.T) {
	db, _ := seedChain(t)
	a := NewAnalyzer(db)

	report, err := a.AnalyzeImpact("handle", 0, 0)
	require.NoError(t, err)

	tree := report.FormatTree()
	assert.Contains(t, tree, "📍 Target method")
	assert.Contains(t, tree, "⬆️ Callers\n└── (none)")
	assert.True(t, strings.Contains(tree, "Pipeline.process") && strings.Contains(tree, "Pipeline.persist"))
}

func TestShortNameAndPath(t *testing.T) {
	assert.Equal(t, "OrderService.place", shortName("com.shop.order.OrderService.place"))
	assert.Equal(t, "Main.run", shortName("Main.run"))
	assert.Equal(t, "java/OrderService.java", shortPath("src/main/java/OrderService.java"))
	assert.Equal(t, "a/b.java", shortPath("a/b.java"))
}
