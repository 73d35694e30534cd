package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertClass(t *testing.T, db *DB, c *model.Class) int64 {
	t.Helper()
	id, err := db.InsertClass(c)
	require.NoError(t, err)
	return id
}

func insertMethod(t *testing.T, db *DB, classID int64, m *model.Method) int64 {
	t.Helper()
	id, err := db.InsertMethod(classID, m)
	require.NoError(t, err)
	return id
}

// seedShop stores a small program and returns method ids by qualified name:
//
//	OrderService.place  -> validate, OrderRepo.save
//	OrderService.validate -> requireNonNull (external)
//	Notifier.notify     -> OrderRepo.save
func seedShop(t *testing.T, db *DB) map[string]int64 {
	t.Helper()
	ids := make(map[string]int64)

	serviceID := insertClass(t, db, &model.Class{
		Name:    "com.shop.OrderService",
		Package: "com.shop",
		Kind:    model.ClassKindClass,
		File:    "src/OrderService.java",
		Line:    5,
		Imports: []*model.Import{{Name: "com.shop.repo.OrderRepo"}},
	})
	ids["place"] = insertMethod(t, db, serviceID, &model.Method{
		Class: "com.shop.OrderService",
		Name:  "place",
		Kind:  model.MethodKindMethod,
		Params: []model.Param{
			{Name: "order", Type: "Order"},
			{Name: "expedite", Type: "boolean"},
		},
		ReturnType: "void",
		File:       "src/OrderService.java",
		Line:       10,
		Complexity: 3,
	})
	ids["validate"] = insertMethod(t, db, serviceID, &model.Method{
		Class:      "com.shop.OrderService",
		Name:       "validate",
		Kind:       model.MethodKindMethod,
		Params:     []model.Param{{Name: "order", Type: "Order"}},
		File:       "src/OrderService.java",
		Line:       20,
		Complexity: 2,
	})

	repoID := insertClass(t, db, &model.Class{
		Name:    "com.shop.repo.OrderRepo",
		Package: "com.shop.repo",
		Kind:    model.ClassKindClass,
		File:    "src/OrderRepo.java",
		Line:    3,
	})
	ids["save"] = insertMethod(t, db, repoID, &model.Method{
		Class:  "com.shop.repo.OrderRepo",
		Name:   "save",
		Kind:   model.MethodKindMethod,
		Params: []model.Param{{Name: "order", Type: "Order"}},
		File:   "src/OrderRepo.java",
		Line:   8,
	})

	notifierID := insertClass(t, db, &model.Class{
		Name:    "com.shop.Notifier",
		Package: "com.shop",
		Kind:    model.ClassKindClass,
		File:    "src/Notifier.java",
		Line:    4,
	})
	ids["notify"] = insertMethod(t, db, notifierID, &model.Method{
		Class: "com.shop.Notifier",
		Name:  "notify",
		Kind:  model.MethodKindMethod,
		File:  "src/Notifier.java",
		Line:  7,
	})

	link := func(callerKey string, pos int, name, targetClass string, calleeKey string, line int) {
		var calleeID int64
		if calleeKey != "" {
			calleeID = ids[calleeKey]
		}
		err := db.InsertInvocation(ids[callerKey], pos, &model.Invocation{
			Name: name,
			Text: name + "(...)",
			Line: line,
			Args: 1,
		}, calleeID, targetClass)
		require.NoError(t, err)
	}

	link("place", 0, "validate", "com.shop.OrderService", "validate", 12)
	link("place", 1, "save", "com.shop.repo.OrderRepo", "save", 13)
	link("validate", 0, "requireNonNull", "", "", 21)
	link("notify", 0, "save", "com.shop.repo.OrderRepo", "save", 8)

	return ids
}

func methodNames(methods []*Method) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.QualifiedName()
	}
	return names
}

func TestGetMethod(t *testing.T) {
	db := openTestDB(t)
	seedShop(t, db)

	t.Run("qualified class name", func(t *testing.T) {
		m, err := db.GetMethod("com.shop.OrderService", "place")
		require.NoError(t, err)
		assert.Equal(t, "com.shop.OrderService.place(Order, boolean)", m.Signature)
		assert.Equal(t, 3, m.Complexity)
		assert.Equal(t, "src/OrderService.java", m.File)
	})

	t.Run("simple class name", func(t *testing.T) {
		m, err := db.GetMethod("OrderRepo", "save")
		require.NoError(t, err)
		assert.Equal(t, "com.shop.repo.OrderRepo", m.Class)
	})

	t.Run("missing method", func(t *testing.T) {
		_, err := db.GetMethod("com.shop.OrderService", "nope")
		assert.Error(t, err)
	})

	t.Run("by id", func(t *testing.T) {
		m, err := db.GetMethod("OrderService", "validate")
		require.NoError(t, err)
		got, err := db.GetMethodByID(m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Signature, got.Signature)
	})
}

func TestGetClassByName(t *testing.T) {
	db := openTestDB(t)
	seedShop(t, db)

	c, err := db.GetClassByName("com.shop.OrderService")
	require.NoError(t, err)
	assert.Equal(t, "com.shop", c.Package)

	c, err = db.GetClassByName("OrderRepo")
	require.NoError(t, err)
	assert.Equal(t, "com.shop.repo.OrderRepo", c.Name)

	_, err = db.GetClassByName("Ghost")
	assert.Error(t, err)
}

func TestFindMethodsByPattern(t *testing.T) {
	db := openTestDB(t)
	classID := insertClass(t, db, &model.Class{
		Name: "com.acme.Store", Package: "com.acme", Kind: model.ClassKindClass,
	})
	for _, name := range []string{"autosave", "saveAll", "save"} {
		insertMethod(t, db, classID, &model.Method{Class: "com.acme.Store", Name: name})
	}

	methods, err := db.FindMethodsByPattern("save")
	require.NoError(t, err)
	require.Len(t, methods, 3)

	// Exact name first, then prefix, then substring.
	assert.Equal(t, "save", methods[0].Name)
	assert.Equal(t, "saveAll", methods[1].Name)
	assert.Equal(t, "autosave", methods[2].Name)

	methods, err = db.FindMethodsByPattern("nothing-like-this")
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestDirectCallersAndCallees(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	callees, err := db.GetDirectCallees(ids["place"])
	require.NoError(t, err)
	assert.Equal(t, []string{"com.shop.OrderService.validate", "com.shop.repo.OrderRepo.save"}, methodNames(callees))

	callers, err := db.GetDirectCallers(ids["save"])
	require.NoError(t, err)
	assert.Equal(t, []string{"com.shop.Notifier.notify", "com.shop.OrderService.place"}, methodNames(callers))

	// The external requireNonNull call has no callee row.
	callees, err = db.GetDirectCallees(ids["validate"])
	require.NoError(t, err)
	assert.Empty(t, callees)
}

func TestUpstreamAndDownstreamRecursive(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	t.Run("downstream unlimited", func(t *testing.T) {
		methods, err := db.GetDownstreamCallees(ids["place"], 0)
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"com.shop.OrderService.validate", "com.shop.repo.OrderRepo.save"},
			methodNames(methods))
	})

	t.Run("upstream depth one", func(t *testing.T) {
		methods, err := db.GetUpstreamCallers(ids["save"], 1)
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"com.shop.OrderService.place", "com.shop.Notifier.notify"},
			methodNames(methods))
	})

	t.Run("upstream unlimited", func(t *testing.T) {
		methods, err := db.GetUpstreamCallers(ids["save"], 0)
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"com.shop.OrderService.place", "com.shop.Notifier.notify"},
			methodNames(methods))
	})
}

func TestRecursiveCallTerminates(t *testing.T) {
	db := openTestDB(t)
	classID := insertClass(t, db, &model.Class{
		Name: "com.jobs.Worker", Package: "com.jobs", Kind: model.ClassKindClass,
	})
	loopID := insertMethod(t, db, classID, &model.Method{Class: "com.jobs.Worker", Name: "loop"})
	require.NoError(t, db.InsertInvocation(loopID, 0, &model.Invocation{
		Name: "loop", Text: "loop()", Line: 5,
	}, loopID, "com.jobs.Worker"))

	// The unlimited traversal must not spin on the self loop.
	methods, err := db.GetDownstreamCallees(loopID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.jobs.Worker.loop"}, methodNames(methods))

	methods, err = db.GetUpstreamCallers(loopID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.jobs.Worker.loop"}, methodNames(methods))
}

func TestCallTreeCycleTerminates(t *testing.T) {
	db := openTestDB(t)
	classID := insertClass(t, db, &model.Class{
		Name: "com.jobs.Worker", Package: "com.jobs", Kind: model.ClassKindClass,
	})
	loopID := insertMethod(t, db, classID, &model.Method{Class: "com.jobs.Worker", Name: "loop"})
	pingID := insertMethod(t, db, classID, &model.Method{Class: "com.jobs.Worker", Name: "ping"})
	pongID := insertMethod(t, db, classID, &model.Method{Class: "com.jobs.Worker", Name: "pong"})

	link := func(callerID, calleeID int64, name string) {
		require.NoError(t, db.InsertInvocation(callerID, 0, &model.Invocation{
			Name: name, Text: name + "()", Line: 5,
		}, calleeID, "com.jobs.Worker"))
	}
	link(loopID, loopID, "loop")
	link(pingID, pongID, "pong")
	link(pongID, pingID, "ping")

	t.Run("self loop unbounded", func(t *testing.T) {
		tree, err := db.GetDownstreamCallTree(loopID, 0)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "com.jobs.Worker.loop", tree[0].Method.QualifiedName())
		assert.Empty(t, tree[0].Children, "the self call stays a leaf")

		up, err := db.GetUpstreamCallTree(loopID, 0)
		require.NoError(t, err)
		require.Len(t, up, 1)
		assert.Empty(t, up[0].Children)
	})

	t.Run("mutual cycle unbounded", func(t *testing.T) {
		tree, err := db.GetDownstreamCallTree(pingID, 0)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "com.jobs.Worker.pong", tree[0].Method.QualifiedName())
		require.Len(t, tree[0].Children, 1)
		back := tree[0].Children[0]
		assert.Equal(t, "com.jobs.Worker.ping", back.Method.QualifiedName())
		assert.Empty(t, back.Children, "the back edge to the root stays a leaf")
	})
}

func TestCallTrees(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	tree, err := db.GetDownstreamCallTree(ids["place"], 3)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "com.shop.OrderService.validate", tree[0].Method.QualifiedName())
	assert.Equal(t, "com.shop.repo.OrderRepo.save", tree[1].Method.QualifiedName())
	assert.Empty(t, tree[0].Children)

	up, err := db.GetUpstreamCallTree(ids["save"], 2)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, "com.shop.Notifier.notify", up[0].Method.QualifiedName())
	assert.Equal(t, "com.shop.OrderService.place", up[1].Method.QualifiedName())
}

func TestGetCallEdges(t *testing.T) {
	db := openTestDB(t)
	seedShop(t, db)

	edges, err := db.GetCallEdges()
	require.NoError(t, err)
	require.Len(t, edges, 3) // the external call carries no edge

	assert.Equal(t, "com.shop.Notifier.notify", edges[0].Caller)
	assert.Equal(t, "com.shop.repo.OrderRepo.save", edges[0].Callee)
	assert.Equal(t, "com.shop.OrderService.place", edges[1].Caller)
	assert.Equal(t, "com.shop.OrderService.validate", edges[1].Callee)
}

func TestEndpointsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	require.NoError(t, db.InsertEndpoint(ids["place"], &model.Endpoint{
		HTTPMethod: "POST", Path: "/api/orders",
		Class: "com.shop.OrderService", Method: "place",
	}))
	require.NoError(t, db.InsertEndpoint(0, &model.Endpoint{
		HTTPMethod: "GET", Path: "/api/health",
		Class: "com.shop.Health", Method: "check",
	}))

	endpoints, err := db.GetAllEndpoints()
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	assert.Equal(t, "/api/health", endpoints[0].Path)
	assert.Equal(t, int64(0), endpoints[0].MethodID)
	assert.Equal(t, "/api/orders", endpoints[1].Path)
	assert.Equal(t, ids["place"], endpoints[1].MethodID)
}

func TestInterfacesAndImplementations(t *testing.T) {
	db := openTestDB(t)
	insertClass(t, db, &model.Class{
		Name: "com.shop.Repository", Package: "com.shop", Kind: model.ClassKindInterface,
	})
	insertClass(t, db, &model.Class{
		Name: "com.shop.JdbcRepository", Package: "com.shop", Kind: model.ClassKindClass,
		Interfaces: []string{"Repository"},
	})
	insertClass(t, db, &model.Class{
		Name: "com.shop.CachedRepository", Package: "com.shop", Kind: model.ClassKindClass,
		Interfaces: []string{"com.shop.Repository"},
	})

	interfaces, err := db.GetInterfaces()
	require.NoError(t, err)
	require.Len(t, interfaces, 1)
	assert.Equal(t, "com.shop.Repository", interfaces[0].Name)

	// Both the simple and the qualified supertype reference match.
	impls, err := db.GetImplementations("com.shop.Repository")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.shop.CachedRepository", "com.shop.JdbcRepository"},
		[]string{impls[0].Name, impls[1].Name})
}

func TestSubclasses(t *testing.T) {
	db := openTestDB(t)
	insertClass(t, db, &model.Class{
		Name: "com.shop.Base", Package: "com.shop", Kind: model.ClassKindClass,
	})
	insertClass(t, db, &model.Class{
		Name: "com.shop.Derived", Package: "com.shop", Kind: model.ClassKindClass,
		Superclass: "Base",
	})

	subs, err := db.GetSubclasses("com.shop.Base")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "com.shop.Derived", subs[0].Name)
}

func TestRiskQueries(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	count, err := db.GetDirectCallerCount(ids["save"])
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	risky, err := db.GetTopRiskyMethods(2)
	require.NoError(t, err)
	require.Len(t, risky, 2)
	assert.Equal(t, "com.shop.repo.OrderRepo.save", risky[0].Method.QualifiedName())
	assert.Equal(t, 2, risky[0].DirectCallers)
	assert.Equal(t, "low", risky[0].RiskLevel)

	complex, err := db.GetTopComplexMethods(1)
	require.NoError(t, err)
	require.Len(t, complex, 1)
	assert.Equal(t, "com.shop.OrderService.place", complex[0].QualifiedName())
}

func TestCalculateRiskLevel(t *testing.T) {
	assert.Equal(t, "low", CalculateRiskLevel(0))
	assert.Equal(t, "low", CalculateRiskLevel(4))
	assert.Equal(t, "medium", CalculateRiskLevel(5))
	assert.Equal(t, "high", CalculateRiskLevel(20))
	assert.Equal(t, "critical", CalculateRiskLevel(50))
}

func TestDeleteClassesByFilesAndRelink(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)

	// Removing the repo file clears the callee link but keeps the call
	// site and its resolved target text.
	deleted, err := db.DeleteClassesByFiles([]string{"src/OrderRepo.java"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	callees, err := db.GetDirectCallees(ids["place"])
	require.NoError(t, err)
	assert.Equal(t, []string{"com.shop.OrderService.validate"}, methodNames(callees))

	// Reparse of the file inserts the class again under a new id.
	repoID := insertClass(t, db, &model.Class{
		Name: "com.shop.repo.OrderRepo", Package: "com.shop.repo",
		Kind: model.ClassKindClass, File: "src/OrderRepo.java",
	})
	newSaveID := insertMethod(t, db, repoID, &model.Method{
		Class: "com.shop.repo.OrderRepo", Name: "save",
		Params: []model.Param{{Name: "order", Type: "Order"}},
	})

	relinked, err := db.RelinkInvocations()
	require.NoError(t, err)
	assert.Equal(t, int64(2), relinked) // place -> save and notify -> save

	callees, err = db.GetDirectCallees(ids["place"])
	require.NoError(t, err)
	require.Len(t, callees, 2)
	assert.Equal(t, newSaveID, callees[1].ID)

	// The external requireNonNull site stays unlinked.
	callees, err = db.GetDirectCallees(ids["validate"])
	require.NoError(t, err)
	assert.Empty(t, callees)
}

func TestClearKeepsAnalyses(t *testing.T) {
	db := openTestDB(t)
	seedShop(t, db)

	_, err := db.SaveAnalysis("com.shop.OrderService", "place", "name", "rendered tree", "{}")
	require.NoError(t, err)

	require.NoError(t, db.Clear())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Classes)
	assert.Zero(t, stats.Methods)
	assert.Zero(t, stats.Invocations)

	analyses, err := db.ListAnalyses(10)
	require.NoError(t, err)
	assert.Len(t, analyses, 1)
}

func TestSaveAnalysisRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.SaveAnalysis("com.shop.OrderService", "place", "signature", "A\n  B\n", `{"class":"A"}`)
	require.NoError(t, err)

	a, err := db.GetAnalysis(id)
	require.NoError(t, err)
	assert.Equal(t, "com.shop.OrderService", a.Class)
	assert.Equal(t, "place", a.Method)
	assert.Equal(t, "signature", a.Mode)
	assert.Equal(t, "A\n  B\n", a.Rendered)
	assert.NotEmpty(t, a.CreatedAt)

	_, err = db.SaveAnalysis("com.shop.OrderService", "validate", "name", "X\n", "{}")
	require.NoError(t, err)

	analyses, err := db.ListAnalyses(10)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, "validate", analyses[0].Method) // newest first
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ids := seedShop(t, db)
	require.NoError(t, db.InsertEndpoint(ids["place"], &model.Endpoint{
		HTTPMethod: "POST", Path: "/api/orders",
		Class: "com.shop.OrderService", Method: "place",
	}))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Classes)
	assert.Equal(t, int64(4), stats.Methods)
	assert.Equal(t, int64(4), stats.Invocations)
	assert.Equal(t, int64(3), stats.Resolved)
	assert.Equal(t, int64(1), stats.Endpoints)
}
