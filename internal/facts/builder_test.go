package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
)

type storedMethod struct {
	classID int64
	method  *model.Method
}

type storedSite struct {
	methodID    int64
	position    int
	name        string
	calleeID    int64
	targetClass string
}

type storedEndpoint struct {
	methodID int64
	endpoint *model.Endpoint
}

// memorySink records inserts and hands out sequential ids.
type memorySink struct {
	classes   []*model.Class
	methods   []storedMethod
	sites     []storedSite
	endpoints []storedEndpoint
}

func (s *memorySink) InsertClass(c *model.Class) (int64, error) {
	s.classes = append(s.classes, c)
	return int64(len(s.classes)), nil
}

func (s *memorySink) InsertMethod(classID int64, m *model.Method) (int64, error) {
	s.methods = append(s.methods, storedMethod{classID, m})
	return int64(len(s.methods)), nil
}

func (s *memorySink) InsertInvocation(methodID int64, position int, inv *model.Invocation, calleeID int64, targetClass string) error {
	s.sites = append(s.sites, storedSite{methodID, position, inv.Name, calleeID, targetClass})
	return nil
}

func (s *memorySink) InsertEndpoint(methodID int64, ep *model.Endpoint) error {
	s.endpoints = append(s.endpoints, storedEndpoint{methodID, ep})
	return nil
}

func shopProgram() *model.Program {
	service := &model.Class{
		Name:    "com.shop.OrderService",
		Package: "com.shop",
		Kind:    model.ClassKindClass,
		File:    "src/OrderService.java",
		Imports: []*model.Import{{Name: "com.shop.repo.OrderRepo"}},
	}
	service.Methods = []*model.Method{
		{
			Class: "com.shop.OrderService", Name: "place", Kind: model.MethodKindMethod,
			File: "src/OrderService.java",
			Invocations: []*model.Invocation{
				{Name: "validate", Text: "validate(order)", Line: 12, Args: 1,
					Targets: []string{"com.shop.OrderService"}},
				{Name: "save", Text: "repo.save(order)", Line: 13, Args: 1,
					Targets: []string{"OrderRepo"}},
				{Name: "info", Text: "log.info(\"placed\")", Line: 14, Args: 1},
			},
		},
		{
			Class: "com.shop.OrderService", Name: "validate", Kind: model.MethodKindMethod,
			File: "src/OrderService.java",
		},
	}

	repo := &model.Class{
		Name:    "com.shop.repo.OrderRepo",
		Package: "com.shop.repo",
		Kind:    model.ClassKindClass,
		File:    "src/OrderRepo.java",
	}
	repo.Methods = []*model.Method{
		{Class: "com.shop.repo.OrderRepo", Name: "save", Kind: model.MethodKindMethod,
			File: "src/OrderRepo.java"},
	}

	return model.NewProgram("java", "/proj", []*model.Class{service, repo})
}

func TestBuildStoresProgram(t *testing.T) {
	sink := &memorySink{}
	prog := shopProgram()

	b := NewBuilder(sink, model.ResolveByName)
	require.NoError(t, b.Build(prog))

	require.Len(t, sink.classes, 2)
	require.Len(t, sink.methods, 3)

	// Methods carry their class row id.
	byName := make(map[string]storedMethod)
	for _, sm := range sink.methods {
		byName[sm.method.QualifiedName()] = sm
	}
	assert.Equal(t, byName["com.shop.OrderService.place"].classID,
		byName["com.shop.OrderService.validate"].classID)
	assert.NotEqual(t, byName["com.shop.OrderService.place"].classID,
		byName["com.shop.repo.OrderRepo.save"].classID)

	require.Len(t, sink.sites, 3)

	// Same-class call resolves to the sibling method.
	assert.Equal(t, "validate", sink.sites[0].name)
	assert.NotZero(t, sink.sites[0].calleeID)
	assert.Equal(t, "com.shop.OrderService", sink.sites[0].targetClass)

	// Cross-class call resolves through the import.
	assert.Equal(t, "save", sink.sites[1].name)
	assert.Equal(t, "com.shop.repo.OrderRepo", sink.sites[1].targetClass)

	// The library call stays unresolved.
	assert.Equal(t, "info", sink.sites[2].name)
	assert.Zero(t, sink.sites[2].calleeID)
	assert.Empty(t, sink.sites[2].targetClass)
}

func TestBuildIncremental(t *testing.T) {
	sink := &memorySink{}
	prog := shopProgram()

	b := NewBuilder(sink, model.ResolveByName)
	b.SetTargetFiles([]string{"src/OrderService.java"})
	require.NoError(t, b.Build(prog))

	// Only the target file's class is stored.
	require.Len(t, sink.classes, 1)
	assert.Equal(t, "com.shop.OrderService", sink.classes[0].Name)
	require.Len(t, sink.methods, 2)

	// The cross-file call site keeps its resolved owner even though the
	// callee row was not inserted, so the link can be repaired later.
	require.Len(t, sink.sites, 3)
	assert.Equal(t, "save", sink.sites[1].name)
	assert.Zero(t, sink.sites[1].calleeID)
	assert.Equal(t, "com.shop.repo.OrderRepo", sink.sites[1].targetClass)
}

func TestBuildEndpoints(t *testing.T) {
	sink := &memorySink{}
	prog := shopProgram()

	b := NewBuilder(sink, model.ResolveByName)
	require.NoError(t, b.Build(prog))

	endpoints := []*model.Endpoint{
		{HTTPMethod: "POST", Path: "/api/orders", Class: "com.shop.OrderService", Method: "place"},
		{HTTPMethod: "GET", Path: "/api/ghost", Class: "com.shop.Ghost", Method: "boo"},
	}
	require.NoError(t, b.BuildEndpoints(prog, endpoints))

	require.Len(t, sink.endpoints, 2)
	assert.NotZero(t, sink.endpoints[0].methodID)
	assert.Zero(t, sink.endpoints[1].methodID)
}
