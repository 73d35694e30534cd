package mcp

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
)

func newTestServer(t *testing.T, prog *model.Program, requests ...string) (*Server, *bytes.Buffer) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	classID, err := db.InsertClass(&model.Class{
		Name:    "com.shop.OrderService",
		Package: "com.shop",
		Kind:    model.ClassKindClass,
		File:    "src/OrderService.java",
	})
	require.NoError(t, err)
	_, err = db.InsertMethod(classID, &model.Method{
		Class: "com.shop.OrderService",
		Name:  "place",
		Kind:  model.MethodKindMethod,
		File:  "src/OrderService.java",
		Line:  10,
	})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	srv := NewServer(db, prog)
	srv.input = strings.NewReader(strings.Join(requests, "\n") + "\n")
	srv.output = out
	return srv, out
}

func decodeResponses(t *testing.T, out *bytes.Buffer) []Response {
	t.Helper()
	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServerInitialize(t *testing.T) {
	srv, out := newTestServer(t, nil,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)

	result := responses[0].Result.(map[string]interface{})
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "jcg", info["name"])
}

func TestServerToolsList(t *testing.T) {
	srv, out := newTestServer(t, nil,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	require.Len(t, responses, 1)

	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var result struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"stack", "impact", "upstream", "downstream", "search", "endpoints"}, names)
}

func TestServerSearchTool(t *testing.T) {
	srv, out := newTestServer(t, nil,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search","arguments":{"pattern":"place"}}}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	require.Len(t, responses, 1)

	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "com.shop.OrderService.place")
}

func TestServerStackToolWithoutProject(t *testing.T) {
	srv, out := newTestServer(t, nil,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"stack","arguments":{"class":"A","method":"run"}}}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "--project")
}

func TestServerStackTool(t *testing.T) {
	prog := model.NewProgram("java", ".", []*model.Class{
		{
			Name: "com.shop.App",
			Kind: model.ClassKindClass,
			Methods: []*model.Method{
				{
					Class: "com.shop.App",
					Name:  "run",
					Kind:  model.MethodKindMethod,
					Invocations: []*model.Invocation{
						{Name: "run", Text: "App.run()", Targets: []string{"com.shop.App"}},
					},
				},
			},
		},
	})

	srv, out := newTestServer(t, prog,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"stack","arguments":{"class":"com.shop.App","method":"run"}}}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.False(t, result.IsError)
	text := result.Content[0].Text
	assert.Contains(t, text, "App.run")
	assert.Contains(t, text, "(recursive call, stopping here)")
}

func TestServerUnknownMethod(t *testing.T) {
	srv, out := newTestServer(t, nil,
		`{"jsonrpc":"2.0","id":5,"method":"no/such"}`)

	require.NoError(t, srv.Run())

	responses := decodeResponses(t, out)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32601, responses[0].Error.Code)
}
