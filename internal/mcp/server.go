// Package mcp exposes the call graph over the Model Context Protocol
// (JSON-RPC over stdio) so AI assistants can query it directly.
package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mkravets/jcg/internal/callstack"
	"github.com/mkravets/jcg/internal/impact"
	"github.com/mkravets/jcg/internal/model"
	"github.com/mkravets/jcg/internal/storage"
)

// Server implements the MCP protocol over the stored facts. The stack
// tool additionally needs a loaded program; when prog is nil the tool
// reports that no project is loaded.
type Server struct {
	db     *storage.DB
	prog   *model.Program
	input  io.Reader
	output io.Writer
}

// NewServer creates an MCP server reading from stdin and writing to
// stdout.
func NewServer(db *storage.DB, prog *model.Program) *Server {
	return &Server{
		db:     db,
		prog:   prog,
		input:  os.Stdin,
		output: os.Stdout,
	}
}

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP specific types
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run reads requests line by line until the input closes.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized":
		// Notification, no response needed
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(req)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "jcg",
			Version: "1.0.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsList(req *Request) {
	tools := []Tool{
		{
			Name:        "stack",
			Description: "Explore the method invocation tree reachable from an entry class and method, rendered as an indented hierarchy",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"class": {
						Type:        "string",
						Description: "entry class, qualified or simple name",
					},
					"method": {
						Type:        "string",
						Description: "entry method name",
					},
					"resolve": {
						Type:        "string",
						Description: "target resolution mode: name (default) or signature",
					},
					"max_depth": {
						Type:        "number",
						Description: "maximum expansion depth, 0 means unlimited",
						Default:     0,
					},
				},
				Required: []string{"class", "method"},
			},
		},
		{
			Name:        "impact",
			Description: "Analyze the change impact of a method: its upstream callers and downstream callees",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"method": {
						Type:        "string",
						Description: "method to analyze (substring match allowed)",
					},
					"limit": {
						Type:        "number",
						Description: "maximum methods per category, default 50",
						Default:     50,
					},
				},
				Required: []string{"method"},
			},
		},
		{
			Name:        "upstream",
			Description: "List the methods that call the given method, recursively",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"method": {
						Type:        "string",
						Description: "method to look up",
					},
					"depth": {
						Type:        "number",
						Description: "recursion depth, 0 means unlimited",
					},
					"limit": {
						Type:        "number",
						Description: "maximum methods to return, default 50",
						Default:     50,
					},
				},
				Required: []string{"method"},
			},
		},
		{
			Name:        "downstream",
			Description: "List the methods the given method calls, recursively",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"method": {
						Type:        "string",
						Description: "method to look up",
					},
					"depth": {
						Type:        "number",
						Description: "recursion depth, 0 means unlimited",
					},
					"limit": {
						Type:        "number",
						Description: "maximum methods to return, default 50",
						Default:     50,
					},
				},
				Required: []string{"method"},
			},
		},
		{
			Name:        "search",
			Description: "Search stored methods by name, substring match",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"pattern": {
						Type:        "string",
						Description: "part of a method or class name",
					},
					"limit": {
						Type:        "number",
						Description: "maximum methods to return, default 50",
						Default:     50,
					},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "endpoints",
			Description: "List the REST endpoints found in the project",
			InputSchema: InputSchema{
				Type: "object",
			},
		},
	}

	s.sendResult(req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	var result string
	var isError bool

	switch params.Name {
	case "stack":
		result, isError = s.toolStack(params.Arguments)
	case "impact":
		result, isError = s.toolImpact(params.Arguments)
	case "upstream":
		result, isError = s.toolUpstream(params.Arguments)
	case "downstream":
		result, isError = s.toolDownstream(params.Arguments)
	case "search":
		result, isError = s.toolSearch(params.Arguments)
	case "endpoints":
		result, isError = s.toolEndpoints(params.Arguments)
	default:
		result = fmt.Sprintf("Unknown tool: %s", params.Name)
		isError = true
	}

	s.sendResult(req.ID, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: result}},
		IsError: isError,
	})
}

func (s *Server) toolStack(args map[string]interface{}) (string, bool) {
	if s.prog == nil {
		return "Error: no project loaded, start the server with --project", true
	}

	className, ok := args["class"].(string)
	if !ok || className == "" {
		return "Error: class is required", true
	}
	methodName, ok := args["method"].(string)
	if !ok || methodName == "" {
		return "Error: method is required", true
	}

	mode := model.ResolveByName
	if r, ok := args["resolve"].(string); ok && r == "signature" {
		mode = model.ResolveBySignature
	}
	maxDepth := 0
	if d, ok := args["max_depth"].(float64); ok && d > 0 {
		maxDepth = int(d)
	}

	explorer := callstack.New(s.prog,
		callstack.WithResolutionMode(mode),
		callstack.WithMaxDepth(maxDepth),
	)
	root := explorer.Explore(className, methodName)

	return fmt.Sprintf("## Call stack: %s.%s\n\n```\n%s```", className, methodName, callstack.Render(root)), false
}

func (s *Server) toolImpact(args map[string]interface{}) (string, bool) {
	methodName, ok := args["method"].(string)
	if !ok || methodName == "" {
		return "Error: method is required", true
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	analyzer := impact.NewAnalyzer(s.db)
	report, err := analyzer.AnalyzeImpact(methodName, 3, 2)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}

	return formatImpactWithLimit(report, limit), false
}

func formatImpactWithLimit(report *impact.ImpactReport, limit int) string {
	var result string

	result += fmt.Sprintf("## Change impact: %s\n\n", report.Target.QualifiedName())
	result += fmt.Sprintf("**Location:** %s:%d\n\n", report.Target.File, report.Target.Line)
	if report.Target.Signature != "" {
		result += fmt.Sprintf("**Signature:** `%s`\n\n", report.Target.Signature)
	}

	result += formatMethodSection("Direct callers", report.DirectCallers, limit)
	result += formatMethodSection("Indirect callers", report.IndirectCallers, limit)
	result += formatMethodSection("Direct callees", report.DirectCallees, limit)
	result += formatMethodSection("Indirect callees", report.IndirectCallees, limit)

	return result
}

func formatMethodSection(title string, methods []*storage.Method, limit int) string {
	result := fmt.Sprintf("### %s (%d)\n\n", title, len(methods))
	if len(methods) == 0 {
		return result + "_none_\n\n"
	}
	total := len(methods)
	if total > limit {
		methods = methods[:limit]
	}
	result += methodTable(methods)
	if total > limit {
		result += fmt.Sprintf("\n_(%d total, showing first %d)_\n", total, limit)
	}
	return result + "\n"
}

func (s *Server) toolUpstream(args map[string]interface{}) (string, bool) {
	methodName, ok := args["method"].(string)
	if !ok || methodName == "" {
		return "Error: method is required", true
	}

	depth := 0
	if d, ok := args["depth"].(float64); ok {
		depth = int(d)
	}
	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	target, errMsg := s.findMethod(methodName)
	if errMsg != "" {
		return errMsg, true
	}

	callers, err := s.db.GetUpstreamCallers(target.ID, depth)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	if len(callers) == 0 {
		return fmt.Sprintf("%s has no upstream callers", target.QualifiedName()), false
	}

	total := len(callers)
	if total > limit {
		callers = callers[:limit]
	}

	result := fmt.Sprintf("## Upstream callers of %s\n\n", target.QualifiedName())
	result += methodTable(callers)
	if total > limit {
		result += fmt.Sprintf("\n_(%d total, showing first %d)_\n", total, limit)
	}
	return result, false
}

func (s *Server) toolDownstream(args map[string]interface{}) (string, bool) {
	methodName, ok := args["method"].(string)
	if !ok || methodName == "" {
		return "Error: method is required", true
	}

	depth := 0
	if d, ok := args["depth"].(float64); ok {
		depth = int(d)
	}
	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	target, errMsg := s.findMethod(methodName)
	if errMsg != "" {
		return errMsg, true
	}

	callees, err := s.db.GetDownstreamCallees(target.ID, depth)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	if len(callees) == 0 {
		return fmt.Sprintf("%s has no downstream callees", target.QualifiedName()), false
	}

	total := len(callees)
	if total > limit {
		callees = callees[:limit]
	}

	result := fmt.Sprintf("## Downstream callees of %s\n\n", target.QualifiedName())
	result += methodTable(callees)
	if total > limit {
		result += fmt.Sprintf("\n_(%d total, showing first %d)_\n", total, limit)
	}
	return result, false
}

func (s *Server) toolSearch(args map[string]interface{}) (string, bool) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return "Error: pattern is required", true
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	methods, err := s.db.FindMethodsByPattern(pattern)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	if len(methods) == 0 {
		return fmt.Sprintf("No methods match %q. If the code changed recently, run `jcg analyze` to refresh the database.", pattern), false
	}

	total := len(methods)
	if total > limit {
		methods = methods[:limit]
	}

	result := fmt.Sprintf("## Search results: %s\n\n%d matches", pattern, total)
	if total > limit {
		result += fmt.Sprintf(" (showing first %d)", limit)
	}
	result += "\n\n"
	result += methodTable(methods)
	return result, false
}

func (s *Server) toolEndpoints(args map[string]interface{}) (string, bool) {
	endpoints, err := s.db.GetAllEndpoints()
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	if len(endpoints) == 0 {
		return "No endpoints in the database", false
	}

	result := fmt.Sprintf("## Endpoints (%d)\n\n", len(endpoints))
	result += "| Method | Path | Handler |\n"
	result += "|--------|------|--------|\n"
	for _, ep := range endpoints {
		result += fmt.Sprintf("| %s | %s | %s.%s |\n", ep.HTTPMethod, ep.Path, ep.Class, ep.Method)
	}
	return result, false
}

// findMethod resolves a method pattern to its best stored match. The
// second return value is a user-facing error message when nothing
// matches.
func (s *Server) findMethod(pattern string) (*storage.Method, string) {
	methods, err := s.db.FindMethodsByPattern(pattern)
	if err != nil {
		return nil, fmt.Sprintf("Error: %v", err)
	}
	if len(methods) == 0 {
		return nil, fmt.Sprintf("Method not found: %s. If it was added recently, run `jcg analyze` to refresh the database.", pattern)
	}
	return methods[0], ""
}

func methodTable(methods []*storage.Method) string {
	result := "| Method | File | Line |\n"
	result += "|--------|------|------|\n"
	for _, m := range methods {
		result += fmt.Sprintf("| %s | %s | %d |\n", m.QualifiedName(), m.File, m.Line)
	}
	return result
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id interface{}, code int, message string) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	})
}

func (s *Server) send(resp Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.output, string(data))
}
