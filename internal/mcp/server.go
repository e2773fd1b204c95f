package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"pagebuilder/internal/catalog"
	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the page builder.
// It exposes tools, resources, and prompts so AI agents can edit pages.
type Server struct {
	mcp       *server.MCPServer
	emitter   service.EventEmitter
	approvals *ApprovalQueue

	workspace *service.Workspace
	catalog   *catalog.Registry

	// Active page context (set by set_active_page, create_page, open_page)
	mu           sync.Mutex
	activePageID string
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Workspace *service.Workspace
	Catalog   *catalog.Registry
	Emitter   service.EventEmitter
	// Approvals gates delete_page. Without a queue the tool is not offered.
	Approvals *ApprovalQueue
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Emitter == nil {
		deps.Emitter = service.NoopEmitter{}
	}
	s := &Server{
		emitter:   deps.Emitter,
		approvals: deps.Approvals,
		workspace: deps.Workspace,
		catalog:   deps.Catalog,
	}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerNavigationTools()
	s.registerLayoutTools()
	s.registerBlockTools()
	s.registerEditorTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Handler serves MCP over streamable HTTP, for mounting in the HTTP app.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) setActivePage(id string) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

func (s *Server) activePage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePageID
}

// resolvePageID returns the pageID from tool args or falls back to activePageID.
func (s *Server) resolvePageID(args map[string]any) (string, error) {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid, nil
	}
	if id := s.activePage(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

// sessionFor opens the session of the page the tool call targets.
func (s *Server) sessionFor(ctx context.Context, req mcp.CallToolRequest) (*service.Session, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return s.workspace.Open(ctx, pageID)
}

// execute runs one editing command against the target page and returns the
// resulting state.
func (s *Server) execute(ctx context.Context, req mcp.CallToolRequest, cmd service.Command) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	state, err := sess.Execute(cmd)
	if err != nil {
		return nil, err
	}
	log.Printf("[MCP] %s on page %s", cmd.Op, sess.ID())
	return jsonResult(state)
}
