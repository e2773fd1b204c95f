package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerNavigationTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List pages open for editing and pages in the store"),
	), s.handleListPages)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new page with one full-width row and make it the active page. The page is stored on save_page."),
		mcp.WithString("title", mcp.Description("Page title (optional)")),
		mcp.WithString("slug", mcp.Description("URL slug, lowercase letters, digits and hyphens (optional)")),
	), s.handleCreatePage)

	// ── open_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_page",
		mcp.WithDescription("Load a stored page for editing and make it the active page"),
		mcp.WithString("pageId", mcp.Description("ID of the page"), mcp.Required()),
	), s.handleOpenPage)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)

	// ── get_page_state ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page_state",
		mcp.WithDescription("Return the page tree, selection, undo/redo availability and dirty flag"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetPageState)

	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List every block type with its label, category and default content"),
	), s.handleListBlockTypes)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List saved revisions of a page, newest first"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleListRevisions)

	// ── restore_revision ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("Replace the page with a saved revision. The change can be undone."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("revisionId", mcp.Description("Revision ID from list_revisions"), mcp.Required()),
	), s.handleRestoreRevision)

	// ── delete_page (destructive) ──────────────────────
	if s.approvals != nil {
		s.mcp.AddTool(mcp.NewTool("delete_page",
			mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page and its revisions from the store. Requires user approval."),
			mcp.WithString("pageId", mcp.Description("Page ID to delete"), mcp.Required()),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
		), s.handleDeletePage)
	}
}

type pageListing struct {
	Open   []service.SessionInfo `json:"open"`
	Stored any                   `json:"stored"`
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := pageListing{Open: s.workspace.List()}
	stored, err := s.workspace.Stored(ctx)
	switch {
	case errors.Is(err, service.ErrNoStore):
		out.Stored = []any{}
	case err != nil:
		return nil, err
	default:
		out.Stored = stored
	}
	return jsonResult(out)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.workspace.Create(req.GetString("title", ""), req.GetString("slug", ""))
	// Auto-set as active page
	s.setActivePage(sess.ID())
	return jsonResult(sess.State())
}

func (s *Server) handleOpenPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	sess, err := s.workspace.Open(ctx, pageID)
	if err != nil {
		return nil, err
	}
	s.setActivePage(sess.ID())
	return jsonResult(sess.State())
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if _, err := s.workspace.Open(ctx, pageID); err != nil {
		return nil, err
	}
	s.setActivePage(pageID)
	return textResult(fmt.Sprintf("Active page set to %s", pageID)), nil
}

func (s *Server) handleGetPageState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(sess.State())
}

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.catalog.List())
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revs, err := s.workspace.Revisions(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonResult(revs)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revisionID := req.GetString("revisionId", "")
	if revisionID == "" {
		return nil, fmt.Errorf("revisionId is required")
	}
	state, err := s.workspace.RestoreRevision(ctx, pageID, revisionID)
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	desc := fmt.Sprintf("Delete page %s and all of its revisions", pageID)
	if err := s.approvals.Request(ctx, "delete_page", desc, pageID); err != nil {
		return nil, err
	}
	if err := s.workspace.Delete(ctx, pageID); err != nil {
		return nil, err
	}
	if s.activePage() == pageID {
		s.setActivePage("")
	}
	return textResult(fmt.Sprintf("Deleted page %s", pageID)), nil
}
