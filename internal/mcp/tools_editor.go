package mcpserver

import (
	"context"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/validate"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerEditorTools() {
	pageArg := mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)"))

	// ── update_metadata ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_metadata",
		mcp.WithDescription("Update page metadata. Omitted fields are left unchanged."),
		pageArg,
		mcp.WithString("title", mcp.Description("Page title")),
		mcp.WithString("slug", mcp.Description("URL slug")),
		mcp.WithString("status", mcp.Description("Publication status"),
			mcp.Enum(domain.StatusDraft, domain.StatusPublished, domain.StatusArchived)),
		mcp.WithString("locale", mcp.Description("Locale, e.g. pt-BR")),
		mcp.WithString("description", mcp.Description("Short description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; replaces the current tags")),
	), s.handleUpdateMetadata)

	// ── select ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select",
		mcp.WithDescription("Select a row, column or block. With no rowId the selection is cleared."),
		pageArg,
		mcp.WithString("rowId", mcp.Description("Row ID")),
		mcp.WithString("columnId", mcp.Description("Column ID (selects a column)")),
		mcp.WithString("blockId", mcp.Description("Block ID (selects a block; needs columnId)")),
	), s.handleSelect)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the page"),
		pageArg,
	), s.handleHistory(service.OpUndo))

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		pageArg,
	), s.handleHistory(service.OpRedo))

	// ── validate_page ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("validate_page",
		mcp.WithDescription("Check the page and list every problem found. An empty list means the page is valid."),
		pageArg,
	), s.handleValidatePage)

	// ── save_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Write the page to the store and record a revision"),
		pageArg,
	), s.handleSavePage)
}

func (s *Server) handleUpdateMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	var patch domain.MetadataPatch
	str := func(key string) *string {
		v, ok := args[key].(string)
		if !ok {
			return nil
		}
		return &v
	}
	patch.Title = str("title")
	patch.Slug = str("slug")
	patch.Status = str("status")
	patch.Locale = str("locale")
	patch.Description = str("description")
	if tags := str("tags"); tags != nil {
		patch.Tags = splitList(*tags)
		if patch.Tags == nil {
			patch.Tags = []string{}
		}
	}
	return s.execute(ctx, req, service.Command{Op: service.OpUpdateMetadata, Metadata: &patch})
}

func (s *Server) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmd := service.SelectCommand(
		req.GetString("rowId", ""),
		req.GetString("columnId", ""),
		req.GetString("blockId", ""),
	)
	return s.execute(ctx, req, cmd)
}

func (s *Server) handleHistory(op string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.execute(ctx, req, service.Command{Op: op})
	}
}

type validationResult struct {
	PageID string               `json:"pageId"`
	Valid  bool                 `json:"valid"`
	Errors []validate.FieldError `json:"errors"`
}

func (s *Server) handleValidatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	errs := sess.Validate()
	if errs == nil {
		errs = []validate.FieldError{}
	}
	return jsonResult(validationResult{PageID: sess.ID(), Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := sess.Save(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Saved page %s", sess.ID())), nil
}
