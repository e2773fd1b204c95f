package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func (s *Server) registerBlockTools() {
	pageArg := mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)"))
	blockArg := mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required())

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block with its type's default content to a column. Use list_block_types to see the types."),
		pageArg,
		mcp.WithString("rowId", mcp.Description("Row ID"), mcp.Required()),
		mcp.WithString("columnId", mcp.Description("Column ID"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Block type, e.g. heading, text, image, button"), mcp.Required()),
		mcp.WithString("afterBlockId", mcp.Description("Insert after this block (optional, default end)")),
	), s.handleAddBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Replace parts of a block. Each given field (JSON object) replaces the block's value wholesale."),
		pageArg, blockArg,
		mcp.WithString("content", mcp.Description("Full content object as JSON (optional)")),
		mcp.WithString("style", mcp.Description("Style object as JSON (optional)")),
		mcp.WithString("layout", mcp.Description("Layout object as JSON (optional)")),
		mcp.WithString("accessibility", mcp.Description("Accessibility object as JSON (optional)")),
	), s.handleUpdateBlock)

	// ── set_block_field ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_block_field",
		mcp.WithDescription("Set or delete one field inside a block's content by dot path, e.g. text, items.0.label"),
		pageArg, blockArg,
		mcp.WithString("path", mcp.Description("Dot path inside content"), mcp.Required()),
		mcp.WithString("value", mcp.Description("New value as JSON; a value that is not valid JSON is stored as a string")),
		mcp.WithBoolean("delete", mcp.Description("Remove the field instead of setting it")),
	), s.handleSetBlockField)

	// ── delete_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block. The change can be undone."),
		pageArg, blockArg,
	), s.handleBlockOp(service.OpDeleteBlock))

	// ── duplicate_block ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Copy a block with a fresh ID right after the original"),
		pageArg, blockArg,
	), s.handleBlockOp(service.OpDuplicateBlock))

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Swap a block with its neighbour in the same column"),
		pageArg, blockArg,
		mcp.WithString("direction", mcp.Description("up or down"), mcp.Required(), directionEnum),
	), s.handleMoveBlock)

	// ── relocate_block ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("relocate_block",
		mcp.WithDescription("Move a block into any column at an index, in one undoable step"),
		pageArg, blockArg,
		mcp.WithString("targetRowId", mcp.Description("Destination row ID"), mcp.Required()),
		mcp.WithString("targetColumnId", mcp.Description("Destination column ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Position in the destination column (optional, default end)")),
	), s.handleRelocateBlock)
}

// locateBlock resolves the row and column of the block named by blockId.
func (s *Server) locateBlock(sess *service.Session, req mcp.CallToolRequest) (domain.BlockRef, domain.Block, error) {
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return domain.BlockRef{}, domain.Block{}, fmt.Errorf("blockId is required")
	}
	ref, b, ok := sess.Page().FindBlock(blockID)
	if !ok {
		return domain.BlockRef{}, domain.Block{}, fmt.Errorf("block %s not found on page %s", blockID, sess.ID())
	}
	return ref, b, nil
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockType := req.GetString("type", "")
	if _, ok := s.catalog.Lookup(blockType); !ok {
		return nil, fmt.Errorf("unknown block type %q (see list_block_types)", blockType)
	}
	return s.execute(ctx, req, service.Command{
		Op:           service.OpAddBlock,
		RowID:        req.GetString("rowId", ""),
		ColumnID:     req.GetString("columnId", ""),
		BlockType:    blockType,
		AfterBlockID: req.GetString("afterBlockId", ""),
	})
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	ref, _, err := s.locateBlock(sess, req)
	if err != nil {
		return nil, err
	}

	var patch domain.BlockPatch
	fields := []struct {
		name   string
		target any
	}{
		{"content", &patch.Content},
		{"style", &patch.Style},
		{"layout", &patch.Layout},
		{"accessibility", &patch.Accessibility},
	}
	for _, f := range fields {
		raw := req.GetString(f.name, "")
		if raw == "" {
			continue
		}
		if err := parseJSON(raw, f.target); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %w", f.name, err)
		}
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("nothing to update: give content, style, layout or accessibility")
	}

	state, err := sess.Execute(service.Command{
		Op:       service.OpUpdateBlock,
		RowID:    ref.RowID,
		ColumnID: ref.ColumnID,
		BlockID:  ref.BlockID,
		Patch:    &patch,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

func (s *Server) handleSetBlockField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	ref, b, err := s.locateBlock(sess, req)
	if err != nil {
		return nil, err
	}
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	content, err := setContentField(b.Content, path, req.GetString("value", ""), req.GetBool("delete", false))
	if err != nil {
		return nil, err
	}
	state, err := sess.Execute(service.Command{
		Op:       service.OpUpdateBlock,
		RowID:    ref.RowID,
		ColumnID: ref.ColumnID,
		BlockID:  ref.BlockID,
		Patch:    &domain.BlockPatch{Content: content},
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

// setContentField edits one dot-path field of a content map and returns the
// whole new map.
func setContentField(content map[string]any, path, value string, remove bool) (map[string]any, error) {
	if content == nil {
		content = map[string]any{}
	}
	doc, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	switch {
	case remove:
		doc, err = sjson.DeleteBytes(doc, path)
	case gjson.Valid(value):
		doc, err = sjson.SetRawBytes(doc, path, []byte(value))
	default:
		doc, err = sjson.SetBytes(doc, path, value)
	}
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}

	out := map[string]any{}
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return out, nil
}

func (s *Server) handleBlockOp(op string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess, err := s.sessionFor(ctx, req)
		if err != nil {
			return nil, err
		}
		ref, _, err := s.locateBlock(sess, req)
		if err != nil {
			return nil, err
		}
		state, err := sess.Execute(service.Command{Op: op, RowID: ref.RowID, ColumnID: ref.ColumnID, BlockID: ref.BlockID})
		if err != nil {
			return nil, err
		}
		return jsonResult(state)
	}
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	ref, _, err := s.locateBlock(sess, req)
	if err != nil {
		return nil, err
	}
	state, err := sess.Execute(service.Command{
		Op:        service.OpMoveBlock,
		RowID:     ref.RowID,
		ColumnID:  ref.ColumnID,
		BlockID:   ref.BlockID,
		Direction: engine.Direction(req.GetString("direction", "")),
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

func (s *Server) handleRelocateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	ref, _, err := s.locateBlock(sess, req)
	if err != nil {
		return nil, err
	}
	cmd := service.Command{
		Op:       service.OpRelocateBlock,
		RowID:    ref.RowID,
		ColumnID: ref.ColumnID,
		BlockID:  ref.BlockID,
		Target: &domain.ColumnRef{
			RowID:    req.GetString("targetRowId", ""),
			ColumnID: req.GetString("targetColumnId", ""),
		},
	}
	if i, ok := optionalInt(req.GetArguments(), "index"); ok {
		cmd.Index = &i
	}
	state, err := sess.Execute(cmd)
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}
