package mcpserver

import (
	"context"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

var directionEnum = mcp.Enum(string(engine.Up), string(engine.Down))

func (s *Server) registerLayoutTools() {
	pageArg := mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)"))
	rowArg := mcp.WithString("rowId", mcp.Description("Row ID"), mcp.Required())
	colArg := mcp.WithString("columnId", mcp.Description("Column ID"), mcp.Required())

	// ── Rows ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_row",
		mcp.WithDescription("Add a row with equal-width columns. Inserted after afterRowId, or at the end."),
		pageArg,
		mcp.WithString("afterRowId", mcp.Description("Insert after this row (optional)")),
		mcp.WithNumber("columnCount", mcp.Description("Number of columns, default 1")),
	), s.handleAddRow)

	s.mcp.AddTool(mcp.NewTool("delete_row",
		mcp.WithDescription("Delete a row. The last row of a page is never deleted."),
		pageArg, rowArg,
	), s.handleRowOp(service.OpDeleteRow))

	s.mcp.AddTool(mcp.NewTool("duplicate_row",
		mcp.WithDescription("Copy a row with fresh IDs and insert it right after the original"),
		pageArg, rowArg,
	), s.handleRowOp(service.OpDuplicateRow))

	s.mcp.AddTool(mcp.NewTool("move_row",
		mcp.WithDescription("Swap a row with its neighbour"),
		pageArg, rowArg,
		mcp.WithString("direction", mcp.Description("up or down"), mcp.Required(), directionEnum),
	), s.handleMoveRow)

	s.mcp.AddTool(mcp.NewTool("relocate_row",
		mcp.WithDescription("Move a row to an index. A negative or too large index moves it to the end."),
		pageArg, rowArg,
		mcp.WithNumber("index", mcp.Description("Target index"), mcp.Required()),
	), s.handleRelocateRow)

	s.mcp.AddTool(mcp.NewTool("update_row_style",
		mcp.WithDescription("Set a row's background and padding"),
		pageArg, rowArg,
		mcp.WithString("background", mcp.Description("CSS background")),
		mcp.WithString("padding", mcp.Description("CSS padding")),
	), s.handleUpdateRowStyle)

	// ── Columns ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_column",
		mcp.WithDescription("Add an empty column to a row and rebalance all columns to equal widths"),
		pageArg, rowArg,
		mcp.WithString("afterColumnId", mcp.Description("Insert after this column (optional)")),
	), s.handleAddColumn)

	s.mcp.AddTool(mcp.NewTool("delete_column",
		mcp.WithDescription("Delete a column and rebalance the rest. The last column of a row is never deleted."),
		pageArg, rowArg, colArg,
	), s.handleColumnOp(service.OpDeleteColumn))

	s.mcp.AddTool(mcp.NewTool("duplicate_column",
		mcp.WithDescription("Copy a column with fresh IDs after the original and rebalance"),
		pageArg, rowArg, colArg,
	), s.handleColumnOp(service.OpDuplicateColumn))

	s.mcp.AddTool(mcp.NewTool("split_column",
		mcp.WithDescription("Insert an empty column after this one. Widths are not rebalanced; validate_page reports overflow."),
		pageArg, rowArg, colArg,
	), s.handleColumnOp(service.OpSplitColumn))

	s.mcp.AddTool(mcp.NewTool("move_column",
		mcp.WithDescription("Swap a column with its neighbour"),
		pageArg, rowArg, colArg,
		mcp.WithString("direction", mcp.Description("up (left) or down (right)"), mcp.Required(), directionEnum),
	), s.handleMoveColumn)

	s.mcp.AddTool(mcp.NewTool("relocate_column",
		mcp.WithDescription("Move a column to an index within its row"),
		pageArg, rowArg, colArg,
		mcp.WithNumber("index", mcp.Description("Target index"), mcp.Required()),
	), s.handleRelocateColumn)

	s.mcp.AddTool(mcp.NewTool("set_column_grid",
		mcp.WithDescription("Set a column's span (out of 12) per breakpoint. Omitted breakpoints keep their value; span sets all of them."),
		pageArg, rowArg, colArg,
		mcp.WithNumber("span", mcp.Description("Span for every breakpoint")),
		mcp.WithNumber("xs", mcp.Description("Span on extra small screens")),
		mcp.WithNumber("sm", mcp.Description("Span on small screens")),
		mcp.WithNumber("md", mcp.Description("Span on medium screens")),
		mcp.WithNumber("lg", mcp.Description("Span on large screens")),
	), s.handleSetColumnGrid)
}

func (s *Server) handleAddRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.execute(ctx, req, service.Command{
		Op:          service.OpAddRow,
		AfterRowID:  req.GetString("afterRowId", ""),
		ColumnCount: req.GetInt("columnCount", 1),
	})
}

func (s *Server) handleRowOp(op string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.execute(ctx, req, service.Command{Op: op, RowID: req.GetString("rowId", "")})
	}
}

func (s *Server) handleMoveRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.execute(ctx, req, service.Command{
		Op:        service.OpMoveRow,
		RowID:     req.GetString("rowId", ""),
		Direction: engine.Direction(req.GetString("direction", "")),
	})
}

func (s *Server) handleRelocateRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmd := service.Command{Op: service.OpRelocateRow, RowID: req.GetString("rowId", "")}
	if i, ok := optionalInt(req.GetArguments(), "index"); ok {
		cmd.Index = &i
	}
	return s.execute(ctx, req, cmd)
}

func (s *Server) handleUpdateRowStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	style := domain.RowStyle{
		Background: req.GetString("background", ""),
		Padding:    req.GetString("padding", ""),
	}
	return s.execute(ctx, req, service.Command{Op: service.OpUpdateRowStyle, RowID: req.GetString("rowId", ""), Style: &style})
}

func (s *Server) handleAddColumn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.execute(ctx, req, service.Command{
		Op:            service.OpAddColumn,
		RowID:         req.GetString("rowId", ""),
		AfterColumnID: req.GetString("afterColumnId", ""),
	})
}

func (s *Server) handleColumnOp(op string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.execute(ctx, req, service.Command{
			Op:       op,
			RowID:    req.GetString("rowId", ""),
			ColumnID: req.GetString("columnId", ""),
		})
	}
}

func (s *Server) handleMoveColumn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.execute(ctx, req, service.Command{
		Op:        service.OpMoveColumn,
		RowID:     req.GetString("rowId", ""),
		ColumnID:  req.GetString("columnId", ""),
		Direction: engine.Direction(req.GetString("direction", "")),
	})
}

func (s *Server) handleRelocateColumn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmd := service.Command{
		Op:       service.OpRelocateColumn,
		RowID:    req.GetString("rowId", ""),
		ColumnID: req.GetString("columnId", ""),
	}
	if i, ok := optionalInt(req.GetArguments(), "index"); ok {
		cmd.Index = &i
	}
	return s.execute(ctx, req, cmd)
}

func (s *Server) handleSetColumnGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessionFor(ctx, req)
	if err != nil {
		return nil, err
	}
	rowID, colID := req.GetString("rowId", ""), req.GetString("columnId", "")
	p := sess.Page()
	ri, ok := p.RowIndex(rowID)
	if !ok {
		return nil, fmt.Errorf("row %s not found", rowID)
	}
	ci, ok := p.Rows[ri].ColumnIndex(colID)
	if !ok {
		return nil, fmt.Errorf("column %s not found in row %s", colID, rowID)
	}

	g := p.Rows[ri].Columns[ci].Grid
	args := req.GetArguments()
	if _, ok := args["span"]; ok {
		g = domain.UniformGrid(req.GetFloat("span", g.LG))
	}
	g.XS = req.GetFloat("xs", g.XS)
	g.SM = req.GetFloat("sm", g.SM)
	g.MD = req.GetFloat("md", g.MD)
	g.LG = req.GetFloat("lg", g.LG)

	return s.execute(ctx, req, service.Command{
		Op:       service.OpSetColumnGrid,
		RowID:    rowID,
		ColumnID: colID,
		Grid:     &g,
	})
}
