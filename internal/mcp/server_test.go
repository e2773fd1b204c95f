package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pagebuilder/internal/catalog"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) (*Server, *service.MockEmitter) {
	t.Helper()
	ids := idgen.NewSequence("m")
	reg := catalog.Builtin()
	store, err := storage.NewFileStore(t.TempDir(), 10)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	em := &service.MockEmitter{}
	ws := service.NewWorkspace(service.WorkspaceDeps{
		Engine:  engine.New(ids, reg),
		Catalog: reg,
		Store:   store,
		Emitter: em,
		IDs:     ids,
	})
	return New(Deps{
		Workspace: ws,
		Catalog:   reg,
		Emitter:   em,
		Approvals: NewApprovalQueue(em, 2*time.Second),
	}), em
}

func call(t *testing.T, h toolHandler, args map[string]any) string {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("tool call failed: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func callErr(t *testing.T, h toolHandler, args map[string]any) error {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	_, err := h(context.Background(), req)
	return err
}

func callState(t *testing.T, h toolHandler, args map[string]any) domain.SessionState {
	t.Helper()
	var st domain.SessionState
	if err := json.Unmarshal([]byte(call(t, h, args)), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestCreatePage_SetsActivePage(t *testing.T) {
	s, _ := newTestServer(t)
	st := callState(t, s.handleCreatePage, map[string]any{"title": "Início", "slug": "inicio"})
	if st.Page.Metadata.Title != "Início" || st.Page.Metadata.Slug != "inicio" {
		t.Errorf("unexpected metadata %+v", st.Page.Metadata)
	}
	if s.activePage() != st.Page.Metadata.ID {
		t.Errorf("active page = %q, want %q", s.activePage(), st.Page.Metadata.ID)
	}
	if len(st.Page.Rows) != 1 || len(st.Page.Rows[0].Columns) != 1 {
		t.Errorf("expected default layout, got %+v", st.Page.Rows)
	}
}

func TestTools_RequireActivePage(t *testing.T) {
	s, _ := newTestServer(t)
	err := callErr(t, s.handleAddRow, map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "set_active_page") {
		t.Errorf("expected missing page error, got %v", err)
	}
}

func TestLayoutTools(t *testing.T) {
	s, _ := newTestServer(t)
	callState(t, s.handleCreatePage, nil)

	st := callState(t, s.handleAddRow, map[string]any{"columnCount": float64(2)})
	if len(st.Page.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(st.Page.Rows))
	}
	row := st.Page.Rows[1]
	if len(row.Columns) != 2 || row.Columns[0].Grid.MD != 6 {
		t.Fatalf("expected two 6-wide columns, got %+v", row.Columns)
	}

	st = callState(t, s.handleColumnOp(service.OpSplitColumn), map[string]any{
		"rowId": row.ID, "columnId": row.Columns[0].ID,
	})
	if n := len(st.Page.Rows[1].Columns); n != 3 {
		t.Fatalf("expected 3 columns after split, got %d", n)
	}

	st = callState(t, s.handleSetColumnGrid, map[string]any{
		"rowId": row.ID, "columnId": row.Columns[0].ID, "span": float64(4), "lg": float64(3),
	})
	g := st.Page.Rows[1].Columns[0].Grid
	if g.XS != 4 || g.SM != 4 || g.MD != 4 || g.LG != 3 {
		t.Errorf("unexpected grid %+v", g)
	}

	st = callState(t, s.handleRelocateRow, map[string]any{"rowId": row.ID, "index": "0"})
	if st.Page.Rows[0].ID != row.ID {
		t.Errorf("expected %s first after relocate, got %s", row.ID, st.Page.Rows[0].ID)
	}

	if err := callErr(t, s.handleRelocateRow, map[string]any{"rowId": row.ID}); err == nil {
		t.Error("relocate_row without index should fail")
	}
}

func TestBlockTools(t *testing.T) {
	s, _ := newTestServer(t)
	st := callState(t, s.handleCreatePage, nil)
	rowID, colID := st.Page.Rows[0].ID, st.Page.Rows[0].Columns[0].ID

	if err := callErr(t, s.handleAddBlock, map[string]any{"rowId": rowID, "columnId": colID, "type": "banner"}); err == nil {
		t.Error("expected unknown block type to be rejected")
	}

	st = callState(t, s.handleAddBlock, map[string]any{"rowId": rowID, "columnId": colID, "type": "heading"})
	blocks := st.Page.Rows[0].Columns[0].Blocks
	if len(blocks) != 1 || blocks[0].Type != "heading" {
		t.Fatalf("expected one heading block, got %+v", blocks)
	}
	blockID := blocks[0].ID

	st = callState(t, s.handleSetBlockField, map[string]any{"blockId": blockID, "path": "text", "value": "Olá mundo"})
	content := st.Page.Rows[0].Columns[0].Blocks[0].Content
	if content["text"] != "Olá mundo" {
		t.Errorf("text = %v", content["text"])
	}

	st = callState(t, s.handleSetBlockField, map[string]any{"blockId": blockID, "path": "level", "value": "1"})
	if lvl := st.Page.Rows[0].Columns[0].Blocks[0].Content["level"]; lvl != float64(1) {
		t.Errorf("level = %v (%T)", lvl, lvl)
	}

	st = callState(t, s.handleSetBlockField, map[string]any{"blockId": blockID, "path": "maxChars", "delete": true})
	if _, ok := st.Page.Rows[0].Columns[0].Blocks[0].Content["maxChars"]; ok {
		t.Error("maxChars should have been deleted")
	}

	st = callState(t, s.handleUpdateBlock, map[string]any{"blockId": blockID, "style": `{"padding":"16px"}`})
	if b := st.Page.Rows[0].Columns[0].Blocks[0]; b.Style == nil || b.Style.Padding != "16px" {
		t.Errorf("style not applied: %+v", b.Style)
	}
	if err := callErr(t, s.handleUpdateBlock, map[string]any{"blockId": blockID}); err == nil {
		t.Error("update_block without fields should fail")
	}

	st = callState(t, s.handleAddRow, nil)
	target := st.Page.Rows[1]
	st = callState(t, s.handleRelocateBlock, map[string]any{
		"blockId": blockID, "targetRowId": target.ID, "targetColumnId": target.Columns[0].ID,
	})
	if len(st.Page.Rows[0].Columns[0].Blocks) != 0 || len(st.Page.Rows[1].Columns[0].Blocks) != 1 {
		t.Fatalf("block not relocated: %+v", st.Page.Rows)
	}
	if st.Page.Rows[1].Columns[0].Blocks[0].Content["text"] != "Olá mundo" {
		t.Error("relocation changed the block")
	}

	st = callState(t, s.handleBlockOp(service.OpDuplicateBlock), map[string]any{"blockId": blockID})
	if n := len(st.Page.Rows[1].Columns[0].Blocks); n != 2 {
		t.Errorf("expected 2 blocks after duplicate, got %d", n)
	}

	if err := callErr(t, s.handleBlockOp(service.OpDeleteBlock), map[string]any{"blockId": "ghost"}); err == nil {
		t.Error("expected error for unknown block")
	}
}

func TestEditorTools_UndoRedoValidateSave(t *testing.T) {
	s, _ := newTestServer(t)
	st := callState(t, s.handleCreatePage, map[string]any{"title": "Galeria", "slug": "galeria"})
	pageID := st.Page.Metadata.ID
	rowID, colID := st.Page.Rows[0].ID, st.Page.Rows[0].Columns[0].ID

	callState(t, s.handleAddBlock, map[string]any{"rowId": rowID, "columnId": colID, "type": "image"})

	var vr validationResult
	if err := json.Unmarshal([]byte(call(t, s.handleValidatePage, nil)), &vr); err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	if vr.Valid || len(vr.Errors) != 2 {
		t.Errorf("expected 2 errors for empty image, got %+v", vr.Errors)
	}

	st = callState(t, s.handleHistory(service.OpUndo), nil)
	if st.Page.BlockCount() != 0 || !st.CanRedo {
		t.Errorf("undo did not remove the block: %+v", st)
	}
	st = callState(t, s.handleHistory(service.OpRedo), nil)
	if st.Page.BlockCount() != 1 {
		t.Errorf("redo did not restore the block")
	}

	st = callState(t, s.handleUpdateMetadata, map[string]any{"title": "Fotos", "tags": "a, b,,c"})
	if st.Page.Metadata.Title != "Fotos" || st.Page.Metadata.Slug != "galeria" {
		t.Errorf("unexpected metadata %+v", st.Page.Metadata)
	}
	if strings.Join(st.Page.Metadata.Tags, "|") != "a|b|c" {
		t.Errorf("tags = %v", st.Page.Metadata.Tags)
	}

	st = callState(t, s.handleSelect, map[string]any{"rowId": rowID, "columnId": colID})
	if st.Selection.SelectedColumnID != colID {
		t.Errorf("column not selected: %+v", st.Selection)
	}
	st = callState(t, s.handleSelect, nil)
	if !st.Selection.IsEmpty() {
		t.Errorf("selection not cleared: %+v", st.Selection)
	}

	if out := call(t, s.handleSavePage, nil); !strings.Contains(out, pageID) {
		t.Errorf("unexpected save output %q", out)
	}
	var revs []domain.Revision
	if err := json.Unmarshal([]byte(call(t, s.handleListRevisions, nil)), &revs); err != nil {
		t.Fatalf("decode revisions: %v", err)
	}
	if len(revs) != 1 || revs[0].PageID != pageID {
		t.Errorf("expected one revision of %s, got %+v", pageID, revs)
	}
}

func TestDeletePage_NeedsApproval(t *testing.T) {
	s, _ := newTestServer(t)
	st := callState(t, s.handleCreatePage, nil)
	pageID := st.Page.Metadata.ID
	call(t, s.handleSavePage, nil)

	done := make(chan error, 1)
	go func() {
		done <- callErr(t, s.handleDeletePage, map[string]any{"pageId": pageID})
	}()

	var pending []PendingAction
	for i := 0; i < 100 && len(pending) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
		pending = s.approvals.Pending()
	}
	if len(pending) != 1 || pending[0].PageID != pageID {
		t.Fatalf("expected one pending delete, got %+v", pending)
	}
	if !s.approvals.Approve(pending[0].ID) {
		t.Fatal("Approve returned false")
	}
	if err := <-done; err != nil {
		t.Fatalf("delete_page: %v", err)
	}
	if s.activePage() != "" {
		t.Error("active page should be cleared after delete")
	}
	if err := callErr(t, s.handleOpenPage, map[string]any{"pageId": pageID}); err == nil {
		t.Error("deleted page should not open")
	}
}

func TestSetContentField(t *testing.T) {
	content := map[string]any{"items": []any{map[string]any{"label": "a"}}}
	out, err := setContentField(content, "items.0.label", `"b"`, false)
	if err != nil {
		t.Fatalf("setContentField: %v", err)
	}
	items := out["items"].([]any)
	if items[0].(map[string]any)["label"] != "b" {
		t.Errorf("label not set: %v", out)
	}
	if content["items"].([]any)[0].(map[string]any)["label"] != "a" {
		t.Error("input content was mutated")
	}

	out, err = setContentField(nil, "caption", "not json", false)
	if err != nil {
		t.Fatalf("setContentField: %v", err)
	}
	if out["caption"] != "not json" {
		t.Errorf("caption = %v", out["caption"])
	}
}

func TestPageIDFromURI(t *testing.T) {
	tests := map[string]string{
		"pagebuilder://page/abc":       "abc",
		"pagebuilder://page/abc/extra": "",
		"pagebuilder://pages":          "",
		"notes://page/abc":             "",
	}
	for uri, want := range tests {
		if got := pageIDFromURI(uri); got != want {
			t.Errorf("pageIDFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}
