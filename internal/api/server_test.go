package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pagebuilder/internal/api"
	"pagebuilder/internal/catalog"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"

	"github.com/gorilla/websocket"
)

type testEnv struct {
	handler   http.Handler
	srv       *httptest.Server
	hub       *api.Hub
	approvals *mcpserver.ApprovalQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	store := storage.NewSQLStore(db, 5)
	t.Cleanup(func() { store.Close() })

	ids := idgen.NewSequence("h")
	reg := catalog.Builtin()
	hub := api.NewHub()
	ws := service.NewWorkspace(service.WorkspaceDeps{
		Engine:  engine.New(ids, reg),
		Catalog: reg,
		Store:   store,
		Emitter: hub,
		IDs:     ids,
	})
	approvals := mcpserver.NewApprovalQueue(hub, time.Second)
	handler := api.NewServer(api.Deps{
		Workspace: ws,
		Catalog:   reg,
		Hub:       hub,
		Approvals: approvals,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{handler: handler, srv: srv, hub: hub, approvals: approvals}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) state(t *testing.T, method, path string, body any) domain.SessionState {
	t.Helper()
	resp, data := e.do(t, method, path, body)
	if resp.StatusCode >= 300 {
		t.Fatalf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	var st domain.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("health: %d %s", resp.StatusCode, body)
	}
}

func TestMetrics(t *testing.T) {
	e := newTestEnv(t)
	e.state(t, http.MethodPost, "/api/pages", nil)
	resp, body := e.do(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "pagebuilder_open_sessions") {
		t.Error("expected pagebuilder metrics in output")
	}
}

func TestPageLifecycle(t *testing.T) {
	e := newTestEnv(t)

	st := e.state(t, http.MethodPost, "/api/pages", map[string]string{"title": "Contato", "slug": "contato"})
	id := st.Page.Metadata.ID
	base := "/api/pages/" + id
	rowID, colID := st.Page.Rows[0].ID, st.Page.Rows[0].Columns[0].ID

	st = e.state(t, http.MethodPost, base+"/ops", service.Command{
		Op: service.OpAddBlock, RowID: rowID, ColumnID: colID, BlockType: "button",
	})
	if st.Page.BlockCount() != 1 || !st.IsDirty || !st.CanUndo {
		t.Fatalf("unexpected state after addBlock: %+v", st)
	}
	blockID := st.Page.Rows[0].Columns[0].Blocks[0].ID

	st = e.state(t, http.MethodPost, base+"/ops", []service.Command{
		{Op: service.OpAddRow, ColumnCount: 2},
		{Op: service.OpSelectBlock, RowID: rowID, ColumnID: colID, BlockID: blockID},
	})
	if len(st.Page.Rows) != 2 || st.Selection.SelectedBlockID != blockID {
		t.Fatalf("batch not applied: %+v", st)
	}

	st = e.state(t, http.MethodPost, base+"/undo", nil)
	if len(st.Page.Rows) != 1 || !st.CanRedo {
		t.Errorf("undo: %+v", st)
	}
	st = e.state(t, http.MethodPost, base+"/redo", nil)
	if len(st.Page.Rows) != 2 {
		t.Errorf("redo: %+v", st)
	}

	st = e.state(t, http.MethodPost, base+"/select", map[string]string{"rowId": rowID})
	if st.Selection.SelectedRowID != rowID || st.Selection.SelectedBlockID != "" {
		t.Errorf("select row: %+v", st.Selection)
	}

	resp, body := e.do(t, http.MethodGet, base+"/validate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status %d", resp.StatusCode)
	}
	var vr struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &vr); err != nil {
		t.Fatalf("decode validate: %v", err)
	}
	if vr.Valid || len(vr.Errors) != 1 || !strings.HasSuffix(vr.Errors[0].Field, blockID+"-content.href") {
		t.Errorf("expected one href error, got %s", body)
	}

	st = e.state(t, http.MethodPost, base+"/save", nil)
	if st.IsDirty {
		t.Error("page still dirty after save")
	}

	resp, body = e.do(t, http.MethodGet, base+"/revisions", nil)
	var revs []domain.Revision
	if err := json.Unmarshal(body, &revs); err != nil || len(revs) != 1 {
		t.Fatalf("revisions: %d %s", resp.StatusCode, body)
	}

	// Close and reload from the store.
	if resp, _ := e.do(t, http.MethodPost, base+"/close", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close status %d", resp.StatusCode)
	}
	st = e.state(t, http.MethodGet, base, nil)
	if len(st.Page.Rows) != 2 || st.CanUndo || st.IsDirty {
		t.Errorf("reloaded page: rows=%d canUndo=%v dirty=%v", len(st.Page.Rows), st.CanUndo, st.IsDirty)
	}

	resp, body = e.do(t, http.MethodGet, "/api/pages", nil)
	if !strings.Contains(string(body), `"contato"`) {
		t.Errorf("page list missing stored page: %d %s", resp.StatusCode, body)
	}

	if resp, _ := e.do(t, http.MethodDelete, base, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodGet, base, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted page status %d, want 404", resp.StatusCode)
	}
}

func TestRestoreRevision(t *testing.T) {
	e := newTestEnv(t)
	st := e.state(t, http.MethodPost, "/api/pages", nil)
	base := "/api/pages/" + st.Page.Metadata.ID
	e.state(t, http.MethodPost, base+"/save", nil)

	e.state(t, http.MethodPost, base+"/ops", service.Command{Op: service.OpAddRow})
	_, body := e.do(t, http.MethodGet, base+"/revisions", nil)
	var revs []domain.Revision
	if err := json.Unmarshal(body, &revs); err != nil || len(revs) != 1 {
		t.Fatalf("revisions: %s", body)
	}

	st = e.state(t, http.MethodPost, base+"/revisions/"+revs[0].ID+"/restore", nil)
	if len(st.Page.Rows) != 1 || !st.CanUndo {
		t.Errorf("restore: rows=%d canUndo=%v", len(st.Page.Rows), st.CanUndo)
	}
	st = e.state(t, http.MethodPost, base+"/undo", nil)
	if len(st.Page.Rows) != 2 {
		t.Errorf("undo of restore: rows=%d", len(st.Page.Rows))
	}

	if resp, _ := e.do(t, http.MethodPost, base+"/revisions/nope/restore", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown revision status %d", resp.StatusCode)
	}
}

func TestOps_Errors(t *testing.T) {
	e := newTestEnv(t)
	st := e.state(t, http.MethodPost, "/api/pages", nil)
	base := "/api/pages/" + st.Page.Metadata.ID

	tests := []struct {
		name string
		body any
		want int
	}{
		{"unknown op", service.Command{Op: "explode"}, http.StatusBadRequest},
		{"missing argument", service.Command{Op: service.OpDeleteRow}, http.StatusBadRequest},
		{"bad json", "not a command", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPost, base+"/ops", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d: %s", resp.StatusCode, tt.want, body)
			}
		})
	}

	if resp, _ := e.do(t, http.MethodPost, "/api/pages/ghost/ops", service.Command{Op: service.OpAddRow}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page status %d, want 404", resp.StatusCode)
	}

	// A dangling reference is a no-op, not an error.
	after := e.state(t, http.MethodPost, base+"/ops", service.Command{Op: service.OpDeleteRow, RowID: "ghost"})
	if after.CanUndo || after.IsDirty {
		t.Errorf("dangling delete changed the session: %+v", after)
	}
}

func TestOps_InvalidBatchIsAtomic(t *testing.T) {
	e := newTestEnv(t)
	st := e.state(t, http.MethodPost, "/api/pages", nil)
	base := "/api/pages/" + st.Page.Metadata.ID

	resp, body := e.do(t, http.MethodPost, base+"/ops", []service.Command{
		{Op: service.OpAddRow},
		{Op: "bogus"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "command 1") {
		t.Errorf("error should name the failing command: %s", body)
	}

	after := e.state(t, http.MethodGet, base, nil)
	if len(after.Page.Rows) != 1 || after.CanUndo || after.IsDirty {
		t.Errorf("rejected batch changed the page: rows=%d canUndo=%v dirty=%v",
			len(after.Page.Rows), after.CanUndo, after.IsDirty)
	}
}

func TestOps_BodyTooLarge(t *testing.T) {
	e := newTestEnv(t)
	st := e.state(t, http.MethodPost, "/api/pages", nil)
	base := "/api/pages/" + st.Page.Metadata.ID

	huge := `{"op":"addRow","afterRowId":"` + strings.Repeat("x", 5<<20) + `"}`
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/ops", strings.NewReader(huge)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413", rec.Code)
	}
	if after := e.state(t, http.MethodGet, base, nil); len(after.Page.Rows) != 1 {
		t.Error("oversized request must not change the page")
	}
}

func TestApprovals(t *testing.T) {
	e := newTestEnv(t)
	done := make(chan error, 1)
	go func() {
		done <- e.approvals.Request(t.Context(), "delete_page", "Delete p", "p")
	}()

	var pending []mcpserver.PendingAction
	for i := 0; i < 100 && len(pending) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
		_, body := e.do(t, http.MethodGet, "/api/approvals", nil)
		json.Unmarshal(body, &pending)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending approval, got %d", len(pending))
	}
	if resp, _ := e.do(t, http.MethodPost, "/api/approvals/"+pending[0].ID+"/approve", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("approve status %d", resp.StatusCode)
	}
	if err := <-done; err != nil {
		t.Errorf("approval failed: %v", err)
	}
	if resp, _ := e.do(t, http.MethodPost, "/api/approvals/"+pending[0].ID+"/reject", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("reject of resolved action: status %d", resp.StatusCode)
	}
}

func TestWebSocket_EventsAndCommands(t *testing.T) {
	e := newTestEnv(t)
	st := e.state(t, http.MethodPost, "/api/pages", nil)
	pageID := st.Page.Metadata.ID

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 100 && e.hub.Clients() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}

	req := map[string]any{"id": 7, "pageId": pageID, "command": service.Command{Op: service.OpAddRow}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var gotEvent, gotResponse bool
	for !(gotEvent && gotResponse) {
		var msg map[string]json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev, ok := msg["event"]; ok {
			if string(ev) == `"`+service.EventPageUpdated+`"` {
				gotEvent = true
			}
			continue
		}
		if string(msg["id"]) != "7" {
			t.Fatalf("unexpected message %v", msg)
		}
		if _, ok := msg["error"]; ok {
			t.Fatalf("command failed: %s", msg["error"])
		}
		var state domain.SessionState
		if err := json.Unmarshal(msg["result"], &state); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if len(state.Page.Rows) != 2 {
			t.Errorf("expected 2 rows, got %d", len(state.Page.Rows))
		}
		gotResponse = true
	}
}
