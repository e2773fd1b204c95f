package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/validate"

	"github.com/go-chi/chi/v5"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 4 << 20

// decodeOptional decodes a JSON body of at most maxBodyBytes into v. An
// empty body leaves v as is.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeDecodeError answers 413 for an oversized body and 400 otherwise.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPageNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidCommand):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrCorruptPage):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrNoStore):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// session opens the page named in the URL, writing the error response when
// it cannot.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := s.workspace.Open(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleBlockTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

type pageListing struct {
	Open   []service.SessionInfo `json:"open"`
	Stored []domain.PageSummary  `json:"stored"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	out := pageListing{Open: s.workspace.List(), Stored: []domain.PageSummary{}}
	stored, err := s.workspace.Stored(r.Context())
	if err != nil && !errors.Is(err, service.ErrNoStore) {
		writeServiceError(w, err)
		return
	}
	if err == nil {
		out.Stored = stored
	}
	writeJSON(w, http.StatusOK, out)
}

type createPageRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	sess := s.workspace.Create(req.Title, req.Slug)
	writeJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace.Delete(r.Context(), chi.URLParam(r, "pageID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if !s.workspace.Close(chi.URLParam(r, "pageID")) {
		jsonError(w, "page is not open", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOps applies one command, or an array of commands in order. The
// whole batch is checked first; one invalid command rejects all of them.
// The response is the state after the last one.
func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeDecodeError(w, err)
		return
	}
	var cmds []service.Command
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &cmds); err != nil {
			jsonError(w, "invalid commands: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		var cmd service.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			jsonError(w, "invalid command: "+err.Error(), http.StatusBadRequest)
			return
		}
		cmds = []service.Command{cmd}
	}

	state, err := sess.ExecuteAll(cmds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Undo())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Redo())
}

type selectRequest struct {
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
	BlockID  string `json:"blockId"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	state, err := sess.Execute(service.SelectCommand(req.RowID, req.ColumnID, req.BlockID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type validateResponse struct {
	Valid  bool                  `json:"valid"`
	Errors []validate.FieldError `json:"errors"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	errs := sess.Validate()
	if errs == nil {
		errs = []validate.FieldError{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.workspace.Revisions(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

func (s *Server) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	state, err := s.workspace.RestoreRevision(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "revisionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
