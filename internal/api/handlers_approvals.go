package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.approvals.Pending())
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if !s.approvals.Approve(chi.URLParam(r, "actionID")) {
		jsonError(w, "no pending action with that id", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if !s.approvals.Reject(chi.URLParam(r, "actionID")) {
		jsonError(w, "no pending action with that id", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
