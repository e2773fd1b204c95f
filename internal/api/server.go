package api

import (
	"net/http"

	"pagebuilder/internal/catalog"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API server for the page builder.
type Server struct {
	router    chi.Router
	workspace *service.Workspace
	catalog   *catalog.Registry
	hub       *Hub
	approvals *mcpserver.ApprovalQueue
	mcp       http.Handler
}

// Deps holds what the app layer hands to the HTTP server. Approvals and
// MCP are optional.
type Deps struct {
	Workspace *service.Workspace
	Catalog   *catalog.Registry
	Hub       *Hub
	Approvals *mcpserver.ApprovalQueue
	MCP       http.Handler
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps) *Server {
	s := &Server{
		workspace: deps.Workspace,
		catalog:   deps.Catalog,
		hub:       deps.Hub,
		approvals: deps.Approvals,
		mcp:       deps.MCP,
	}
	if s.hub == nil {
		s.hub = NewHub()
	}
	s.hub.SetWorkspace(deps.Workspace)
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.hub.ServeHTTP)
	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/block-types", s.handleBlockTypes)

		r.Get("/pages", s.handleListPages)
		r.Post("/pages", s.handleCreatePage)
		r.Route("/pages/{pageID}", func(r chi.Router) {
			r.Get("/", s.handleGetPage)
			r.Delete("/", s.handleDeletePage)
			r.Post("/ops", s.handleOps)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/select", s.handleSelect)
			r.Get("/validate", s.handleValidate)
			r.Post("/save", s.handleSave)
			r.Post("/close", s.handleClose)
			r.Get("/revisions", s.handleRevisions)
			r.Post("/revisions/{revisionID}/restore", s.handleRestoreRevision)
		})

		if s.approvals != nil {
			r.Get("/approvals", s.handleListApprovals)
			r.Post("/approvals/{actionID}/approve", s.handleApprove)
			r.Post("/approvals/{actionID}/reject", s.handleReject)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
