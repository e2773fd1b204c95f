package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"pagebuilder/internal/api"
	"pagebuilder/internal/catalog"
	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// App owns everything the HTTP server needs: the page store, the open
// sessions, and the transports in front of them.
type App struct {
	cfg config.Config

	store     domain.PageStore
	catalog   *catalog.Registry
	workspace *service.Workspace
	hub       *api.Hub
	approvals *mcpserver.ApprovalQueue
	mcp       *mcpserver.Server
	api       *api.Server
	autosave  *service.Autosaver

	// External change detection: fsnotify for the file store, polling
	// for everything else.
	files  *storage.Watcher
	poller *pageWatcher
}

// New opens the configured store and builds the services on top of it.
// Nothing runs in the background until Start.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	secrets, err := secret.Open(cfg.SecretBackend)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, cfg, secrets)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, store), nil
}

func newApp(cfg config.Config, store domain.PageStore) *App {
	a := &App{cfg: cfg, store: store, catalog: catalog.Builtin()}

	a.hub = api.NewHub()
	var emitter service.EventEmitter = a.hub
	if _, isFile := store.(*storage.FileStore); !isFile && cfg.WatchFiles {
		a.poller = newPageWatcher(store, defaultPollInterval, func(id string) {
			a.workspace.ExternalChange(id)
		})
		emitter = fanout{a.hub, a.poller}
	}

	a.workspace = service.NewWorkspace(service.WorkspaceDeps{
		Engine:  engine.New(idgen.Default, a.catalog),
		Catalog: a.catalog,
		Store:   store,
		Emitter: emitter,
	})
	a.approvals = mcpserver.NewApprovalQueue(a.hub, mcpserver.DefaultApprovalTimeout)
	a.mcp = mcpserver.New(mcpserver.Deps{
		Workspace: a.workspace,
		Catalog:   a.catalog,
		Emitter:   a.hub,
		Approvals: a.approvals,
	})
	a.api = api.NewServer(api.Deps{
		Workspace: a.workspace,
		Catalog:   a.catalog,
		Hub:       a.hub,
		Approvals: a.approvals,
		MCP:       a.mcp.Handler(),
	})
	a.autosave = service.NewAutosaver(a.workspace, cfg.AutosaveSpec)
	return a
}

func (a *App) Handler() http.Handler { return a.api }

func (a *App) Workspace() *service.Workspace { return a.workspace }

// Start launches autosave and external change detection.
func (a *App) Start(ctx context.Context) error {
	if err := a.autosave.Start(); err != nil {
		return err
	}
	if fs, ok := a.store.(*storage.FileStore); ok && a.cfg.WatchFiles {
		w, err := storage.NewWatcher(fs, a.workspace.ExternalChange)
		if err != nil {
			return fmt.Errorf("watch pages: %w", err)
		}
		a.files = w
	}
	if a.poller != nil {
		a.poller.Start(ctx)
	}
	return nil
}

// Shutdown stops the background work, saves dirty pages and closes the
// store. Errors are joined so one failure does not skip the rest.
func (a *App) Shutdown(ctx context.Context) error {
	a.autosave.Stop(ctx)
	if a.poller != nil {
		a.poller.Stop()
	}
	var errs []error
	if a.files != nil {
		if err := a.files.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	if err := a.workspace.SaveAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("save open pages: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// Run serves HTTP on cfg.HTTPAddr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, cfg config.Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		a.Shutdown(context.Background())
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      a.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] listening on %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Println("[HTTP] shutting down...")
	case err := <-serveErr:
		if err != nil {
			a.Shutdown(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] shutdown: %v", err)
	}
	return a.Shutdown(shutdownCtx)
}

// fanout delivers every event to each emitter in order.
type fanout []service.EventEmitter

func (f fanout) Emit(ctx context.Context, event string, data any) {
	for _, e := range f {
		e.Emit(ctx, event, data)
	}
}
