package app

import (
	"context"
	"fmt"
	"log"

	"pagebuilder/internal/catalog"
	"pagebuilder/internal/config"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// ServeMCP runs the page builder as a standalone MCP server on
// stdin/stdout. There are no connected clients, so events are dropped and
// delete_page is not offered. Dirty pages are saved when the server exits.
func ServeMCP(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	secrets, err := secret.Open(cfg.SecretBackend)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, cfg, secrets)
	if err != nil {
		return err
	}
	defer store.Close()

	cat := catalog.Builtin()
	ws := service.NewWorkspace(service.WorkspaceDeps{
		Engine:  engine.New(idgen.Default, cat),
		Catalog: cat,
		Store:   store,
		Emitter: service.NoopEmitter{},
	})
	defer func() {
		if err := ws.SaveAll(context.Background()); err != nil {
			log.Printf("[MCP] save on exit: %v", err)
		}
	}()

	autosave := service.NewAutosaver(ws, cfg.AutosaveSpec)
	if err := autosave.Start(); err != nil {
		return err
	}
	defer autosave.Stop(context.Background())

	srv := mcpserver.New(mcpserver.Deps{Workspace: ws, Catalog: cat})

	log.Printf("[MCP] Starting standalone stdio server (store=%s)...", cfg.StoreDriver)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	}
}
