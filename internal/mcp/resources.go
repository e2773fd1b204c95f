package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pagesURI      = "pagebuilder://pages"
	pageURIPrefix = "pagebuilder://page/"
	blockTypesURI = "pagebuilder://block-types"
)

func (s *Server) registerResources() {
	// ── pagebuilder://pages ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pagesURI,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── pagebuilder://block-types ──────────────────────
	s.mcp.AddResource(mcp.NewResource(
		blockTypesURI,
		"Block Types",
		mcp.WithMIMEType("application/json"),
	), s.handleBlockTypesResource)

	// ── pagebuilder://page/{pageId} ────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}",
			"Page Document",
		),
		s.handlePageResource,
	)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out := pageListing{Open: s.workspace.List(), Stored: []any{}}
	stored, err := s.workspace.Stored(ctx)
	if err != nil && !errors.Is(err, service.ErrNoStore) {
		return nil, err
	}
	if err == nil {
		out.Stored = stored
	}
	return jsonResource(pagesURI, out)
}

func (s *Server) handleBlockTypesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(blockTypesURI, s.catalog.List())
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := pageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}
	sess, err := s.workspace.Open(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, sess.Page())
}

// pageIDFromURI extracts the page ID from "pagebuilder://page/{id}".
func pageIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
