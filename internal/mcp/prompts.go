package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a landing page with a hero, features and a call to action"),
		mcp.WithArgument("product",
			mcp.ArgumentDescription("Product or topic of the page"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("fix_validation",
		mcp.WithPromptDescription("Run validation on the active page and fix every reported problem"),
	), s.handleFixValidationPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("two_column_article",
		mcp.WithPromptDescription("Lay out an article with a main column and a sidebar"),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Article title"),
			mcp.RequiredArgument(),
		),
	), s.handleTwoColumnArticlePrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	product := req.Params.Arguments["product"]
	return userPrompt(
		fmt.Sprintf("Build a landing page for: %s", product),
		fmt.Sprintf(`Build a landing page for "%s". Follow these steps:

1. create_page with a title and a slug made of lowercase letters, digits and hyphens
2. In the first row, add a heading block (level 1) and a text block describing %s, then a button block
3. add_row with columnCount 3 and put one feature (heading + text) in each column
4. add_row with a single column holding a call-to-action button
5. Fill content with update_block or set_block_field; keep every image's alt text filled in
6. validate_page and fix anything it reports, then save_page`, product, product),
	), nil
}

func (s *Server) handleFixValidationPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Fix validation errors on the active page",
		`Call validate_page on the active page. For every error:

- metadata.* errors: fix them with update_metadata
- <row>-grid.<breakpoint> errors: the spans in that row add up to more than 12; use set_column_grid to shrink them
- <row>-<column>-<block>-<field> errors: use get_page_state to read the block, then set_block_field to fix the field

Validate again until the list is empty, then save_page.`,
	), nil
}

func (s *Server) handleTwoColumnArticlePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := req.Params.Arguments["title"]
	return userPrompt(
		fmt.Sprintf("Lay out the article %q", title),
		fmt.Sprintf(`Lay out an article titled "%s" on the active page:

1. add_row with columnCount 2
2. set_column_grid on the first column: xs 12, sm 12, md 8, lg 8; on the second: xs 12, sm 12, md 4, lg 4
3. In the main column add a heading block with the title, then markdown blocks for the body
4. In the sidebar add a list block with related links
5. validate_page, then save_page`, title),
	), nil
}
