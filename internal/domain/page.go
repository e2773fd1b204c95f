package domain

import (
	"context"
	"time"
)

// GridColumns is the width of the layout grid every span is measured against.
const GridColumns = 12

// DocumentVersion is the format version written into every new page.
const DocumentVersion = "1.0.0"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Page is the root document. A Page value is treated as immutable: every
// edit produces a new Page.
type Page struct {
	Version  string       `json:"version"`
	Metadata PageMetadata `json:"metadata"`
	Rows     []Row        `json:"rows"`
}

type PageMetadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Status      string    `json:"status"`
	Locale      string    `json:"locale"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tags        []string  `json:"tags"`
}

// MetadataPatch updates page metadata. Nil fields are left untouched.
type MetadataPatch struct {
	Title       *string  `json:"title,omitempty"`
	Slug        *string  `json:"slug,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Locale      *string  `json:"locale,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Row is a horizontal section of the page.
type Row struct {
	ID      string   `json:"id"`
	Style   RowStyle `json:"style"`
	Columns []Column `json:"columns"`
}

type RowStyle struct {
	Background string `json:"background,omitempty"`
	Padding    string `json:"padding,omitempty"`
}

// Column is a layout slot inside a Row.
type Column struct {
	ID     string  `json:"id"`
	Grid   Grid    `json:"grid"`
	Blocks []Block `json:"blocks"`
}

// Breakpoint names a responsive width class.
type Breakpoint string

const (
	BreakpointXS Breakpoint = "xs"
	BreakpointSM Breakpoint = "sm"
	BreakpointMD Breakpoint = "md"
	BreakpointLG Breakpoint = "lg"
)

// Breakpoints lists every breakpoint in ascending width order.
var Breakpoints = []Breakpoint{BreakpointXS, BreakpointSM, BreakpointMD, BreakpointLG}

// Grid holds a column's span per breakpoint, out of GridColumns.
// Fractional spans are allowed.
type Grid struct {
	XS float64 `json:"xs"`
	SM float64 `json:"sm"`
	MD float64 `json:"md"`
	LG float64 `json:"lg"`
}

// UniformGrid returns a grid with the same span on every breakpoint.
func UniformGrid(span float64) Grid {
	return Grid{XS: span, SM: span, MD: span, LG: span}
}

// Span returns the span for bp, or 0 for an unknown breakpoint.
func (g Grid) Span(bp Breakpoint) float64 {
	switch bp {
	case BreakpointXS:
		return g.XS
	case BreakpointSM:
		return g.SM
	case BreakpointMD:
		return g.MD
	case BreakpointLG:
		return g.LG
	}
	return 0
}

// DefaultPage builds the starting document: one Row holding one full-width
// Column with no Blocks.
func DefaultPage(newID func() string) Page {
	now := time.Now().UTC().Truncate(time.Second)
	return Page{
		Version: DocumentVersion,
		Metadata: PageMetadata{
			ID:        newID(),
			Title:     "Nova Página",
			Slug:      "nova-pagina",
			Status:    StatusDraft,
			Locale:    "pt-BR",
			CreatedAt: now,
			UpdatedAt: now,
			Tags:      []string{},
		},
		Rows: []Row{{
			ID: newID(),
			Columns: []Column{{
				ID:     newID(),
				Grid:   UniformGrid(GridColumns),
				Blocks: []Block{},
			}},
		}},
	}
}

// ── Lookups ────────────────────────────────────────────────
// IDs are weak references: every lookup reports whether it resolved.

func (p Page) RowIndex(rowID string) (int, bool) {
	for i := range p.Rows {
		if p.Rows[i].ID == rowID {
			return i, true
		}
	}
	return -1, false
}

func (r Row) ColumnIndex(columnID string) (int, bool) {
	for i := range r.Columns {
		if r.Columns[i].ID == columnID {
			return i, true
		}
	}
	return -1, false
}

func (c Column) BlockIndex(blockID string) (int, bool) {
	for i := range c.Blocks {
		if c.Blocks[i].ID == blockID {
			return i, true
		}
	}
	return -1, false
}

// FindBlock resolves a block by ID anywhere in the page.
func (p Page) FindBlock(blockID string) (BlockRef, Block, bool) {
	for _, r := range p.Rows {
		for _, c := range r.Columns {
			if i, ok := c.BlockIndex(blockID); ok {
				return BlockRef{RowID: r.ID, ColumnID: c.ID, BlockID: blockID}, c.Blocks[i], true
			}
		}
	}
	return BlockRef{}, Block{}, false
}

// BlockCount returns the number of blocks in the whole page.
func (p Page) BlockCount() int {
	n := 0
	for _, r := range p.Rows {
		for _, c := range r.Columns {
			n += len(c.Blocks)
		}
	}
	return n
}

// ColumnRef addresses a Column by its owning Row.
type ColumnRef struct {
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
}

// BlockRef addresses a Block by its owning Row and Column.
type BlockRef struct {
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
	BlockID  string `json:"blockId"`
}

func (r BlockRef) Column() ColumnRef {
	return ColumnRef{RowID: r.RowID, ColumnID: r.ColumnID}
}

// ── Persistence contract ───────────────────────────────────

// PageSummary is the listing view of a stored page.
type PageSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Revision is one saved version of a page.
type Revision struct {
	ID        string    `json:"id"`
	PageID    string    `json:"pageId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PageStore persists pages. Every SavePage also records a revision.
type PageStore interface {
	SavePage(ctx context.Context, p *Page) error
	GetPage(ctx context.Context, id string) (*Page, error)
	ListPages(ctx context.Context) ([]PageSummary, error)
	DeletePage(ctx context.Context, id string) error
	ListRevisions(ctx context.Context, pageID string) ([]Revision, error)
	GetRevision(ctx context.Context, revisionID string) (*Page, error)
	Close() error
}
