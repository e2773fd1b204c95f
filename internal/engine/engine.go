// Package engine implements the page mutation operations.
//
// Every operation takes a Page and returns a new Page; the input is never
// modified. Untouched rows, columns and blocks are shared between the input
// and the result, so callers must treat both as read-only values.
//
// IDs are weak references. An operation that names a row, column or block
// that is not in the page returns the page unchanged, as does an operation
// refused by a structural guard (deleting the last row or column). Nothing
// in this package returns an error.
package engine

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/idgen"
)

// Direction is the direction of a single-step move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// DefaultContentSource supplies the initial content for a new block.
// Returning nil means the type carries no default content.
type DefaultContentSource interface {
	DefaultContent(blockType string) map[string]any
}

// Engine applies mutations to pages. It holds no page state.
type Engine struct {
	ids      idgen.Generator
	defaults DefaultContentSource
}

// New creates an Engine. A nil generator falls back to idgen.Default; a nil
// content source makes every new block content-free.
func New(ids idgen.Generator, defaults DefaultContentSource) *Engine {
	if ids == nil {
		ids = idgen.Default
	}
	return &Engine{ids: ids, defaults: defaults}
}

func (e *Engine) newID() string {
	return e.ids.NewID()
}

// ── copy-on-write helpers ──────────────────────────────────

// withRow replaces the row rowID with fn's result. fn returning false
// leaves the page untouched.
func withRow(p domain.Page, rowID string, fn func(domain.Row) (domain.Row, bool)) domain.Page {
	i, ok := p.RowIndex(rowID)
	if !ok {
		return p
	}
	r, changed := fn(p.Rows[i])
	if !changed {
		return p
	}
	out := p
	out.Rows = replaceAt(p.Rows, i, r)
	return out
}

// withColumn replaces column columnID of row rowID with fn's result.
func withColumn(p domain.Page, rowID, columnID string, fn func(domain.Column) (domain.Column, bool)) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		i, ok := r.ColumnIndex(columnID)
		if !ok {
			return r, false
		}
		c, changed := fn(r.Columns[i])
		if !changed {
			return r, false
		}
		r.Columns = replaceAt(r.Columns, i, c)
		return r, true
	})
}

// withBlock replaces block blockID inside the addressed column.
func withBlock(p domain.Page, rowID, columnID, blockID string, fn func(domain.Block) (domain.Block, bool)) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		i, ok := c.BlockIndex(blockID)
		if !ok {
			return c, false
		}
		b, changed := fn(c.Blocks[i])
		if !changed {
			return c, false
		}
		c.Blocks = replaceAt(c.Blocks, i, b)
		return c, true
	})
}

// rebalance gives every column an equal share of the grid on every
// breakpoint.
func rebalance(cols []domain.Column) []domain.Column {
	if len(cols) == 0 {
		return cols
	}
	span := float64(domain.GridColumns) / float64(len(cols))
	out := make([]domain.Column, len(cols))
	for i, c := range cols {
		c.Grid = domain.UniformGrid(span)
		out[i] = c
	}
	return out
}

// ── fresh copies ───────────────────────────────────────────

func (e *Engine) freshBlock(b domain.Block) domain.Block {
	out := b.Clone()
	out.ID = e.newID()
	return out
}

func (e *Engine) freshColumn(c domain.Column) domain.Column {
	out := domain.Column{ID: e.newID(), Grid: c.Grid, Blocks: make([]domain.Block, len(c.Blocks))}
	for i, b := range c.Blocks {
		out.Blocks[i] = e.freshBlock(b)
	}
	return out
}

func (e *Engine) freshRow(r domain.Row) domain.Row {
	out := domain.Row{ID: e.newID(), Style: r.Style, Columns: make([]domain.Column, len(r.Columns))}
	for i, c := range r.Columns {
		out.Columns[i] = e.freshColumn(c)
	}
	return out
}

func (e *Engine) emptyColumn(span float64) domain.Column {
	return domain.Column{ID: e.newID(), Grid: domain.UniformGrid(span), Blocks: []domain.Block{}}
}
