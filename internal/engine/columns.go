package engine

import "pagebuilder/internal/domain"

// AddColumn inserts an empty column into the row after afterColumnID (or at
// the end) and rebalances every column of the row to an equal span.
func (e *Engine) AddColumn(p domain.Page, rowID, afterColumnID string) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		at := len(r.Columns)
		if i, ok := r.ColumnIndex(afterColumnID); ok {
			at = i + 1
		}
		r.Columns = rebalance(insertAt(r.Columns, at, e.emptyColumn(0)))
		return r, true
	})
}

// DeleteColumn removes a column and rebalances the rest. A row's last
// column is never removed.
func (e *Engine) DeleteColumn(p domain.Page, rowID, columnID string) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		if len(r.Columns) <= 1 {
			return r, false
		}
		i, ok := r.ColumnIndex(columnID)
		if !ok {
			return r, false
		}
		r.Columns = rebalance(removeAt(r.Columns, i))
		return r, true
	})
}

// DuplicateColumn inserts a copy of the column (new IDs for it and its
// blocks) right after it, then rebalances.
func (e *Engine) DuplicateColumn(p domain.Page, rowID, columnID string) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		i, ok := r.ColumnIndex(columnID)
		if !ok {
			return r, false
		}
		r.Columns = rebalance(insertAt(r.Columns, i+1, e.freshColumn(r.Columns[i])))
		return r, true
	})
}

// SplitColumn replaces a column with two half-width columns. The first
// keeps the original ID and blocks; the second is new and empty. Sibling
// spans are left alone, so the row total can exceed the grid until it is
// adjusted; validation reports it.
func (e *Engine) SplitColumn(p domain.Page, rowID, columnID string) domain.Page {
	const half = domain.GridColumns / 2
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		i, ok := r.ColumnIndex(columnID)
		if !ok {
			return r, false
		}
		first := r.Columns[i]
		first.Grid = domain.UniformGrid(half)
		cols := replaceAt(r.Columns, i, first)
		r.Columns = insertAt(cols, i+1, e.emptyColumn(half))
		return r, true
	})
}

// MoveColumn swaps the column with its neighbour in direction d.
func (e *Engine) MoveColumn(p domain.Page, rowID, columnID string, d Direction) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		i, ok := r.ColumnIndex(columnID)
		if !ok {
			return r, false
		}
		j, ok := neighbor(i, len(r.Columns), d)
		if !ok {
			return r, false
		}
		r.Columns = swap(r.Columns, i, j)
		return r, true
	})
}

// RelocateColumn moves a column to index within its row.
func (e *Engine) RelocateColumn(p domain.Page, rowID, columnID string, index int) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		i, ok := r.ColumnIndex(columnID)
		if !ok || resolveIndex(index, len(r.Columns)-1) == i {
			return r, false
		}
		r.Columns = moveTo(r.Columns, i, index)
		return r, true
	})
}

// SetColumnGrid replaces a column's spans. Used to fix up widths by hand,
// typically after SplitColumn.
func (e *Engine) SetColumnGrid(p domain.Page, rowID, columnID string, g domain.Grid) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		if c.Grid == g {
			return c, false
		}
		c.Grid = g
		return c, true
	})
}
