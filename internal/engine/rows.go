package engine

import "pagebuilder/internal/domain"

// AddRow inserts a row of columnCount empty columns after afterRowID, or at
// the end when afterRowID is empty or unknown. A columnCount below 1 is
// treated as 1.
func (e *Engine) AddRow(p domain.Page, afterRowID string, columnCount int) domain.Page {
	if columnCount < 1 {
		columnCount = 1
	}
	span := float64(domain.GridColumns) / float64(columnCount)
	row := domain.Row{ID: e.newID(), Columns: make([]domain.Column, columnCount)}
	for i := range row.Columns {
		row.Columns[i] = e.emptyColumn(span)
	}

	at := len(p.Rows)
	if i, ok := p.RowIndex(afterRowID); ok {
		at = i + 1
	}
	out := p
	out.Rows = insertAt(p.Rows, at, row)
	return out
}

// DeleteRow removes a row. The last remaining row is never removed.
func (e *Engine) DeleteRow(p domain.Page, rowID string) domain.Page {
	if len(p.Rows) <= 1 {
		return p
	}
	i, ok := p.RowIndex(rowID)
	if !ok {
		return p
	}
	out := p
	out.Rows = removeAt(p.Rows, i)
	return out
}

// DuplicateRow inserts a copy of the row right after it. The copy and all of
// its columns and blocks get new IDs.
func (e *Engine) DuplicateRow(p domain.Page, rowID string) domain.Page {
	i, ok := p.RowIndex(rowID)
	if !ok {
		return p
	}
	out := p
	out.Rows = insertAt(p.Rows, i+1, e.freshRow(p.Rows[i]))
	return out
}

// MoveRow swaps the row with its neighbour in direction d. Moving the first
// row up or the last row down does nothing.
func (e *Engine) MoveRow(p domain.Page, rowID string, d Direction) domain.Page {
	i, ok := p.RowIndex(rowID)
	if !ok {
		return p
	}
	j, ok := neighbor(i, len(p.Rows), d)
	if !ok {
		return p
	}
	out := p
	out.Rows = swap(p.Rows, i, j)
	return out
}

// RelocateRow moves a row so that it ends up at index in the row sequence.
// A negative or past-the-end index moves it to the end.
func (e *Engine) RelocateRow(p domain.Page, rowID string, index int) domain.Page {
	i, ok := p.RowIndex(rowID)
	if !ok {
		return p
	}
	if resolveIndex(index, len(p.Rows)-1) == i {
		return p
	}
	out := p
	out.Rows = moveTo(p.Rows, i, index)
	return out
}

// UpdateRowStyle replaces a row's style.
func (e *Engine) UpdateRowStyle(p domain.Page, rowID string, style domain.RowStyle) domain.Page {
	return withRow(p, rowID, func(r domain.Row) (domain.Row, bool) {
		if r.Style == style {
			return r, false
		}
		r.Style = style
		return r, true
	})
}
