package engine

import "pagebuilder/internal/domain"

// AddBlock inserts a new block of blockType after afterBlockID, or at the
// end of the column. Its content is the type's default content; unknown
// types start with empty content.
func (e *Engine) AddBlock(p domain.Page, rowID, columnID, blockType, afterBlockID string) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		at := len(c.Blocks)
		if i, ok := c.BlockIndex(afterBlockID); ok {
			at = i + 1
		}
		c.Blocks = insertAt(c.Blocks, at, e.newBlock(blockType))
		return c, true
	})
}

func (e *Engine) newBlock(blockType string) domain.Block {
	var content map[string]any
	if e.defaults != nil {
		content = e.defaults.DefaultContent(blockType)
	}
	if content == nil {
		content = map[string]any{}
	}
	return domain.Block{
		ID:      e.newID(),
		Type:    blockType,
		Version: domain.BlockVersion,
		Content: content,
	}
}

// UpdateBlock merges patch into the block one level deep: each field set in
// the patch replaces the block's field entirely, the rest are kept.
func (e *Engine) UpdateBlock(p domain.Page, rowID, columnID, blockID string, patch domain.BlockPatch) domain.Page {
	if patch.IsEmpty() {
		return p
	}
	return withBlock(p, rowID, columnID, blockID, func(b domain.Block) (domain.Block, bool) {
		if patch.Content != nil {
			b.Content = domain.CloneContent(patch.Content)
		}
		if patch.Style != nil {
			s := *patch.Style
			b.Style = &s
		}
		if patch.Layout != nil {
			b.Layout = *patch.Layout
		}
		if patch.Accessibility != nil {
			a := *patch.Accessibility
			if a.TabIndex != nil {
				ti := *a.TabIndex
				a.TabIndex = &ti
			}
			b.Accessibility = a
		}
		return b, true
	})
}

// DeleteBlock removes a block. Columns may end up empty.
func (e *Engine) DeleteBlock(p domain.Page, rowID, columnID, blockID string) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		i, ok := c.BlockIndex(blockID)
		if !ok {
			return c, false
		}
		c.Blocks = removeAt(c.Blocks, i)
		return c, true
	})
}

// DuplicateBlock inserts a copy with a new ID right after the block.
func (e *Engine) DuplicateBlock(p domain.Page, rowID, columnID, blockID string) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		i, ok := c.BlockIndex(blockID)
		if !ok {
			return c, false
		}
		c.Blocks = insertAt(c.Blocks, i+1, e.freshBlock(c.Blocks[i]))
		return c, true
	})
}

// MoveBlock swaps the block with its neighbour in the same column.
func (e *Engine) MoveBlock(p domain.Page, rowID, columnID, blockID string, d Direction) domain.Page {
	return withColumn(p, rowID, columnID, func(c domain.Column) (domain.Column, bool) {
		i, ok := c.BlockIndex(blockID)
		if !ok {
			return c, false
		}
		j, ok := neighbor(i, len(c.Blocks), d)
		if !ok {
			return c, false
		}
		c.Blocks = swap(c.Blocks, i, j)
		return c, true
	})
}

// RelocateBlock moves a block out of its column and into target at index,
// where index counts positions in the target column after the block has
// been taken out of its source. A negative or past-the-end index appends.
// The block keeps its ID and content. Any reference that does not resolve
// makes this a no-op, as does dropping a block back on its own position.
func (e *Engine) RelocateBlock(p domain.Page, src domain.BlockRef, target domain.ColumnRef, index int) domain.Page {
	sr, ok := p.RowIndex(src.RowID)
	if !ok {
		return p
	}
	sc, ok := p.Rows[sr].ColumnIndex(src.ColumnID)
	if !ok {
		return p
	}
	srcCol := p.Rows[sr].Columns[sc]
	bi, ok := srcCol.BlockIndex(src.BlockID)
	if !ok {
		return p
	}
	tr, ok := p.RowIndex(target.RowID)
	if !ok {
		return p
	}
	if _, ok := p.Rows[tr].ColumnIndex(target.ColumnID); !ok {
		return p
	}

	if src.Column() == target {
		if resolveIndex(index, len(srcCol.Blocks)-1) == bi {
			return p
		}
		return withColumn(p, src.RowID, src.ColumnID, func(c domain.Column) (domain.Column, bool) {
			c.Blocks = moveTo(c.Blocks, bi, index)
			return c, true
		})
	}

	block := srcCol.Blocks[bi]
	out := withColumn(p, src.RowID, src.ColumnID, func(c domain.Column) (domain.Column, bool) {
		c.Blocks = removeAt(c.Blocks, bi)
		return c, true
	})
	return withColumn(out, target.RowID, target.ColumnID, func(c domain.Column) (domain.Column, bool) {
		c.Blocks = insertAt(c.Blocks, resolveIndex(index, len(c.Blocks)), block)
		return c, true
	})
}
