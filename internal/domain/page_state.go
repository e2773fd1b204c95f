package domain

// Selection tracks what the user has selected. It is never versioned.
type Selection struct {
	SelectedBlockID  string `json:"selectedBlockId"`
	SelectedRowID    string `json:"selectedRowId"`
	SelectedColumnID string `json:"selectedColumnId"`
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.SelectedBlockID == "" && s.SelectedRowID == "" && s.SelectedColumnID == ""
}

// Prune drops every selected ID that no longer resolves in p.
func (s Selection) Prune(p Page) Selection {
	ri, rowOK := p.RowIndex(s.SelectedRowID)
	if s.SelectedRowID != "" && !rowOK {
		s.SelectedRowID = ""
	}
	if s.SelectedColumnID != "" {
		found := false
		if rowOK {
			_, found = p.Rows[ri].ColumnIndex(s.SelectedColumnID)
		} else {
			for _, r := range p.Rows {
				if _, ok := r.ColumnIndex(s.SelectedColumnID); ok {
					found = true
					break
				}
			}
		}
		if !found {
			s.SelectedColumnID = ""
		}
	}
	if s.SelectedBlockID != "" {
		if _, _, ok := p.FindBlock(s.SelectedBlockID); !ok {
			s.SelectedBlockID = ""
		}
	}
	return s
}

// SessionState is the complete editor state handed to the presentation
// layer after every change.
type SessionState struct {
	Page      Page      `json:"page"`
	Selection Selection `json:"selection"`
	CanUndo   bool      `json:"canUndo"`
	CanRedo   bool      `json:"canRedo"`
	IsDirty   bool      `json:"isDirty"`
}
