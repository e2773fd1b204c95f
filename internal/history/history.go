// Package history keeps a bounded, linear list of page snapshots with a
// cursor for undo and redo.
//
// Snapshots are stored as-is. Pages produced by the engine share untouched
// subtrees, so holding fifty of them costs roughly one page plus the edited
// paths.
package history

import "pagebuilder/internal/domain"

// MaxSnapshots bounds how many pages are retained, current one included.
const MaxSnapshots = 50

type History struct {
	snapshots []domain.Page
	cursor    int
}

// New starts a history whose only snapshot is initial.
func New(initial domain.Page) *History {
	return &History{snapshots: []domain.Page{initial}}
}

// Push records p as the new current page. Every snapshot after the cursor
// is discarded; once the list grows past MaxSnapshots the oldest goes.
func (h *History) Push(p domain.Page) {
	kept := h.snapshots[:h.cursor+1]
	// Drop references to the truncated future so it can be collected.
	clear(h.snapshots[h.cursor+1:])
	h.snapshots = append(kept, p)
	if len(h.snapshots) > MaxSnapshots {
		over := len(h.snapshots) - MaxSnapshots
		h.snapshots = append([]domain.Page(nil), h.snapshots[over:]...)
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (h *History) Undo() (domain.Page, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.cursor--
	return h.snapshots[h.cursor], true
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (h *History) Redo() (domain.Page, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.cursor++
	return h.snapshots[h.cursor], true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Current returns the snapshot under the cursor.
func (h *History) Current() domain.Page { return h.snapshots[h.cursor] }

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Cursor returns the index of the current snapshot.
func (h *History) Cursor() int { return h.cursor }

// Reset forgets everything and starts over from p.
func (h *History) Reset(p domain.Page) {
	h.snapshots = []domain.Page{p}
	h.cursor = 0
}
