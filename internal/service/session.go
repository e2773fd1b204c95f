package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/history"
	"pagebuilder/internal/validate"
)

// ErrNoStore is returned by Save when the session has no persistence sink.
var ErrNoStore = errors.New("no page store configured")

// ─────────────────────────────────────────────────────────────
// Session — one page open for editing
// ─────────────────────────────────────────────────────────────

// SessionDeps are the collaborators a Session needs. Store and Emitter may
// be nil.
type SessionDeps struct {
	Engine  *engine.Engine
	Catalog validate.Catalog
	Store   domain.PageStore
	Emitter EventEmitter
}

// Session owns the current page, the selection, the undo history and the
// dirty flag for one page. All methods are safe for concurrent use; each
// call runs to completion before the next one starts.
type Session struct {
	mu        sync.Mutex
	engine    *engine.Engine
	catalog   validate.Catalog
	store     domain.PageStore
	emitter   EventEmitter
	page      domain.Page
	selection domain.Selection
	history   *history.History
	dirty     bool
}

// NewSession opens page for editing. The page becomes the oldest history
// snapshot and starts clean.
func NewSession(page domain.Page, deps SessionDeps) *Session {
	if deps.Emitter == nil {
		deps.Emitter = NoopEmitter{}
	}
	return &Session{
		engine:  deps.Engine,
		catalog: deps.Catalog,
		store:   deps.Store,
		emitter: deps.Emitter,
		page:    page,
		history: history.New(page),
	}
}

// ── Queries ────────────────────────────────────────────────

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Metadata.ID
}

func (s *Session) Page() domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) Selection() domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

func (s *Session) stateLocked() domain.SessionState {
	return domain.SessionState{
		Page:      s.page,
		Selection: s.selection,
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		IsDirty:   s.dirty,
	}
}

func (s *Session) publish(event string, state domain.SessionState) {
	s.emitter.Emit(context.Background(), event, state)
}

// apply runs one engine operation against the current page. A result equal
// to the current page is not recorded. Deletes pass prune so that selected
// IDs that no longer resolve are cleared.
func (s *Session) apply(op string, prune bool, fn func(domain.Page) domain.Page) domain.SessionState {
	state, _ := s.applyOp(op, prune, fn)
	return state
}

// applyOp is apply that also reports whether the page changed.
func (s *Session) applyOp(op string, prune bool, fn func(domain.Page) domain.Page) (domain.SessionState, bool) {
	s.mu.Lock()
	next := fn(s.page)
	if domain.Equal(s.page, next) {
		opsIgnoredTotal.WithLabelValues(op).Inc()
		state := s.stateLocked()
		s.mu.Unlock()
		return state, false
	}
	s.page = next
	s.history.Push(next)
	s.dirty = true
	if prune {
		s.selection = s.selection.Prune(next)
	}
	opsAppliedTotal.WithLabelValues(op).Inc()
	state := s.stateLocked()
	s.mu.Unlock()

	s.publish(EventPageUpdated, state)
	return state, true
}

// ── Selection ──────────────────────────────────────────────

func (s *Session) selectWith(fn func(domain.Selection) domain.Selection) domain.SessionState {
	s.mu.Lock()
	s.selection = fn(s.selection)
	state := s.stateLocked()
	s.mu.Unlock()

	s.publish(EventPageUpdated, state)
	return state
}

// SelectRow selects a row and clears any column or block selection.
func (s *Session) SelectRow(rowID string) domain.SessionState {
	return s.selectWith(func(domain.Selection) domain.Selection {
		return domain.Selection{SelectedRowID: rowID}
	})
}

// SelectColumn selects a column together with its row.
func (s *Session) SelectColumn(rowID, columnID string) domain.SessionState {
	return s.selectWith(func(domain.Selection) domain.Selection {
		return domain.Selection{SelectedRowID: rowID, SelectedColumnID: columnID}
	})
}

// SelectBlock selects a block together with its row and column.
func (s *Session) SelectBlock(rowID, columnID, blockID string) domain.SessionState {
	return s.selectWith(func(domain.Selection) domain.Selection {
		return domain.Selection{SelectedRowID: rowID, SelectedColumnID: columnID, SelectedBlockID: blockID}
	})
}

func (s *Session) ClearSelection() domain.SessionState {
	return s.selectWith(func(domain.Selection) domain.Selection {
		return domain.Selection{}
	})
}

// ── Rows ───────────────────────────────────────────────────

func (s *Session) AddRow(afterRowID string, columnCount int) domain.SessionState {
	return s.apply(OpAddRow, false, func(p domain.Page) domain.Page {
		return s.engine.AddRow(p, afterRowID, columnCount)
	})
}

func (s *Session) DeleteRow(rowID string) domain.SessionState {
	return s.apply(OpDeleteRow, true, func(p domain.Page) domain.Page {
		return s.engine.DeleteRow(p, rowID)
	})
}

func (s *Session) DuplicateRow(rowID string) domain.SessionState {
	return s.apply(OpDuplicateRow, false, func(p domain.Page) domain.Page {
		return s.engine.DuplicateRow(p, rowID)
	})
}

func (s *Session) MoveRow(rowID string, d engine.Direction) domain.SessionState {
	return s.apply(OpMoveRow, false, func(p domain.Page) domain.Page {
		return s.engine.MoveRow(p, rowID, d)
	})
}

func (s *Session) RelocateRow(rowID string, index int) domain.SessionState {
	return s.apply(OpRelocateRow, false, func(p domain.Page) domain.Page {
		return s.engine.RelocateRow(p, rowID, index)
	})
}

func (s *Session) UpdateRowStyle(rowID string, style domain.RowStyle) domain.SessionState {
	return s.apply(OpUpdateRowStyle, false, func(p domain.Page) domain.Page {
		return s.engine.UpdateRowStyle(p, rowID, style)
	})
}

// ── Columns ────────────────────────────────────────────────

func (s *Session) AddColumn(rowID, afterColumnID string) domain.SessionState {
	return s.apply(OpAddColumn, false, func(p domain.Page) domain.Page {
		return s.engine.AddColumn(p, rowID, afterColumnID)
	})
}

func (s *Session) DeleteColumn(rowID, columnID string) domain.SessionState {
	return s.apply(OpDeleteColumn, true, func(p domain.Page) domain.Page {
		return s.engine.DeleteColumn(p, rowID, columnID)
	})
}

func (s *Session) DuplicateColumn(rowID, columnID string) domain.SessionState {
	return s.apply(OpDuplicateColumn, false, func(p domain.Page) domain.Page {
		return s.engine.DuplicateColumn(p, rowID, columnID)
	})
}

func (s *Session) SplitColumn(rowID, columnID string) domain.SessionState {
	return s.apply(OpSplitColumn, false, func(p domain.Page) domain.Page {
		return s.engine.SplitColumn(p, rowID, columnID)
	})
}

func (s *Session) MoveColumn(rowID, columnID string, d engine.Direction) domain.SessionState {
	return s.apply(OpMoveColumn, false, func(p domain.Page) domain.Page {
		return s.engine.MoveColumn(p, rowID, columnID, d)
	})
}

func (s *Session) RelocateColumn(rowID, columnID string, index int) domain.SessionState {
	return s.apply(OpRelocateColumn, false, func(p domain.Page) domain.Page {
		return s.engine.RelocateColumn(p, rowID, columnID, index)
	})
}

func (s *Session) SetColumnGrid(rowID, columnID string, g domain.Grid) domain.SessionState {
	return s.apply(OpSetColumnGrid, false, func(p domain.Page) domain.Page {
		return s.engine.SetColumnGrid(p, rowID, columnID, g)
	})
}

// ── Blocks ─────────────────────────────────────────────────

func (s *Session) AddBlock(rowID, columnID, blockType, afterBlockID string) domain.SessionState {
	return s.apply(OpAddBlock, false, func(p domain.Page) domain.Page {
		return s.engine.AddBlock(p, rowID, columnID, blockType, afterBlockID)
	})
}

func (s *Session) UpdateBlock(rowID, columnID, blockID string, patch domain.BlockPatch) domain.SessionState {
	return s.apply(OpUpdateBlock, false, func(p domain.Page) domain.Page {
		return s.engine.UpdateBlock(p, rowID, columnID, blockID, patch)
	})
}

func (s *Session) DeleteBlock(rowID, columnID, blockID string) domain.SessionState {
	return s.apply(OpDeleteBlock, true, func(p domain.Page) domain.Page {
		return s.engine.DeleteBlock(p, rowID, columnID, blockID)
	})
}

func (s *Session) DuplicateBlock(rowID, columnID, blockID string) domain.SessionState {
	return s.apply(OpDuplicateBlock, false, func(p domain.Page) domain.Page {
		return s.engine.DuplicateBlock(p, rowID, columnID, blockID)
	})
}

func (s *Session) MoveBlock(rowID, columnID, blockID string, d engine.Direction) domain.SessionState {
	return s.apply(OpMoveBlock, false, func(p domain.Page) domain.Page {
		return s.engine.MoveBlock(p, rowID, columnID, blockID, d)
	})
}

// RelocateBlock moves a block to another position, possibly in another
// column, as a single undo step. A selection pointing at the moved block
// keeps the block but follows it to its new row and column.
func (s *Session) RelocateBlock(src domain.BlockRef, target domain.ColumnRef, index int) domain.SessionState {
	state, changed := s.applyOp(OpRelocateBlock, false, func(p domain.Page) domain.Page {
		return s.engine.RelocateBlock(p, src, target, index)
	})
	if !changed || state.Selection.SelectedBlockID != src.BlockID || src.Column() == target {
		return state
	}
	if ref, _, ok := state.Page.FindBlock(src.BlockID); !ok || ref.Column() != target {
		return state
	}
	return s.SelectBlock(target.RowID, target.ColumnID, src.BlockID)
}

// ── Metadata ───────────────────────────────────────────────

func (s *Session) UpdateMetadata(patch domain.MetadataPatch) domain.SessionState {
	return s.apply(OpUpdateMetadata, false, func(p domain.Page) domain.Page {
		return s.engine.UpdateMetadata(p, patch)
	})
}

// ── History ────────────────────────────────────────────────

// Undo restores the previous snapshot. The selection is left alone.
func (s *Session) Undo() domain.SessionState {
	return s.step(OpUndo, s.history.Undo)
}

// Redo restores the next snapshot. The selection is left alone.
func (s *Session) Redo() domain.SessionState {
	return s.step(OpRedo, s.history.Redo)
}

func (s *Session) step(op string, move func() (domain.Page, bool)) domain.SessionState {
	s.mu.Lock()
	p, ok := move()
	if !ok {
		opsIgnoredTotal.WithLabelValues(op).Inc()
		state := s.stateLocked()
		s.mu.Unlock()
		return state
	}
	s.page = p
	s.dirty = true
	opsAppliedTotal.WithLabelValues(op).Inc()
	state := s.stateLocked()
	s.mu.Unlock()

	s.publish(EventPageUpdated, state)
	return state
}

// ── Validation & persistence ───────────────────────────────

// Validate checks the current page. It never changes the session.
func (s *Session) Validate() []validate.FieldError {
	p := s.Page()
	errs := validate.ValidatePage(s.catalog, p)
	validationErrorsTotal.Add(float64(len(errs)))
	return errs
}

// Save writes the current page to the store with metadata.updatedAt set to
// the save time. On success the session is clean unless it was edited while
// the save was in flight; on failure the page, history and dirty flag are
// untouched.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	base := s.page
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return ErrNoStore
	}

	p := base
	p.Metadata.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	timer := prometheus.NewTimer(saveDuration)
	err := store.SavePage(ctx, &p)
	timer.ObserveDuration()
	if err != nil {
		savesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("save page %s: %w", p.Metadata.ID, err)
	}
	savesTotal.WithLabelValues("ok").Inc()

	s.mu.Lock()
	if domain.Equal(s.page, base) {
		s.page.Metadata.UpdatedAt = p.Metadata.UpdatedAt
		s.dirty = false
	}
	state := s.stateLocked()
	s.mu.Unlock()

	log.Printf("[SESSION] saved page %s", p.Metadata.ID)
	s.publish(EventPageSaved, state)
	return nil
}

// Restore replaces the whole page, keeping its ID, as one undoable step.
func (s *Session) Restore(p domain.Page) domain.SessionState {
	return s.apply(OpRestore, true, func(cur domain.Page) domain.Page {
		p.Metadata.ID = cur.Metadata.ID
		return p
	})
}
