package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/validate"
)

var (
	// ErrPageNotFound is returned when a page is neither open nor stored.
	ErrPageNotFound = errors.New("page not found")
	// ErrCorruptPage is returned when a stored document breaks the tree
	// invariants and cannot be edited.
	ErrCorruptPage = errors.New("corrupt page")
)

// ─────────────────────────────────────────────────────────────
// Workspace — the set of pages open for editing
// ─────────────────────────────────────────────────────────────

type WorkspaceDeps struct {
	Engine  *engine.Engine
	Catalog validate.Catalog
	Store   domain.PageStore
	Emitter EventEmitter
	IDs     idgen.Generator
}

// Workspace keys open sessions by page ID.
type Workspace struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     WorkspaceDeps
}

func NewWorkspace(deps WorkspaceDeps) *Workspace {
	if deps.IDs == nil {
		deps.IDs = idgen.Default
	}
	if deps.Emitter == nil {
		deps.Emitter = NoopEmitter{}
	}
	return &Workspace{sessions: make(map[string]*Session), deps: deps}
}

// SessionInfo is the listing view of an open session.
type SessionInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	IsDirty bool   `json:"isDirty"`
}

func (w *Workspace) newSession(p domain.Page) *Session {
	return NewSession(p, SessionDeps{
		Engine:  w.deps.Engine,
		Catalog: w.deps.Catalog,
		Store:   w.deps.Store,
		Emitter: w.deps.Emitter,
	})
}

func (w *Workspace) add(s *Session) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := s.ID()
	if existing, ok := w.sessions[id]; ok {
		return existing
	}
	w.sessions[id] = s
	openSessions.Inc()
	return s
}

// Create opens a new default page. Empty title or slug keep the defaults.
// The page is not stored until it is saved.
func (w *Workspace) Create(title, slug string) *Session {
	p := domain.DefaultPage(w.deps.IDs.NewID)
	if t := strings.TrimSpace(title); t != "" {
		p.Metadata.Title = t
	}
	if sl := strings.TrimSpace(slug); sl != "" {
		p.Metadata.Slug = sl
	}
	s := w.add(w.newSession(p))
	log.Printf("[WORKSPACE] created page %s", p.Metadata.ID)
	return s
}

// Open returns the session for id, loading the page from the store when it
// is not open yet.
func (w *Workspace) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := w.Get(id); ok {
		return s, nil
	}
	if w.deps.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	p, err := w.deps.Store.GetPage(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", id, err)
	}
	if err := checkDocument(*p); err != nil {
		return nil, fmt.Errorf("open page %s: %w", id, err)
	}
	s := w.add(w.newSession(*p))
	log.Printf("[WORKSPACE] opened page %s", id)
	return s, nil
}

func (w *Workspace) Get(id string) (*Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	return s, ok
}

// Close drops the session without saving. It reports whether the page was
// open.
func (w *Workspace) Close(id string) bool {
	w.mu.Lock()
	_, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return false
	}
	openSessions.Dec()
	w.deps.Emitter.Emit(context.Background(), EventPageClosed, map[string]string{"pageId": id})
	return true
}

// Sessions returns the open sessions ordered by page ID.
func (w *Workspace) Sessions() []*Session {
	w.mu.RLock()
	out := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int { return strings.Compare(a.ID(), b.ID()) })
	return out
}

func (w *Workspace) List() []SessionInfo {
	sessions := w.Sessions()
	out := make([]SessionInfo, len(sessions))
	for i, s := range sessions {
		st := s.State()
		out[i] = SessionInfo{
			ID:      st.Page.Metadata.ID,
			Title:   st.Page.Metadata.Title,
			Slug:    st.Page.Metadata.Slug,
			IsDirty: st.IsDirty,
		}
	}
	return out
}

// SaveAll saves every dirty session and joins the failures.
func (w *Workspace) SaveAll(ctx context.Context) error {
	var errs []error
	for _, s := range w.Sessions() {
		if !s.IsDirty() {
			continue
		}
		if err := s.Save(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stored lists pages known to the store.
func (w *Workspace) Stored(ctx context.Context) ([]domain.PageSummary, error) {
	if w.deps.Store == nil {
		return nil, ErrNoStore
	}
	pages, err := w.deps.Store.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// Delete removes the page from the store and then closes it. When the store
// fails the session stays open with its edits and history.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	if w.deps.Store != nil {
		err := w.deps.Store.DeletePage(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			w.Close(id)
			return fmt.Errorf("%w: %s", ErrPageNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("delete page %s: %w", id, err)
		}
	}
	w.Close(id)
	return nil
}

// Revisions lists the stored revisions of a page, newest first.
func (w *Workspace) Revisions(ctx context.Context, id string) ([]domain.Revision, error) {
	if w.deps.Store == nil {
		return nil, ErrNoStore
	}
	revs, err := w.deps.Store.ListRevisions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}

// RestoreRevision loads a stored revision into the page's session as one
// undoable step.
func (w *Workspace) RestoreRevision(ctx context.Context, pageID, revisionID string) (domain.SessionState, error) {
	s, err := w.Open(ctx, pageID)
	if err != nil {
		return domain.SessionState{}, err
	}
	rev, err := w.deps.Store.GetRevision(ctx, revisionID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.State(), fmt.Errorf("%w: revision %s", ErrPageNotFound, revisionID)
	}
	if err != nil {
		return s.State(), fmt.Errorf("get revision %s: %w", revisionID, err)
	}
	if rev.Metadata.ID != pageID {
		return s.State(), fmt.Errorf("%w: revision %s belongs to another page", ErrPageNotFound, revisionID)
	}
	if err := checkDocument(*rev); err != nil {
		return s.State(), fmt.Errorf("restore revision %s: %w", revisionID, err)
	}
	return s.Restore(*rev), nil
}

// ExternalChange tells clients that a stored page was rewritten outside
// this process. Open sessions are not reloaded.
func (w *Workspace) ExternalChange(pageID string) {
	_, open := w.Get(pageID)
	w.deps.Emitter.Emit(context.Background(), EventPageExternalChange, map[string]any{
		"pageId": pageID,
		"open":   open,
	})
}

func checkDocument(p domain.Page) error {
	if errs := domain.CheckInvariants(p); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCorruptPage, errors.Join(errs...))
	}
	return nil
}
