package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pagebuilder/internal/catalog"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/idgen"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// memStore is an in-memory domain.PageStore with a switchable failure.
type memStore struct {
	mu    sync.Mutex
	pages map[string]domain.Page
	revs  map[string]domain.Page
	order []domain.Revision
	fail  error
	saves int

	// when hold is set, SavePage signals held and blocks until hold closes
	hold chan struct{}
	held chan struct{}
}

func newMemStore() *memStore {
	return &memStore{pages: map[string]domain.Page{}, revs: map[string]domain.Page{}}
}

func (m *memStore) SavePage(_ context.Context, p *domain.Page) error {
	if m.hold != nil {
		m.held <- struct{}{}
		<-m.hold
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.pages[p.Metadata.ID] = p.Clone()
	rev := domain.Revision{ID: idgen.NewRevisionID(), PageID: p.Metadata.ID}
	m.revs[rev.ID] = p.Clone()
	m.order = append(m.order, rev)
	return nil
}

func (m *memStore) GetPage(_ context.Context, id string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (m *memStore) ListPages(context.Context) ([]domain.PageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PageSummary
	for _, p := range m.pages {
		out = append(out, domain.PageSummary{ID: p.Metadata.ID, Title: p.Metadata.Title, Slug: p.Metadata.Slug})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeletePage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.pages[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

func (m *memStore) ListRevisions(_ context.Context, pageID string) ([]domain.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Revision
	for i := len(m.order) - 1; i >= 0; i-- {
		if m.order[i].PageID == pageID {
			out = append(out, m.order[i])
		}
	}
	return out, nil
}

func (m *memStore) GetRevision(_ context.Context, id string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.revs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) setFail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

var errDiskFull = errors.New("disk full")

type fixture struct {
	ids     *idgen.Sequence
	store   *memStore
	emitter *service.MockEmitter
	engine  *engine.Engine
}

func newFixture() *fixture {
	ids := idgen.NewSequence("t")
	return &fixture{
		ids:     ids,
		store:   newMemStore(),
		emitter: &service.MockEmitter{},
		engine:  engine.New(ids, catalog.Builtin()),
	}
}

func (f *fixture) session() *service.Session {
	return service.NewSession(domain.DefaultPage(f.ids.NewID), service.SessionDeps{
		Engine:  f.engine,
		Catalog: catalog.Builtin(),
		Store:   f.store,
		Emitter: f.emitter,
	})
}

func (f *fixture) workspace() *service.Workspace {
	return service.NewWorkspace(service.WorkspaceDeps{
		Engine:  f.engine,
		Catalog: catalog.Builtin(),
		Store:   f.store,
		Emitter: f.emitter,
		IDs:     f.ids,
	})
}

func firstCell(s *service.Session) (string, string) {
	p := s.Page()
	return p.Rows[0].ID, p.Rows[0].Columns[0].ID
}
