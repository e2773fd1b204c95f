package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/idgen"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/storage"
)

func samplePage(prefix string) domain.Page {
	p := domain.DefaultPage(idgen.NewSequence(prefix).NewID)
	p.Metadata.Title = "Sobre nós"
	p.Metadata.Slug = "sobre-nos"
	p.Metadata.Tags = []string{"institucional"}
	p.Rows[0].Columns[0].Blocks = []domain.Block{{
		ID:      prefix + "-block",
		Type:    "heading",
		Version: domain.BlockVersion,
		Content: map[string]any{
			"level": float64(2),
			"text":  "Olá",
			"items": []any{map[string]any{"label": "a"}},
		},
		Style:  &domain.BlockStyle{Padding: "8px"},
		Layout: domain.BlockLayout{Alignment: "center"},
	}}
	return p
}

// runStoreContract exercises the behaviour every PageStore shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T, limit int) domain.PageStore) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t, 10)
		p := samplePage("rt")
		if err := s.SavePage(ctx, &p); err != nil {
			t.Fatalf("SavePage: %v", err)
		}
		got, err := s.GetPage(ctx, p.Metadata.ID)
		if err != nil {
			t.Fatalf("GetPage: %v", err)
		}
		if !domain.Equal(*got, p) {
			t.Errorf("round trip changed the page:\n got %+v\nwant %+v", *got, p)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		s := newStore(t, 10)
		p := samplePage("up")
		if err := s.SavePage(ctx, &p); err != nil {
			t.Fatalf("SavePage: %v", err)
		}
		p.Metadata.Title = "Outro título"
		if err := s.SavePage(ctx, &p); err != nil {
			t.Fatalf("SavePage again: %v", err)
		}
		pages, err := s.ListPages(ctx)
		if err != nil {
			t.Fatalf("ListPages: %v", err)
		}
		if len(pages) != 1 {
			t.Fatalf("expected 1 page, got %d", len(pages))
		}
		if pages[0].Title != "Outro título" || pages[0].Slug != "sobre-nos" || pages[0].Status != domain.StatusDraft {
			t.Errorf("unexpected summary %+v", pages[0])
		}
	})

	t.Run("MissingPage", func(t *testing.T) {
		s := newStore(t, 10)
		if _, err := s.GetPage(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetPage: expected ErrNotFound, got %v", err)
		}
		if err := s.DeletePage(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeletePage: expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetRevision(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetRevision: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RevisionsArePrunedOldestFirst", func(t *testing.T) {
		s := newStore(t, 3)
		p := samplePage("rev")
		for i := 1; i <= 5; i++ {
			p.Metadata.Description = string(rune('a' + i - 1))
			if err := s.SavePage(ctx, &p); err != nil {
				t.Fatalf("SavePage %d: %v", i, err)
			}
		}
		revs, err := s.ListRevisions(ctx, p.Metadata.ID)
		if err != nil {
			t.Fatalf("ListRevisions: %v", err)
		}
		if len(revs) != 3 {
			t.Fatalf("expected 3 revisions, got %d", len(revs))
		}
		for i := 1; i < len(revs); i++ {
			if revs[i-1].ID <= revs[i].ID {
				t.Errorf("revisions not newest first: %s before %s", revs[i-1].ID, revs[i].ID)
			}
		}
		want := []string{"e", "d", "c"}
		for i, r := range revs {
			if r.PageID != p.Metadata.ID {
				t.Errorf("revision %s has page %q", r.ID, r.PageID)
			}
			got, err := s.GetRevision(ctx, r.ID)
			if err != nil {
				t.Fatalf("GetRevision %s: %v", r.ID, err)
			}
			if got.Metadata.Description != want[i] {
				t.Errorf("revision %d: description %q, want %q", i, got.Metadata.Description, want[i])
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t, 10)
		a, b := samplePage("a"), samplePage("b")
		for _, p := range []*domain.Page{&a, &b} {
			if err := s.SavePage(ctx, p); err != nil {
				t.Fatalf("SavePage: %v", err)
			}
		}
		if err := s.DeletePage(ctx, a.Metadata.ID); err != nil {
			t.Fatalf("DeletePage: %v", err)
		}
		if _, err := s.GetPage(ctx, a.Metadata.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("deleted page still readable: %v", err)
		}
		revs, err := s.ListRevisions(ctx, a.Metadata.ID)
		if err != nil {
			t.Fatalf("ListRevisions: %v", err)
		}
		if len(revs) != 0 {
			t.Errorf("expected revisions removed, got %d", len(revs))
		}
		pages, _ := s.ListPages(ctx)
		if len(pages) != 1 || pages[0].ID != b.Metadata.ID {
			t.Errorf("expected only %s left, got %+v", b.Metadata.ID, pages)
		}
	})
}

func TestSQLStore_SQLite(t *testing.T) {
	runStoreContract(t, func(t *testing.T, limit int) domain.PageStore {
		db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		s := storage.NewSQLStore(db, limit)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, limit int) domain.PageStore {
		s, err := storage.NewFileStore(t.TempDir(), limit)
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		return s
	})
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	s, err := storage.NewFileStore(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, id := range []string{"", "..", "../escape", `a\b`, "x/y"} {
		p := samplePage("unsafe")
		p.Metadata.ID = id
		if err := s.SavePage(context.Background(), &p); !errors.Is(err, storage.ErrInvalidID) {
			t.Errorf("SavePage(%q): expected ErrInvalidID, got %v", id, err)
		}
		if _, err := s.GetPage(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetPage(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFileStore_PageIDFromPath(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewFileStore(dir, 5)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	tests := []struct {
		path   string
		wantID string
		wantOK bool
	}{
		{filepath.Join(dir, "abc.json"), "abc", true},
		{filepath.Join(dir, "abc.json.tmp"), "", false},
		{filepath.Join(dir, "revisions", "abc", "01H.json"), "", false},
		{filepath.Join(t.TempDir(), "abc.json"), "", false},
	}
	for _, tt := range tests {
		id, ok := s.PageIDFromPath(tt.path)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("PageIDFromPath(%s) = %q, %v; want %q, %v", tt.path, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestWatcher_ReportsExternalWritesOnly(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewFileStore(dir, 5)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	changed := make(chan string, 8)
	w, err := storage.NewWatcher(s, func(id string) { changed <- id })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	p := samplePage("w")
	if err := s.SavePage(context.Background(), &p); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	select {
	case id := <-changed:
		t.Fatalf("own save reported as external change of %s", id)
	case <-time.After(300 * time.Millisecond):
	}

	path := filepath.Join(dir, p.Metadata.ID+".json")
	if err := os.WriteFile(path, []byte(`{"version":"1.0.0","metadata":{"id":"w-1"},"rows":[]}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	select {
	case id := <-changed:
		if id != p.Metadata.ID {
			t.Errorf("expected change of %s, got %s", p.Metadata.ID, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("external write not reported")
	}
}

func TestOpen_SelectsDriver(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	secrets := secret.NewEnvStore()

	sqliteStore, err := storage.Open(ctx, config.Config{StoreDriver: config.DriverSQLite, DataDir: dir}, secrets)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer sqliteStore.Close()
	if _, ok := sqliteStore.(*storage.SQLStore); !ok {
		t.Errorf("expected *SQLStore, got %T", sqliteStore)
	}

	fileStore, err := storage.Open(ctx, config.Config{StoreDriver: config.DriverFile, DataDir: dir}, secrets)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := fileStore.(*storage.FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", fileStore)
	}

	if _, err := storage.Open(ctx, config.Config{StoreDriver: "cassandra"}, secrets); err == nil {
		t.Error("expected error for unknown driver")
	}
}
