package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/idgen"
)

// ErrInvalidID is returned for IDs that cannot be used as file names.
var ErrInvalidID = errors.New("invalid id")

const (
	pageExt      = ".json"
	revisionsDir = "revisions"
)

// FileStore keeps one JSON file per page under dir, plus a revisions
// directory per page:
//
//	<dir>/<pageID>.json
//	<dir>/revisions/<pageID>/<revisionID>.json
type FileStore struct {
	dir   string
	limit int

	mu      sync.Mutex
	written map[string][sha256.Size]byte // path -> hash of our last write
}

var _ domain.PageStore = (*FileStore)(nil)

func NewFileStore(dir string, revisionLimit int) (*FileStore, error) {
	if revisionLimit <= 0 {
		revisionLimit = DefaultRevisionLimit
	}
	if err := os.MkdirAll(filepath.Join(dir, revisionsDir), 0755); err != nil {
		return nil, fmt.Errorf("create pages directory: %w", err)
	}
	return &FileStore{dir: dir, limit: revisionLimit, written: make(map[string][sha256.Size]byte)}, nil
}

// Dir returns the directory holding the page files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Close() error { return nil }

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *FileStore) pagePath(id string) string {
	return filepath.Join(s.dir, id+pageExt)
}

func (s *FileStore) revisionDir(pageID string) string {
	return filepath.Join(s.dir, revisionsDir, pageID)
}

// writeAtomic writes data to a temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) SavePage(_ context.Context, p *domain.Page) error {
	id := p.Metadata.ID
	if err := checkID(id); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	path := s.pagePath(id)
	s.mu.Lock()
	s.written[path] = sha256.Sum256(data)
	s.mu.Unlock()
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write page %s: %w", id, err)
	}

	revPath := filepath.Join(s.revisionDir(id), idgen.NewRevisionID()+pageExt)
	if err := writeAtomic(revPath, data); err != nil {
		return fmt.Errorf("write revision: %w", err)
	}
	return s.pruneIfNeeded(id)
}

func (s *FileStore) pruneIfNeeded(pageID string) error {
	names, err := s.revisionNames(pageID)
	if err != nil {
		return err
	}
	if len(names) <= s.limit {
		return nil
	}
	old := names[:len(names)-s.limit]
	for _, name := range old {
		if err := os.Remove(filepath.Join(s.revisionDir(pageID), name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete revision %s: %w", name, err)
		}
	}
	log.Printf("[STORE] pruned %d revisions of page %s", len(old), pageID)
	return nil
}

// revisionNames lists revision file names of a page, oldest first.
func (s *FileStore) revisionNames(pageID string) ([]string, error) {
	entries, err := os.ReadDir(s.revisionDir(pageID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read revisions: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), pageExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func readPage(path string) (*domain.Page, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return decodePage(string(data))
}

func (s *FileStore) GetPage(_ context.Context, id string) (*domain.Page, error) {
	if err := checkID(id); err != nil {
		return nil, ErrNotFound
	}
	return readPage(s.pagePath(id))
}

func (s *FileStore) ListPages(_ context.Context) ([]domain.PageSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read pages directory: %w", err)
	}
	out := []domain.PageSummary{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), pageExt) {
			continue
		}
		p, err := readPage(filepath.Join(s.dir, e.Name()))
		if err != nil {
			log.Printf("[STORE] skipping %s: %v", e.Name(), err)
			continue
		}
		var modTime time.Time
		if info, err := e.Info(); err == nil {
			modTime = info.ModTime().UTC()
		}
		out = append(out, domain.PageSummary{
			ID:        p.Metadata.ID,
			Title:     p.Metadata.Title,
			Slug:      p.Metadata.Slug,
			Status:    p.Metadata.Status,
			UpdatedAt: modTime,
		})
	}
	slices.SortFunc(out, func(a, b domain.PageSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *FileStore) DeletePage(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return ErrNotFound
	}
	path := s.pagePath(id)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete page: %w", err)
	}
	s.mu.Lock()
	delete(s.written, path)
	s.mu.Unlock()
	if err := os.RemoveAll(s.revisionDir(id)); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	return nil
}

func (s *FileStore) ListRevisions(_ context.Context, pageID string) ([]domain.Revision, error) {
	if err := checkID(pageID); err != nil {
		return []domain.Revision{}, nil
	}
	names, err := s.revisionNames(pageID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Revision, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		id := strings.TrimSuffix(names[i], pageExt)
		rev := domain.Revision{ID: id, PageID: pageID}
		if info, err := os.Stat(filepath.Join(s.revisionDir(pageID), names[i])); err == nil {
			rev.CreatedAt = info.ModTime().UTC()
		}
		out = append(out, rev)
	}
	return out, nil
}

func (s *FileStore) GetRevision(_ context.Context, revisionID string) (*domain.Page, error) {
	if err := checkID(revisionID); err != nil {
		return nil, ErrNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, revisionsDir, "*", revisionID+pageExt))
	if err != nil {
		return nil, fmt.Errorf("find revision: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return readPage(matches[0])
}

// PageIDFromPath returns the page ID for a top-level page file of this
// store, or false for any other path.
func (s *FileStore) PageIDFromPath(path string) (string, bool) {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(s.dir) {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, pageExt) {
		return "", false
	}
	return strings.TrimSuffix(name, pageExt), true
}

// lastWrite returns the hash of what this store last wrote to path.
func (s *FileStore) lastWrite(path string) ([sha256.Size]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.written[filepath.Clean(path)]
	return sum, ok
}
