package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/idgen"
)

// ErrNotFound is returned when a page or revision does not exist.
var ErrNotFound = errors.New("not found")

// DefaultRevisionLimit is the number of revisions kept per page when no
// limit is configured.
const DefaultRevisionLimit = 40

// SQLStore persists pages as JSON documents in a SQL database.
type SQLStore struct {
	db    *DB
	limit int
}

var _ domain.PageStore = (*SQLStore)(nil)

// NewSQLStore wraps db. A limit <= 0 uses DefaultRevisionLimit.
func NewSQLStore(db *DB, revisionLimit int) *SQLStore {
	if revisionLimit <= 0 {
		revisionLimit = DefaultRevisionLimit
	}
	return &SQLStore{db: db, limit: revisionLimit}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) upsertSQL() string {
	switch s.db.dialect {
	case MySQL:
		return `INSERT INTO pages (id, title, slug, status, document_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE title = VALUES(title), slug = VALUES(slug), status = VALUES(status),
				document_json = VALUES(document_json), updated_at = VALUES(updated_at)`
	default:
		return `INSERT INTO pages (id, title, slug, status, document_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title, slug = excluded.slug, status = excluded.status,
				document_json = excluded.document_json, updated_at = excluded.updated_at`
	}
}

// SavePage upserts the page and appends a revision in one transaction.
func (s *SQLStore) SavePage(ctx context.Context, p *domain.Page) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	now := time.Now().UTC()
	created := p.Metadata.CreatedAt
	if created.IsZero() {
		created = now
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.rebind(s.upsertSQL()),
		p.Metadata.ID, p.Metadata.Title, p.Metadata.Slug, p.Metadata.Status, string(doc), created, now,
	); err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.db.rebind(
		`INSERT INTO page_revisions (id, page_id, document_json, created_at) VALUES (?, ?, ?, ?)`),
		idgen.NewRevisionID(), p.Metadata.ID, string(doc), now,
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	if err := s.pruneIfNeeded(ctx, tx, p.Metadata.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// pruneIfNeeded removes the oldest revisions once a page has more than the
// configured limit.
func (s *SQLStore) pruneIfNeeded(ctx context.Context, tx *sql.Tx, pageID string) error {
	var count int
	if err := tx.QueryRowContext(ctx, s.db.rebind(
		`SELECT COUNT(*) FROM page_revisions WHERE page_id = ?`), pageID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count revisions: %w", err)
	}
	if count <= s.limit {
		return nil
	}

	rows, err := tx.QueryContext(ctx, s.db.rebind(
		`SELECT id FROM page_revisions WHERE page_id = ? ORDER BY id ASC LIMIT ?`),
		pageID, count-s.limit,
	)
	if err != nil {
		return fmt.Errorf("select old revisions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan revision id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM page_revisions WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete revision %s: %w", id, err)
		}
	}
	log.Printf("[STORE] pruned %d revisions of page %s", len(ids), pageID)
	return nil
}

func (s *SQLStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	var doc string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT document_json FROM pages WHERE id = ?`), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return decodePage(doc)
}

func (s *SQLStore) ListPages(ctx context.Context) ([]domain.PageSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, title, slug, status, updated_at FROM pages ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := []domain.PageSummary{}
	for rows.Next() {
		var ps domain.PageSummary
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.Slug, &ps.Status, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// DeletePage removes the page and all its revisions.
func (s *SQLStore) DeletePage(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM pages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM page_revisions WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	return tx.Commit()
}

// ListRevisions returns the revisions of a page, newest first.
func (s *SQLStore) ListRevisions(ctx context.Context, pageID string) ([]domain.Revision, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, page_id, created_at FROM page_revisions WHERE page_id = ? ORDER BY id DESC`), pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	out := []domain.Revision{}
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.PageID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetRevision(ctx context.Context, revisionID string) (*domain.Page, error) {
	var doc string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT document_json FROM page_revisions WHERE id = ?`), revisionID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return decodePage(doc)
}

func decodePage(doc string) (*domain.Page, error) {
	var p domain.Page
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &p, nil
}
