package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour a DB speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// DB wraps a database/sql connection together with its dialect. Queries
// are written with ? placeholders and rebound for postgres.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) the SQLite file at dbPath.
func OpenSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	return newDB(conn, SQLite)
}

// ServerParams locate a postgres or mysql server.
type ServerParams struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// PostgresDSN builds a lib/pq connection string.
func PostgresDSN(p ServerParams) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.Database, sslMode,
	)
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func MySQLDSN(p ServerParams) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.User, p.Password, p.Host, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

func OpenPostgres(p ServerParams) (*DB, error) {
	conn, err := sql.Open("postgres", PostgresDSN(p))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newDB(conn, Postgres)
}

func OpenMySQL(p ServerParams) (*DB, error) {
	conn, err := sql.Open("mysql", MySQLDSN(p))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return newDB(conn, MySQL)
}

func newDB(conn *sql.DB, d Dialect) (*DB, error) {
	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (db *DB) rebind(q string) string {
	return rebind(db.dialect, q)
}

func rebind(d Dialect, q string) string {
	if d != Postgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func schema(d Dialect) []string {
	id, doc, ts := "TEXT", "TEXT", "DATETIME"
	switch d {
	case Postgres:
		ts = "TIMESTAMPTZ"
	case MySQL:
		id, doc, ts = "VARCHAR(64)", "LONGTEXT", "DATETIME(6)"
	}
	r := strings.NewReplacer("{id}", id, "{doc}", doc, "{ts}", ts)
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id {id} PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			status TEXT NOT NULL,
			document_json {doc} NOT NULL,
			created_at {ts} NOT NULL,
			updated_at {ts} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id {id} PRIMARY KEY,
			page_id {id} NOT NULL,
			document_json {doc} NOT NULL,
			created_at {ts} NOT NULL
		)`,
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS; the index is declared in a
	// separate ALTER that fails harmlessly when it already exists.
	if d == MySQL {
		migrations = append(migrations, `ALTER TABLE page_revisions ADD INDEX idx_page_revisions_page (page_id)`)
	} else {
		migrations = append(migrations, `CREATE INDEX IF NOT EXISTS idx_page_revisions_page ON page_revisions(page_id)`)
	}
	for i, m := range migrations {
		migrations[i] = r.Replace(m)
	}
	return migrations
}

func (db *DB) migrate(ctx context.Context) error {
	for _, m := range schema(db.dialect) {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			if strings.Contains(m, "ADD INDEX") && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
