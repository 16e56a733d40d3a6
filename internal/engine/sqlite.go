package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS passports (
	id         TEXT PRIMARY KEY,
	doc        BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores record documents in a SQLite table.
type SQLiteBackend struct {
	db    *sql.DB
	codec Codec
	backendLog
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string, codec Codec) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single connection keeps writes ordered
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create passports table: %w", err)
	}
	return &SQLiteBackend{db: db, codec: codec}, nil
}

// Save upserts the record document.
func (s *SQLiteBackend) Save(ctx context.Context, id string, snap passport.Snapshot) error {
	if id == "" {
		return ErrInvalidRecordID
	}
	doc, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO passports (id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		id, doc, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save passport: %w", err)
	}
	return nil
}

// LoadAll reads every stored document.
func (s *SQLiteBackend) LoadAll(ctx context.Context) (map[string]passport.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM passports`)
	if err != nil {
		return nil, fmt.Errorf("list passports: %w", err)
	}
	defer rows.Close()

	all := make(map[string]passport.Snapshot)
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan passport: %w", err)
		}
		snap, err := s.codec.Decode(doc)
		if err != nil {
			s.logger().Warn("could not decode passport row", "record", id, "error", err)
			continue
		}
		all[id] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passports: %w", err)
	}
	return all, nil
}

// Close closes the database handle.
func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
