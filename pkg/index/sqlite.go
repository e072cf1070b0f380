package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)

	errs "flickrbackup/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS photos (
	id         TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	indexed_at INTEGER NOT NULL
)`

// SQLiteSink keeps documents in a local SQLite file
type SQLiteSink struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteSink opens or creates the index database at path
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; concurrent consumers queue up here instead of on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

// Upsert stores body under photoID
func (s *SQLiteSink) Upsert(ctx context.Context, photoID string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (id, body, indexed_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body, indexed_at = excluded.indexed_at`,
		photoID, string(body), s.now().Unix())
	if err != nil {
		return errs.Wrap(errs.ErrorTypePersistence, "index", err)
	}
	return nil
}

// Get returns the document stored for photoID
func (s *SQLiteSink) Get(ctx context.Context, photoID string) ([]byte, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM photos WHERE id = ?`, photoID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrorTypePersistence, "index", err)
	}
	return []byte(body), true, nil
}

// Count returns the number of indexed photos
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&n); err != nil {
		return 0, errs.Wrap(errs.ErrorTypePersistence, "index", err)
	}
	return n, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
