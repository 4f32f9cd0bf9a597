// Package sqlite provides the durable mutation queue backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS mutations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	url TEXT NOT NULL,
	method TEXT NOT NULL,
	headers TEXT NOT NULL DEFAULT '{}',
	body BLOB,
	enqueued_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mutations_kind_enqueued ON mutations(kind, enqueued_at);
`

// Store wraps a SQLite database holding the mutation queue.
type Store struct {
	db *sql.DB
}

var _ ports.MutationStore = (*Store)(nil)

// Open opens (and if needed creates) the queue database at path.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Put appends a mutation and returns its assigned ID.
func (s *Store) Put(ctx context.Context, m domain.Mutation) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	kind := strings.TrimSpace(m.Kind)
	if kind == "" {
		return 0, errors.New("mutation kind is required")
	}
	url := strings.TrimSpace(m.URL)
	if url == "" {
		return 0, errors.New("mutation url is required")
	}
	method := strings.TrimSpace(m.Method)
	if method == "" {
		return 0, errors.New("mutation method is required")
	}

	header := m.Header
	if header == nil {
		header = http.Header{}
	}
	headers, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("encode mutation headers: %w", err)
	}

	enqueued := m.EnqueuedAt
	if enqueued.IsZero() {
		enqueued = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mutations (kind, url, method, headers, body, enqueued_at) VALUES (?, ?, ?, ?, ?, ?)`,
		kind, url, method, string(headers), m.Body, enqueued.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert mutation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("mutation id: %w", err)
	}
	return id, nil
}

// GetAllByKind returns all mutations of a kind in insertion order.
func (s *Store) GetAllByKind(ctx context.Context, kind string) ([]domain.Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, url, method, headers, body, enqueued_at FROM mutations WHERE kind = ? ORDER BY id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	var out []domain.Mutation
	for rows.Next() {
		var (
			m          domain.Mutation
			headers    string
			enqueuedMs int64
		)
		if err := rows.Scan(&m.ID, &m.Kind, &m.URL, &m.Method, &headers, &m.Body, &enqueuedMs); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		// A corrupt header blob replays without headers rather than
		// blocking every record of the kind.
		if headers != "" {
			_ = json.Unmarshal([]byte(headers), &m.Header)
		}
		m.EnqueuedAt = time.UnixMilli(enqueuedMs)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a mutation by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mutations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete mutation %d: %w", id, err)
	}
	return nil
}

// Kinds lists the distinct kinds currently queued.
func (s *Store) Kinds(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT kind FROM mutations ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	var kinds []string
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}

// Len reports the total number of queued mutations.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
