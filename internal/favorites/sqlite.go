package favorites

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/waabox/sekideck/internal/domain"
)

// SQLiteStore is a FavoritesStore persisted in a SQLite database.
// Every write is committed before the call returns.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	set string
}

// Ensure SQLiteStore implements FavoritesStore.
var _ domain.FavoritesStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and binds the
// store to the named set. An empty set name selects DefaultSet.
func OpenSQLite(path, set string) (*SQLiteStore, error) {
	if set == "" {
		set = DefaultSet
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps toggles strictly ordered
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, set: set}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=FULL;`,
		`CREATE TABLE IF NOT EXISTS favorites (
			set_name TEXT NOT NULL,
			full_name TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_utc TEXT NOT NULL,
			PRIMARY KEY (set_name, full_name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_position ON favorites(set_name, position);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate favorites: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_name FROM favorites WHERE set_name = ? ORDER BY position ASC`, s.set)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, fullName string) error {
	n, err := normalize(fullName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, s.db, n)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insert(ctx context.Context, db execer, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO favorites (set_name, full_name, position, created_utc)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM favorites WHERE set_name = ?), ?)
		ON CONFLICT(set_name, full_name) DO NOTHING
	`, s.set, name, s.set, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("add favorite %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, fullName string) error {
	n, err := normalize(fullName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE set_name = ? AND full_name = ?`, s.set, n); err != nil {
		return fmt.Errorf("remove favorite %s: %w", n, err)
	}
	return nil
}

func (s *SQLiteStore) Toggle(ctx context.Context, fullName string) (bool, error) {
	n, err := normalize(fullName)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggle favorite %s: %w", n, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM favorites WHERE set_name = ? AND full_name = ?`, s.set, n)
	if err != nil {
		return false, fmt.Errorf("toggle favorite %s: %w", n, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle favorite %s: %w", n, err)
	}
	if removed == 0 {
		if err := s.insert(ctx, tx, n); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggle favorite %s: %w", n, err)
	}
	return removed == 0, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, fullName string) (bool, error) {
	n, err := normalize(fullName)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var one int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE set_name = ? AND full_name = ?`, s.set, n).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup favorite %s: %w", n, err)
	}
	return true, nil
}
