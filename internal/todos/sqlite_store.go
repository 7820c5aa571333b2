package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer at a time; sqlite serialises anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// ApplyMigrations ensures schema exists
func (s *SQLiteStore) ApplyMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS todos (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0
);
	`)
	return err
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, completed
		FROM todos
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Todo, error) {
	return getTodo(ctx, s.db, id)
}

func (s *SQLiteStore) Append(ctx context.Context, t Todo) error {
	return insertTodo(ctx, s.db, t)
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, all []Todo) error {
	if err := checkUnique(all); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM todos`); err != nil {
			return fmt.Errorf("clear todos: %w", err)
		}
		for _, t := range all {
			if err := insertTodo(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) RemoveByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*Todo)) (Todo, error) {
	var out Todo
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTodo(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(&t)
		t.ID = id
		if _, err := tx.ExecContext(ctx, `
			UPDATE todos SET title = ?, description = ?, completed = ?
			WHERE id = ?
		`, t.Title, t.Description, t.Completed, id); err != nil {
			return fmt.Errorf("update todo: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return Todo{}, err
	}
	return out, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTodo(ctx context.Context, q querier, id string) (Todo, error) {
	var t Todo
	err := q.QueryRowContext(ctx, `
		SELECT id, title, description, completed
		FROM todos
		WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

func insertTodo(ctx context.Context, q querier, t Todo) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO todos (id, title, description, completed)
		VALUES (?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Completed)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
