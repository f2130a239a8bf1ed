// Package sqlite provides a SQLite-backed arcontent.Repository for single node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/repo/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists AR metadata in SQLite.
type Store struct {
	sqlDB *sql.DB
	db    dbtx
	tx    *sql.Tx
	depth int
}

var _ arcontent.Repository = (*Store)(nil)

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, db: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func mapError(operation string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return arcontent.ErrNotFound
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("referenced record not found")
		case sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("required field is missing in %s", operation)
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("duplicate entry")
		}
	}
	return fmt.Errorf("sqlite error in %s: %w", operation, err)
}

func (s *Store) Insert(ctx context.Context, e arcontent.Entity) (int64, error) {
	t, err := lookup(e.Kind())
	if err != nil {
		return 0, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`, t.name, strings.Join(t.columns, ", "), placeholders)

	var id int64
	if err := s.db.QueryRowContext(ctx, query, t.values(e)...).Scan(&id); err != nil {
		return 0, mapError("insert "+string(e.Kind()), err)
	}
	e.SetEntityID(id)
	return id, nil
}

func (s *Store) Get(ctx context.Context, kind arcontent.Kind, id int64) (arcontent.Entity, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s WHERE id = ?`, strings.Join(t.columns, ", "), t.name)
	e, err := t.scan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get "+string(kind), err)
	}
	return e, nil
}

func (s *Store) Save(ctx context.Context, e arcontent.Entity) error {
	t, err := lookup(e.Kind())
	if err != nil {
		return err
	}

	sets := make([]string, len(t.columns))
	for i, col := range t.columns {
		sets[i] = col + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, t.name, strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, append(t.values(e), e.EntityID())...)
	if err != nil {
		return mapError("save "+string(e.Kind()), err)
	}
	return expectRow(res, "save "+string(e.Kind()))
}

// Delete removes a row. Deleting a project detaches the resources it owned.
func (s *Store) Delete(ctx context.Context, kind arcontent.Kind, id int64) error {
	t, err := lookup(kind)
	if err != nil {
		return err
	}

	if kind == arcontent.KindProject {
		if _, err := s.db.ExecContext(ctx, `UPDATE resources SET project_id = NULL WHERE project_id = ?`, id); err != nil {
			return mapError("detach resources", err)
		}
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id)
	if err != nil {
		return mapError("delete "+string(kind), err)
	}
	return expectRow(res, "delete "+string(kind))
}

func (s *Store) ListIDs(ctx context.Context, kind arcontent.Kind) ([]int64, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return s.queryIDs(ctx, "list "+string(kind), fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, t.name))
}

func (s *Store) Page(ctx context.Context, kind arcontent.Kind, page, size int) ([]arcontent.Entity, int64, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, 0, err
	}
	if page < 0 || size < 1 {
		return nil, 0, fmt.Errorf("invalid page %d/%d", page, size)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&total); err != nil {
		return nil, 0, mapError("count "+string(kind), err)
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY id LIMIT ? OFFSET ?`, strings.Join(t.columns, ", "), t.name)
	rows, err := s.db.QueryContext(ctx, query, size, page*size)
	if err != nil {
		return nil, 0, mapError("page "+string(kind), err)
	}
	defer rows.Close()

	result := []arcontent.Entity{}
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, 0, mapError("page "+string(kind), err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("page "+string(kind), err)
	}
	return result, total, nil
}

func (s *Store) ResourceIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	return s.queryIDs(ctx, "list project resources", `SELECT id FROM resources WHERE project_id = ? ORDER BY id`, projectID)
}

// Atomically runs fn inside a transaction. Nested calls use savepoints.
func (s *Store) Atomically(ctx context.Context, fn func(repo arcontent.Repository) error) error {
	if s.tx != nil {
		return s.savepoint(ctx, fn)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin", err)
	}
	if err := fn(&Store{sqlDB: s.sqlDB, db: tx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

func (s *Store) savepoint(ctx context.Context, fn func(repo arcontent.Repository) error) error {
	name := fmt.Sprintf("sp_%d", s.depth+1)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return mapError("savepoint", err)
	}
	if err := fn(&Store{sqlDB: s.sqlDB, db: s.tx, tx: s.tx, depth: s.depth + 1}); err != nil {
		_, _ = s.tx.ExecContext(ctx, "ROLLBACK TO "+name)
		_, _ = s.tx.ExecContext(ctx, "RELEASE "+name)
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return mapError("release savepoint", err)
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, operation, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(operation, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(operation, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(operation, err)
	}
	return ids, nil
}

func expectRow(res sql.Result, operation string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(operation, err)
	}
	if n == 0 {
		return arcontent.ErrNotFound
	}
	return nil
}
